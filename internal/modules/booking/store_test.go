package booking

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxibook/internal/infra"
	"taxibook/internal/modules/pricing"
	"taxibook/internal/types"
)

func TestStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, pricing.NewService(pricing.DefaultRateTable()), nil, nil, nil)
	ctx := context.Background()

	in := oneWayInput()
	ret := in.PickupAt.Add(30 * time.Hour)
	in.TripType = TripRoundTrip
	in.ReturnAt = &ret
	in.Charges = Charges{Toll: 120, Parking: 40, WaitingMinutes: 30}

	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Fare, got.Fare)
	assert.Equal(t, created.Customer, got.Customer)
	assert.Equal(t, created.Charges, got.Charges)
	require.NotNil(t, got.ReturnAt)
	assert.True(t, ret.Equal(*got.ReturnAt))
	assert.Equal(t, 2, got.NumberOfDays)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListUpdateAndStatus(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, pricing.NewService(pricing.DefaultRateTable()), nil, nil, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, oneWayInput())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := svc.Create(ctx, oneWayInput())
	require.NoError(t, err)

	list, err := store.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	in := oneWayInput()
	in.DistanceKm = 10
	updated, err := svc.Update(ctx, first.ID, in)
	require.NoError(t, err)
	assert.Equal(t, int64(650), updated.Fare.Amount)

	// stale version loses
	ok, err := store.Update(ctx, updated, first.StatusVersion)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Confirm(ctx, first.ID, nil)
	require.NoError(t, err)
	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)

	require.NoError(t, svc.Delete(ctx, second.ID))
	assert.ErrorIs(t, store.Delete(ctx, second.ID), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, types.ID("nope")), ErrNotFound)
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TAXI_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TAXI_TEST_DB_DSN not set; skipping DB-backed booking store tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	root, err := infra.RepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	if err := infra.Migrate(ctx, db, filepath.Join(root, "migrations")); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE booking_status_events, bookings"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewStore(db)
}
