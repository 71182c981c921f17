// README: Booking service tests (create workflow, repricing, status flow, races).
package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxibook/internal/maps"
	"taxibook/internal/modules/pricing"
	"taxibook/internal/types"
)

var (
	bandra  = types.Point{Lat: 19.0596, Lng: 72.8295}
	airport = types.Point{Lat: 19.0896, Lng: 72.8656}
)

type stubDistance struct {
	route maps.Route
	err   error
	calls int
}

func (s *stubDistance) Distance(context.Context, types.Point, types.Point) (maps.Route, error) {
	s.calls++
	return s.route, s.err
}

type recordedEvent struct {
	kind string
	id   types.ID
	from Status
	to   Status
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) record(e recordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) PublishBookingCreated(_ context.Context, b *Booking) error {
	return p.record(recordedEvent{kind: "created", id: b.ID, to: b.Status})
}

func (p *recordingPublisher) PublishBookingUpdated(_ context.Context, b *Booking) error {
	return p.record(recordedEvent{kind: "updated", id: b.ID, to: b.Status})
}

func (p *recordingPublisher) PublishBookingStatusChanged(_ context.Context, b *Booking, from Status) error {
	return p.record(recordedEvent{kind: "status_changed", id: b.ID, from: from, to: b.Status})
}

func (p *recordingPublisher) PublishBookingDeleted(_ context.Context, id types.ID) error {
	return p.record(recordedEvent{kind: "deleted", id: id})
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}

type fixture struct {
	svc      *Service
	repo     *MemoryStore
	distance *stubDistance
	events   *recordingPublisher
}

func newFixture(t *testing.T, rates *pricing.RateTable) *fixture {
	t.Helper()
	if rates == nil {
		rates = pricing.DefaultRateTable()
	}
	f := &fixture{
		repo:     NewMemoryStore(),
		distance: &stubDistance{route: maps.Route{DistanceKm: 50, DurationMin: 60}},
		events:   &recordingPublisher{},
	}
	f.svc = NewService(f.repo, pricing.NewService(rates), f.distance, f.events, nil)

	var mu sync.Mutex
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}
	return f
}

func oneWayInput() Input {
	return Input{
		UserID:         "u-1",
		VehicleType:    pricing.VehicleSedan,
		TripType:       TripOneWay,
		PickupLocation: "Bandra West",
		DropLocation:   "Pune Station",
		PickupAt:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		DistanceKm:     100,
		Customer:       Customer{Name: "Asha", Email: "asha@example.com", Phone: "+91 98200 00000"},
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		// skipping and terminal states
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusConfirmed, StatusPending, false},
		{StatusNone, StatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCreatePricesAndPersists(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, oneWayInput())
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, types.Money{Amount: 2000, Currency: "INR"}, b.Fare)
	assert.Equal(t, 1, b.NumberOfDays)
	assert.Zero(t, f.distance.calls)

	stored, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Fare, stored.Fare)
	assert.Equal(t, []string{"created"}, f.events.kinds())

	history := f.repo.Events(b.ID)
	require.Len(t, history, 1)
	assert.Equal(t, StatusNone, history[0].FromStatus)
	assert.Equal(t, StatusPending, history[0].ToStatus)
}

func TestCreateTripTypes(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		want   int64
	}{
		{
			name:   "round trip doubles",
			mutate: func(in *Input) { in.TripType = TripRoundTrip },
			want:   4000,
		},
		{
			name: "round trip days from return date",
			mutate: func(in *Input) {
				in.TripType = TripRoundTrip
				ret := in.PickupAt.Add(56 * time.Hour)
				in.ReturnAt = &ret
			},
			want: 12000, // 4000 * 3 days
		},
		{
			name: "outstation hill station with toll",
			mutate: func(in *Input) {
				in.TripType = TripOutstation
				in.IsHillStation = true
				in.Charges.Toll = 100
			},
			want: 2500, // 2000*1.2 + 100
		},
		{
			name: "waiting minutes billed as hours",
			mutate: func(in *Input) {
				in.Charges.WaitingMinutes = 90
			},
			want: 2150,
		},
		{
			name: "local trip uses the 4hr package",
			mutate: func(in *Input) {
				in.TripType = TripLocal
				in.DistanceKm = 0
			},
			want: 1200,
		},
		{
			name: "package trip bills waiting as extra hours and km over allowance",
			mutate: func(in *Input) {
				in.TripType = TripPackage
				in.PackageType = "8hr"
				in.DistanceKm = 90
				in.Charges.WaitingMinutes = 60
				in.Charges.Parking = 50
			},
			want: 2500, // 2200 + 100 + 10*15 + 50
		},
		{
			name: "night pickup",
			mutate: func(in *Input) {
				in.PickupAt = time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
			},
			want: 2500,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			in := oneWayInput()
			tc.mutate(&in)
			b, err := f.svc.Create(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, b.Fare.Amount)
		})
	}
}

func TestCreateLocalDefaultsPackage(t *testing.T) {
	f := newFixture(t, nil)
	in := oneWayInput()
	in.TripType = TripLocal
	b, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, DefaultPackage, b.PackageType)
}

func TestCreateAppliesFreeWaitingAllowance(t *testing.T) {
	cfg := pricing.DefaultRateTableConfig()
	cfg.Surcharges.FreeWaitingMinutes = 30
	rates, err := pricing.NewRateTable(cfg)
	require.NoError(t, err)

	f := newFixture(t, rates)
	in := oneWayInput()
	in.Charges.WaitingMinutes = 90
	b, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(2100), b.Fare.Amount) // one chargeable hour
}

func TestCreateResolvesDistance(t *testing.T) {
	f := newFixture(t, nil)
	in := oneWayInput()
	in.TripType = TripAirport
	in.DistanceKm = 0
	in.Pickup, in.Dropoff = bandra, airport

	b, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, f.distance.calls)
	assert.Equal(t, 50.0, b.DistanceKm)
	assert.Equal(t, 60.0, b.DurationMin)
	assert.Equal(t, int64(1250), b.Fare.Amount)
}

func TestCreateLookupFailureStoresNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.distance.err = &maps.LookupError{Origin: bandra, Destination: airport, Status: "ZERO_RESULTS"}
	in := oneWayInput()
	in.DistanceKm = 0
	in.Pickup, in.Dropoff = bandra, airport

	_, err := f.svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, maps.ErrLookup)

	list, err := f.svc.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.events.kinds())
}

func TestCreatePricingErrorsStoreNothing(t *testing.T) {
	f := newFixture(t, nil)

	in := oneWayInput()
	in.VehicleType = "spaceship"
	_, err := f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, pricing.ErrConfiguration)

	in = oneWayInput()
	in.TripType = TripPackage
	in.PackageType = "6hr"
	_, err = f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, pricing.ErrConfiguration)

	list, err := f.svc.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateValidation(t *testing.T) {
	cases := map[string]func(*Input){
		"missing user":        func(in *Input) { in.UserID = "" },
		"unknown trip type":   func(in *Input) { in.TripType = "helicopter" },
		"missing vehicle":     func(in *Input) { in.VehicleType = "" },
		"missing pickup":      func(in *Input) { in.PickupLocation = "  " },
		"missing pickup time": func(in *Input) { in.PickupAt = time.Time{} },
		"bad email":           func(in *Input) { in.Customer.Email = "not-an-email" },
		"missing phone":       func(in *Input) { in.Customer.Phone = "" },
		"negative distance":   func(in *Input) { in.DistanceKm = -1 },
		"negative toll":       func(in *Input) { in.Charges.Toll = -5 },
		"bad coordinates":     func(in *Input) { in.Pickup = types.Point{Lat: 120} },
		"return before pickup": func(in *Input) {
			ret := in.PickupAt.Add(-time.Hour)
			in.ReturnAt = &ret
		},
		"no distance and no coordinates": func(in *Input) { in.DistanceKm = 0 },
		"negative days":                  func(in *Input) { in.NumberOfDays = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			in := oneWayInput()
			mutate(&in)
			_, err := f.svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestCreateNumberOfDaysBounds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	in := oneWayInput()
	in.NumberOfDays = 0
	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	in.NumberOfDays = -1
	_, err = f.svc.Create(ctx, in)
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "number_of_days must be >= 0")
}

func TestCreateWithoutDistanceProvider(t *testing.T) {
	svc := NewService(NewMemoryStore(), pricing.NewService(pricing.DefaultRateTable()), nil, nil, nil)
	in := oneWayInput()
	in.DistanceKm = 0
	in.Pickup, in.Dropoff = bandra, airport

	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrBadRequest)

	in.DistanceKm = 10
	b, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(650), b.Fare.Amount)
}

func TestPublishFailureKeepsBooking(t *testing.T) {
	f := newFixture(t, nil)
	f.events.err = errors.New("broker down")

	b, err := f.svc.Create(context.Background(), oneWayInput())
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), b.ID)
	assert.NoError(t, err)
}

func TestEstimateDoesNotPersist(t *testing.T) {
	f := newFixture(t, nil)
	in := oneWayInput()
	in.UserID = ""
	in.Customer = Customer{}
	in.DistanceKm = 0
	in.Pickup, in.Dropoff = bandra, airport

	q, route, err := f.svc.Estimate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), q.Total.Amount)
	assert.Equal(t, 50.0, route.DistanceKm)
	assert.Empty(t, f.events.kinds())
}

func TestListByUserNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var ids []types.ID
	for i := 0; i < 3; i++ {
		b, err := f.svc.Create(ctx, oneWayInput())
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	other := oneWayInput()
	other.UserID = "u-2"
	_, err := f.svc.Create(ctx, other)
	require.NoError(t, err)

	list, err := f.svc.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	_, err = f.svc.ListByUser(ctx, "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestUpdateRepricesPendingBooking(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, oneWayInput())
	require.NoError(t, err)

	in := oneWayInput()
	in.UserID = "someone-else"
	in.VehicleType = pricing.VehicleSUV
	updated, err := f.svc.Update(ctx, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), updated.Fare.Amount) // 700 + 100*18
	assert.Equal(t, types.ID("u-1"), updated.UserID)
	assert.Equal(t, b.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(b.UpdatedAt))

	stored, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.VehicleSUV, stored.VehicleType)
	assert.Equal(t, []string{"created", "updated"}, f.events.kinds())

	_, err = f.svc.Confirm(ctx, b.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, b.ID, in)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.svc.Update(ctx, "missing", in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := types.ID("ops-1")

	b, err := f.svc.Create(ctx, oneWayInput())
	require.NoError(t, err)

	b, err = f.svc.Confirm(ctx, b.ID, &actor)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)

	b, err = f.svc.Complete(ctx, b.ID, &actor)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, b.Status)

	_, err = f.svc.Cancel(ctx, b.ID, &actor)
	assert.ErrorIs(t, err, ErrInvalidState)

	history := f.repo.Events(b.ID)
	require.Len(t, history, 3)
	assert.Equal(t, StatusCompleted, history[2].ToStatus)
	assert.Equal(t, &actor, history[2].ActorID)
	assert.Equal(t, []string{"created", "status_changed", "status_changed"}, f.events.kinds())
}

func TestCancelPending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, oneWayInput())
	require.NoError(t, err)
	b, err = f.svc.Cancel(ctx, b.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, b.Status)

	_, err = f.svc.Confirm(ctx, b.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, oneWayInput())
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, oneWayInput())
	require.NoError(t, err)
	require.Len(t, f.repo.Events(b.ID), 1)
	require.NoError(t, f.svc.Delete(ctx, b.ID))

	assert.Empty(t, f.repo.Events(b.ID))
	require.Len(t, f.repo.Events(other.ID), 1)
	_, err = f.svc.Confirm(ctx, other.ID, nil)
	require.NoError(t, err)
	history := f.repo.Events(other.ID)
	require.Len(t, history, 2)
	assert.NotEqual(t, history[0].ID, history[1].ID)

	_, err = f.svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, b.ID), ErrNotFound)
	assert.Equal(t, []string{"created", "created", "deleted", "status_changed"}, f.events.kinds())
}

func TestConcurrentConfirmVsCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, oneWayInput())
	require.NoError(t, err)

	targets := []Status{StatusConfirmed, StatusCancelled, StatusConfirmed, StatusCancelled}
	errs := make(chan error, len(targets))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, to := range targets {
		wg.Add(1)
		go func(to Status) {
			defer wg.Done()
			<-start
			_, err := f.svc.Transition(ctx, b.ID, to, nil)
			errs <- err
		}(to)
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, success)
}
