// README: Rate table store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoRates = errors.New("pricing: rate tables are empty")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadRateTable reads rate cards and packages. Surcharges, currency and
// peak seasons come from base, which is usually DefaultRateTableConfig.
func (s *Store) LoadRateTable(ctx context.Context, base RateTableConfig) (*RateTable, error) {
	cfg := base
	cfg.Vehicles = map[string]RateCard{}
	cfg.Packages = map[string]HourlyPackage{}

	rows, err := s.db.Query(ctx, `
		SELECT vehicle_type, base_rate, per_km_rate, waiting_rate
		FROM rate_cards`)
	if err != nil {
		return nil, fmt.Errorf("query rate_cards: %w", err)
	}
	for rows.Next() {
		var name string
		var rc RateCard
		if err := rows.Scan(&name, &rc.BaseRate, &rc.PerKmRate, &rc.WaitingRate); err != nil {
			rows.Close()
			return nil, err
		}
		cfg.Vehicles[name] = rc
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(ctx, `
		SELECT name, base_fare, included_km, included_hours
		FROM hourly_packages`)
	if err != nil {
		return nil, fmt.Errorf("query hourly_packages: %w", err)
	}
	for rows.Next() {
		var name string
		var p HourlyPackage
		if err := rows.Scan(&name, &p.BaseFare, &p.IncludedKm, &p.IncludedHours); err != nil {
			rows.Close()
			return nil, err
		}
		cfg.Packages[name] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(cfg.Vehicles) == 0 && len(cfg.Packages) == 0 {
		return nil, ErrNoRates
	}
	return NewRateTable(cfg)
}

// Seed upserts every rate card and package of cfg in one transaction.
func (s *Store) Seed(ctx context.Context, cfg RateTableConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for name, rc := range cfg.Vehicles {
			if _, err := tx.Exec(ctx, `
				INSERT INTO rate_cards (vehicle_type, base_rate, per_km_rate, waiting_rate)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (vehicle_type) DO UPDATE
				SET base_rate = EXCLUDED.base_rate,
				    per_km_rate = EXCLUDED.per_km_rate,
				    waiting_rate = EXCLUDED.waiting_rate`,
				name, rc.BaseRate, rc.PerKmRate, rc.WaitingRate,
			); err != nil {
				return fmt.Errorf("upsert rate card %s: %w", name, err)
			}
		}
		for name, p := range cfg.Packages {
			if _, err := tx.Exec(ctx, `
				INSERT INTO hourly_packages (name, base_fare, included_km, included_hours)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (name) DO UPDATE
				SET base_fare = EXCLUDED.base_fare,
				    included_km = EXCLUDED.included_km,
				    included_hours = EXCLUDED.included_hours`,
				name, p.BaseFare, p.IncludedKm, p.IncludedHours,
			); err != nil {
				return fmt.Errorf("upsert package %s: %w", name, err)
			}
		}
		return nil
	})
}
