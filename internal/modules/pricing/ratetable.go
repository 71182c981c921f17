// README: Immutable rate table built once at startup and shared by all calculations.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// RateTable is read-only after construction. Lookups are exact, case-sensitive
// key matches and a missing key is always an error.
type RateTable struct {
	currency   string
	location   *time.Location
	vehicles   map[VehicleType]RateCard
	packages   map[string]HourlyPackage
	surcharges Surcharges
	peaks      []peakRange
}

type peakRange struct {
	start, end time.Time
}

// DefaultRateTableConfig returns the tariff the company publishes on its site.
func DefaultRateTableConfig() RateTableConfig {
	return RateTableConfig{
		Currency: "INR",
		Vehicles: map[string]RateCard{
			string(VehicleHatchback): {BaseRate: 400, PerKmRate: 12, WaitingRate: 80},
			string(VehicleSedan):     {BaseRate: 500, PerKmRate: 15, WaitingRate: 100},
			string(VehicleSUV):       {BaseRate: 700, PerKmRate: 18, WaitingRate: 150},
			string(VehicleInnova):    {BaseRate: 800, PerKmRate: 20, WaitingRate: 150},
			string(VehicleTempo):     {BaseRate: 1200, PerKmRate: 25, WaitingRate: 200},
		},
		Packages: map[string]HourlyPackage{
			"4hr":  {BaseFare: 1200, IncludedKm: 40, IncludedHours: 4},
			"8hr":  {BaseFare: 2200, IncludedKm: 80, IncludedHours: 8},
			"12hr": {BaseFare: 3200, IncludedKm: 120, IncludedHours: 12},
		},
		Surcharges: Surcharges{
			NightStartHour:        22,
			NightEndHour:          5,
			NightMultiplier:       1.25,
			HillStationMultiplier: 1.20,
			RoundTripMultiplier:   2,
			FreeWaitingMinutes:    0,
		},
		PeakSeasons: []DateRange{
			{Start: "2026-12-20", End: "2027-01-05"},
		},
	}
}

// DefaultRateTable is DefaultRateTableConfig frozen into a RateTable.
func DefaultRateTable() *RateTable {
	t, err := NewRateTable(DefaultRateTableConfig())
	if err != nil {
		panic("pricing: default rate table is invalid: " + err.Error())
	}
	return t
}

// NewRateTable validates cfg and copies it into an immutable table.
func NewRateTable(cfg RateTableConfig) (*RateTable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &RateTable{
		currency:   cfg.Currency,
		vehicles:   make(map[VehicleType]RateCard, len(cfg.Vehicles)),
		packages:   make(map[string]HourlyPackage, len(cfg.Packages)),
		surcharges: cfg.Surcharges,
	}
	if t.currency == "" {
		t.currency = "INR"
	}
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("rate table timezone %q: %w", cfg.Timezone, err)
		}
		t.location = loc
	}
	for k, v := range cfg.Vehicles {
		t.vehicles[VehicleType(k)] = v
	}
	for k, v := range cfg.Packages {
		t.packages[k] = v
	}
	for _, r := range cfg.PeakSeasons {
		start, _ := time.Parse(dateLayout, r.Start)
		end, _ := time.Parse(dateLayout, r.End)
		t.peaks = append(t.peaks, peakRange{start: start, end: end})
	}
	return t, nil
}

// Validate checks the table for values the calculators cannot price with.
func (cfg RateTableConfig) Validate() error {
	var errs []error
	if len(cfg.Vehicles) == 0 {
		errs = append(errs, errors.New("no vehicle rate cards"))
	}
	if len(cfg.Packages) == 0 {
		errs = append(errs, errors.New("no hourly packages"))
	}
	for name, rc := range cfg.Vehicles {
		if name == "" {
			errs = append(errs, errors.New("vehicle with empty name"))
		}
		if !nonNegative(rc.BaseRate) || !nonNegative(rc.PerKmRate) || !nonNegative(rc.WaitingRate) {
			errs = append(errs, fmt.Errorf("vehicle %q: rates must be finite and >= 0", name))
		}
	}
	for name, p := range cfg.Packages {
		if name == "" {
			errs = append(errs, errors.New("package with empty name"))
		}
		if !nonNegative(p.BaseFare) || !nonNegative(p.IncludedKm) || !nonNegative(p.IncludedHours) {
			errs = append(errs, fmt.Errorf("package %q: values must be finite and >= 0", name))
		}
	}
	s := cfg.Surcharges
	if s.NightStartHour < 0 || s.NightStartHour > 23 || s.NightEndHour < 0 || s.NightEndHour > 23 {
		errs = append(errs, fmt.Errorf("night window %d..%d outside 0..23", s.NightStartHour, s.NightEndHour))
	}
	for name, m := range map[string]float64{
		"night_multiplier":        s.NightMultiplier,
		"hill_station_multiplier": s.HillStationMultiplier,
		"round_trip_multiplier":   s.RoundTripMultiplier,
	} {
		if math.IsNaN(m) || math.IsInf(m, 0) || m < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1, got %v", name, m))
		}
	}
	if s.FreeWaitingMinutes < 0 {
		errs = append(errs, errors.New("free_waiting_minutes must be >= 0"))
	}
	for i, r := range cfg.PeakSeasons {
		start, err1 := time.Parse(dateLayout, r.Start)
		end, err2 := time.Parse(dateLayout, r.End)
		if err1 != nil || err2 != nil {
			errs = append(errs, fmt.Errorf("peak season %d: dates must be %s", i, dateLayout))
			continue
		}
		if end.Before(start) {
			errs = append(errs, fmt.Errorf("peak season %d: end before start", i))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid rate table: %w", errors.Join(errs...))
}

func (t *RateTable) Currency() string { return t.currency }

func (t *RateTable) Surcharges() Surcharges { return t.surcharges }

// Rate returns a copy of the rate card for v.
func (t *RateTable) Rate(v VehicleType) (RateCard, error) {
	rc, ok := t.vehicles[v]
	if !ok {
		return RateCard{}, unknownVehicle(v)
	}
	return rc, nil
}

// Package returns a copy of the named hourly package.
func (t *RateTable) Package(name string) (HourlyPackage, error) {
	p, ok := t.packages[name]
	if !ok {
		return HourlyPackage{}, unknownPackage(name)
	}
	return p, nil
}

func (t *RateTable) VehicleTypes() []VehicleType {
	out := make([]VehicleType, 0, len(t.vehicles))
	for v := range t.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *RateTable) PackageNames() []string {
	out := make([]string, 0, len(t.packages))
	for name := range t.packages {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return t.packages[out[i]].IncludedHours < t.packages[out[j]].IncludedHours
	})
	return out
}

// Config returns a fresh serialisable copy of the table.
func (t *RateTable) Config() RateTableConfig {
	cfg := RateTableConfig{
		Currency:   t.currency,
		Vehicles:   make(map[string]RateCard, len(t.vehicles)),
		Packages:   make(map[string]HourlyPackage, len(t.packages)),
		Surcharges: t.surcharges,
	}
	if t.location != nil {
		cfg.Timezone = t.location.String()
	}
	for k, v := range t.vehicles {
		cfg.Vehicles[string(k)] = v
	}
	for k, v := range t.packages {
		cfg.Packages[k] = v
	}
	for _, p := range t.peaks {
		cfg.PeakSeasons = append(cfg.PeakSeasons, DateRange{Start: p.start.Format(dateLayout), End: p.end.Format(dateLayout)})
	}
	return cfg
}

// local moves ts into the table's timezone when one is configured.
func (t *RateTable) local(ts time.Time) time.Time {
	if t.location != nil {
		return ts.In(t.location)
	}
	return ts
}

// IsNight reports whether a pickup at ts falls inside the night window.
func (t *RateTable) IsNight(ts time.Time) bool {
	hour := t.local(ts).Hour()
	start, end := t.surcharges.NightStartHour, t.surcharges.NightEndHour
	switch {
	case start == end:
		return false
	case start > end:
		return hour >= start || hour < end
	default:
		return hour >= start && hour < end
	}
}

// IsPeakSeason reports whether ts falls on a date inside a peak range.
func (t *RateTable) IsPeakSeason(ts time.Time) bool {
	lt := t.local(ts)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
	for _, p := range t.peaks {
		if !day.Before(p.start) && !day.After(p.end) {
			return true
		}
	}
	return false
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
