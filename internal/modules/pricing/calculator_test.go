// README: Fare calculator tests (rule order, night window, errors, concurrency).
package pricing

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func sedanTrip(km float64) BaseFareRequest {
	return BaseFareRequest{
		VehicleType:  VehicleSedan,
		DistanceKm:   km,
		NumberOfDays: 1,
		PickupTime:   at(10, 0),
	}
}

func TestCalculator_CalculateBaseFare(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())

	tests := []struct {
		name     string
		req      func() BaseFareRequest
		wantFare int64
	}{
		{
			name:     "Sedan 100km daytime",
			req:      func() BaseFareRequest { return sedanTrip(100) },
			wantFare: 2000, // 500 + 100*15
		},
		{
			name: "Sedan 100km at 23:00",
			req: func() BaseFareRequest {
				r := sedanTrip(100)
				r.PickupTime = at(23, 0)
				return r
			},
			wantFare: 2500, // 2000 * 1.25
		},
		{
			name:     "Zero distance is the base rate",
			req:      func() BaseFareRequest { return sedanTrip(0) },
			wantFare: 500,
		},
		{
			name: "Round trip doubles",
			req: func() BaseFareRequest {
				r := sedanTrip(100)
				r.IsRoundTrip = true
				return r
			},
			wantFare: 4000,
		},
		{
			name: "Hill station adds 20%",
			req: func() BaseFareRequest {
				r := sedanTrip(100)
				r.IsHillStation = true
				return r
			},
			wantFare: 2400,
		},
		{
			name: "Round trip then hill station",
			req: func() BaseFareRequest {
				r := sedanTrip(100)
				r.IsRoundTrip = true
				r.IsHillStation = true
				return r
			},
			wantFare: 4800, // 2000 * 2 * 1.2
		},
		{
			name: "Waiting charged at the vehicle waiting rate",
			req: func() BaseFareRequest {
				r := sedanTrip(100)
				r.WaitingHours = 2
				return r
			},
			wantFare: 2200,
		},
		{
			name: "Toll and parking are flat additions",
			req: func() BaseFareRequest {
				r := sedanTrip(100)
				r.TollCharges = 150
				r.ParkingCharges = 50
				return r
			},
			wantFare: 2200,
		},
		{
			name: "Night surcharge multiplies toll and parking too",
			req: func() BaseFareRequest {
				r := sedanTrip(100)
				r.TollCharges = 150
				r.ParkingCharges = 50
				r.PickupTime = at(1, 30)
				return r
			},
			wantFare: 2750, // 2200 * 1.25
		},
		{
			name: "Multi-day multiplies the whole fare",
			req: func() BaseFareRequest {
				r := sedanTrip(100)
				r.NumberOfDays = 3
				return r
			},
			wantFare: 6000,
		},
		{
			name: "Every rule in order",
			req: func() BaseFareRequest {
				return BaseFareRequest{
					VehicleType:    VehicleSedan,
					DistanceKm:     100,
					IsRoundTrip:    true,
					IsHillStation:  true,
					WaitingHours:   1,
					TollCharges:    100,
					ParkingCharges: 50,
					NumberOfDays:   2,
					PickupTime:     at(22, 15),
				}
			},
			// ((2000*2*1.2) + 100 + 100 + 50) * 1.25 * 2 = 12625
			wantFare: 12625,
		},
		{
			name: "Half unit rounds up",
			req: func() BaseFareRequest {
				return BaseFareRequest{
					VehicleType:  VehicleHatchback,
					DistanceKm:   0.125,
					NumberOfDays: 1,
					PickupTime:   at(12, 0),
				}
			},
			wantFare: 402, // 400 + 1.5
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.CalculateBaseFare(tt.req())
			require.NoError(t, err)
			assert.Equal(t, tt.wantFare, got.Amount)
			assert.Equal(t, "INR", got.Currency)
		})
	}
}

func TestCalculator_NightWindowBoundaries(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())

	cases := []struct {
		hour, minute int
		want         int64
	}{
		{21, 59, 2000},
		{22, 0, 2500},
		{0, 0, 2500},
		{4, 59, 2500},
		{5, 0, 2000},
	}
	for _, tc := range cases {
		r := sedanTrip(100)
		r.PickupTime = at(tc.hour, tc.minute)
		got, err := calc.CalculateBaseFare(r)
		require.NoError(t, err)
		assert.Equalf(t, tc.want, got.Amount, "pickup %02d:%02d", tc.hour, tc.minute)
	}
}

func TestCalculator_NightWindowUsesTableTimezone(t *testing.T) {
	cfg := DefaultRateTableConfig()
	cfg.Timezone = "Asia/Kolkata"
	table, err := NewRateTable(cfg)
	require.NoError(t, err)
	calc := NewCalculator(table)

	r := sedanTrip(100)
	r.PickupTime = time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC) // 22:30 IST
	got, err := calc.CalculateBaseFare(r)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.Amount)

	r.PickupTime = time.Date(2026, 3, 10, 23, 40, 0, 0, time.UTC) // 05:10 IST next day
	got, err = calc.CalculateBaseFare(r)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.Amount)
}

func TestCalculator_RoundTripDoubling(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())
	for _, v := range DefaultRateTable().VehicleTypes() {
		for _, km := range []float64{0, 7.5, 42, 350} {
			oneWay := BaseFareRequest{VehicleType: v, DistanceKm: km, NumberOfDays: 1, PickupTime: at(9, 0)}
			round := oneWay
			round.IsRoundTrip = true

			a, err := calc.CalculateBaseFare(oneWay)
			require.NoError(t, err)
			b, err := calc.CalculateBaseFare(round)
			require.NoError(t, err)
			assert.InDeltaf(t, float64(2*a.Amount), float64(b.Amount), 1, "%s %.1fkm", v, km)
		}
	}
}

func TestCalculator_MonotonicInDistance(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())
	prev := int64(-1)
	for km := 0.0; km <= 500; km += 12.5 {
		got, err := calc.CalculateBaseFare(sedanTrip(km))
		require.NoError(t, err)
		assert.Greaterf(t, got.Amount, prev, "distance %.1f", km)
		prev = got.Amount
	}
}

func TestCalculator_Deterministic(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())
	r := BaseFareRequest{
		VehicleType: VehicleInnova, DistanceKm: 187.3, IsHillStation: true,
		WaitingHours: 1.5, TollCharges: 245, NumberOfDays: 2, PickupTime: at(3, 10),
	}
	first, err := calc.QuoteBaseFare(r)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := calc.QuoteBaseFare(r)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCalculator_BaseFareErrors(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())

	t.Run("unknown vehicle", func(t *testing.T) {
		r := sedanTrip(10)
		r.VehicleType = "spaceship"
		_, err := calc.CalculateBaseFare(r)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfiguration)
		var cfgErr *ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "spaceship", cfgErr.Key)
	})

	t.Run("vehicle lookup is case sensitive", func(t *testing.T) {
		r := sedanTrip(10)
		r.VehicleType = "Sedan"
		_, err := calc.CalculateBaseFare(r)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	invalid := map[string]func(*BaseFareRequest){
		"negative distance": func(r *BaseFareRequest) { r.DistanceKm = -5 },
		"zero days":         func(r *BaseFareRequest) { r.NumberOfDays = 0 },
		"negative days":     func(r *BaseFareRequest) { r.NumberOfDays = -2 },
		"negative toll":     func(r *BaseFareRequest) { r.TollCharges = -1 },
		"negative parking":  func(r *BaseFareRequest) { r.ParkingCharges = -0.5 },
		"negative waiting":  func(r *BaseFareRequest) { r.WaitingHours = -1 },
		"NaN distance":      func(r *BaseFareRequest) { r.DistanceKm = math.NaN() },
		"infinite toll":     func(r *BaseFareRequest) { r.TollCharges = math.Inf(1) },
		"missing pickup":    func(r *BaseFareRequest) { r.PickupTime = time.Time{} },
		"fare beyond int64": func(r *BaseFareRequest) { r.DistanceKm = 1e18 },
		"days beyond int64": func(r *BaseFareRequest) { r.NumberOfDays = 1 << 62 },
		"fare overflows":    func(r *BaseFareRequest) { r.DistanceKm = math.MaxFloat64 },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			r := sedanTrip(10)
			mutate(&r)
			got, err := calc.CalculateBaseFare(r)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Zero(t, got.Amount)
		})
	}
}

func TestCalculator_CalculateHourlyFare(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())

	base := HourlyFareRequest{
		VehicleType:     VehicleSedan,
		PackageType:     "4hr",
		PickupTime:      at(14, 0),
		ParkingCharges:  50,
		ExtraHours:      1,
		ExtraKilometers: 10,
	}

	got, err := calc.CalculateHourlyFare(base)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.Amount) // 1200 + 100 + 150 + 50

	night := base
	night.PickupTime = at(23, 0)
	got, err = calc.CalculateHourlyFare(night)
	require.NoError(t, err)
	assert.Equal(t, int64(1875), got.Amount) // 1500 * 1.25

	plain := HourlyFareRequest{VehicleType: VehicleSUV, PackageType: "8hr", PickupTime: at(9, 0)}
	got, err = calc.CalculateHourlyFare(plain)
	require.NoError(t, err)
	assert.Equal(t, int64(2200), got.Amount)
}

func TestCalculator_HourlyFareErrors(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())
	ok := HourlyFareRequest{VehicleType: VehicleSedan, PackageType: "4hr", PickupTime: at(10, 0)}

	r := ok
	r.PackageType = "6hr"
	_, err := calc.CalculateHourlyFare(r)
	assert.ErrorIs(t, err, ErrConfiguration)

	r = ok
	r.VehicleType = "rickshaw"
	_, err = calc.CalculateHourlyFare(r)
	assert.ErrorIs(t, err, ErrConfiguration)

	for name, mutate := range map[string]func(*HourlyFareRequest){
		"negative extra hours": func(r *HourlyFareRequest) { r.ExtraHours = -1 },
		"negative extra km":    func(r *HourlyFareRequest) { r.ExtraKilometers = -3 },
		"negative parking":     func(r *HourlyFareRequest) { r.ParkingCharges = -10 },
		"fare beyond int64":    func(r *HourlyFareRequest) { r.ExtraKilometers = 1e18 },
	} {
		r := ok
		mutate(&r)
		_, err := calc.CalculateHourlyFare(r)
		assert.ErrorIsf(t, err, ErrInvalidArgument, name)
	}
}

func TestCalculator_LargestRepresentableFare(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())

	// 500 + 15 * 4e17 = 6e18, below math.MaxInt64.
	got, err := calc.CalculateBaseFare(sedanTrip(4e17))
	require.NoError(t, err)
	assert.Positive(t, got.Amount)

	q, err := calc.QuoteBaseFare(sedanTrip(1e18))
	require.Error(t, err)
	var argErr *InvalidArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "fare", argErr.Field)
	assert.Empty(t, q.Components)
}

func TestCalculator_QuoteBreakdown(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())
	r := sedanTrip(100)
	r.IsHillStation = true
	r.TollCharges = 100
	r.PickupTime = time.Date(2026, 12, 25, 23, 0, 0, 0, time.UTC)

	q, err := calc.QuoteBaseFare(r)
	require.NoError(t, err)

	names := make([]string, 0, len(q.Components))
	for _, c := range q.Components {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		ComponentBase, ComponentDistance, ComponentHillStation, ComponentWaiting,
		ComponentToll, ComponentParking, ComponentNight, ComponentDays,
	}, names)
	assert.True(t, q.NightSurcharge)
	assert.True(t, q.PeakSeason)

	last := q.Components[len(q.Components)-1]
	assert.Equal(t, q.Total.Amount, int64(math.Round(last.Running)))
	assert.Equal(t, int64(3125), q.Total.Amount) // (2400 + 100) * 1.25
}

func TestCalculator_ConcurrentUse(t *testing.T) {
	calc := NewCalculator(DefaultRateTable())
	want, err := calc.CalculateBaseFare(sedanTrip(100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := calc.CalculateBaseFare(sedanTrip(100))
			if err == nil && got != want {
				err = errors.New("fare changed under concurrency")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestOverage(t *testing.T) {
	pkg := HourlyPackage{BaseFare: 1200, IncludedKm: 40, IncludedHours: 4}

	h, km := Overage(pkg, 5.5, 62)
	assert.Equal(t, 1.5, h)
	assert.Equal(t, 22.0, km)

	h, km = Overage(pkg, 3, 10)
	assert.Zero(t, h)
	assert.Zero(t, km)
}

func TestChargeableWaitingHours(t *testing.T) {
	s := Surcharges{FreeWaitingMinutes: 30}
	assert.Equal(t, 1.5, ChargeableWaitingHours(120, s))
	assert.Zero(t, ChargeableWaitingHours(20, s))
	assert.Equal(t, 2.0, ChargeableWaitingHours(120, Surcharges{}))
}
