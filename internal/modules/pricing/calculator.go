// README: Fare calculators. Pure functions of the request and the rate table.
package pricing

import (
	"math"

	"taxibook/internal/types"
)

// Calculator prices trips against a fixed rate table. It holds no mutable
// state and is safe for concurrent use.
type Calculator struct {
	rates *RateTable
}

func NewCalculator(rates *RateTable) *Calculator {
	return &Calculator{rates: rates}
}

func (c *Calculator) Rates() *RateTable { return c.rates }

// CalculateBaseFare prices a per-kilometre journey.
func (c *Calculator) CalculateBaseFare(req BaseFareRequest) (types.Money, error) {
	q, err := c.QuoteBaseFare(req)
	if err != nil {
		return types.Money{}, err
	}
	return q.Total, nil
}

// CalculateHourlyFare prices an hourly package rental.
func (c *Calculator) CalculateHourlyFare(req HourlyFareRequest) (types.Money, error) {
	q, err := c.QuoteHourlyFare(req)
	if err != nil {
		return types.Money{}, err
	}
	return q.Total, nil
}

// QuoteBaseFare is CalculateBaseFare with the per-step breakdown.
// Steps run in a fixed order because later multipliers apply to the
// running total, flat extras included.
func (c *Calculator) QuoteBaseFare(req BaseFareRequest) (Quote, error) {
	rc, err := c.rates.Rate(req.VehicleType)
	if err != nil {
		return Quote{}, err
	}
	if err := validateBaseFare(req); err != nil {
		return Quote{}, err
	}
	s := c.rates.surcharges

	b := newBuilder()
	b.add(ComponentBase, rc.BaseRate)
	b.add(ComponentDistance, req.DistanceKm*rc.PerKmRate)
	if req.IsRoundTrip {
		b.multiply(ComponentRoundTrip, s.RoundTripMultiplier)
	}
	if req.IsHillStation {
		b.multiply(ComponentHillStation, s.HillStationMultiplier)
	}
	b.add(ComponentWaiting, req.WaitingHours*rc.WaitingRate)
	b.add(ComponentToll, req.TollCharges)
	b.add(ComponentParking, req.ParkingCharges)
	night := c.rates.IsNight(req.PickupTime)
	if night {
		b.multiply(ComponentNight, s.NightMultiplier)
	}
	b.multiply(ComponentDays, float64(req.NumberOfDays))

	return b.quote(c.rates.currency, night, c.rates.IsPeakSeason(req.PickupTime))
}

// QuoteHourlyFare is CalculateHourlyFare with the per-step breakdown.
func (c *Calculator) QuoteHourlyFare(req HourlyFareRequest) (Quote, error) {
	pkg, err := c.rates.Package(req.PackageType)
	if err != nil {
		return Quote{}, err
	}
	rc, err := c.rates.Rate(req.VehicleType)
	if err != nil {
		return Quote{}, err
	}
	if err := validateHourlyFare(req); err != nil {
		return Quote{}, err
	}

	b := newBuilder()
	b.add(ComponentPackage, pkg.BaseFare)
	if req.ExtraHours > 0 {
		b.add(ComponentExtraHours, req.ExtraHours*rc.WaitingRate)
	}
	if req.ExtraKilometers > 0 {
		b.add(ComponentExtraKm, req.ExtraKilometers*rc.PerKmRate)
	}
	b.add(ComponentParking, req.ParkingCharges)
	night := c.rates.IsNight(req.PickupTime)
	if night {
		b.multiply(ComponentNight, c.rates.surcharges.NightMultiplier)
	}

	return b.quote(c.rates.currency, night, c.rates.IsPeakSeason(req.PickupTime))
}

// Overage returns usage beyond the package allowance. Neither value is negative.
func Overage(pkg HourlyPackage, usedHours, usedKm float64) (extraHours, extraKm float64) {
	return math.Max(0, usedHours-pkg.IncludedHours), math.Max(0, usedKm-pkg.IncludedKm)
}

// ChargeableWaitingHours subtracts the free waiting allowance from the
// minutes a driver waited.
func ChargeableWaitingHours(waitingMinutes float64, s Surcharges) float64 {
	return math.Max(0, waitingMinutes-float64(s.FreeWaitingMinutes)) / 60
}

func validateBaseFare(req BaseFareRequest) error {
	if err := checkAmount("distanceKm", req.DistanceKm); err != nil {
		return err
	}
	if req.NumberOfDays < 1 {
		return &InvalidArgumentError{Field: "numberOfDays", Value: req.NumberOfDays, Reason: "must be >= 1"}
	}
	if err := checkAmount("tollCharges", req.TollCharges); err != nil {
		return err
	}
	if err := checkAmount("parkingCharges", req.ParkingCharges); err != nil {
		return err
	}
	if err := checkAmount("waitingHours", req.WaitingHours); err != nil {
		return err
	}
	return checkPickup(req.PickupTime.IsZero())
}

func validateHourlyFare(req HourlyFareRequest) error {
	if err := checkAmount("extraHours", req.ExtraHours); err != nil {
		return err
	}
	if err := checkAmount("extraKilometers", req.ExtraKilometers); err != nil {
		return err
	}
	if err := checkAmount("parkingCharges", req.ParkingCharges); err != nil {
		return err
	}
	return checkPickup(req.PickupTime.IsZero())
}

func checkAmount(field string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &InvalidArgumentError{Field: field, Value: v, Reason: "must be a finite number"}
	case v < 0:
		return &InvalidArgumentError{Field: field, Value: v, Reason: "must be >= 0"}
	}
	return nil
}

func checkPickup(zero bool) error {
	if zero {
		return &InvalidArgumentError{Field: "pickupTime", Value: "", Reason: "is required"}
	}
	return nil
}

type builder struct {
	fare       float64
	components []Component
}

func newBuilder() *builder {
	return &builder{components: make([]Component, 0, 8)}
}

func (b *builder) add(name string, amount float64) {
	b.fare += amount
	b.components = append(b.components, Component{Name: name, Amount: amount, Running: b.fare})
}

func (b *builder) multiply(name string, factor float64) {
	before := b.fare
	b.fare *= factor
	b.components = append(b.components, Component{Name: name, Amount: b.fare - before, Running: b.fare})
}

// maxFare is the first float64 that no longer fits an int64 amount.
const maxFare = float64(math.MaxInt64)

func (b *builder) quote(currency string, night, peak bool) (Quote, error) {
	total := math.Round(b.fare)
	if math.IsNaN(total) || math.IsInf(total, 0) || total >= maxFare {
		return Quote{}, &InvalidArgumentError{Field: "fare", Value: b.fare, Reason: "exceeds the representable amount"}
	}
	return Quote{
		Total:          types.Money{Amount: int64(total), Currency: currency},
		Components:     b.components,
		NightSurcharge: night,
		PeakSeason:     peak,
	}, nil
}
