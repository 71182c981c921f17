// README: Booking aggregate, trip types and status definitions.
package booking

import (
	"time"

	"taxibook/internal/modules/pricing"
	"taxibook/internal/types"
)

type TripType string

const (
	TripLocal      TripType = "local"
	TripAirport    TripType = "airport"
	TripOutstation TripType = "outstation"
	TripRoundTrip  TripType = "round-trip"
	TripPackage    TripType = "package"
	TripOneWay     TripType = "one-way"
)

func (t TripType) Valid() bool {
	switch t {
	case TripLocal, TripAirport, TripOutstation, TripRoundTrip, TripPackage, TripOneWay:
		return true
	}
	return false
}

// Hourly reports whether the trip is priced as an hourly package.
func (t TripType) Hourly() bool {
	return t == TripLocal || t == TripPackage
}

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

const DefaultPackage = "4hr"

type Charges struct {
	Toll           float64 `json:"toll"`
	Parking        float64 `json:"parking"`
	WaitingMinutes float64 `json:"waiting_minutes"`
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

type Booking struct {
	ID             types.ID            `json:"id"`
	UserID         types.ID            `json:"user_id"`
	VehicleType    pricing.VehicleType `json:"vehicle_type"`
	TripType       TripType            `json:"trip_type"`
	Status         Status              `json:"status"`
	StatusVersion  int                 `json:"-"`
	PickupLocation string              `json:"pickup_location"`
	DropLocation   string              `json:"drop_location,omitempty"`
	Pickup         types.Point         `json:"pickup"`
	Dropoff        types.Point         `json:"dropoff"`
	PickupAt       time.Time           `json:"pickup_at"`
	ReturnAt       *time.Time          `json:"return_at,omitempty"`
	DistanceKm     float64             `json:"distance_km"`
	DurationMin    float64             `json:"duration_min"`
	NumberOfDays   int                 `json:"number_of_days"`
	IsHillStation  bool                `json:"is_hill_station"`
	PackageType    string              `json:"package_type,omitempty"`
	Fare           types.Money         `json:"fare"`
	Charges        Charges             `json:"charges"`
	Customer       Customer            `json:"customer"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the booking state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
