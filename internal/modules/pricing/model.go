// README: Rate table data, fare requests and quote definitions.
package pricing

import (
	"time"

	"taxibook/internal/types"
)

type VehicleType string

const (
	VehicleHatchback VehicleType = "hatchback"
	VehicleSedan     VehicleType = "sedan"
	VehicleSUV       VehicleType = "suv"
	VehicleInnova    VehicleType = "innova"
	VehicleTempo     VehicleType = "tempo"
)

// RateCard is the per-vehicle tariff.
type RateCard struct {
	BaseRate    float64 `yaml:"base_rate" json:"base_rate"`
	PerKmRate   float64 `yaml:"per_km_rate" json:"per_km_rate"`
	WaitingRate float64 `yaml:"waiting_rate" json:"waiting_rate"` // per hour
}

// HourlyPackage is a flat-rate local rental. IncludedKm and IncludedHours
// are the allowance before overage is billed.
type HourlyPackage struct {
	BaseFare      float64 `yaml:"base_fare" json:"base_fare"`
	IncludedKm    float64 `yaml:"included_km" json:"included_km"`
	IncludedHours float64 `yaml:"included_hours" json:"included_hours"`
}

// Surcharges holds the multipliers and windows shared by every vehicle.
// The night window is [NightStartHour, NightEndHour) and wraps past midnight
// when start > end. start == end disables it.
type Surcharges struct {
	NightStartHour        int     `yaml:"night_start_hour" json:"night_start_hour"`
	NightEndHour          int     `yaml:"night_end_hour" json:"night_end_hour"`
	NightMultiplier       float64 `yaml:"night_multiplier" json:"night_multiplier"`
	HillStationMultiplier float64 `yaml:"hill_station_multiplier" json:"hill_station_multiplier"`
	RoundTripMultiplier   float64 `yaml:"round_trip_multiplier" json:"round_trip_multiplier"`
	FreeWaitingMinutes    int     `yaml:"free_waiting_minutes" json:"free_waiting_minutes"`
}

// DateRange is an inclusive range of calendar dates in 2006-01-02 form.
type DateRange struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// RateTableConfig is the plain, serialisable form of a rate table. It is
// what rate files and the rate store produce; NewRateTable freezes it.
type RateTableConfig struct {
	Currency    string                   `yaml:"currency" json:"currency" env-default:"INR"`
	Timezone    string                   `yaml:"timezone" json:"timezone"`
	Vehicles    map[string]RateCard      `yaml:"vehicles" json:"vehicles"`
	Packages    map[string]HourlyPackage `yaml:"packages" json:"packages"`
	Surcharges  Surcharges               `yaml:"surcharges" json:"surcharges"`
	PeakSeasons []DateRange              `yaml:"peak_seasons" json:"peak_seasons"`
}

type BaseFareRequest struct {
	VehicleType    VehicleType
	DistanceKm     float64
	IsRoundTrip    bool
	NumberOfDays   int
	TollCharges    float64
	ParkingCharges float64
	WaitingHours   float64
	IsHillStation  bool
	PickupTime     time.Time
}

type HourlyFareRequest struct {
	VehicleType     VehicleType
	PackageType     string
	PickupTime      time.Time
	ParkingCharges  float64
	ExtraHours      float64
	ExtraKilometers float64
}

// Component is one step of a fare computation. Amount is what the step
// added to the running total, Running is the total after the step.
type Component struct {
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Running float64 `json:"running"`
}

type Quote struct {
	Total          types.Money `json:"total"`
	Components     []Component `json:"components"`
	NightSurcharge bool        `json:"night_surcharge"`
	PeakSeason     bool        `json:"peak_season"`
}

const (
	ComponentBase        = "base"
	ComponentDistance    = "distance"
	ComponentRoundTrip   = "round_trip"
	ComponentHillStation = "hill_station"
	ComponentWaiting     = "waiting"
	ComponentToll        = "toll"
	ComponentParking     = "parking"
	ComponentNight       = "night"
	ComponentDays        = "days"
	ComponentPackage     = "package"
	ComponentExtraHours  = "extra_hours"
	ComponentExtraKm     = "extra_km"
)
