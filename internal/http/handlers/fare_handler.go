// README: Fare handlers: rate card listing, base/hourly quotes and route estimates.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taxibook/internal/logger"
	"taxibook/internal/modules/booking"
	"taxibook/internal/modules/pricing"
	"taxibook/internal/types"
)

type FareHandler struct {
	pricing  *pricing.Service
	bookings *booking.Service
	log      *logger.Logger
}

func NewFareHandler(fares *pricing.Service, bookings *booking.Service, log *logger.Logger) *FareHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &FareHandler{pricing: fares, bookings: bookings, log: log}
}

type fareResponse struct {
	Fare           int64               `json:"fare"`
	Currency       string              `json:"currency"`
	Breakdown      []pricing.Component `json:"breakdown"`
	NightSurcharge bool                `json:"night_surcharge"`
	PeakSeason     bool                `json:"peak_season"`
	DistanceKm     *float64            `json:"distance_km,omitempty"`
	DurationMin    *float64            `json:"duration_min,omitempty"`
}

func toFareResponse(q pricing.Quote) fareResponse {
	return fareResponse{
		Fare:           q.Total.Amount,
		Currency:       q.Total.Currency,
		Breakdown:      q.Components,
		NightSurcharge: q.NightSurcharge,
		PeakSeason:     q.PeakSeason,
	}
}

type ratesResponse struct {
	pricing.RateTableConfig
	VehicleTypes []pricing.VehicleType `json:"vehicle_types"`
	PackageTypes []string              `json:"package_types"`
}

func (h *FareHandler) Rates(c *gin.Context) {
	rates := h.pricing.Rates()
	writeJSON(c, http.StatusOK, ratesResponse{
		RateTableConfig: rates.Config(),
		VehicleTypes:    rates.VehicleTypes(),
		PackageTypes:    rates.PackageNames(),
	})
}

type baseFareReq struct {
	VehicleType    string    `json:"vehicle_type" binding:"required"`
	DistanceKm     float64   `json:"distance_km"`
	IsRoundTrip    bool      `json:"is_round_trip"`
	NumberOfDays   *int      `json:"number_of_days"`
	TollCharges    float64   `json:"toll_charges"`
	ParkingCharges float64   `json:"parking_charges"`
	WaitingHours   float64   `json:"waiting_hours"`
	IsHillStation  bool      `json:"is_hill_station"`
	PickupTime     time.Time `json:"pickup_time"`
}

func (h *FareHandler) Base(c *gin.Context) {
	var req baseFareReq
	if !bindJSON(c, &req) {
		return
	}
	days := 1
	if req.NumberOfDays != nil {
		days = *req.NumberOfDays
	}
	q, err := h.pricing.QuoteBaseFare(pricing.BaseFareRequest{
		VehicleType:    pricing.VehicleType(req.VehicleType),
		DistanceKm:     req.DistanceKm,
		IsRoundTrip:    req.IsRoundTrip,
		NumberOfDays:   days,
		TollCharges:    req.TollCharges,
		ParkingCharges: req.ParkingCharges,
		WaitingHours:   req.WaitingHours,
		IsHillStation:  req.IsHillStation,
		PickupTime:     req.PickupTime,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toFareResponse(q))
}

// hourlyFareReq accepts either explicit extras or the hours and kilometres
// actually used; used values are converted to overage against the package.
type hourlyFareReq struct {
	VehicleType     string    `json:"vehicle_type" binding:"required"`
	PackageType     string    `json:"package_type" binding:"required"`
	PickupTime      time.Time `json:"pickup_time"`
	ParkingCharges  float64   `json:"parking_charges"`
	ExtraHours      float64   `json:"extra_hours"`
	ExtraKilometers float64   `json:"extra_kilometers"`
	UsedHours       *float64  `json:"used_hours"`
	UsedKm          *float64  `json:"used_km"`
}

func (h *FareHandler) Hourly(c *gin.Context) {
	var req hourlyFareReq
	if !bindJSON(c, &req) {
		return
	}
	fareReq := pricing.HourlyFareRequest{
		VehicleType:     pricing.VehicleType(req.VehicleType),
		PackageType:     req.PackageType,
		PickupTime:      req.PickupTime,
		ParkingCharges:  req.ParkingCharges,
		ExtraHours:      req.ExtraHours,
		ExtraKilometers: req.ExtraKilometers,
	}
	if req.UsedHours != nil || req.UsedKm != nil {
		pkg, err := h.pricing.Rates().Package(req.PackageType)
		if err != nil {
			writeServiceError(c, h.log, err)
			return
		}
		usedHours, usedKm := pkg.IncludedHours, pkg.IncludedKm
		if req.UsedHours != nil {
			usedHours = *req.UsedHours
		}
		if req.UsedKm != nil {
			usedKm = *req.UsedKm
		}
		if usedHours < 0 || usedKm < 0 {
			writeError(c, http.StatusBadRequest, "used_hours and used_km must be >= 0")
			return
		}
		fareReq.ExtraHours, fareReq.ExtraKilometers = pricing.Overage(pkg, usedHours, usedKm)
	}
	q, err := h.pricing.QuoteHourlyFare(fareReq)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toFareResponse(q))
}

type estimateReq struct {
	VehicleType   string          `json:"vehicle_type" binding:"required"`
	TripType      string          `json:"trip_type"`
	Pickup        types.Point     `json:"pickup"`
	Dropoff       types.Point     `json:"dropoff"`
	DistanceKm    float64         `json:"distance_km"`
	PickupTime    time.Time       `json:"pickup_time"`
	ReturnTime    *time.Time      `json:"return_time"`
	NumberOfDays  int             `json:"number_of_days"`
	IsHillStation bool            `json:"is_hill_station"`
	PackageType   string          `json:"package_type"`
	Charges       booking.Charges `json:"charges"`
}

// Estimate resolves the route distance when coordinates are given and
// returns the quote a booking with these details would get.
func (h *FareHandler) Estimate(c *gin.Context) {
	var req estimateReq
	if !bindJSON(c, &req) {
		return
	}
	trip := booking.TripType(req.TripType)
	if trip == "" {
		trip = booking.TripOneWay
	}
	q, route, err := h.bookings.Estimate(c.Request.Context(), booking.Input{
		VehicleType:   pricing.VehicleType(req.VehicleType),
		TripType:      trip,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		PickupAt:      req.PickupTime,
		ReturnAt:      req.ReturnTime,
		DistanceKm:    req.DistanceKm,
		NumberOfDays:  req.NumberOfDays,
		IsHillStation: req.IsHillStation,
		PackageType:   req.PackageType,
		Charges:       req.Charges,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	resp := toFareResponse(q)
	resp.DistanceKm = &route.DistanceKm
	resp.DurationMin = &route.DurationMin
	writeJSON(c, http.StatusOK, resp)
}
