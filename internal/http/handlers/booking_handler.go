// README: Booking handlers: CRUD, per-user listing and status transitions.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taxibook/internal/http/middleware"
	"taxibook/internal/logger"
	"taxibook/internal/modules/booking"
	"taxibook/internal/modules/pricing"
	"taxibook/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
	log      *logger.Logger
}

func NewBookingHandler(svc *booking.Service, log *logger.Logger) *BookingHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &BookingHandler{bookings: svc, log: log}
}

type customerReq struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address"`
}

type bookingReq struct {
	UserID         string          `json:"user_id"`
	VehicleType    string          `json:"vehicle_type" binding:"required"`
	TripType       string          `json:"trip_type" binding:"required"`
	PickupLocation string          `json:"pickup_location" binding:"required"`
	DropLocation   string          `json:"drop_location"`
	Pickup         types.Point     `json:"pickup"`
	Dropoff        types.Point     `json:"dropoff"`
	PickupAt       time.Time       `json:"pickup_at"`
	ReturnAt       *time.Time      `json:"return_at"`
	DistanceKm     float64         `json:"distance_km"`
	NumberOfDays   int             `json:"number_of_days"`
	IsHillStation  bool            `json:"is_hill_station"`
	PackageType    string          `json:"package_type"`
	Charges        booking.Charges `json:"charges"`
	Customer       customerReq     `json:"customer"`
}

func (r bookingReq) input(userID types.ID) booking.Input {
	return booking.Input{
		UserID:         userID,
		VehicleType:    pricing.VehicleType(r.VehicleType),
		TripType:       booking.TripType(r.TripType),
		PickupLocation: r.PickupLocation,
		DropLocation:   r.DropLocation,
		Pickup:         r.Pickup,
		Dropoff:        r.Dropoff,
		PickupAt:       r.PickupAt,
		ReturnAt:       r.ReturnAt,
		DistanceKm:     r.DistanceKm,
		NumberOfDays:   r.NumberOfDays,
		IsHillStation:  r.IsHillStation,
		PackageType:    r.PackageType,
		Charges:        r.Charges,
		Customer: booking.Customer{
			Name:    r.Customer.Name,
			Email:   r.Customer.Email,
			Phone:   r.Customer.Phone,
			Address: r.Customer.Address,
		},
	}
}

// Create books a trip for the caller. Admins may book on behalf of another
// user_id; anyone else booking for a different user gets 403.
func (h *BookingHandler) Create(c *gin.Context) {
	var req bookingReq
	if !bindJSON(c, &req) {
		return
	}
	userID := types.ID(req.UserID)
	if middleware.Authenticated(c) {
		caller := types.ID(middleware.CallerUID(c))
		switch {
		case userID == "":
			userID = caller
		case userID != caller && middleware.CallerRole(c) != middleware.RoleAdmin:
			writeError(c, http.StatusForbidden, "forbidden: user_id does not match authenticated user")
			return
		}
	}
	b, err := h.bookings.Create(c.Request.Context(), req.input(userID))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *BookingHandler) Update(c *gin.Context) {
	var req bookingReq
	if !bindJSON(c, &req) {
		return
	}
	cur, ok := h.load(c)
	if !ok {
		return
	}
	b, err := h.bookings.Update(c.Request.Context(), cur.ID, req.input(cur.UserID))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *BookingHandler) Delete(c *gin.Context) {
	cur, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.bookings.Delete(c.Request.Context(), cur.ID); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) ListByUser(c *gin.Context) {
	userID := c.Param("id")
	if middleware.Authenticated(c) && middleware.CallerUID(c) != userID && middleware.CallerRole(c) != middleware.RoleAdmin {
		writeError(c, http.StatusForbidden, "forbidden: id does not match authenticated user")
		return
	}
	list, err := h.bookings.ListByUser(c.Request.Context(), types.ID(userID))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	if list == nil {
		list = []*booking.Booking{}
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": list})
}

func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.bookings.Confirm)
}

func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, h.bookings.Complete)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.bookings.Cancel)
}

type transitionFunc func(ctx context.Context, id types.ID, actor *types.ID) (*booking.Booking, error)

func (h *BookingHandler) transition(c *gin.Context, move transitionFunc) {
	cur, ok := h.load(c)
	if !ok {
		return
	}
	b, err := move(c.Request.Context(), cur.ID, actor(c))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

// load fetches the booking named by :id and enforces ownership. It writes
// the error response itself and reports whether the handler may continue.
func (h *BookingHandler) load(c *gin.Context) (*booking.Booking, bool) {
	b, err := h.bookings.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, h.log, err)
		return nil, false
	}
	if middleware.Authenticated(c) &&
		b.UserID != types.ID(middleware.CallerUID(c)) &&
		middleware.CallerRole(c) != middleware.RoleAdmin {
		writeError(c, http.StatusForbidden, "forbidden: booking belongs to another user")
		return nil, false
	}
	return b, true
}

func actor(c *gin.Context) *types.ID {
	if !middleware.Authenticated(c) {
		return nil
	}
	id := types.ID(middleware.CallerUID(c))
	return &id
}
