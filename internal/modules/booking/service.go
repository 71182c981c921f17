// README: Booking service: validation, distance resolution, fare pricing, persistence and events.
package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"taxibook/internal/logger"
	"taxibook/internal/maps"
	"taxibook/internal/metrics"
	"taxibook/internal/modules/pricing"
	"taxibook/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid booking state transition")
	ErrNotFound     = errors.New("booking not found")
	ErrConflict     = errors.New("booking was modified concurrently")
	ErrBadRequest   = errors.New("bad request")
)

// Publisher receives booking lifecycle events. Failures are logged and never
// roll back the write that produced the event.
type Publisher interface {
	PublishBookingCreated(ctx context.Context, b *Booking) error
	PublishBookingUpdated(ctx context.Context, b *Booking) error
	PublishBookingStatusChanged(ctx context.Context, b *Booking, from Status) error
	PublishBookingDeleted(ctx context.Context, id types.ID) error
}

type Service struct {
	repo     Repository
	pricing  *pricing.Service
	distance maps.DistanceProvider
	events   Publisher
	log      *logger.Logger
	now      func() time.Time
}

// NewService wires the workflow. distance and events may be nil: bookings
// then need an explicit distance and no events are sent.
func NewService(repo Repository, fares *pricing.Service, distance maps.DistanceProvider, events Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		repo:     repo,
		pricing:  fares,
		distance: distance,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// Input is the caller-controlled part of a booking, used by Create, Update
// and Estimate.
type Input struct {
	UserID         types.ID
	VehicleType    pricing.VehicleType
	TripType       TripType
	PickupLocation string
	DropLocation   string
	Pickup         types.Point
	Dropoff        types.Point
	PickupAt       time.Time
	ReturnAt       *time.Time
	DistanceKm     float64
	NumberOfDays   int
	IsHillStation  bool
	PackageType    string
	Charges        Charges
	Customer       Customer
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func (in Input) validate(needCustomer bool) error {
	if in.UserID == "" && needCustomer {
		return badRequest("user_id is required")
	}
	if !in.TripType.Valid() {
		return badRequest("unknown trip type %q", in.TripType)
	}
	if in.VehicleType == "" {
		return badRequest("vehicle_type is required")
	}
	if needCustomer && strings.TrimSpace(in.PickupLocation) == "" {
		return badRequest("pickup_location is required")
	}
	if in.PickupAt.IsZero() {
		return badRequest("pickup_at is required")
	}
	if in.ReturnAt != nil && !in.ReturnAt.After(in.PickupAt) {
		return badRequest("return_at must be after pickup_at")
	}
	if in.NumberOfDays < 0 {
		return badRequest("number_of_days must be >= 0")
	}
	if in.DistanceKm < 0 {
		return badRequest("distance_km must be >= 0")
	}
	if !in.Pickup.Valid() || !in.Dropoff.Valid() {
		return badRequest("coordinates out of range")
	}
	if in.Charges.Toll < 0 || in.Charges.Parking < 0 || in.Charges.WaitingMinutes < 0 {
		return badRequest("charges must be >= 0")
	}
	if !needCustomer {
		return nil
	}
	c := in.Customer
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Phone) == "" {
		return badRequest("customer name and phone are required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return badRequest("customer email %q is invalid", c.Email)
	}
	return nil
}

// days is the number of billed days: explicit, else the calendar span up to
// ReturnAt, else one.
func (in Input) days() int {
	if in.NumberOfDays > 0 {
		return in.NumberOfDays
	}
	if in.ReturnAt != nil {
		if d := int(math.Ceil(in.ReturnAt.Sub(in.PickupAt).Hours() / 24)); d > 1 {
			return d
		}
	}
	return 1
}

func (in Input) apply(b *Booking) {
	b.VehicleType = in.VehicleType
	b.TripType = in.TripType
	b.PickupLocation = strings.TrimSpace(in.PickupLocation)
	b.DropLocation = strings.TrimSpace(in.DropLocation)
	b.Pickup = in.Pickup
	b.Dropoff = in.Dropoff
	b.PickupAt = in.PickupAt
	b.ReturnAt = in.ReturnAt
	b.DistanceKm = in.DistanceKm
	b.DurationMin = 0
	b.NumberOfDays = in.days()
	b.IsHillStation = in.IsHillStation
	b.PackageType = in.PackageType
	b.Charges = in.Charges
	b.Customer = in.Customer
}

func (s *Service) Create(ctx context.Context, in Input) (*Booking, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}

	now := s.now()
	b := &Booking{
		ID:        types.ID(uuid.NewString()),
		UserID:    in.UserID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(b)

	if err := s.resolveRoute(ctx, b); err != nil {
		return nil, err
	}
	q, err := s.price(b)
	if err != nil {
		return nil, err
	}
	b.Fare = q.Total

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, b.ID, StatusNone, StatusPending, &b.UserID, now)
	metrics.CountBooking(string(b.TripType), string(b.Status))

	s.log.WithFields(logrus.Fields{
		"booking_id":   b.ID,
		"user_id":      b.UserID,
		"trip_type":    b.TripType,
		"vehicle_type": b.VehicleType,
		"fare":         b.Fare.Amount,
	}).Info("booking created")

	if s.events != nil {
		if err := s.events.PublishBookingCreated(ctx, b); err != nil {
			s.log.WithError(err).WithField("booking_id", b.ID).Warn("publish booking.created failed")
		}
	}
	return b, nil
}

// Estimate prices a prospective booking without storing it.
func (s *Service) Estimate(ctx context.Context, in Input) (pricing.Quote, maps.Route, error) {
	if err := in.validate(false); err != nil {
		return pricing.Quote{}, maps.Route{}, err
	}
	var b Booking
	in.apply(&b)
	if err := s.resolveRoute(ctx, &b); err != nil {
		return pricing.Quote{}, maps.Route{}, err
	}
	q, err := s.price(&b)
	if err != nil {
		return pricing.Quote{}, maps.Route{}, err
	}
	return q, maps.Route{DistanceKm: b.DistanceKm, DurationMin: b.DurationMin}, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	if id == "" {
		return nil, badRequest("booking id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID types.ID) ([]*Booking, error) {
	if userID == "" {
		return nil, badRequest("user id is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

// Update replaces the trip details of a pending booking and reprices it.
// The owner, status and creation time are kept.
func (s *Service) Update(ctx context.Context, id types.ID, in Input) (*Booking, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status != StatusPending {
		return nil, ErrInvalidState
	}
	in.UserID = cur.UserID
	if err := in.validate(true); err != nil {
		return nil, err
	}

	b := *cur
	in.apply(&b)
	if err := s.resolveRoute(ctx, &b); err != nil {
		return nil, err
	}
	q, err := s.price(&b)
	if err != nil {
		return nil, err
	}
	b.Fare = q.Total
	b.UpdatedAt = s.now()

	ok, err := s.repo.Update(ctx, &b, cur.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	b.StatusVersion = cur.StatusVersion + 1

	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "fare": b.Fare.Amount}).Info("booking updated")
	if s.events != nil {
		if err := s.events.PublishBookingUpdated(ctx, &b); err != nil {
			s.log.WithError(err).WithField("booking_id", b.ID).Warn("publish booking.updated failed")
		}
	}
	return &b, nil
}

func (s *Service) Delete(ctx context.Context, id types.ID) error {
	if id == "" {
		return badRequest("booking id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("booking_id", id).Info("booking deleted")
	if s.events != nil {
		if err := s.events.PublishBookingDeleted(ctx, id); err != nil {
			s.log.WithError(err).WithField("booking_id", id).Warn("publish booking.deleted failed")
		}
	}
	return nil
}

func (s *Service) Confirm(ctx context.Context, id types.ID, actor *types.ID) (*Booking, error) {
	return s.Transition(ctx, id, StatusConfirmed, actor)
}

func (s *Service) Complete(ctx context.Context, id types.ID, actor *types.ID) (*Booking, error) {
	return s.Transition(ctx, id, StatusCompleted, actor)
}

func (s *Service) Cancel(ctx context.Context, id types.ID, actor *types.ID) (*Booking, error) {
	return s.Transition(ctx, id, StatusCancelled, actor)
}

// Transition moves a booking along the status flow. A concurrent writer
// makes it fail with ErrConflict rather than overwrite.
func (s *Service) Transition(ctx context.Context, id types.ID, to Status, actor *types.ID) (*Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	if !CanTransition(from, to) {
		return nil, ErrInvalidState
	}
	ok, err := s.repo.UpdateStatus(ctx, id, from, to, b.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	now := s.now()
	b.Status = to
	b.StatusVersion++
	b.UpdatedAt = now
	s.appendEvent(ctx, id, from, to, actor, now)
	metrics.CountBooking(string(b.TripType), string(to))

	s.log.WithFields(logrus.Fields{"booking_id": id, "from": from, "to": to}).Info("booking status changed")
	if s.events != nil {
		if err := s.events.PublishBookingStatusChanged(ctx, b, from); err != nil {
			s.log.WithError(err).WithField("booking_id", id).Warn("publish booking.status_changed failed")
		}
	}
	return b, nil
}

// resolveRoute fills DistanceKm and DurationMin from the distance provider
// when a distance-priced trip arrives without a distance. A failed lookup
// aborts; there is no straight-line fallback.
func (s *Service) resolveRoute(ctx context.Context, b *Booking) error {
	if b.TripType.Hourly() || b.DistanceKm > 0 {
		return nil
	}
	if isZero(b.Pickup) || isZero(b.Dropoff) {
		return badRequest("distance_km or pickup and dropoff coordinates are required")
	}
	if s.distance == nil {
		return badRequest("distance lookup is not configured; distance_km is required")
	}
	route, err := s.distance.Distance(ctx, b.Pickup, b.Dropoff)
	if err != nil {
		return fmt.Errorf("resolve distance: %w", err)
	}
	b.DistanceKm = route.DistanceKm
	b.DurationMin = route.DurationMin
	return nil
}

// price runs the fare engine for b. Waiting time beyond the free allowance is
// billed as waiting hours, or as extra package hours on hourly trips.
func (s *Service) price(b *Booking) (pricing.Quote, error) {
	rates := s.pricing.Rates()
	waitingHours := pricing.ChargeableWaitingHours(b.Charges.WaitingMinutes, rates.Surcharges())

	if b.TripType.Hourly() {
		if b.PackageType == "" {
			b.PackageType = DefaultPackage
		}
		var extraKm float64
		if pkg, err := rates.Package(b.PackageType); err == nil {
			_, extraKm = pricing.Overage(pkg, 0, b.DistanceKm)
		}
		return s.pricing.QuoteHourlyFare(pricing.HourlyFareRequest{
			VehicleType:     b.VehicleType,
			PackageType:     b.PackageType,
			PickupTime:      b.PickupAt,
			ParkingCharges:  b.Charges.Parking,
			ExtraHours:      waitingHours,
			ExtraKilometers: extraKm,
		})
	}

	b.PackageType = ""
	return s.pricing.QuoteBaseFare(pricing.BaseFareRequest{
		VehicleType:    b.VehicleType,
		DistanceKm:     b.DistanceKm,
		IsRoundTrip:    b.TripType == TripRoundTrip,
		NumberOfDays:   b.NumberOfDays,
		TollCharges:    b.Charges.Toll,
		ParkingCharges: b.Charges.Parking,
		WaitingHours:   waitingHours,
		IsHillStation:  b.IsHillStation,
		PickupTime:     b.PickupAt,
	})
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actor *types.ID, at time.Time) {
	if err := s.repo.AppendEvent(ctx, &Event{
		BookingID:  id,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor,
		CreatedAt:  at,
	}); err != nil {
		s.log.WithError(err).WithField("booking_id", id).Warn("append status event failed")
	}
}

func isZero(p types.Point) bool {
	return p.Lat == 0 && p.Lng == 0
}
