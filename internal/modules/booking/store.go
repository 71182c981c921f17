// README: Booking store backed by PostgreSQL.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxibook/internal/types"
)

// Repository is what the booking service needs from persistence.
// Update and UpdateStatus are compare-and-set on StatusVersion and report
// false when another writer got there first.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	ListByUser(ctx context.Context, userID types.ID) ([]*Booking, error)
	Update(ctx context.Context, b *Booking, version int) (bool, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	Delete(ctx context.Context, id types.ID) error
	AppendEvent(ctx context.Context, e *Event) error
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const bookingColumns = `
	id, user_id, vehicle_type, trip_type, status, status_version,
	pickup_location, drop_location, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
	pickup_at, return_at, distance_km, duration_min, number_of_days, is_hill_station,
	package_type, fare, currency, toll_charges, parking_charges, waiting_minutes,
	customer_name, customer_email, customer_phone, customer_address,
	created_at, updated_at`

func (s *Store) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24,
			$25, $26, $27, $28,
			$29, $30
		)`,
		string(b.ID), string(b.UserID), string(b.VehicleType), string(b.TripType), string(b.Status), b.StatusVersion,
		b.PickupLocation, b.DropLocation, b.Pickup.Lat, b.Pickup.Lng, b.Dropoff.Lat, b.Dropoff.Lng,
		b.PickupAt, b.ReturnAt, b.DistanceKm, b.DurationMin, b.NumberOfDays, b.IsHillStation,
		b.PackageType, b.Fare.Amount, b.Fare.Currency, b.Charges.Toll, b.Charges.Parking, b.Charges.WaitingMinutes,
		b.Customer.Name, b.Customer.Email, b.Customer.Phone, b.Customer.Address,
		b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListByUser returns the user's bookings, newest first.
func (s *Store) ListByUser(ctx context.Context, userID types.ID) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, b *Booking, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET vehicle_type = $1, trip_type = $2,
		    pickup_location = $3, drop_location = $4,
		    pickup_lat = $5, pickup_lng = $6, dropoff_lat = $7, dropoff_lng = $8,
		    pickup_at = $9, return_at = $10, distance_km = $11, duration_min = $12,
		    number_of_days = $13, is_hill_station = $14, package_type = $15,
		    fare = $16, currency = $17,
		    toll_charges = $18, parking_charges = $19, waiting_minutes = $20,
		    customer_name = $21, customer_email = $22, customer_phone = $23, customer_address = $24,
		    updated_at = $25,
		    status_version = status_version + 1
		WHERE id = $26 AND status = 'pending' AND status_version = $27`,
		string(b.VehicleType), string(b.TripType),
		b.PickupLocation, b.DropLocation,
		b.Pickup.Lat, b.Pickup.Lng, b.Dropoff.Lat, b.Dropoff.Lng,
		b.PickupAt, b.ReturnAt, b.DistanceKm, b.DurationMin,
		b.NumberOfDays, b.IsHillStation, b.PackageType,
		b.Fare.Amount, b.Fare.Currency,
		b.Charges.Toll, b.Charges.Parking, b.Charges.WaitingMinutes,
		b.Customer.Name, b.Customer.Email, b.Customer.Phone, b.Customer.Address,
		b.UpdatedAt,
		string(b.ID), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_status_events (
			booking_id, from_status, to_status, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5)`,
		string(e.BookingID),
		string(e.FromStatus),
		string(e.ToStatus),
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var returnAt *time.Time
	err := row.Scan(
		&b.ID, &b.UserID, &b.VehicleType, &b.TripType, &b.Status, &b.StatusVersion,
		&b.PickupLocation, &b.DropLocation, &b.Pickup.Lat, &b.Pickup.Lng, &b.Dropoff.Lat, &b.Dropoff.Lng,
		&b.PickupAt, &returnAt, &b.DistanceKm, &b.DurationMin, &b.NumberOfDays, &b.IsHillStation,
		&b.PackageType, &b.Fare.Amount, &b.Fare.Currency, &b.Charges.Toll, &b.Charges.Parking, &b.Charges.WaitingMinutes,
		&b.Customer.Name, &b.Customer.Email, &b.Customer.Phone, &b.Customer.Address,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.ReturnAt = returnAt
	return &b, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
