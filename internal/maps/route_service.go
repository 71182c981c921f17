// README: Driving distance and duration between two points via the Distance Matrix API.
package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxibook/internal/types"

	"googlemaps.github.io/maps"
)

var ErrLookup = errors.New("maps: distance lookup failed")

// LookupError carries the provider error or the element status that made a
// lookup unusable. Callers never get a guessed distance.
type LookupError struct {
	Origin      types.Point
	Destination types.Point
	Status      string
	Err         error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("maps: lookup %s -> %s: %v", e.Origin, e.Destination, e.Err)
	}
	return fmt.Sprintf("maps: lookup %s -> %s: status %s", e.Origin, e.Destination, e.Status)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// Route is the driving distance and duration of one trip leg.
type Route struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

// DistanceProvider resolves the driving route between two points.
type DistanceProvider interface {
	Distance(ctx context.Context, origin, destination types.Point) (Route, error)
}

type distanceMatrixAPI interface {
	DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error)
}

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client  distanceMatrixAPI
	timeout time.Duration
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string, timeout time.Duration) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, timeout: timeout}, nil
}

func (s *RouteService) Distance(ctx context.Context, origin, destination types.Point) (Route, error) {
	if !origin.Valid() || !destination.Valid() {
		return Route{}, &LookupError{Origin: origin, Destination: destination, Status: "INVALID_REQUEST"}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin.String()},
		Destinations: []string{destination.String()},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	})
	if err != nil {
		return Route{}, &LookupError{Origin: origin, Destination: destination, Err: err}
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return Route{}, &LookupError{Origin: origin, Destination: destination, Status: "ZERO_RESULTS"}
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return Route{}, &LookupError{Origin: origin, Destination: destination, Status: el.Status}
	}
	return Route{
		DistanceKm:  float64(el.Distance.Meters) / 1000,
		DurationMin: el.Duration.Minutes(),
	}, nil
}
