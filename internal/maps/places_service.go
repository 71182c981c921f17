package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxibook/internal/types"

	"googlemaps.github.io/maps"
)

var ErrPlaceNotFound = errors.New("maps: place not found")

// Location is a pickup or drop point picked from a place search.
type Location struct {
	PlaceID string      `json:"place_id"`
	Name    string      `json:"name"`
	Address string      `json:"address"`
	Point   types.Point `json:"point"`
}

type placesAPI interface {
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
}

const maxSearchResults = 5

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client  placesAPI
	region  string
	timeout time.Duration
}

// NewPlacesService creates a new PlacesService with the given API Key.
// region biases text search results, e.g. "in".
func NewPlacesService(apiKey, region string, timeout time.Duration) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client, region: region, timeout: timeout}, nil
}

// Search returns up to five locations matching a free-text query, in
// provider order with duplicates removed.
func (s *PlacesService) Search(ctx context.Context, query string) ([]Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{Query: query, Region: s.region})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	seen := make(map[string]struct{}, len(resp.Results))
	results := make([]Location, 0, maxSearchResults)
	for _, r := range resp.Results {
		if _, dup := seen[r.PlaceID]; dup {
			continue
		}
		seen[r.PlaceID] = struct{}{}
		results = append(results, Location{
			PlaceID: r.PlaceID,
			Name:    r.Name,
			Address: r.FormattedAddress,
			Point:   types.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		})
		if len(results) >= maxSearchResults {
			break
		}
	}
	return results, nil
}

// Place resolves a place ID from a previous search into its coordinates.
func (s *PlacesService) Place(ctx context.Context, placeID string) (Location, error) {
	if placeID == "" {
		return Location{}, ErrPlaceNotFound
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	r, err := s.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{PlaceID: placeID})
	if err != nil {
		if strings.Contains(err.Error(), "NOT_FOUND") || strings.Contains(err.Error(), "INVALID_REQUEST") {
			return Location{}, fmt.Errorf("%w: %s", ErrPlaceNotFound, placeID)
		}
		return Location{}, fmt.Errorf("place details api error: %w", err)
	}
	return Location{
		PlaceID: r.PlaceID,
		Name:    r.Name,
		Address: r.FormattedAddress,
		Point:   types.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
	}, nil
}

func (s *PlacesService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}
