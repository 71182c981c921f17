// README: Location handlers: place search for pickup/drop selection.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taxibook/internal/logger"
	"taxibook/internal/maps"
)

// PlaceFinder is the subset of maps.PlacesService the handlers need.
type PlaceFinder interface {
	Search(ctx context.Context, query string) ([]maps.Location, error)
	Place(ctx context.Context, placeID string) (maps.Location, error)
}

type LocationHandler struct {
	places PlaceFinder
	log    *logger.Logger
}

// NewLocationHandler accepts a nil finder; the routes then answer 503.
func NewLocationHandler(places PlaceFinder, log *logger.Logger) *LocationHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &LocationHandler{places: places, log: log}
}

func (h *LocationHandler) Search(c *gin.Context) {
	if h.places == nil {
		writeError(c, http.StatusServiceUnavailable, "location search is not configured")
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		writeError(c, http.StatusBadRequest, "missing query parameter q")
		return
	}
	locs, err := h.places.Search(c.Request.Context(), q)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	if locs == nil {
		locs = []maps.Location{}
	}
	writeJSON(c, http.StatusOK, gin.H{"results": locs})
}

func (h *LocationHandler) Get(c *gin.Context) {
	if h.places == nil {
		writeError(c, http.StatusServiceUnavailable, "location search is not configured")
		return
	}
	loc, err := h.places.Place(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, loc)
}
