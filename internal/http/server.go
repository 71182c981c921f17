// README: API gateway; owns the HTTP listener and delegates to module services.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"taxibook/internal/http/handlers"
	"taxibook/internal/infra"
	"taxibook/internal/logger"
	"taxibook/internal/modules/booking"
	"taxibook/internal/modules/pricing"
)

// ServerDeps holds the services behind the API. Places and Verifier are
// optional: without them location search answers 503 and booking routes
// run unauthenticated.
type ServerDeps struct {
	Pricing  *pricing.Service
	Bookings *booking.Service
	Places   handlers.PlaceFinder
	Verifier infra.TokenVerifier
	Log      *logger.Logger
}

type Server struct {
	srv *http.Server
	log *logger.Logger
}

func NewServer(addr string, deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run blocks until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.WithField("addr", s.srv.Addr).Info("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
