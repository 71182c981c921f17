// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taxibook/internal/http/handlers"
	"taxibook/internal/http/middleware"
	"taxibook/internal/logger"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	fares := handlers.NewFareHandler(deps.Pricing, deps.Bookings, log)
	api.GET("/rates", fares.Rates)
	api.POST("/fares/base", fares.Base)
	api.POST("/fares/hourly", fares.Hourly)
	api.POST("/fares/estimate", fares.Estimate)

	locations := handlers.NewLocationHandler(deps.Places, log)
	api.GET("/locations/search", locations.Search)
	api.GET("/locations/:placeId", locations.Get)

	bookings := handlers.NewBookingHandler(deps.Bookings, log)
	authed := api.Group("", middleware.Auth(deps.Verifier))
	authed.POST("/bookings", bookings.Create)
	authed.GET("/bookings/:id", bookings.Get)
	authed.PUT("/bookings/:id", bookings.Update)
	authed.DELETE("/bookings/:id", bookings.Delete)
	authed.GET("/users/:id/bookings", bookings.ListByUser)
	authed.POST("/bookings/:id/confirm", middleware.RequireRole(middleware.RoleAdmin), bookings.Confirm)
	authed.POST("/bookings/:id/complete", middleware.RequireRole(middleware.RoleAdmin), bookings.Complete)
	authed.POST("/bookings/:id/cancel", bookings.Cancel)

	return r
}
