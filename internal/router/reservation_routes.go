package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/handler"
)

// RegisterReservations registers seat booking, registration and the
// listings derived from reservations.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, g Guards) {
	e.GET("/registeredEvents", h.Registered, g.Read...)
	e.GET("/searchRegisteredEvents/:email", h.SearchRegistered, g.Read...)
	e.GET("/otherUsersRegisteredEvents/:email", h.OthersOnMine, g.Read...)

	e.POST("/reserveSeat", h.Reserve, g.Write...)
	e.POST("/registerEvent", h.Register, g.Write...)
	e.POST("/unregisterEvent", h.Unregister, g.Write...)
}

// RegisterProfiles registers the profile endpoints under /api.
func RegisterProfiles(e *echo.Echo, h *handler.ProfileHandler, g Guards) {
	api := e.Group("/api")
	api.GET("/profile/:email", h.Get, g.Read...)
	api.POST("/profile", h.Save, g.Write...)
}
