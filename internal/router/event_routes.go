package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/handler"
)

// RegisterEvents registers the event endpoints.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, g Guards) {
	e.GET("/getEvents", h.List, g.Read...)
	e.GET("/getEvents/:eventId", h.Get, g.Read...)
	e.GET("/organizedEvents/:email", h.Organized, g.Read...)
	e.GET("/searchOrganizedEvents/:email", h.SearchOrganized, g.Read...)
	e.GET("/searchEvents/:email", h.SearchOthers, g.Read...)
	e.GET("/searchYourRegisteredEvents/:email", h.SearchOwn, g.Read...)

	e.POST("/eventUpload", h.Submit, g.Write...)
	e.POST("/updateEvent/:eventId", h.Update, g.Write...)
	e.DELETE("/removeEvent/:eventId", h.Delete, g.Write...)
}
