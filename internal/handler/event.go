package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/service"
)

// EventHandler serves event submission, editing, removal and the event
// searches.  Poster uploads larger than MaxUploadBytes are rejected before
// decoding.
type EventHandler struct {
	Events         *service.EventService
	MaxUploadBytes int64
}

func NewEventHandler(events *service.EventService, maxUploadBytes int64) *EventHandler {
	if events == nil {
		panic("nil event service passed to NewEventHandler")
	}
	return &EventHandler{Events: events, MaxUploadBytes: maxUploadBytes}
}

// Submit handles POST /eventUpload.  The body is a multipart form with the
// event fields and an optional posterImage file.
func (h *EventHandler) Submit(c echo.Context) error {
	fields, image, err := readEventForm(c, h.MaxUploadBytes)
	if err != nil {
		return respondError(c, err)
	}
	ev, err := h.Events.Submit(c.Request().Context(), fields, image)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Event submitted successfully!",
		"eventId": ev.ID.Hex(),
	})
}

// List handles GET /getEvents.
func (h *EventHandler) List(c echo.Context) error {
	evs, err := h.Events.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, evs)
}

// Get handles GET /getEvents/:eventId.
func (h *EventHandler) Get(c echo.Context) error {
	ev, err := h.Events.Get(c.Request().Context(), c.Param("eventId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Update handles POST /updateEvent/:eventId.  Only the form fields present
// in the request are changed.
func (h *EventHandler) Update(c echo.Context) error {
	fields, image, err := readEventForm(c, h.MaxUploadBytes)
	if err != nil {
		return respondError(c, err)
	}
	if _, err := h.Events.Update(c.Request().Context(), c.Param("eventId"), fields, image); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Event updated successfully!"})
}

// Delete handles DELETE /removeEvent/:eventId.  It answers 204 whether or
// not the event existed.
func (h *EventHandler) Delete(c echo.Context) error {
	if err := h.Events.Delete(c.Request().Context(), c.Param("eventId")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Organized handles GET /organizedEvents/:email.
func (h *EventHandler) Organized(c echo.Context) error {
	evs, err := h.Events.OrganizedBy(c.Request().Context(), c.Param("email"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, evs)
}

// SearchOrganized handles GET /searchOrganizedEvents/:email?q=.
func (h *EventHandler) SearchOrganized(c echo.Context) error {
	evs, err := h.Events.SearchOrganized(c.Request().Context(), c.Param("email"), c.QueryParam("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, evs)
}

// SearchOthers handles GET /searchEvents/:email?query=, listing other users'
// reservations on events whose title matches.
func (h *EventHandler) SearchOthers(c echo.Context) error {
	views, err := h.Events.SearchOthersReservations(c.Request().Context(), c.Param("email"), c.QueryParam("query"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// SearchOwn handles GET /searchYourRegisteredEvents/:email?query=.
func (h *EventHandler) SearchOwn(c echo.Context) error {
	views, err := h.Events.SearchOwnReservations(c.Request().Context(), c.Param("email"), c.QueryParam("query"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}
