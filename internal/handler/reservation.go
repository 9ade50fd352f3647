package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/service"
)

// ReservationHandler serves seat reservations, registrations and the
// listings built on them.
type ReservationHandler struct {
	Reservations *service.ReservationService
}

func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	if reservations == nil {
		panic("nil reservation service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: reservations}
}

// ----- DTOs -----

type reservationReq struct {
	EventID        string `json:"eventId"`
	UserEmail      string `json:"userEmail"`
	Registered     bool   `json:"registered"`
	EventDate      string `json:"eventDate"`
	EventStartTime string `json:"eventStartTime"`
	EventEndTime   string `json:"eventEndTime"`
	SeatCount      int    `json:"seatCount"`
	Remove         bool   `json:"remove"`
}

type unregisterReq struct {
	EventID   string `json:"eventId"`
	UserEmail string `json:"userEmail"`
}

// bindReservation decodes the body into a Reservation.  An empty eventDate is
// left zero for the validator to report.
func bindReservation(c echo.Context) (*model.Reservation, error) {
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return nil, &service.ValidationError{Fields: map[string]string{"body": "must be a JSON object"}}
	}
	r := &model.Reservation{
		EventID:        strings.TrimSpace(req.EventID),
		UserEmail:      strings.TrimSpace(req.UserEmail),
		Registered:     req.Registered,
		EventStartTime: req.EventStartTime,
		EventEndTime:   req.EventEndTime,
		SeatCount:      req.SeatCount,
		Remove:         req.Remove,
	}
	if strings.TrimSpace(req.EventDate) != "" {
		d, err := model.ParseDate(req.EventDate)
		if err != nil {
			return nil, &service.ValidationError{Fields: map[string]string{"eventDate": "must be a date such as 2024-05-01"}}
		}
		r.EventDate = d
	}
	return r, nil
}

// Reserve handles POST /reserveSeat.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	r, err := bindReservation(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Reservations.Reserve(c.Request().Context(), r); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Seat(s) reserved successfully!"})
}

// Register handles POST /registerEvent.
func (h *ReservationHandler) Register(c echo.Context) error {
	r, err := bindReservation(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Reservations.Register(c.Request().Context(), r); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Event registration successful!"})
}

// Unregister handles POST /unregisterEvent.  It answers 204 even when no
// matching reservation existed.
func (h *ReservationHandler) Unregister(c echo.Context) error {
	var req unregisterReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	err := h.Reservations.Unregister(c.Request().Context(), strings.TrimSpace(req.EventID), strings.TrimSpace(req.UserEmail))
	if err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Registered handles GET /registeredEvents?userEmail=.
func (h *ReservationHandler) Registered(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("userEmail"))
	if email == "" {
		return respondError(c, &service.ValidationError{Fields: map[string]string{"userEmail": "is required"}})
	}
	views, err := h.Reservations.RegisteredEvents(c.Request().Context(), email, "")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// SearchRegistered handles GET /searchRegisteredEvents/:email?q=.
func (h *ReservationHandler) SearchRegistered(c echo.Context) error {
	views, err := h.Reservations.RegisteredEvents(c.Request().Context(), c.Param("email"), c.QueryParam("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// OthersOnMine handles GET /otherUsersRegisteredEvents/:email.
func (h *ReservationHandler) OthersOnMine(c echo.Context) error {
	rows, err := h.Reservations.OthersOnMyEvents(c.Request().Context(), c.Param("email"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}
