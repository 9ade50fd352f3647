package handler // handler defines http handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/repository"
	"github.com/iliyamo/event-hub/internal/service"
)

// respondError maps service and repository errors onto the shared
// {"error": code, "message": text} envelope.  Unexpected errors are logged
// with the request's logger and reported as store errors without detail.
func respondError(c echo.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_error",
			"message": "request validation failed",
			"fields":  verr.Fields,
		})
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "Event not found."})
	case errors.Is(err, repository.ErrProfileNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "Profile not found"})
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("route", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":   "store_error",
		"message": "the request could not be completed, please try again later",
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": msg})
}
