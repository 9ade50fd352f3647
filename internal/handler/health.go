package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns the health-check endpoint used by load balancers.  It
// answers "ok" when the store responds within two seconds and 503 otherwise.
func Health(store Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			zerolog.Ctx(c.Request().Context()).Warn().Err(err).Msg("health check failed")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store_error", "message": "store unreachable"})
		}
		return c.String(http.StatusOK, "ok")
	}
}
