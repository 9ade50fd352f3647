package router // router defines how HTTP routes are registered for the API

import (
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/handler"
	"github.com/iliyamo/event-hub/internal/metrics"
	"github.com/iliyamo/event-hub/internal/middleware"
)

// Deps collects what the HTTP surface needs.  Redis may be nil, in which
// case caching is off and rate limiting falls back to in-process buckets.
type Deps struct {
	Config    config.Config
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Logger    zerolog.Logger
	Redis     *redis.Client
	Store     handler.Pinger

	Events       *handler.EventHandler
	Reservations *handler.ReservationHandler
	Profiles     *handler.ProfileHandler
	Auth         *handler.AuthHandler
}

// New builds the Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID(d.Logger))
	e.Use(middleware.RequestLogger())
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(bodyLimit(d.Config.MaxUploadBytes)))
	e.Use(middleware.Session(d.Config.Session.Secret, d.Config.Session.CookieName))

	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	g := Guards{
		Read:  []echo.MiddlewareFunc{limiter, cache},
		Write: []echo.MiddlewareFunc{limiter, middleware.RequireSession(d.Config.Session.Required), cache},
	}

	RegisterRoutes(e, d.Store)
	RegisterAuth(e, d.Auth, limiter)
	RegisterEvents(e, d.Events, g)
	RegisterReservations(e, d.Reservations, g)
	RegisterProfiles(e, d.Profiles, g)
	return e
}

// formOverhead is the room left for multipart fields and boundaries on top
// of the largest accepted poster.
const formOverhead = 1 << 20

// bodyLimit renders the request body cap in the unit syntax BodyLimit takes.
func bodyLimit(maxUpload int64) string {
	if maxUpload < 0 {
		maxUpload = 0
	}
	return fmt.Sprintf("%dK", (maxUpload+formOverhead+1023)/1024)
}

// Guards is the per-route middleware of the data routes.  The rate limiter
// and the response cache sit on both lists: reads are served from the cache
// and successful writes purge it.  Health and metrics are never limited, and
// login routes are limited but never cached since their answers depend on
// the caller.
type Guards struct {
	Read  []echo.MiddlewareFunc
	Write []echo.MiddlewareFunc
}

// RegisterRoutes registers the operational endpoints: health check and
// Prometheus metrics.
func RegisterRoutes(e *echo.Echo, store handler.Pinger) {
	e.GET("/healthz", handler.Health(store))
	e.GET("/metrics", metrics.Handler())
}

// RegisterAuth registers the Google login flow.  None of these routes
// require an existing session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/google", a.Login, mw...)
	e.GET("/google/callback", a.Callback, mw...)
	e.GET("/login/success", a.LoginSuccess, mw...)
	e.GET("/login/failed", a.LoginFailed, mw...)
	e.GET("/logout", a.Logout, mw...)
}

// errorHandler keeps framework errors (unknown route, bad method, oversized
// body) in the same {"error","message"} envelope as handler errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := 500, "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	} else {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("unhandled error")
	}
	kind := "internal_error"
	switch {
	case code == 404:
		kind = "not_found"
	case code == 401:
		kind = "unauthorized"
	case code == 403:
		kind = "forbidden"
	case code == 429:
		kind = "too_many_requests"
	case code >= 400 && code < 500:
		kind = "validation_error"
	}
	if c.Request().Method == echo.HEAD {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": kind, "message": msg})
}
