package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/handler"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/repository/memstore"
	"github.com/iliyamo/event-hub/internal/service"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type noProvider struct{}

func (noProvider) AuthCodeURL(state string) string { return "https://accounts.example.com/?state=" + state }
func (noProvider) Identify(context.Context, string) (model.User, error) {
	return model.User{}, nil
}

func newTestEcho(mutate func(*Deps)) *echo.Echo {
	events, reservations := memstore.NewEvents(), memstore.NewReservations()
	cfg := config.Config{
		ClientURL:   "http://client.example",
		CORSOrigins: []string{"http://client.example"},
		Session:     config.SessionConfig{Secret: "s", TTL: time.Hour, CookieName: "sid", Required: true},
	}
	d := Deps{
		Config:       cfg,
		Logger:       zerolog.Nop(),
		Store:        okPinger{},
		Events:       handler.NewEventHandler(service.NewEventService(events, reservations, nil, nil), 1<<20),
		Reservations: handler.NewReservationHandler(service.NewReservationService(events, reservations, nil)),
		Profiles:     handler.NewProfileHandler(service.NewProfileService(memstore.NewProfiles())),
		Auth:         handler.NewAuthHandler(noProvider{}, cfg.Session, cfg.ClientURL),
	}
	if mutate != nil {
		mutate(&d)
	}
	return New(d)
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutes(t *testing.T) {
	e := newTestEcho(nil)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/getEvents", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestWritesRequireSession(t *testing.T) {
	e := newTestEcho(nil)
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/eventUpload"},
		{http.MethodPost, "/updateEvent/abc"},
		{http.MethodDelete, "/removeEvent/abc"},
		{http.MethodPost, "/reserveSeat"},
		{http.MethodPost, "/registerEvent"},
		{http.MethodPost, "/unregisterEvent"},
		{http.MethodPost, "/api/profile"},
	} {
		rec := serve(e, httptest.NewRequest(r.method, r.path, strings.NewReader("{}")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	e := newTestEcho(nil)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"Not Found"}`, rec.Body.String())
}

func TestCORSAllowsClientWithCredentials(t *testing.T) {
	e := newTestEcho(nil)
	req := httptest.NewRequest(http.MethodOptions, "/getEvents", nil)
	req.Header.Set(echo.HeaderOrigin, "http://client.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := serve(e, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://client.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

func TestRateLimitWithoutRedis(t *testing.T) {
	e := newTestEcho(func(d *Deps) {
		d.RateLimit = config.RateLimitConfig{
			Enabled:        true,
			Capacity:       2,
			RefillTokens:   1,
			RefillInterval: time.Hour,
			TTL:            time.Hour,
			KeyStrategy:    "ip",
			Prefix:         "rl",
		}
	})
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/getEvents", nil)).Code)
	}
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/getEvents", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestOperationalRoutesAreNotRateLimited(t *testing.T) {
	e := newTestEcho(func(d *Deps) {
		d.RateLimit = config.RateLimitConfig{
			Enabled:        true,
			Capacity:       1,
			RefillTokens:   1,
			RefillInterval: time.Hour,
			TTL:            time.Hour,
			KeyStrategy:    "ip",
			Prefix:         "rl",
		}
	})
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
	}
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/getEvents", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, httptest.NewRequest(http.MethodGet, "/getEvents", nil)).Code)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	e := newTestEcho(func(d *Deps) { d.Config.MaxUploadBytes = 1024 })
	body := strings.NewReader(strings.Repeat("x", 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/eventUpload", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := serve(e, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestBodyLimitLeavesRoomForForm(t *testing.T) {
	assert.Equal(t, "1025K", bodyLimit(1024))
	assert.Equal(t, "11264K", bodyLimit(10<<20))
	assert.Equal(t, "1024K", bodyLimit(0))
}
