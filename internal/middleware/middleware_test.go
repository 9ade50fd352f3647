package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/utils"
)

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          30 * time.Second,
		KeyStrategy:  "path_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func newCachedEcho(cfg config.CacheConfig, mw echo.MiddlewareFunc, calls *int) *echo.Echo {
	e := echo.New()
	e.Use(mw)
	e.GET("/getEvents/:eventId", func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	e.POST("/eventUpload", func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusOK, echo.Map{"message": "Event submitted successfully!"})
	})
	return e
}

func keyFor(cfg config.CacheConfig, target string) string {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	return cacheKeyFrom(cfg, c)
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
	cfg := cacheConfig()
	a := keyFor(cfg, "/getEvents/aaa")
	b := keyFor(cfg, "/getEvents/bbb")
	assert.NotEqual(t, a, b)
	assert.Equal(t, keyFor(cfg, "/searchEvents/x?query=tech&z=1"), keyFor(cfg, "/searchEvents/x?z=1&query=tech"))
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, a)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestRedisCacheMissStoresResponse(t *testing.T) {
	cfg := cacheConfig()
	db, mock := redismock.NewClientMock()
	key := keyFor(cfg, "/getEvents/abc")
	payload, err := encodePayload(http.StatusOK, http.Header{
		"Content-Type": {echo.MIMEApplicationJSON},
		"X-Cache":      {"MISS"},
	}, []byte("{\"ok\":true}\n"))
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetEx(key, payload, cfg.TTL).SetVal("OK")

	calls := 0
	e := newCachedEcho(cfg, NewRedisCache(cfg, db), &calls)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/getEvents/abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheHitSkipsHandler(t *testing.T) {
	cfg := cacheConfig()
	db, mock := redismock.NewClientMock()
	key := keyFor(cfg, "/getEvents/abc")
	payload, err := encodePayload(http.StatusOK, http.Header{
		"Content-Type": {echo.MIMEApplicationJSON},
		"X-Cache":      {"MISS"},
	}, []byte(`{"cached":true}`))
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	calls := 0
	e := newCachedEcho(cfg, NewRedisCache(cfg, db), &calls)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/getEvents/abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"cached":true}`, rec.Body.String())
	assert.Zero(t, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCachePurgesOnWrite(t *testing.T) {
	cfg := cacheConfig()
	db, mock := redismock.NewClientMock()
	mock.ExpectScan(0, "cache:*", 100).SetVal([]string{"cache:a", "cache:b"}, 0)
	mock.ExpectDel("cache:a", "cache:b").SetVal(2)

	calls := 0
	e := newCachedEcho(cfg, NewRedisCache(cfg, db), &calls)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/eventUpload", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheDisabledWithoutClient(t *testing.T) {
	cfg := cacheConfig()
	calls := 0
	e := newCachedEcho(cfg, NewRedisCache(cfg, nil), &calls)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/getEvents/abc", nil))
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestLocalTokenBucketBlocksAfterCapacity(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, nil))
	e.GET("/getEvents", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		e.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/getEvents", nil))
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "too_many_requests")
}

func TestLocalBucketsEvictIdleKeys(t *testing.T) {
	cfg := config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute, TTL: 5 * time.Minute}
	b := newLocalBuckets(cfg)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	v, err := b.take(ctx, "a")
	require.NoError(t, err)
	require.True(t, v.allowed)
	v, err = b.take(ctx, "a")
	require.NoError(t, err)
	require.False(t, v.allowed)
	assert.Greater(t, v.retry, time.Duration(0))

	now = now.Add(10 * time.Minute)
	_, _ = b.take(ctx, "b")
	_, present := b.buckets["a"]
	assert.False(t, present)
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/getEvents/abc", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/getEvents/:eventId")

	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(config.RateLimitConfig{Prefix: "rl"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:route:GET /getEvents/:eventId", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c))

	// anonymous callers fall back to their address
	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
	c.Set(userKey, model.User{Email: "ada@example.com"})
	assert.Equal(t, "rl:user:ada@example.com", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}

func redisLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

func newLimitedEcho(cfg config.RateLimitConfig, store bucketStore) *echo.Echo {
	e := echo.New()
	e.Use(limit(cfg, store))
	e.GET("/getEvents", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func limitedRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/getEvents", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	return req
}

func TestRedisBucketsBlockWithRetryAfter(t *testing.T) {
	cfg := redisLimitConfig()
	db, mock := redismock.NewClientMock()
	store := newRedisBuckets(cfg, db)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	args := []interface{}{now.UnixMilli(), int64(60000), int64(2), int64(600000)}
	mock.ExpectEvalSha(gcraScript.Hash(), []string{"rl:ip:10.0.0.1"}, args...).
		SetVal([]interface{}{int64(1), int64(1), int64(0)})
	mock.ExpectEvalSha(gcraScript.Hash(), []string{"rl:ip:10.0.0.1"}, args...).
		SetVal([]interface{}{int64(0), int64(0), int64(1500)})

	e := newLimitedEcho(cfg, store)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, limitedRequest())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, limitedRequest())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Contains(t, rec.Body.String(), `"retry_after":2`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBucketsFailOpen(t *testing.T) {
	cfg := redisLimitConfig()
	db, mock := redismock.NewClientMock()
	store := newRedisBuckets(cfg, db)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	mock.ExpectEvalSha(gcraScript.Hash(), []string{"rl:ip:10.0.0.1"},
		now.UnixMilli(), int64(60000), int64(2), int64(600000)).
		SetErr(errors.New("connection refused"))

	rec := httptest.NewRecorder()
	newLimitedEcho(cfg, store).ServeHTTP(rec, limitedRequest())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBucketsTTLCoversFullBucket(t *testing.T) {
	cfg := redisLimitConfig()
	cfg.Capacity = 100
	cfg.TTL = time.Minute
	store := newRedisBuckets(cfg, nil)
	assert.Equal(t, 100*time.Minute, store.ttl)
}

func TestSessionMiddleware(t *testing.T) {
	tok, err := utils.NewSessionToken("secret", model.User{ID: "1", Email: "ada@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	e := echo.New()
	e.Use(Session("secret", "sid"))
	e.GET("/whoami", func(c echo.Context) error {
		u, ok := CurrentUser(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, u.Email)
	})
	e.POST("/write", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireSession(true))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: tok.Token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "ada@example.com", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "tampered"})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/write", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/write", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: tok.Token})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireSessionDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/write", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireSession(false))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/write", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID(zerolog.New(&buf)), RequestLogger())
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	buf.Reset()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"upstream-id"`)
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"route":"/ping"`)
}
