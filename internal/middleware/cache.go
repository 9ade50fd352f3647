package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/metrics"
)

// NewRedisCache serves repeated reads of cacheable methods from Redis,
// replaying the stored status, headers and body.  Any successful request
// with another method (an event, reservation or profile write) purges every
// entry under the prefix.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	rc := &responseCache{cfg: cfg, rdb: rdb, ttl: ttl}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return rc.purgeAfter(c, next)
			}
			key := cacheKeyFrom(cfg, c)
			if rc.replay(c, key) {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				return nil
			}
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			return rc.fill(c, key, next)
		}
	}
}

type responseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	ttl time.Duration
}

func (rc *responseCache) purgeAfter(c echo.Context, next echo.HandlerFunc) error {
	if err := next(c); err != nil {
		return err
	}
	if st := c.Response().Status; st >= 200 && st < 400 {
		ctx := c.Request().Context()
		if err := purgeCache(ctx, rc.rdb, rc.cfg.Prefix); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("cache purge failed")
		}
	}
	return nil
}

// replay writes a stored response and reports whether one was found.
func (rc *responseCache) replay(c echo.Context, key string) bool {
	bs, err := rc.rdb.Get(c.Request().Context(), key).Bytes()
	if err != nil {
		return false
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok {
		return false
	}
	out := c.Response().Header()
	for k, vals := range hdr {
		// Echo computes Content-Length; X-Cache is rewritten
		if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, "X-Cache") {
			continue
		}
		for _, v := range vals {
			out.Add(k, v)
		}
	}
	out.Set("X-Cache", "HIT")
	c.Response().WriteHeader(status)
	if len(body) > 0 {
		_, _ = c.Response().Write(body)
	}
	return true
}

// fill runs the handler while copying its response, then stores 200s whose
// body fit within MaxBodyBytes.
func (rc *responseCache) fill(c echo.Context, key string, next echo.HandlerFunc) error {
	limit := int64(rc.cfg.MaxBodyBytes)
	tee := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: limit}
	c.Response().Writer = tee
	c.Response().Header().Set("X-Cache", "MISS")

	if err := next(c); err != nil {
		return err
	}
	if tee.status != http.StatusOK || tee.overflow {
		return nil
	}
	payload, err := encodePayload(tee.status, c.Response().Header().Clone(), tee.buf.Bytes())
	if err != nil {
		return nil
	}
	ctx := context.WithoutCancel(c.Request().Context())
	if err := rc.rdb.SetEx(ctx, key, payload, rc.ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache store failed")
	}
	return nil
}

// teeWriter forwards the response while keeping a copy of up to limit bytes
// of it.  A limit of zero or less keeps everything.
type teeWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && int64(w.buf.Len()+len(b)) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the request path (not the route pattern, so
// /getEvents/:eventId gets one entry per event) together with the parts
// selected by the key strategy.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	parts := []string{"path", r.URL.Path}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "path":
	case "method_path":
		parts = append(parts, "method", r.Method)
	case "method_path_query":
		parts = append(parts, "method", r.Method, "q", r.URL.Query().Encode())
	default: // "path_query"
		parts = append(parts, "q", r.URL.Query().Encode())
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs a response as
// [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = http.Header{}
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return int(binary.BigEndian.Uint32(bs[0:4])), header, bs[8+hlen:], true
}

// purgeCache deletes every key under prefix.
func purgeCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+":*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
