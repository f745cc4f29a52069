package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mancala/internal/config"
	"github.com/iliyamo/mancala/internal/utils"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func serve(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		require.True(t, ok)
		return c.String(http.StatusOK, strconv.FormatUint(id, 10))
	}, JWTAuth("secret"))

	rec := serve(e, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	rec = serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := utils.NewAccessToken("secret", 8, 5)
	require.NoError(t, err)
	rec = serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + tok.Token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "8", rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		return c.String(http.StatusOK, identity(c))
	}, OptionalJWT("secret"))

	rec := serve(e, http.MethodGet, "/who", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anon", rec.Body.String())

	tok, err := utils.NewAccessToken("secret", 3, 5)
	require.NoError(t, err)
	rec = serve(e, http.MethodGet, "/who", map[string]string{"Authorization": "Bearer " + tok.Token})
	assert.Equal(t, "3", rec.Body.String())

	rec = serve(e, http.MethodGet, "/who", map[string]string{"Authorization": "Bearer broken"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/x", nil).Code)
	}
}

func TestTokenBucketLimits(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.POST("/move/:state", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, newRedis(t)))

	first := serve(e, http.MethodPost, "/move/1,2,3,4", nil)
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	// Same route pattern, different board: same bucket.
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/move/0,2,3,4", nil).Code)

	blocked := serve(e, http.MethodPost, "/move/1,2,3,4", nil)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "too_many_requests")

	html := serve(e, http.MethodPost, "/move/1,2,3,4", map[string]string{"Accept": "text/html"})
	assert.Equal(t, http.StatusTooManyRequests, html.Code)
	assert.Contains(t, html.Body.String(), "try again")
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/move/1,1,1,1", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/move/:state")
	c.Set(UserIDKey, uint64(5))

	cfg := config.RateLimitConfig{Prefix: "rl"}
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "rl:user:5:route:POST /move/:state", buildRateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:5:route:POST /move/:state", buildRateKey(cfg, c))
}

func TestRedisCache(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "test:cache",
		MaxBodyBytes: 1024,
	}
	var calls atomic.Int32
	e := echo.New()
	e.GET("/v1/boards/:state", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"board": c.Param("state")})
	}, NewRedisCache(cfg, newRedis(t)))

	miss := serve(e, http.MethodGet, "/v1/boards/1,1,1,1", nil)
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))
	hit := serve(e, http.MethodGet, "/v1/boards/1,1,1,1", nil)
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, miss.Body.String(), hit.Body.String())
	assert.Contains(t, hit.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)

	other := serve(e, http.MethodGet, "/v1/boards/2,2,2,2", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Contains(t, other.Body.String(), "2,2,2,2")
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisCacheSkipsLargeAndErrors(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "test:cache",
		MaxBodyBytes: 4,
	}
	e := echo.New()
	mw := NewRedisCache(cfg, newRedis(t))
	e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, "0123456789") }, mw)
	e.GET("/bad", func(c echo.Context) error { return c.String(http.StatusBadRequest, "no") }, mw)

	serve(e, http.MethodGet, "/big", nil)
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/big", nil).Header().Get("X-Cache"))
	serve(e, http.MethodGet, "/bad", nil)
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/bad", nil).Header().Get("X-Cache"))
}

func TestPayloadCodec(t *testing.T) {
	h := http.Header{"Content-Type": []string{"text/plain"}}
	bs, err := encodePayload(http.StatusOK, h, []byte("hi"))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "text/plain", hdr.Get("Content-Type"))
	assert.Equal(t, "hi", string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}
