package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/mancala/internal/ai"
	"github.com/iliyamo/mancala/internal/config"
	"github.com/iliyamo/mancala/internal/game"
	"github.com/iliyamo/mancala/internal/handler"
	"github.com/iliyamo/mancala/internal/service"
)

func newServer(t *testing.T, l Limits) *echo.Echo {
	t.Helper()
	adv, err := ai.New(10, ai.WithSeed(5))
	require.NoError(t, err)
	svc := service.NewGameService(adv, nil, nil, zap.NewNop())

	e := echo.New()
	e.Renderer = handler.NewTemplates()
	RegisterRoutes(e)
	RegisterWeb(e, handler.NewWebHandler(svc, zap.NewNop()), l)
	RegisterAPI(e, handler.NewAPIHandler(svc, nil, zap.NewNop()), "", l)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRoutesWithoutRedis(t *testing.T) {
	e := newServer(t, Limits{})

	assert.Equal(t, http.StatusOK, get(e, "/").Code)
	assert.Equal(t, http.StatusOK, get(e, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(e, "/game/"+game.DefaultState).Code)
	assert.Equal(t, http.StatusOK, get(e, "/end/"+game.DefaultState).Code)
	assert.Equal(t, http.StatusOK, get(e, "/v1/boards/"+game.DefaultState).Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(e, "/v1/stats").Code)
	// Accounts are not registered without storage.
	assert.Equal(t, http.StatusNotFound, get(e, "/v1/me").Code)
}

func TestSuggestIsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := Limits{
		Redis: rdb,
		RateLimit: config.RateLimitConfig{
			Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
			TTL: 5 * time.Hour, KeyStrategy: "ip_route", Prefix: "test:rl",
		},
	}
	e := newServer(t, l)
	target := "/v1/boards/" + game.DefaultState + "/suggest?runs=2"

	assert.Equal(t, http.StatusOK, get(e, target).Code)
	assert.Equal(t, http.StatusOK, get(e, target).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(e, target).Code)
	// Board summaries are not limited.
	assert.Equal(t, http.StatusOK, get(e, "/v1/boards/"+game.DefaultState).Code)
}

func TestCachedSuggestSkipsRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := Limits{
		Redis: rdb,
		RateLimit: config.RateLimitConfig{
			Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour,
			TTL: 5 * time.Hour, KeyStrategy: "ip_route", Prefix: "test:rl",
		},
		Cache: config.CacheConfig{
			Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute,
			KeyStrategy: "route_query", Prefix: "test:cache", MaxBodyBytes: 1 << 20,
		},
	}
	e := newServer(t, l)
	target := "/v1/boards/" + game.DefaultState + "/suggest?runs=2"

	first := get(e, target)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	for i := 0; i < 3; i++ {
		rec := get(e, target)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
		assert.Equal(t, first.Body.String(), rec.Body.String())
	}
	// A new question still needs a token, and the only one is spent.
	assert.Equal(t, http.StatusTooManyRequests, get(e, target+"&player=2").Code)
}
