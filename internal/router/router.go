package router // package router defines how HTTP routes are registered for the game server

import (
	"github.com/labstack/echo/v4"  // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9" // optional Redis client backing rate limits and the response cache

	"github.com/iliyamo/mancala/internal/config"     // cache and rate limit settings
	"github.com/iliyamo/mancala/internal/handler"    // import the handlers that implement the pages and API
	"github.com/iliyamo/mancala/internal/middleware" // JWT, rate limit and cache middleware
)

// Limits bundles the Redis-backed middleware settings shared by the route
// groups.  A nil Redis client turns both middlewares into no-ops.
type Limits struct {
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

func (l Limits) limit() echo.MiddlewareFunc { return middleware.NewTokenBucket(l.RateLimit, l.Redis) }
func (l Limits) cache() echo.MiddlewareFunc { return middleware.NewRedisCache(l.Cache, l.Redis) }

// RegisterRoutes registers the health check.  Load balancers use /healthz;
// the container probe uses "/".
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterWeb registers the HTML game.  Every page carries the full board
// in its URL, so GET and POST are both accepted where a form may land.
func RegisterWeb(e *echo.Echo, w *handler.WebHandler, l Limits) {
	e.GET("/", w.Game)
	e.GET("/game/:state", w.Game)
	e.POST("/game/:state", w.Game)
	// Only moves run the AI, so only moves are rate limited.
	e.POST("/move/:state", w.Move, l.limit())
	e.GET("/end/:state", w.End)
	e.POST("/end/:state", w.End)
}

// RegisterAPI registers the JSON game API under /v1.  jwtSecret may be
// empty when accounts are disabled; play requests are then always anonymous.
func RegisterAPI(e *echo.Echo, a *handler.APIHandler, jwtSecret string, l Limits) {
	v1 := e.Group("/v1")
	v1.GET("/boards/:state", a.GetBoard, l.cache())
	v1.POST("/boards/:state/move", a.Move)
	// Cached answers are served before the limiter and cost no tokens.
	v1.GET("/boards/:state/suggest", a.Suggest, l.cache(), l.limit())
	v1.POST("/play/:state", a.Play, middleware.OptionalJWT(jwtSecret), l.limit())
	v1.GET("/stats", a.Stats)
	v1.GET("/games", a.SearchGames)
}

// RegisterAuth registers all account routes.  Unauthenticated operations
// live under /v1/auth, protected ones under /v1 behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, games *handler.APIHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body and needs no access token.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1/me", middleware.JWTAuth(jwtSecret))
	auth.GET("", a.Me)
	auth.GET("/games", games.MyGames)
}
