package main // Entry point package for the web server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"    // loads .env when present
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/mancala/internal/ai"
	"github.com/iliyamo/mancala/internal/config" // Internal config loader
	"github.com/iliyamo/mancala/internal/database"
	"github.com/iliyamo/mancala/internal/handler"
	"github.com/iliyamo/mancala/internal/queue"
	"github.com/iliyamo/mancala/internal/repository"
	"github.com/iliyamo/mancala/internal/router" // Internal router setup
	"github.com/iliyamo/mancala/internal/service"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProd() {
		zc = zap.NewProductionConfig()
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		l, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(l)
	}
	return zc.Build()
}

func main() {
	_ = godotenv.Load()  // a missing .env is fine; the container sets real env vars
	cfg := config.Load() // Load environment config

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	advisor, err := ai.New(cfg.AIRuns, ai.WithWorkers(cfg.AIWorkers), ai.WithSeed(cfg.AISeed))
	if err != nil {
		return err
	}

	// Redis is optional: rate limits and the cache pass through without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	// Storage is optional: without DB_HOST the game runs but nothing is recorded.
	var (
		db    *sql.DB
		store service.GameStore
		games handler.GameReader
	)
	if cfg.StorageEnabled() {
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return err
		}
		defer db.Close()
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = database.Migrate(mctx, db)
		cancel()
		if err != nil {
			return err
		}
		repo := repository.NewGameRepo(db)
		store, games = repo, repo
		log.Info("storage enabled", zap.String("db_host", cfg.DBHost), zap.String("db_name", cfg.DBName))
	}

	var events service.EventPublisher
	if cfg.EventsEnabled() {
		events = service.NewAMQPPublisher(cfg.AMQPURL, log)
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: cfg.LogDir, Log: log.Named("consumer")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("game log consumer stopped", zap.Error(err))
			}
		}()
	}

	svc := service.NewGameService(advisor, store, events, log.Named("game"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = handler.NewTemplates()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))

	limits := router.Limits{
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	}
	api := handler.NewAPIHandler(svc, games, log)
	router.RegisterRoutes(e) // Register application routes
	router.RegisterWeb(e, handler.NewWebHandler(svc, log), limits)
	router.RegisterAPI(e, api, cfg.JWTSecret, limits)
	if db != nil {
		auth := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log)
		router.RegisterAuth(e, auth, api, cfg.JWTSecret)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.Addr()),
			zap.String("env", cfg.Env),
			zap.Int("ai_runs", advisor.Runs()),
			zap.Bool("storage", db != nil),
			zap.Bool("events", events != nil))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
