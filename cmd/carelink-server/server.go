package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/domain/appointment"
	"github.com/carelink/carelink/internal/domain/consultation"
	"github.com/carelink/carelink/internal/domain/directory"
	"github.com/carelink/carelink/internal/domain/prescription"
	"github.com/carelink/carelink/internal/domain/vitals"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/db"
	"github.com/carelink/carelink/internal/platform/events"
	"github.com/carelink/carelink/internal/platform/middleware"
	"github.com/carelink/carelink/internal/platform/reminder"
	"github.com/carelink/carelink/internal/platform/websocket"
)

const (
	metricsNamespace = "carelink"
	shutdownTimeout  = 10 * time.Second
	requestTimeout   = 15 * time.Second
	maxBodySize      = "1M"
)

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := websocket.NewHub(logger)
	var pub events.Publisher = hub
	var bridge *events.RedisBridge
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		bridge = events.NewRedisBridge(client, hub, logger)
		pub = bridge
		logger.Info().Msg("fanning events out through redis")
	}

	e := newEcho(cfg, logger, reg)
	e.GET("/health/db", db.HealthHandler(db.PoolChecker(pool)))

	apiV1 := e.Group("/api/v1", authMiddleware(cfg))
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	apiV1.Use(middleware.RequestTimeout(requestTimeout))

	dirSvc := directory.NewService(directory.NewPatientRepoPG(pool), directory.NewDoctorRepoPG(pool))
	directory.NewHandler(dirSvc).RegisterRoutes(apiV1)

	gate := appointment.NewGateMetrics(metricsNamespace)
	gate.MustRegister(reg)
	apptSvc := appointment.NewService(appointment.NewRepoPG(pool), pub, logger)
	apptSvc.SetMetrics(gate)
	appointment.NewHandler(apptSvc).RegisterRoutes(apiV1)

	consSvc := consultation.NewService(consultation.NewRepoPG(pool), apptSvc, pub, logger)
	consSvc.EnableDiagnostics(cfg.ConsultationDiagnostics)
	consultation.NewHandler(consSvc).RegisterRoutes(apiV1)

	rxSvc := prescription.NewService(prescription.NewRepoPG(pool), consSvc, pub, logger)
	prescription.NewHandler(rxSvc).RegisterRoutes(apiV1)

	vitalSvc := vitals.NewService(vitals.NewRepoPG(pool), pub, logger)
	vitals.NewHandler(vitalSvc).RegisterRoutes(apiV1)

	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	reminderMetrics := reminder.NewMetrics(metricsNamespace)
	reminderMetrics.MustRegister(reg)
	poller := reminder.NewPoller(apptSvc, pub, cfg.ReminderInterval, logger)
	poller.SetMetrics(reminderMetrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := poller.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		poller.Stop()
		return nil
	})
	if bridge != nil {
		g.Go(func() error { return bridge.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newEcho builds the server with global middleware and the unauthenticated
// health and metrics endpoints.
func newEcho(cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewRequestValidator()

	httpMetrics := middleware.NewHTTPMetrics(metricsNamespace)
	httpMetrics.MustRegister(reg)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(httpMetrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-User-Role", "X-User-Name"},
		ExposeHeaders: []string{"Location", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "env": cfg.Env})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return e
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		return auth.DevAuthMiddleware()
	}
	jc := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	}
	if cfg.AuthSigningKey != "" {
		jc.SigningKey = []byte(cfg.AuthSigningKey)
	}
	return auth.JWTMiddleware(jc)
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return rl
}
