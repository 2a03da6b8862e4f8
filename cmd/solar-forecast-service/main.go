package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/solar-forecast-service/internal/api/http"
	"github.com/i474232898/solar-forecast-service/internal/cache"
	"github.com/i474232898/solar-forecast-service/internal/config"
	"github.com/i474232898/solar-forecast-service/internal/metrics"
	"github.com/i474232898/solar-forecast-service/internal/ratelimit"
	"github.com/i474232898/solar-forecast-service/internal/refresher"
	"github.com/i474232898/solar-forecast-service/internal/solar"
	"github.com/i474232898/solar-forecast-service/internal/store"
	"github.com/i474232898/solar-forecast-service/internal/tracker"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared key-value store; the cache and the rate limiter use disjoint
	// key namespaces on the same connection.
	kv := store.NewRedisKV(cfg.RedisAddr, cfg.StoreTimeout)

	// Forecast pipeline.
	engine := solar.NewEngine(solar.NewClearSkyModel(cfg.SystemLoss), cfg.Location, cfg.HorizonDays)
	deriver := cache.NewKeyDeriver(cfg.Location, cfg.HorizonDays)
	respCache := cache.NewResponseCache(kv, cfg.CacheTTL)
	specs := tracker.New(cfg.TrackerMaxEntries)

	// Background warm-keeping of tracked specs.
	refr := refresher.New(engine, respCache, deriver, specs, cfg.RefreshInterval, cfg.RefreshEnabled)
	if err := refr.Start(); err != nil {
		log.Fatalf("failed to start refresher: %v", err)
	}
	defer refr.Stop()

	limiter := ratelimit.New(kv, cfg.RateLimitPerMinute)

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "solar-forecast-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             cfg.MaxBodyBytes,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code == fiber.StatusRequestEntityTooLarge {
				return c.Status(code).JSON(httpapi.ErrorResponse(code, "Request entity too large"))
			}
			return c.Status(code).JSON(httpapi.ErrorResponse(code, err.Error()))
		},
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(metrics.Middleware())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "solar-forecast-service",
		})
	})

	// Prometheus exposition.
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Admission control ahead of the compute path.
	app.Use(httpapi.RateLimitMiddleware(limiter))

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Engine:  engine,
		Cache:   respCache,
		Deriver: deriver,
		Tracker: specs,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
