package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/tripdesk/internal/adapters/http"
	natsadapter "github.com/samirrijal/tripdesk/internal/adapters/nats"
	"github.com/samirrijal/tripdesk/internal/adapters/postgres"
	"github.com/samirrijal/tripdesk/internal/adapters/temporal"
	"github.com/samirrijal/tripdesk/internal/adapters/valkey"
	"github.com/samirrijal/tripdesk/internal/core/ports"
	"github.com/samirrijal/tripdesk/internal/core/usecases"
	"github.com/samirrijal/tripdesk/internal/pkg/config"
	"github.com/samirrijal/tripdesk/internal/pkg/logging"
	"github.com/samirrijal/tripdesk/internal/pkg/metrics"
	"github.com/samirrijal/tripdesk/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("tripdesk-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	window, err := cfg.Policy.StartWindow()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	policy := usecases.Policy{
		StartWindow:     window,
		Arrival:         cfg.Policy.ArrivalValidator(),
		StopOverheadMin: cfg.Policy.StopOverheadMinutes,
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Optional collaborators stay nil interfaces when unavailable.
	var (
		cacheSvc   ports.CacheService
		publisher  ports.EventPublisher
		settlement ports.SettlementStarter
	)

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	if cfg.Temporal.Enabled {
		starter, err := temporal.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
		if err != nil {
			slog.Warn("temporal unavailable, trips will settle through the worker's event subscription", "error", err)
		} else {
			defer starter.Close()
			settlement = starter
		}
	}

	tripRepo := postgres.NewTripRepo(db)
	busyRepo := postgres.NewBusyIntervalRepo(db)

	availabilitySvc := usecases.NewAvailabilityService(busyRepo, cacheSvc)
	tripSvc := usecases.NewTripService(tripRepo, availabilitySvc, publisher, settlement, policy)
	quoteSvc := usecases.NewQuoteService(policy)

	deps := &http.Dependencies{
		Trips:        tripSvc,
		Availability: availabilitySvc,
		Quotes:       quoteSvc,
		DB:           db,
		Cache:        cache,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "Tripdesk API",
	})
	app.Use(recover.New())
	if cfg.Log.Format == "text" {
		// Console request lines for local runs.
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
