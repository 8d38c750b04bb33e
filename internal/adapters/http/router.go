package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/tripdesk/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health checks skip the request timeout.
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	with := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1.Get("/trips", with(ListTripsHandler(deps)))
	v1.Post("/trips", with(CreateTripHandler(deps)))
	v1.Get("/trips/:id", with(GetTripHandler(deps)))
	v1.Put("/trips/:id", with(UpdateTripHandler(deps)))
	v1.Delete("/trips/:id", with(DeleteTripHandler(deps)))
	v1.Post("/trips/:id/start", with(StartTripHandler(deps)))
	v1.Post("/trips/:id/stops/:index/reach", with(ReachStopHandler(deps)))
	v1.Post("/trips/:id/end", with(EndTripHandler(deps)))
	v1.Post("/trips/:id/cancel", with(CancelTripHandler(deps)))

	v1.Get("/availability/:resource_type/:id", with(ResourceBusyHandler(deps)))
	v1.Post("/availability/check", with(CheckAvailabilityHandler(deps)))

	v1.Post("/quotes/price", PriceQuoteHandler(deps))
	v1.Post("/checks/schedule", ScheduleCheckHandler(deps))
	v1.Post("/checks/start", StartCheckHandler(deps))
	v1.Post("/checks/arrival", ArrivalCheckHandler(deps))
	v1.Get("/durations/format", FormatDurationHandler(deps))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
