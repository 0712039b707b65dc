package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/cumulus/internal/pkg/metrics"
)

// legacySunset is when the /api aliases go away.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			// image galleries fetch many thumbnails at once
			return strings.HasPrefix(c.Path(), "/output/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "SAMEORIGIN")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/api/crossings", SunsetDate: legacySunset, Alternative: "/v1/crossings"},
		{Path: "/api/cloud-images", SunsetDate: legacySunset, Alternative: "/v1/highres"},
		{Path: "/api/crossing-image/:borderNumber", SunsetDate: legacySunset, Alternative: "/v1/highres/{borderNumber}"},
	}))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/crossings", timeout.NewWithContext(ListCrossingsHandler(deps), 15*time.Second))
	v1.Get("/crossings/nearby", timeout.NewWithContext(NearbyCrossingsHandler(deps), 15*time.Second))
	v1.Get("/detections/latest", timeout.NewWithContext(LatestDetectionsHandler(deps), 15*time.Second))
	v1.Get("/detections.geojson", timeout.NewWithContext(GeoJSONHandler(deps), 15*time.Second))
	v1.Get("/detections/:name", timeout.NewWithContext(CrossingDetectionHandler(deps), 15*time.Second))
	v1.Get("/detections/:name/history", timeout.NewWithContext(CrossingHistoryHandler(deps), 15*time.Second))
	v1.Get("/selection", timeout.NewWithContext(SelectionHandler(deps), 15*time.Second))
	v1.Get("/history", timeout.NewWithContext(HistoryHandler(deps), 15*time.Second))
	v1.Get("/highres", timeout.NewWithContext(ListHighResHandler(deps), 15*time.Second))
	v1.Get("/highres/:borderNumber", HighResImageHandler(deps))
	v1.Get("/status", timeout.NewWithContext(StatusHandler(deps), 15*time.Second))
	v1.Get("/status.html", StatusPageHandler(deps))
	v1.Get("/overlay.svg", timeout.NewWithContext(OverlayHandler(deps), 15*time.Second))
	v1.Get("/report", timeout.NewWithContext(ReportHandler(deps), 15*time.Second))

	// Legacy aliases kept for existing dashboards
	api := app.Group("/api")
	api.Get("/crossings", ListCrossingsHandler(deps))
	api.Get("/cloud-images", LegacyImageListHandler(deps))
	api.Get("/crossing-image/:borderNumber", HighResImageHandler(deps))

	// Generated artifacts
	if deps.OutputDir != "" {
		app.Static("/output", deps.OutputDir, fiber.Static{
			Browse:        false,
			CacheDuration: 10 * time.Second,
			MaxAge:        60,
		})
	}

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, deps)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
