package api

import (
	"time"

	"compliance-rag/docs"
	"compliance-rag/internal/api/handlers"
	"compliance-rag/internal/metrics"
	"compliance-rag/pkg/auth"
	"compliance-rag/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type RouterConfig struct {
	InternalSecret  string
	RateLimitPerMin int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

func SetupRouter(
	complianceHandler *handlers.ComplianceHandler,
	queryHandler *handlers.QueryHandler,
	healthHandler *handlers.HealthHandler,
	jwtManager *auth.JWTManager,
	cfg RouterConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Internal-Secret,X-User-ID,X-Deel-Token",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", healthHandler.Health)
	app.Get("/metrics", metrics.MetricsHandler())

	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, cfg.InternalSecret, appLogger))

	// analysis runs call out to the embedding and generation APIs
	if cfg.RateLimitPerMin > 0 {
		protected.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitPerMin,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if userID, ok := c.Locals("userID").(string); ok {
					return userID
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"success": false,
					"error":   "Rate limit exceeded",
				})
			},
		}))
	}

	compliance := protected.Group("/compliance")
	compliance.Post("/review", complianceHandler.Review)
	compliance.Get("/report", complianceHandler.Report)

	rag := protected.Group("/rag")
	rag.Post("/query", queryHandler.Query)

	appLogger.Info("Routes registered")

	return app
}
