package setup

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"modelkit/config"
	"modelkit/middleware"
)

// ApplyMiddleware installs the global middleware chain. Rate limiting covers
// the /api routes only, so health checks are never throttled.
func ApplyMiddleware(app *fiber.App, cfg *config.Config, logger *slog.Logger) {
	app.Use(
		recover.New(recover.Config{EnableStackTrace: cfg.Env == "development"}),
		middleware.StructuredLogger(logger),
		middleware.Security(),
		cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
			AllowHeaders:  "Content-Type,Accept," + middleware.RequestIDHeader,
			ExposeHeaders: middleware.RequestIDHeader,
			MaxAge:        int((24 * time.Hour).Seconds()),
		}),
		limiter.New(limiter.Config{
			Next: func(c *fiber.Ctx) bool {
				return !strings.HasPrefix(c.Path(), "/api/")
			},
			Max:               cfg.RateLimit,
			Expiration:        time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Rate limit exceeded")
			},
		}),
	)
}
