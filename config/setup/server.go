package setup

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"modelkit/config"
)

// NewFiberApp creates a Fiber application that only speaks JSON
func NewFiberApp(cfg *config.Config, logger *slog.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "modelkit",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           30 * time.Second,
		BodyLimit:             64 * 1024,
		StrictRouting:         true,
		CaseSensitive:         true,
		DisableStartupMessage: cfg.Env != "development",
		ErrorHandler:          JSONErrorHandler(logger),
	})
}

// JSONErrorHandler renders every unhandled error as a JSON body carrying the
// request id. Only 5xx responses are logged; client errors are already
// reported by the request logger.
func JSONErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		requestID, _ := c.Locals("requestID").(string)
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled error",
				"request_id", requestID,
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error":      message,
			"status":     code,
			"request_id": requestID,
		})
	}
}
