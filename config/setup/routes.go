package setup

import (
	"github.com/gofiber/fiber/v2"

	"modelkit/app"
	"modelkit/handlers"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(fiberApp *fiber.App, application *app.App) {
	fiberApp.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := fiberApp.Group("/api")
	api.Get("/tasks", handlers.ListTasks(application))
	api.Post("/tasks", handlers.CreateTask(application))
}
