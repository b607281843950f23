package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"modelkit/app"
	"modelkit/models"
	"modelkit/registry"
	"modelkit/services"
)

// ListTasks returns every task
func ListTasks(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tasks, err := a.Tasks.List(c.UserContext())
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch tasks", err)
		}

		return success(c, fiber.Map{"tasks": tasks})
	}
}

// CreateTask adds a task to the list
func CreateTask(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateTaskRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		// Validate request
		if err := a.Validator.Validate(&req); err != nil {
			return validationError(c, err)
		}

		task, err := a.Tasks.Create(c.UserContext(), req.Title, req.Description)
		if err != nil {
			var mErr *registry.MappingError
			switch {
			case errors.Is(err, services.ErrEmptyTitle):
				return badRequest(c, "title must not be blank")
			case errors.As(err, &mErr):
				return badRequest(c, mErr.Error())
			}
			return serverErrorWithDetails(c, "Failed to create task", err)
		}

		return created(c, fiber.Map{"task": task})
	}
}
