package app

import (
	"log/slog"

	"modelkit/services"
	"modelkit/validator"
)

// App holds all application dependencies
// This struct is the central point for dependency injection
type App struct {
	Tasks     *services.TaskService
	Validator *validator.Validator
	Logger    *slog.Logger
}

// New creates a new App instance with all dependencies
func New(tasks *services.TaskService, logger *slog.Logger) *App {
	return &App{
		Tasks:     tasks,
		Validator: validator.New(),
		Logger:    logger,
	}
}
