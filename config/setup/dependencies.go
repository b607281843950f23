package setup

import (
	"context"
	"log/slog"

	"modelkit/app"
	"modelkit/config"
	"modelkit/database"
	"modelkit/mapper"
	"modelkit/models"
	"modelkit/registry"
	"modelkit/services"
)

// InitDatabase registers the record types, opens the database and creates
// every registered table
func InitDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.Manager, *mapper.Engine, error) {
	reg := registry.New()
	if err := models.Register(reg); err != nil {
		return nil, nil, err
	}

	db := database.New(cfg.Database(), logger)
	engine := mapper.New(reg, db, logger)

	if err := engine.Initialize(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	logger.Info("database initialized",
		"driver", cfg.DBDriver,
		"name", db.Name(),
		"tables", len(reg.All()),
	)
	return db, engine, nil
}

// InitApp initializes the application with all dependencies
func InitApp(engine *mapper.Engine, logger *slog.Logger) *app.App {
	tasks := services.NewTaskService(mapper.NewRepository[models.Task](engine))

	// Create App with all dependencies injected
	application := app.New(tasks, logger)
	logger.Info("application initialized with dependency injection")

	return application
}

// Shutdown performs graceful shutdown of all services
func Shutdown(db *database.Manager, logger *slog.Logger) {
	logger.Info("shutting down services...")

	// Close database
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
			return
		}
		logger.Info("database closed")
	}
}
