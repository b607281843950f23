package services

import (
	"context"

	"modelkit/models"
)

// TaskStore defines the persistence calls the task service makes.
// Production uses mapper.Repository[models.Task].
type TaskStore interface {
	Initialize(ctx context.Context) error
	Insert(ctx context.Context, task models.Task) (*int64, error)
	FindAll(ctx context.Context) ([]models.Task, error)
}
