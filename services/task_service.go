package services

import (
	"context"
	"strings"
	"time"

	"modelkit/models"
)

// TaskService handles business logic for the task list
type TaskService struct {
	store TaskStore
	now   func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{
		store: store,
		now:   time.Now,
	}
}

// Initialize prepares the underlying store. It is safe to call more than once.
func (ts *TaskService) Initialize(ctx context.Context) error {
	return ts.store.Initialize(ctx)
}

// List retrieves every task in insertion order
func (ts *TaskService) List(ctx context.Context) ([]models.Task, error) {
	tasks, err := ts.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// Create adds a new open task
func (ts *TaskService) Create(ctx context.Context, title string, description *string) (*models.Task, error) {
	// Trim whitespace
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	// Blank descriptions are stored as NULL
	if description != nil {
		d := strings.TrimSpace(*description)
		description = nil
		if d != "" {
			description = &d
		}
	}

	task := &models.Task{
		Title:       title,
		Description: description,
		CreatedAt:   ts.now().UTC().Format(time.RFC3339),
	}

	id, err := ts.store.Insert(ctx, *task)
	if err != nil {
		return nil, err
	}
	if id != nil {
		task.ID = *id
	}

	return task, nil
}
