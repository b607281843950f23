package models

import (
	"modelkit/annotations"
	"modelkit/registry"
)

// Task is one entry of the task list.
type Task struct {
	ID          int64   `json:"id" modelkit:"id,primaryKey,autoIncrement"`
	Title       string  `json:"title" modelkit:"title"`
	Description *string `json:"description,omitempty" modelkit:"description,nullable"`
	Completed   bool    `json:"completed" modelkit:"completed,default=0"`
	CreatedAt   string  `json:"createdAt" modelkit:"createdAt"`
}

func (Task) TableName() string { return "tasks" }

type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// Register adds every record type of the application to reg.
func Register(reg *registry.Registry) error {
	return annotations.Register(reg, Task{})
}
