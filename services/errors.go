package services

import "errors"

// Common service-level errors
var (
	// Task errors
	ErrEmptyTitle = errors.New("task title is empty")
)
