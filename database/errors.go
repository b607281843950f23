package database

import (
	"errors"
	"fmt"
)

// Connection manager errors
var (
	ErrAlreadyOpen      = errors.New("database already opened")
	ErrEmptyName        = errors.New("database name is empty")
	ErrClosed           = errors.New("database is closed")
	ErrUnsupportedValue = errors.New("value cannot be encoded as a SQL literal")
)

// ConfigurationError reports an operation that is illegal in the Manager's
// current state, such as renaming the database after it was opened.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports that the database could not be opened.
type ConnectionError struct {
	Name string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: database %q: %v", e.Name, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a statement rejected by the database engine.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v (statement: %s)", e.Err, e.Statement)
}

func (e *QueryError) Unwrap() error { return e.Err }
