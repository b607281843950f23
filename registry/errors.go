package registry

import (
	"errors"
	"strings"
)

// Mapping errors
var (
	ErrUnknownModel      = errors.New("model not registered")
	ErrMissingField      = errors.New("required field missing")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnsupportedType   = errors.New("unsupported value type")
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// MappingError reports a problem translating between a record type and its
// table. It is raised before any statement reaches the database.
type MappingError struct {
	Type  string
	Field string
	Err   error
}

func (e *MappingError) Error() string {
	var b strings.Builder
	b.WriteString("mapping error")
	if e.Type != "" {
		b.WriteString(" for ")
		b.WriteString(e.Type)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *MappingError) Unwrap() error {
	return e.Err
}
