// Package mapper turns registered record types into SQL statements and query
// results back into records.
package mapper

import (
	"context"
	"log/slog"
	"sort"

	"modelkit/database"
	"modelkit/registry"
)

// Conn is the part of the connection manager the engine needs.
type Conn interface {
	ExecuteQuery(ctx context.Context, statement string, params ...any) ([]database.Row, error)
	ExecuteStatement(ctx context.Context, statement string, params ...any) (database.Result, error)
}

// Initializer is implemented by connections that open lazily.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Record is an untyped row of a registered table keyed by field name.
type Record map[string]any

// Engine executes inserts and reads for the types in a registry.
type Engine struct {
	reg    *registry.Registry
	conn   Conn
	logger *slog.Logger
}

// New creates an engine over reg and conn.
func New(reg *registry.Registry, conn Conn, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{reg: reg, conn: conn, logger: logger}
}

// Registry returns the registry the engine reads descriptors from.
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// Initialize opens the connection and creates a table for every registered
// type, in registration order.
func (e *Engine) Initialize(ctx context.Context) error {
	if in, ok := e.conn.(Initializer); ok {
		if err := in.Initialize(ctx); err != nil {
			return err
		}
	}
	for _, desc := range e.reg.All() {
		if err := e.EnsureSchema(ctx, desc); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSchema creates desc's table if it does not exist yet. An existing
// table is left as is.
func (e *Engine) EnsureSchema(ctx context.Context, desc *registry.TableDescriptor) error {
	stmt, err := createTableSQL(desc)
	if err != nil {
		return err
	}
	if _, err := e.conn.ExecuteStatement(ctx, stmt); err != nil {
		return err
	}
	e.logger.Debug("table ensured", "table", desc.TableName, "type", desc.TypeID)
	return nil
}

func (e *Engine) descriptor(typeID string) (*registry.TableDescriptor, error) {
	desc, ok := e.reg.Descriptor(typeID)
	if !ok {
		return nil, &registry.MappingError{Type: typeID, Err: registry.ErrUnknownModel}
	}
	return desc, nil
}

// Insert writes one row of typeID built from values, keyed by field name.
//
// A nil value counts as absent. Absent fields take their default, are left
// to the database when auto-increment or nullable, and are otherwise a
// MappingError. The returned id is nil when the table has no auto-increment
// key.
func (e *Engine) Insert(ctx context.Context, typeID string, values map[string]any) (*int64, error) {
	desc, err := e.descriptor(typeID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := desc.Field(k); !ok {
			return nil, &registry.MappingError{Type: typeID, Field: k, Err: registry.ErrUnknownField}
		}
	}

	columns := make([]string, 0, len(desc.Fields))
	args := make([]any, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		v, present := values[f.Name]
		if present && isNil(v) {
			present = false
		}
		if !present {
			switch {
			case f.AutoIncrement, f.Nullable && !f.HasDefault:
				continue
			case f.HasDefault:
				v = f.Default
			default:
				return nil, &registry.MappingError{Type: typeID, Field: f.Name, Err: registry.ErrMissingField}
			}
		}

		encoded, err := encodeValue(f, v)
		if err != nil {
			return nil, &registry.MappingError{Type: typeID, Field: f.Name, Err: err}
		}
		columns = append(columns, f.Name)
		args = append(args, encoded)
	}

	res, err := e.conn.ExecuteStatement(ctx, insertSQL(desc.TableName, columns), args...)
	if err != nil {
		return nil, err
	}

	if _, ok := desc.AutoIncrementField(); !ok {
		return nil, nil
	}
	return res.LastInsertID, nil
}

// FindAll reads every row of typeID's table. Columns without a matching field
// are ignored; fields without a column get their storage type's zero value.
func (e *Engine) FindAll(ctx context.Context, typeID string) ([]Record, error) {
	desc, rows, err := e.rows(ctx, typeID)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(desc.Fields))
		for _, f := range desc.Fields {
			raw, ok := row[f.Name]
			if !ok {
				rec[f.Name] = zeroValue(f.Type)
				continue
			}
			v, err := decodeValue(f, raw)
			if err != nil {
				return nil, &registry.MappingError{Type: typeID, Field: f.Name, Err: err}
			}
			rec[f.Name] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Engine) rows(ctx context.Context, typeID string) (*registry.TableDescriptor, []database.Row, error) {
	desc, err := e.descriptor(typeID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := e.conn.ExecuteQuery(ctx, selectAllSQL(desc.TableName))
	if err != nil {
		return nil, nil, err
	}
	return desc, rows, nil
}
