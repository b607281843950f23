package mapper

import (
	"context"
	"fmt"
	"reflect"

	"modelkit/annotations"
	"modelkit/registry"
)

// InsertRecord inserts rec, a value of a registered struct type. A zero
// auto-increment key and nil pointer fields are treated as absent.
func InsertRecord[T any](ctx context.Context, e *Engine, rec T) (*int64, error) {
	typeID := annotations.TypeIDOf[T]()
	desc, err := e.descriptor(typeID)
	if err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, &registry.MappingError{Type: typeID, Err: fmt.Errorf("%w: nil record", registry.ErrUnsupportedType)}
		}
		rv = rv.Elem()
	}

	members, err := annotations.Members(rv.Type())
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(members))
	for _, m := range members {
		f, ok := desc.Field(m.Column)
		if !ok {
			continue
		}
		fv := rv.FieldByIndex(m.Index)
		if f.AutoIncrement && fv.IsZero() {
			continue
		}
		if fv.Kind() == reflect.Pointer && fv.IsNil() {
			continue
		}
		values[m.Column] = fv.Interface()
	}

	return e.Insert(ctx, typeID, values)
}

// FindAllAs reads every row of T's table into values of T. T must be a
// registered struct type. Columns without a mapped field are ignored and
// fields without a column keep their zero value.
func FindAllAs[T any](ctx context.Context, e *Engine) ([]T, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	typeID := annotations.TypeIDOf[T]()
	if t.Kind() != reflect.Struct {
		return nil, &registry.MappingError{Type: typeID, Err: fmt.Errorf("%w: %s is not a struct", registry.ErrUnsupportedType, t)}
	}

	desc, rows, err := e.rows(ctx, typeID)
	if err != nil {
		return nil, err
	}
	members, err := annotations.Members(t)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var rec T
		rv := reflect.ValueOf(&rec).Elem()
		for _, m := range members {
			f, ok := desc.Field(m.Column)
			if !ok {
				continue
			}
			raw, ok := row[m.Column]
			if !ok {
				continue
			}
			v, err := decodeValue(f, raw)
			if err != nil {
				return nil, &registry.MappingError{Type: typeID, Field: f.Name, Err: err}
			}
			if err := assign(rv.FieldByIndex(m.Index), v); err != nil {
				return nil, &registry.MappingError{Type: typeID, Field: f.Name, Err: err}
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Repository binds an Engine to one registered record type.
type Repository[T any] struct {
	engine *Engine
}

// NewRepository returns a Repository for T over e.
func NewRepository[T any](e *Engine) *Repository[T] {
	return &Repository[T]{engine: e}
}

// Initialize opens the connection and ensures every registered table.
func (r *Repository[T]) Initialize(ctx context.Context) error {
	return r.engine.Initialize(ctx)
}

func (r *Repository[T]) Insert(ctx context.Context, rec T) (*int64, error) {
	return InsertRecord(ctx, r.engine, rec)
}

func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	return FindAllAs[T](ctx, r.engine)
}
