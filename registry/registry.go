package registry

import (
	"fmt"
	"strings"
)

// StorageType is the SQLite storage class a field is persisted as.
type StorageType string

const (
	TypeText    StorageType = "TEXT"
	TypeInteger StorageType = "INTEGER"
	TypeReal    StorageType = "REAL"
	TypeBlob    StorageType = "BLOB"
)

// ParseStorageType accepts a storage type name in any letter case.
func ParseStorageType(s string) (StorageType, error) {
	switch t := StorageType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeText, TypeInteger, TypeReal, TypeBlob:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown storage type %q", ErrInvalidDescriptor, s)
	}
}

// ModelOptions configures a table descriptor.
type ModelOptions struct {
	TableName string
}

// FieldOptions configures a field descriptor. Default is used when an insert
// omits the field and only counts when HasDefault is set.
type FieldOptions struct {
	Type          StorageType
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Default       any
	HasDefault    bool
}

// FieldDescriptor describes one mapped member of a record type.
type FieldDescriptor struct {
	Name          string
	Type          StorageType
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Default       any
	HasDefault    bool
}

// Required reports whether an insert must supply a value for the field.
func (f FieldDescriptor) Required() bool {
	return !f.Nullable && !f.HasDefault && !f.AutoIncrement
}

// TableDescriptor describes the storage shape of one record type.
type TableDescriptor struct {
	TypeID    string
	TableName string
	Fields    []FieldDescriptor
}

// Field returns the descriptor for the named field.
func (t *TableDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// AutoIncrementField returns the table's auto-increment key, if it has one.
func (t *TableDescriptor) AutoIncrementField() (FieldDescriptor, bool) {
	for _, f := range t.Fields {
		if f.AutoIncrement {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// ColumnNames returns the field names in column order.
func (t *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Registry maps type identities to their table descriptors.
//
// It is written while record types are registered at startup and only read
// afterwards, so it carries no lock. Registering after queries have started
// is not supported.
type Registry struct {
	tables map[string]*TableDescriptor
	order  []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{tables: make(map[string]*TableDescriptor)}
}

// DefaultTableName derives a table name from a type name: the last
// dot-separated segment, lower-cased.
func DefaultTableName(typeID string) string {
	if i := strings.LastIndex(typeID, "."); i >= 0 {
		typeID = typeID[i+1:]
	}
	return strings.ToLower(typeID)
}

// Field names one field and its options for Register and RegisterFields.
type Field struct {
	Name    string
	Options FieldOptions
}

// update applies fn to a working copy of typeID's descriptor and stores the
// copy only when fn succeeds, so a rejected registration leaves no trace.
func (r *Registry) update(typeID string, fn func(t *TableDescriptor) error) (*TableDescriptor, error) {
	existing, ok := r.tables[typeID]

	work := &TableDescriptor{TypeID: typeID, TableName: DefaultTableName(typeID)}
	if ok {
		work.TableName = existing.TableName
		work.Fields = append([]FieldDescriptor(nil), existing.Fields...)
	}
	if err := fn(work); err != nil {
		return nil, err
	}

	if ok {
		*existing = *work
		return existing, nil
	}
	r.tables[typeID] = work
	r.order = append(r.order, typeID)
	return work, nil
}

// RegisterModel creates or updates the table descriptor for typeID.
func (r *Registry) RegisterModel(typeID string, opts ModelOptions) *TableDescriptor {
	t, _ := r.update(typeID, func(t *TableDescriptor) error {
		t.TableName = tableName(typeID, opts)
		return nil
	})
	return t
}

// RegisterField adds or replaces a field on typeID's descriptor, creating the
// descriptor if the model has not been registered yet. Replacing a field keeps
// its position unless its primary-key flag changes; primary-key fields are
// kept ahead of the other columns.
func (r *Registry) RegisterField(typeID, fieldName string, opts FieldOptions) error {
	return r.RegisterFields(typeID, Field{Name: fieldName, Options: opts})
}

// RegisterFields registers fields on typeID's descriptor as one unit: if any
// field is rejected, the registry is left as it was.
func (r *Registry) RegisterFields(typeID string, fields ...Field) error {
	_, err := r.update(typeID, func(t *TableDescriptor) error {
		return t.putFields(fields)
	})
	return err
}

// Register sets typeID's table options and fields as one unit.
func (r *Registry) Register(typeID string, opts ModelOptions, fields ...Field) error {
	_, err := r.update(typeID, func(t *TableDescriptor) error {
		t.TableName = tableName(typeID, opts)
		return t.putFields(fields)
	})
	return err
}

func tableName(typeID string, opts ModelOptions) string {
	if opts.TableName != "" {
		return opts.TableName
	}
	return DefaultTableName(typeID)
}

func (t *TableDescriptor) putFields(fields []Field) error {
	for _, f := range fields {
		fd, err := newFieldDescriptor(t.TypeID, f.Name, f.Options)
		if err != nil {
			return err
		}
		if err := t.put(fd); err != nil {
			return err
		}
	}
	return nil
}

func newFieldDescriptor(typeID, fieldName string, opts FieldOptions) (FieldDescriptor, error) {
	if fieldName == "" {
		return FieldDescriptor{}, &MappingError{Type: typeID, Err: fmt.Errorf("%w: empty field name", ErrInvalidDescriptor)}
	}

	fd := FieldDescriptor{
		Name:          fieldName,
		Type:          opts.Type,
		PrimaryKey:    opts.PrimaryKey,
		AutoIncrement: opts.AutoIncrement,
		Nullable:      opts.Nullable,
		Default:       opts.Default,
		HasDefault:    opts.HasDefault || opts.Default != nil,
	}
	if fd.Type == "" {
		fd.Type = TypeText
	}
	if _, err := ParseStorageType(string(fd.Type)); err != nil {
		return FieldDescriptor{}, &MappingError{Type: typeID, Field: fieldName, Err: err}
	}
	return fd, nil
}

func (t *TableDescriptor) put(fd FieldDescriptor) error {
	invalid := func(format string, args ...any) error {
		return &MappingError{Type: t.TypeID, Field: fd.Name,
			Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidDescriptor}, args...)...)}
	}

	if fd.AutoIncrement {
		if !fd.PrimaryKey || fd.Type != TypeInteger {
			return invalid("auto-increment requires an INTEGER primary key")
		}
		if other, ok := t.AutoIncrementField(); ok && other.Name != fd.Name {
			return invalid("%q is already the auto-increment key", other.Name)
		}
		for _, other := range t.Fields {
			if other.PrimaryKey && other.Name != fd.Name {
				return invalid("auto-increment key cannot share the primary key with %q", other.Name)
			}
		}
	} else if fd.PrimaryKey {
		if other, ok := t.AutoIncrementField(); ok && other.Name != fd.Name {
			return invalid("auto-increment key %q must be the only primary key", other.Name)
		}
	}

	moved := false
	for i := range t.Fields {
		if t.Fields[i].Name != fd.Name {
			continue
		}
		if t.Fields[i].PrimaryKey == fd.PrimaryKey {
			t.Fields[i] = fd
			return nil
		}
		// Key status changed: move the field to the edge of the key block.
		t.Fields = append(t.Fields[:i], t.Fields[i+1:]...)
		moved = true
		break
	}

	pos := len(t.Fields)
	if fd.PrimaryKey || moved {
		pos = 0
		for pos < len(t.Fields) && t.Fields[pos].PrimaryKey {
			pos++
		}
	}
	t.Fields = append(t.Fields, FieldDescriptor{})
	copy(t.Fields[pos+1:], t.Fields[pos:])
	t.Fields[pos] = fd
	return nil
}

// Descriptor returns the table descriptor registered for typeID.
func (r *Registry) Descriptor(typeID string) (*TableDescriptor, bool) {
	t, ok := r.tables[typeID]
	return t, ok
}

// All returns every table descriptor in registration order.
func (r *Registry) All() []*TableDescriptor {
	out := make([]*TableDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tables[id])
	}
	return out
}
