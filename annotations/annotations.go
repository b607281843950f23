// Package annotations registers Go struct types in a registry.Registry from
// their `modelkit` struct tags.
//
// A mapped member carries a tag of the form
//
//	Title     string `modelkit:"title"`
//	ID        int64  `modelkit:"id,primaryKey,autoIncrement"`
//	Completed int    `modelkit:",default=0"`
//	Note      string `modelkit:"note,nullable,type=TEXT"`
//	Label     string `modelkit:"label,default='a, b and ''c'''"`
//
// Text defaults may be wrapped in single quotes, which lets them contain
// commas. A quote inside a quoted default is written twice.
//
// An empty name maps the member under its Go name with a lower-cased first
// letter. Members without a tag, or tagged "-", are not mapped. A type names
// its table by implementing TableNamer; otherwise the lower-cased type name
// is used.
package annotations

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"modelkit/registry"
	"modelkit/validator"
)

// TagKey is the struct tag read by Register.
const TagKey = "modelkit"

// TableNamer is implemented by record types that choose their table name.
type TableNamer interface {
	TableName() string
}

// Member links a mapped struct field to its column.
type Member struct {
	Column string
	Index  []int
	Type   reflect.Type
}

type modelSpec struct {
	TableName string `json:"tableName" validate:"omitempty,identifier"`
}

type fieldSpec struct {
	Name          string `json:"name" validate:"required,identifier"`
	Type          string `json:"type" validate:"omitempty,storagetype"`
	PrimaryKey    bool   `json:"primaryKey" validate:"required_if=AutoIncrement true"`
	AutoIncrement bool   `json:"autoIncrement"`
	Nullable      bool   `json:"nullable"`
	Default       string `json:"default"`
	HasDefault    bool   `json:"-"`
}

type parsedField struct {
	member Member
	opts   registry.FieldOptions
}

var (
	specValidator = validator.New()
	timeType      = reflect.TypeOf(time.Time{})
	bytesType     = reflect.TypeOf([]byte(nil))
	membersCache  sync.Map // reflect.Type -> []Member
)

// TypeID returns the registry key for model's type: its package path and
// type name. Pointers are dereferenced.
func TypeID(model any) string {
	return typeID(structType(reflect.TypeOf(model)))
}

// TypeIDOf is TypeID for a type parameter.
func TypeIDOf[T any]() string {
	return typeID(structType(reflect.TypeOf((*T)(nil)).Elem()))
}

func typeID(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Register records model's table and every tagged member in reg. It may be
// called again for the same type: fields are overwritten, never duplicated.
// A rejected member leaves reg unchanged.
func Register(reg *registry.Registry, model any) error {
	t := structType(reflect.TypeOf(model))
	if t == nil || t.Kind() != reflect.Struct {
		return &registry.MappingError{
			Type: fmt.Sprintf("%T", model),
			Err:  fmt.Errorf("%w: models must be structs", registry.ErrUnsupportedType),
		}
	}
	id := typeID(t)

	ms := modelSpec{TableName: tableName(t)}
	if err := specValidator.Validate(&ms); err != nil {
		return &registry.MappingError{Type: id, Err: fmt.Errorf("%w: %v", registry.ErrInvalidDescriptor, err)}
	}

	fields, err := parseFields(id, t, nil)
	if err != nil {
		return err
	}

	regFields := make([]registry.Field, len(fields))
	for i, f := range fields {
		regFields[i] = registry.Field{Name: f.member.Column, Options: f.opts}
	}
	return reg.Register(id, registry.ModelOptions{TableName: ms.TableName}, regFields...)
}

// MustRegister registers each model and panics on the first error. It is
// meant for package-level registration at program start.
func MustRegister(reg *registry.Registry, models ...any) {
	for _, m := range models {
		if err := Register(reg, m); err != nil {
			panic(err)
		}
	}
}

// Members returns the mapped members of a struct type in declaration order.
func Members(t reflect.Type) ([]Member, error) {
	t = structType(t)
	if cached, ok := membersCache.Load(t); ok {
		return cached.([]Member), nil
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &registry.MappingError{Type: typeID(t), Err: registry.ErrUnsupportedType}
	}

	fields, err := parseFields(typeID(t), t, nil)
	if err != nil {
		return nil, err
	}
	members := make([]Member, len(fields))
	for i, f := range fields {
		members[i] = f.member
	}
	membersCache.Store(t, members)
	return members, nil
}

func tableName(t reflect.Type) string {
	if n, ok := reflect.New(t).Interface().(TableNamer); ok {
		return n.TableName()
	}
	return ""
}

func parseFields(id string, t reflect.Type, prefix []int) ([]parsedField, error) {
	var out []parsedField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		tag, tagged := sf.Tag.Lookup(TagKey)

		if sf.Anonymous && !tagged && sf.Type.Kind() == reflect.Struct && sf.Type != timeType {
			nested, err := parseFields(id, sf.Type, index)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		if !tagged || tag == "-" || !sf.IsExported() {
			continue
		}

		spec, err := parseTag(sf, tag)
		if err != nil {
			return nil, &registry.MappingError{Type: id, Field: sf.Name, Err: err}
		}
		if err := specValidator.Validate(&spec); err != nil {
			return nil, &registry.MappingError{Type: id, Field: spec.Name,
				Err: fmt.Errorf("%w: %v", registry.ErrInvalidDescriptor, err)}
		}

		opts, err := fieldOptions(spec, sf.Type)
		if err != nil {
			return nil, &registry.MappingError{Type: id, Field: spec.Name, Err: err}
		}
		out = append(out, parsedField{
			member: Member{Column: spec.Name, Index: index, Type: sf.Type},
			opts:   opts,
		})
	}
	return out, nil
}

func parseTag(sf reflect.StructField, tag string) (fieldSpec, error) {
	parts := splitTag(tag)
	spec := fieldSpec{Name: strings.TrimSpace(parts[0])}
	if spec.Name == "" {
		spec.Name = lowerFirst(sf.Name)
	}

	for _, part := range parts[1:] {
		key, value, hasValue := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "primaryKey":
			spec.PrimaryKey = true
		case "autoIncrement":
			spec.AutoIncrement = true
		case "nullable":
			spec.Nullable = true
		case "type":
			spec.Type = value
		case "default":
			if !hasValue {
				return spec, fmt.Errorf("%w: default needs a value", registry.ErrInvalidDescriptor)
			}
			spec.Default = value
			spec.HasDefault = true
		case "":
		default:
			return spec, fmt.Errorf("%w: unknown tag option %q", registry.ErrInvalidDescriptor, key)
		}
	}
	return spec, nil
}

func fieldOptions(spec fieldSpec, goType reflect.Type) (registry.FieldOptions, error) {
	opts := registry.FieldOptions{
		PrimaryKey:    spec.PrimaryKey,
		AutoIncrement: spec.AutoIncrement,
		Nullable:      spec.Nullable,
	}

	if spec.Type != "" {
		st, err := registry.ParseStorageType(spec.Type)
		if err != nil {
			return opts, err
		}
		opts.Type = st
	} else {
		st, err := InferStorageType(goType)
		if err != nil {
			return opts, err
		}
		opts.Type = st
	}

	if spec.HasDefault {
		v, err := parseDefault(opts.Type, spec.Default)
		if err != nil {
			return opts, err
		}
		opts.Default = v
		opts.HasDefault = true
	}
	return opts, nil
}

// InferStorageType maps a Go type to the storage type its values are saved as.
func InferStorageType(t reflect.Type) (registry.StorageType, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return registry.TypeText, nil
	}
	if t == bytesType {
		return registry.TypeBlob, nil
	}

	switch t.Kind() {
	case reflect.String:
		return registry.TypeText, nil
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return registry.TypeInteger, nil
	case reflect.Float32, reflect.Float64:
		return registry.TypeReal, nil
	}
	return "", fmt.Errorf("%w: %s", registry.ErrUnsupportedType, t)
}

func parseDefault(st registry.StorageType, raw string) (any, error) {
	switch st {
	case registry.TypeInteger:
		switch raw {
		case "true":
			return int64(1), nil
		case "false":
			return int64(0), nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: default %q is not an integer", registry.ErrInvalidDescriptor, raw)
		}
		return n, nil
	case registry.TypeReal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: default %q is not a number", registry.ErrInvalidDescriptor, raw)
		}
		return f, nil
	case registry.TypeBlob:
		return []byte(unquote(raw)), nil
	default:
		return unquote(raw), nil
	}
}

// splitTag splits a tag on commas outside single-quoted text.
func splitTag(tag string) []string {
	var parts []string
	quoted := false
	start := 0
	for i := 0; i < len(tag); i++ {
		switch tag[i] {
		case '\'':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, tag[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tag[start:])
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
