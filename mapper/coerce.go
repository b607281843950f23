package mapper

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"modelkit/registry"
)

// TimeFormat is how time.Time values are stored in TEXT columns.
const TimeFormat = time.RFC3339Nano

var timeType = reflect.TypeOf(time.Time{})

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func unsupported(st registry.StorageType, v any) error {
	return fmt.Errorf("%w: cannot store %T as %s", registry.ErrUnsupportedType, v, st)
}

// encodeValue converts v to the driver value stored in a column of f's
// storage type.
func encodeValue(f registry.FieldDescriptor, v any) (any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil
	}

	switch f.Type {
	case registry.TypeText:
		switch {
		case rv.Type() == timeType:
			return rv.Interface().(time.Time).UTC().Format(TimeFormat), nil
		case rv.Kind() == reflect.String:
			return rv.String(), nil
		case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
			return string(rv.Bytes()), nil
		}
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			return s.String(), nil
		}

	case registry.TypeInteger:
		switch rv.Kind() {
		case reflect.Bool:
			if rv.Bool() {
				return int64(1), nil
			}
			return int64(0), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := rv.Uint()
			if u > math.MaxInt64 {
				return nil, fmt.Errorf("%w: %d overflows INTEGER", registry.ErrUnsupportedType, u)
			}
			return int64(u), nil
		case reflect.Float32, reflect.Float64:
			fl := rv.Float()
			if fl != math.Trunc(fl) || fl > math.MaxInt64 || fl < math.MinInt64 {
				return nil, fmt.Errorf("%w: %v is not a whole number", registry.ErrUnsupportedType, fl)
			}
			return int64(fl), nil
		}

	case registry.TypeReal:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			fl := rv.Float()
			if math.IsNaN(fl) || math.IsInf(fl, 0) {
				return nil, fmt.Errorf("%w: %v", registry.ErrUnsupportedType, fl)
			}
			return fl, nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), nil
		}

	case registry.TypeBlob:
		switch {
		case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
			return append([]byte{}, rv.Bytes()...), nil
		case rv.Kind() == reflect.String:
			return []byte(rv.String()), nil
		}
	}

	return nil, unsupported(f.Type, v)
}

// decodeValue converts a driver value read from a column into the Go value
// for f's storage type: string, int64, float64 or []byte. NULL stays nil.
func decodeValue(f registry.FieldDescriptor, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch f.Type {
	case registry.TypeText:
		switch x := raw.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		case time.Time:
			return x.UTC().Format(TimeFormat), nil
		}

	case registry.TypeInteger:
		switch x := raw.(type) {
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n, nil
			}
		case []byte:
			if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
				return n, nil
			}
		}

	case registry.TypeReal:
		switch x := raw.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case string:
			if fl, err := strconv.ParseFloat(x, 64); err == nil {
				return fl, nil
			}
		case []byte:
			if fl, err := strconv.ParseFloat(string(x), 64); err == nil {
				return fl, nil
			}
		}

	case registry.TypeBlob:
		switch x := raw.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
	}

	return nil, fmt.Errorf("%w: cannot read %T from %s column", registry.ErrUnsupportedType, raw, f.Type)
}

func zeroValue(st registry.StorageType) any {
	switch st {
	case registry.TypeInteger:
		return int64(0)
	case registry.TypeReal:
		return float64(0)
	case registry.TypeBlob:
		return []byte{}
	default:
		return ""
	}
}

// assign stores a decoded column value into a struct field.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	if dst.Type() == timeType {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: cannot read %T into time.Time", registry.ErrUnsupportedType, v)
		}
		t, err := parseTime(s)
		if err != nil {
			return fmt.Errorf("%w: %v", registry.ErrUnsupportedType, err)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		if s, ok := v.(string); ok {
			dst.SetString(s)
			return nil
		}
		if b, ok := v.([]byte); ok {
			dst.SetString(string(b))
			return nil
		}
	case reflect.Bool:
		if n, ok := v.(int64); ok {
			dst.SetBool(n != 0)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := v.(int64); ok {
			if dst.OverflowInt(n) {
				return fmt.Errorf("%w: %d overflows %s", registry.ErrUnsupportedType, n, dst.Type())
			}
			dst.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := v.(int64); ok {
			if n < 0 || dst.OverflowUint(uint64(n)) {
				return fmt.Errorf("%w: %d overflows %s", registry.ErrUnsupportedType, n, dst.Type())
			}
			dst.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch n := v.(type) {
		case float64:
			dst.SetFloat(n)
			return nil
		case int64:
			dst.SetFloat(float64(n))
			return nil
		}
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			switch b := v.(type) {
			case []byte:
				dst.SetBytes(append([]byte(nil), b...))
				return nil
			case string:
				dst.SetBytes([]byte(b))
				return nil
			}
		}
	}

	return fmt.Errorf("%w: cannot read %T into %s", registry.ErrUnsupportedType, v, dst.Type())
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeFormat, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a time", s)
}
