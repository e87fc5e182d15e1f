package codec

import (
	"fmt"
	"reflect"

	"factbridge/internal/schema"
)

// Marshal converts a host struct to a tuple, mapping exported fields in
// declaration order onto the fact kind's fields. This is the typed-record
// face of the codec: a struct whose exported field types line up with the
// kind round-trips losslessly through Marshal and Unmarshal.
func Marshal(kind schema.FactKind, v any) (Tuple, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, &SchemaMismatchError{Kind: kind.Name, Field: -1, Reason: "nil record"}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, &SchemaMismatchError{
			Kind:   kind.Name,
			Field:  -1,
			Reason: fmt.Sprintf("want struct record, got %s", rv.Kind()),
		}
	}

	fields := exportedFields(rv.Type())
	if len(fields) != kind.Arity() {
		return nil, &SchemaMismatchError{
			Kind:   kind.Name,
			Field:  -1,
			Reason: fmt.Sprintf("record %s has %d exported fields, kind declares %d", rv.Type(), len(fields), kind.Arity()),
		}
	}

	values := make([]any, len(fields))
	for i, idx := range fields {
		values[i] = rv.Field(idx).Interface()
	}
	return Encode(kind, values...)
}

// Unmarshal fills a pointer-to-struct from a tuple, positionally over
// exported fields. The tuple is validated against kind first.
func Unmarshal(kind schema.FactKind, t Tuple, v any) error {
	normalized, err := Encode(kind, []any(t)...)
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &SchemaMismatchError{Kind: kind.Name, Field: -1, Reason: "record target must be a non-nil pointer"}
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return &SchemaMismatchError{
			Kind:   kind.Name,
			Field:  -1,
			Reason: fmt.Sprintf("want struct record, got %s", rv.Kind()),
		}
	}

	fields := exportedFields(rv.Type())
	if len(fields) != kind.Arity() {
		return &SchemaMismatchError{
			Kind:   kind.Name,
			Field:  -1,
			Reason: fmt.Sprintf("record %s has %d exported fields, kind declares %d", rv.Type(), len(fields), kind.Arity()),
		}
	}

	for i, idx := range fields {
		target := rv.Field(idx)
		value := reflect.ValueOf(normalized[i])
		if !value.Type().AssignableTo(target.Type()) {
			// Widening between numeric kinds is fine (int32 into int64).
			// Cross-class conversions like int32 into string are not.
			if !sameKindClass(value.Kind(), target.Kind()) || !value.Type().ConvertibleTo(target.Type()) {
				return &SchemaMismatchError{
					Kind:   kind.Name,
					Field:  i,
					Reason: fmt.Sprintf("cannot store %s into record field %s", value.Type(), target.Type()),
				}
			}
			value = value.Convert(target.Type())
		}
		target.Set(value)
	}
	return nil
}

// sameKindClass groups reflect kinds into string / signed / unsigned /
// float classes for conversion checks.
func sameKindClass(a, b reflect.Kind) bool {
	return kindClass(a) != 0 && kindClass(a) == kindClass(b)
}

func kindClass(k reflect.Kind) int {
	switch k {
	case reflect.String:
		return 1
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return 2
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return 3
	case reflect.Float32, reflect.Float64:
		return 4
	default:
		return 0
	}
}

// exportedFields returns the indices of a struct type's exported fields in
// declaration order.
func exportedFields(t reflect.Type) []int {
	var out []int
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			out = append(out, i)
		}
	}
	return out
}
