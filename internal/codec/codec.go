// Package codec converts typed host values to and from the ordered
// primitive tuples a Datalog relation stores. Every value entering or
// leaving an engine passes through this package, so a tuple that survives
// Encode is guaranteed to match its fact kind positionally.
package codec

import (
	"errors"
	"fmt"
	"math"

	"factbridge/internal/schema"
)

// ErrSchemaMismatch is the sentinel wrapped by SchemaMismatchError.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaMismatchError reports a value that disagrees with its fact kind
// declaration, either in field count or field type.
type SchemaMismatchError struct {
	Kind   string
	Field  int // -1 when the mismatch is arity, not a single field
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Field < 0 {
		return fmt.Sprintf("fact kind %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("fact kind %s field %d: %s", e.Kind, e.Field, e.Reason)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// Tuple is an ordered list of primitive values conforming to one fact
// kind: string for symbol fields, int32 for number, uint32 for unsigned,
// float64 for float.
type Tuple []any

// Equal reports positional equality of two tuples.
func (t Tuple) Equal(other Tuple) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Fact is one concrete, immutable tuple of values conforming to a fact
// kind. Construct via New or Decode so the type invariant holds.
type Fact struct {
	Kind   string
	Values Tuple
}

// Equal reports whether two facts have the same kind and values.
func (f Fact) Equal(other Fact) bool {
	return f.Kind == other.Kind && f.Values.Equal(other.Values)
}

func (f Fact) String() string {
	return fmt.Sprintf("%s%v", f.Kind, []any(f.Values))
}

// New validates values against kind and returns the resulting fact.
func New(kind schema.FactKind, values ...any) (Fact, error) {
	t, err := Encode(kind, values...)
	if err != nil {
		return Fact{}, err
	}
	return Fact{Kind: kind.Name, Values: t}, nil
}

// Encode converts host values to an ordered primitive tuple, coercing
// compatible representations (int/int64 for number fields and so on) and
// failing with SchemaMismatchError when field count or type disagrees
// with the declaration.
func Encode(kind schema.FactKind, values ...any) (Tuple, error) {
	if len(values) != kind.Arity() {
		return nil, &SchemaMismatchError{
			Kind:   kind.Name,
			Field:  -1,
			Reason: fmt.Sprintf("want %d values, got %d", kind.Arity(), len(values)),
		}
	}
	out := make(Tuple, len(values))
	for i, raw := range values {
		v, err := coerce(kind.Fields[i].Type, raw)
		if err != nil {
			return nil, &SchemaMismatchError{Kind: kind.Name, Field: i, Reason: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}

// Decode validates an ordered primitive tuple against kind and returns the
// corresponding fact. Decode(Encode(f), kindOf(f)) == f for all well-typed f.
func Decode(kind schema.FactKind, t Tuple) (Fact, error) {
	normalized, err := Encode(kind, []any(t)...)
	if err != nil {
		return Fact{}, err
	}
	return Fact{Kind: kind.Name, Values: normalized}, nil
}

// coerce normalizes raw to the canonical Go representation of ft.
func coerce(ft schema.FieldType, raw any) (any, error) {
	switch ft {
	case schema.Symbol:
		switch v := raw.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
		return nil, fmt.Errorf("want symbol, got %T", raw)
	case schema.Number:
		switch v := raw.(type) {
		case int32:
			return v, nil
		case int:
			return int32InRange(int64(v))
		case int64:
			return int32InRange(v)
		}
		return nil, fmt.Errorf("want number, got %T", raw)
	case schema.Unsigned:
		switch v := raw.(type) {
		case uint32:
			return v, nil
		case uint:
			return uint32InRange(uint64(v))
		case uint64:
			return uint32InRange(v)
		case int:
			if v < 0 {
				return nil, fmt.Errorf("want unsigned, got negative %d", v)
			}
			return uint32InRange(uint64(v))
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("want unsigned, got negative %d", v)
			}
			return uint32InRange(uint64(v))
		}
		return nil, fmt.Errorf("want unsigned, got %T", raw)
	case schema.Float:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		}
		return nil, fmt.Errorf("want float, got %T", raw)
	default:
		return nil, fmt.Errorf("unknown field type %v", ft)
	}
}

func int32InRange(v int64) (any, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return nil, fmt.Errorf("number %d out of signed 32-bit range", v)
	}
	return int32(v), nil
}

func uint32InRange(v uint64) (any, error) {
	if v > math.MaxUint32 {
		return nil, fmt.Errorf("unsigned %d out of 32-bit range", v)
	}
	return uint32(v), nil
}
