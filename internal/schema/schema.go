// Package schema defines the static shape of a Datalog program as the
// bridge sees it: fact kinds (relation schemas) and the program descriptor
// that owns them. A program's kind set is fixed at declaration time and
// never mutated afterwards.
package schema

import (
	"fmt"
	"strings"
)

// FieldType enumerates the primitive column types a relation may declare.
type FieldType int

const (
	// Symbol is a string-valued column.
	Symbol FieldType = iota
	// Number is a signed 32-bit integer column.
	Number
	// Unsigned is an unsigned 32-bit integer column.
	Unsigned
	// Float is a floating point column.
	Float
)

// String returns the canonical name of the field type.
func (t FieldType) String() string {
	switch t {
	case Symbol:
		return "symbol"
	case Number:
		return "number"
	case Unsigned:
		return "unsigned"
	case Float:
		return "float"
	default:
		return fmt.Sprintf("fieldtype(%d)", int(t))
	}
}

// ParseFieldType converts a type name (as written in schema files) to a
// FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "symbol", "string":
		return Symbol, nil
	case "number", "int", "int32":
		return Number, nil
	case "unsigned", "uint", "uint32":
		return Unsigned, nil
	case "float", "float64":
		return Float, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}

// Direction says which way facts flow through a relation.
type Direction int

const (
	// Input relations accept base facts from the host.
	Input Direction = iota
	// Output relations are derived by the engine and readable after a run.
	Output
	// InOut relations accept base facts and are also readable as output.
	InOut
)

// String returns the canonical name of the direction.
func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case InOut:
		return "inout"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection converts a direction name to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	case "inout", "both":
		return InOut, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Field is one typed column of a relation.
type Field struct {
	Name string
	Type FieldType
}

// FactKind is a named relation schema: an ordered list of typed fields.
// Field order and types are immutable once declared and must match the
// relation declaration handed to the engine.
type FactKind struct {
	Name   string
	Dir    Direction
	Fields []Field
}

// NewKind builds a FactKind from a name, direction and field list.
func NewKind(name string, dir Direction, fields ...Field) FactKind {
	return FactKind{Name: name, Dir: dir, Fields: fields}
}

// Arity returns the number of fields.
func (k FactKind) Arity() int { return len(k.Fields) }

// AcceptsFacts reports whether the host may add base facts to this relation.
func (k FactKind) AcceptsFacts() bool { return k.Dir == Input || k.Dir == InOut }

// Readable reports whether the relation is readable as engine output.
func (k FactKind) Readable() bool { return k.Dir == Output || k.Dir == InOut }

// FieldName returns the declared name for field i, or a positional
// placeholder when the schema left it blank.
func (k FactKind) FieldName(i int) string {
	if i < len(k.Fields) && k.Fields[i].Name != "" {
		return k.Fields[i].Name
	}
	return fmt.Sprintf("x%d", i)
}

// validate checks a kind at declaration time.
func (k FactKind) validate() error {
	if !isIdentifier(k.Name) {
		return fmt.Errorf("fact kind name %q is not a valid relation identifier", k.Name)
	}
	if len(k.Fields) == 0 {
		return fmt.Errorf("fact kind %s declares no fields", k.Name)
	}
	seen := make(map[string]struct{}, len(k.Fields))
	for i, f := range k.Fields {
		if f.Name != "" {
			if !isIdentifier(f.Name) {
				return fmt.Errorf("fact kind %s field %d: invalid field name %q", k.Name, i, f.Name)
			}
			if _, dup := seen[f.Name]; dup {
				return fmt.Errorf("fact kind %s: duplicate field name %q", k.Name, f.Name)
			}
			seen[f.Name] = struct{}{}
		}
		switch f.Type {
		case Symbol, Number, Unsigned, Float:
		default:
			return fmt.Errorf("fact kind %s field %d: unknown field type", k.Name, i)
		}
	}
	return nil
}

// isIdentifier reports whether s is a valid relation/field identifier:
// [a-z_][a-zA-Z0-9_]*.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !((c >= 'a' && c <= 'z') || c == '_') {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}
