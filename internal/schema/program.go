package schema

import (
	"errors"
	"fmt"
)

// ErrUnknownFact is the sentinel wrapped by UnknownFactError.
var ErrUnknownFact = errors.New("fact kind not declared by program")

// UnknownFactError reports a fact kind that does not belong to a program's
// declared set. It is raised before any engine communication.
type UnknownFactError struct {
	Program string
	Kind    string
}

func (e *UnknownFactError) Error() string {
	return fmt.Sprintf("program %s does not declare fact kind %s", e.Program, e.Kind)
}

func (e *UnknownFactError) Unwrap() error { return ErrUnknownFact }

// Program identifies a Datalog ruleset by name and owns the ordered set of
// fact kinds it declares. The rule text is opaque to the bridge; relation
// declarations are generated from the kinds by each engine so host schema
// and engine source cannot drift.
type Program struct {
	name  string
	rules string
	kinds []FactKind
	index map[string]int
}

// Declare registers a program descriptor. The kind set is validated and
// frozen here; the returned Program never changes.
func Declare(name, rules string, kinds []FactKind) (*Program, error) {
	if !isIdentifier(name) {
		return nil, fmt.Errorf("program name %q is not a valid identifier", name)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("program %s declares no fact kinds", name)
	}

	p := &Program{
		name:  name,
		rules: rules,
		kinds: make([]FactKind, len(kinds)),
		index: make(map[string]int, len(kinds)),
	}
	for i, k := range kinds {
		if err := k.validate(); err != nil {
			return nil, fmt.Errorf("program %s: %w", name, err)
		}
		if _, dup := p.index[k.Name]; dup {
			return nil, fmt.Errorf("program %s: duplicate fact kind %s", name, k.Name)
		}
		// Deep-copy fields so callers cannot mutate the frozen schema.
		k.Fields = append([]Field(nil), k.Fields...)
		p.kinds[i] = k
		p.index[k.Name] = i
	}
	return p, nil
}

// Name returns the program name.
func (p *Program) Name() string { return p.name }

// Rules returns the opaque Datalog rule text.
func (p *Program) Rules() string { return p.rules }

// Kinds returns the declared fact kinds in declaration order.
func (p *Program) Kinds() []FactKind {
	out := make([]FactKind, len(p.kinds))
	for i, k := range p.kinds {
		k.Fields = append([]Field(nil), k.Fields...)
		out[i] = k
	}
	return out
}

// Kind looks up a declared fact kind by name.
func (p *Program) Kind(name string) (FactKind, bool) {
	i, ok := p.index[name]
	if !ok {
		return FactKind{}, false
	}
	k := p.kinds[i]
	k.Fields = append([]Field(nil), k.Fields...)
	return k, true
}

// Contains reports whether the program declares the named fact kind.
func (p *Program) Contains(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Check returns the declared kind for name, or an UnknownFactError naming
// the offending kind and the program. Every fact-adding and fact-querying
// operation goes through this gate before touching the engine.
func (p *Program) Check(name string) (FactKind, error) {
	k, ok := p.Kind(name)
	if !ok {
		return FactKind{}, &UnknownFactError{Program: p.name, Kind: name}
	}
	return k, nil
}
