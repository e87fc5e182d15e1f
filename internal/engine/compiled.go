package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"

	"factbridge/internal/codec"
	"factbridge/internal/schema"
)

// defaultDerivedFactLimit caps fixpoint evaluation so a runaway recursive
// ruleset cannot exhaust memory.
const defaultDerivedFactLimit = 500000

// compiledEngine evaluates a prebuilt artifact in-process. Base facts are
// kept in their own store; every Run re-derives into a fresh store so
// derived relations always reflect exactly the current base facts.
type compiledEngine struct {
	artifact *Artifact
	limit    int

	base      factstore.FactStoreWithRemove
	baseAtoms []ast.Atom
	derived   factstore.FactStore
	closed    bool
}

func newCompiled(cfg Config, artifact *Artifact) *compiledEngine {
	limit := cfg.DerivedFactLimit
	if limit <= 0 {
		limit = defaultDerivedFactLimit
	}
	return &compiledEngine{
		artifact: artifact,
		limit:    limit,
		base:     factstore.NewSimpleInMemoryStore(),
	}
}

func (e *compiledEngine) Insert(ctx context.Context, kind schema.FactKind, tuples []codec.Tuple) error {
	if e.closed {
		return fmt.Errorf("engine closed")
	}
	sym, err := e.artifact.Predicate(kind)
	if err != nil {
		return err
	}
	for _, t := range tuples {
		atom, err := toAtom(sym, kind, t)
		if err != nil {
			return err
		}
		if e.base.Add(atom) {
			e.baseAtoms = append(e.baseAtoms, atom)
		}
	}
	return nil
}

func (e *compiledEngine) Run(ctx context.Context) error {
	if e.closed {
		return fmt.Errorf("engine closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fresh := factstore.NewSimpleInMemoryStore()
	for _, atom := range e.baseAtoms {
		fresh.Add(atom)
	}
	if _, err := mengine.EvalProgramWithStats(e.artifact.info, fresh,
		mengine.WithCreatedFactLimit(e.limit)); err != nil {
		return fmt.Errorf("evaluate program: %w", err)
	}
	e.derived = fresh
	return nil
}

func (e *compiledEngine) Scan(ctx context.Context, kind schema.FactKind, fn func(codec.Tuple) error) error {
	if e.closed {
		return fmt.Errorf("engine closed")
	}
	store := e.storeFor(kind)
	if store == nil {
		return nil
	}
	sym, err := e.artifact.Predicate(kind)
	if err != nil {
		return err
	}
	return store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := fromAtom(kind, atom)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

func (e *compiledEngine) Contains(ctx context.Context, kind schema.FactKind, tuple codec.Tuple) (bool, error) {
	if e.closed {
		return false, fmt.Errorf("engine closed")
	}
	store := e.storeFor(kind)
	if store == nil {
		return false, nil
	}
	sym, err := e.artifact.Predicate(kind)
	if err != nil {
		return false, err
	}
	atom, err := toAtom(sym, kind, tuple)
	if err != nil {
		return false, err
	}
	return store.Contains(atom), nil
}

func (e *compiledEngine) Close(ctx context.Context) error {
	e.closed = true
	e.base = nil
	e.baseAtoms = nil
	e.derived = nil
	return nil
}

// storeFor picks the store a read should see: base facts for input kinds,
// the last evaluation for anything derivable. Nil means "no contents yet".
func (e *compiledEngine) storeFor(kind schema.FactKind) factstore.FactStore {
	if kind.Dir == schema.Input {
		return e.base
	}
	return e.derived
}

// toAtom converts a codec-validated tuple to an engine atom.
func toAtom(sym ast.PredicateSym, kind schema.FactKind, t codec.Tuple) (ast.Atom, error) {
	if len(t) != kind.Arity() {
		return ast.Atom{}, fmt.Errorf("relation %s: want %d values, got %d", kind.Name, kind.Arity(), len(t))
	}
	args := make([]ast.BaseTerm, len(t))
	for i, v := range t {
		switch x := v.(type) {
		case string:
			args[i] = ast.String(x)
		case int32:
			args[i] = ast.Number(int64(x))
		case uint32:
			args[i] = ast.Number(int64(x))
		case float64:
			args[i] = ast.Float64(x)
		default:
			return ast.Atom{}, fmt.Errorf("relation %s arg %d: unexpected value type %T", kind.Name, i, v)
		}
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

// fromAtom converts an engine atom back to a tuple typed by the fact kind.
func fromAtom(kind schema.FactKind, atom ast.Atom) (codec.Tuple, error) {
	if len(atom.Args) != kind.Arity() {
		return nil, fmt.Errorf("relation %s: engine returned %d args, want %d", kind.Name, len(atom.Args), kind.Arity())
	}
	values := make([]any, len(atom.Args))
	for i, arg := range atom.Args {
		c, ok := arg.(ast.Constant)
		if !ok {
			return nil, fmt.Errorf("relation %s arg %d: non-constant term %v", kind.Name, i, arg)
		}
		v, err := constantValue(kind.Fields[i].Type, c)
		if err != nil {
			return nil, fmt.Errorf("relation %s arg %d: %w", kind.Name, i, err)
		}
		values[i] = v
	}
	return codec.Tuple(values), nil
}

func constantValue(ft schema.FieldType, c ast.Constant) (any, error) {
	switch ft {
	case schema.Symbol:
		switch c.Type {
		case ast.StringType, ast.NameType:
			return c.Symbol, nil
		}
		return nil, fmt.Errorf("want symbol, engine returned %v", c.Type)
	case schema.Number:
		if c.Type != ast.NumberType {
			return nil, fmt.Errorf("want number, engine returned %v", c.Type)
		}
		if c.NumValue < math.MinInt32 || c.NumValue > math.MaxInt32 {
			return nil, fmt.Errorf("derived number %d out of signed 32-bit range", c.NumValue)
		}
		return int32(c.NumValue), nil
	case schema.Unsigned:
		if c.Type != ast.NumberType {
			return nil, fmt.Errorf("want unsigned, engine returned %v", c.Type)
		}
		if c.NumValue < 0 || c.NumValue > math.MaxUint32 {
			return nil, fmt.Errorf("derived unsigned %d out of 32-bit range", c.NumValue)
		}
		return uint32(c.NumValue), nil
	case schema.Float:
		if c.Type != ast.Float64Type {
			return nil, fmt.Errorf("want float, engine returned %v", c.Type)
		}
		return math.Float64frombits(uint64(c.NumValue)), nil
	default:
		return nil, fmt.Errorf("unknown field type %v", ft)
	}
}
