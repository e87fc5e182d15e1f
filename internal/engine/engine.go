// Package engine runs Datalog programs for the bridge. Two interchangeable
// implementations exist behind one capability interface: a compiled engine
// that evaluates in-process against a prebuilt artifact, and an interpreted
// engine that drives an external engine binary per run. Callers select the
// mode at construction; nothing else about the contract differs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"factbridge/internal/codec"
	"factbridge/internal/schema"
)

// Mode selects the execution strategy for a session's engine.
type Mode int

const (
	// Interpreted spawns the external engine binary per run. Higher
	// startup latency, no separate build step, suited to iteration.
	Interpreted Mode = iota
	// Compiled evaluates in-process against a prebuilt program artifact.
	Compiled
)

// String returns the canonical mode name.
func (m Mode) String() string {
	switch m {
	case Interpreted:
		return "interpreted"
	case Compiled:
		return "compiled"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a mode name (as written in config) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interpreted", "interp":
		return Interpreted, nil
	case "compiled":
		return Compiled, nil
	default:
		return 0, fmt.Errorf("unknown engine mode %q", s)
	}
}

// ErrEngineNotFound is the sentinel wrapped by NotFoundError.
var ErrEngineNotFound = errors.New("engine not found")

// NotFoundError reports a missing engine binary or unbuildable program
// artifact at initialization time. Unrecoverable for that session.
type NotFoundError struct {
	Mode   Mode
	Detail string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s engine unavailable: %s", e.Mode, e.Detail)
}

func (e *NotFoundError) Unwrap() error { return ErrEngineNotFound }

// Engine is the capability interface shared by both execution modes.
// Implementations are not safe for concurrent use; the owning session
// serializes access.
type Engine interface {
	// Insert adds base tuples to an input relation, order-preserving.
	// Tuples must already be codec-validated for the kind.
	Insert(ctx context.Context, kind schema.FactKind, tuples []codec.Tuple) error

	// Run recomputes all derived relations from the current base facts.
	Run(ctx context.Context) error

	// Scan streams the current contents of a relation: base facts for
	// input kinds, derived tuples from the last Run otherwise.
	Scan(ctx context.Context, kind schema.FactKind, fn func(codec.Tuple) error) error

	// Contains reports membership of one tuple in a relation's current
	// contents. May use an indexed lookup instead of a full scan.
	Contains(ctx context.Context, kind schema.FactKind, tuple codec.Tuple) (bool, error)

	// Close releases every resource the engine owns, including any
	// external process. Idempotent.
	Close(ctx context.Context) error
}

// Config carries engine construction options.
type Config struct {
	Mode             Mode
	Binary           string        // interpreted: engine executable, resolved via PATH
	WorkDir          string        // interpreted: parent dir for session scratch space ("" = os temp)
	RunTimeout       time.Duration // interpreted: per-run wall clock limit
	DerivedFactLimit int           // compiled: cap on derived facts per run (0 = default)
}

// DefaultBinary is the engine executable resolved when config names none.
const DefaultBinary = "souffle"

// New constructs an engine for the given program in the configured mode.
// Fails with NotFoundError when the engine binary is absent (interpreted);
// in compiled mode an unanalyzable program fails artifact compilation.
func New(ctx context.Context, cfg Config, prog *schema.Program) (Engine, error) {
	switch cfg.Mode {
	case Interpreted:
		return newInterpreted(cfg, prog)
	case Compiled:
		artifact, err := Compile(prog)
		if err != nil {
			return nil, err
		}
		return newCompiled(cfg, artifact), nil
	default:
		return nil, fmt.Errorf("unknown engine mode %v", cfg.Mode)
	}
}
