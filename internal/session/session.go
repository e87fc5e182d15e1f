// Package session owns the runtime binding between one program and one
// running engine instance. A session serializes every operation behind a
// single lock; independent sessions share nothing and run fully in
// parallel.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"factbridge/internal/codec"
	"factbridge/internal/engine"
	"factbridge/internal/metrics"
	"factbridge/internal/schema"
	"factbridge/internal/store"
)

// Options configures session construction. Mode is the only place the
// execution strategy shows; the session contract is identical afterwards.
type Options struct {
	Mode             engine.Mode
	EngineBinary     string
	WorkDir          string
	RunTimeout       time.Duration
	DerivedFactLimit int

	// Store, when set, hydrates input relations from persisted facts at
	// init and is the target of SaveFacts.
	Store *store.Store

	Logger *zap.Logger
}

// Session is the runtime handle over one engine instance. All operations
// are exclusive; see the package comment.
type Session struct {
	mu      sync.Mutex
	id      string
	program *schema.Program
	eng     engine.Engine
	mode    engine.Mode
	state   State
	log     *zap.Logger

	// base mirrors the facts handed to the engine, per input relation and
	// in insertion order, for persistence.
	base map[string][]codec.Tuple
	st   *store.Store
}

// New initializes a session for the program in the configured mode. On
// failure no session is handed to the caller and nothing is left running.
func New(ctx context.Context, prog *schema.Program, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	log = log.Named("session").With(
		zap.String("session_id", id),
		zap.String("program", prog.Name()),
		zap.Stringer("mode", opts.Mode),
	)

	log.Debug("initializing session")
	eng, err := engine.New(ctx, engine.Config{
		Mode:             opts.Mode,
		Binary:           opts.EngineBinary,
		WorkDir:          opts.WorkDir,
		RunTimeout:       opts.RunTimeout,
		DerivedFactLimit: opts.DerivedFactLimit,
	}, prog)
	if err != nil {
		log.Warn("engine init failed", zap.Error(err))
		return nil, err
	}

	s := &Session{
		id:      id,
		program: prog,
		eng:     eng,
		mode:    opts.Mode,
		state:   StateInitializing,
		log:     log,
		base:    make(map[string][]codec.Tuple),
		st:      opts.Store,
	}

	if s.st != nil {
		if err := s.warmStart(ctx); err != nil {
			_ = eng.Close(ctx)
			return nil, err
		}
	}

	s.state = StateReady
	metrics.ActiveSessions.Inc()
	log.Info("session ready")
	return s, nil
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// Program returns the program descriptor this session is bound to.
func (s *Session) Program() *schema.Program { return s.program }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddFact validates and adds a single base fact.
func (s *Session) AddFact(ctx context.Context, kindName string, values ...any) error {
	return s.AddFacts(ctx, []codec.Fact{{Kind: kindName, Values: codec.Tuple(values)}})
}

// AddFacts adds base facts in bulk, order-preserving and atomic-or-none:
// every fact is checked against the program and encoded before the first
// one reaches the engine, so a validation failure has no side effects.
func (s *Session) AddFacts(ctx context.Context, facts []codec.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return &InvalidStateError{Op: "AddFacts", State: s.state}
	}
	if len(facts) == 0 {
		return nil
	}

	type group struct {
		kind   schema.FactKind
		tuples []codec.Tuple
	}
	var groups []group
	index := make(map[string]int)

	for _, f := range facts {
		kind, err := s.program.Check(f.Kind)
		if err != nil {
			return err
		}
		if !kind.AcceptsFacts() {
			return &codec.SchemaMismatchError{
				Kind:   kind.Name,
				Field:  -1,
				Reason: "relation is engine output, base facts not accepted",
			}
		}
		t, err := codec.Encode(kind, []any(f.Values)...)
		if err != nil {
			return err
		}
		i, ok := index[f.Kind]
		if !ok {
			i = len(groups)
			index[f.Kind] = i
			groups = append(groups, group{kind: kind})
		}
		groups[i].tuples = append(groups[i].tuples, t)
	}

	for _, g := range groups {
		if err := s.eng.Insert(ctx, g.kind, g.tuples); err != nil {
			return fmt.Errorf("insert into %s: %w", g.kind.Name, err)
		}
		s.base[g.kind.Name] = append(s.base[g.kind.Name], g.tuples...)
		metrics.FactsAdded.WithLabelValues(s.program.Name(), g.kind.Name).Add(float64(len(g.tuples)))
	}
	s.log.Debug("facts added", zap.Int("count", len(facts)))
	return nil
}

// Run recomputes all derived relations from the current base facts. The
// session is Running for the duration and Ready again afterwards, whether
// or not the evaluation succeeded.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return &InvalidStateError{Op: "Run", State: s.state}
	}
	s.state = StateRunning

	start := time.Now()
	err := s.eng.Run(ctx)
	elapsed := time.Since(start)

	s.state = StateReady
	metrics.RunDuration.WithLabelValues(s.program.Name(), s.mode.String()).Observe(elapsed.Seconds())
	if err != nil {
		metrics.Runs.WithLabelValues(s.program.Name(), s.mode.String(), "error").Inc()
		s.log.Warn("run failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return err
	}
	metrics.Runs.WithLabelValues(s.program.Name(), s.mode.String(), "ok").Inc()
	s.log.Info("run complete", zap.Duration("elapsed", elapsed))
	return nil
}

// SaveFacts persists the session's current base facts through the
// configured store. No-op without a store.
func (s *Session) SaveFacts(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return &InvalidStateError{Op: "SaveFacts", State: s.state}
	}
	if s.st == nil {
		return nil
	}
	for _, kind := range s.program.Kinds() {
		if !kind.AcceptsFacts() {
			continue
		}
		if err := s.st.ReplaceFacts(ctx, s.program.Name(), kind, s.base[kind.Name]); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown tears the session down, guaranteeing engine termination. The
// state is terminal; any later operation fails with InvalidStateError.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isAllowedTransition(s.state, StateShutDown) {
		return &InvalidStateError{Op: "Shutdown", State: s.state}
	}
	s.state = StateShutDown
	metrics.ActiveSessions.Dec()

	if err := s.eng.Close(ctx); err != nil {
		s.log.Warn("engine close failed", zap.Error(err))
		return err
	}
	s.log.Info("session shut down")
	return nil
}

// warmStart hydrates input relations from the persisted fact store.
func (s *Session) warmStart(ctx context.Context) error {
	for _, kind := range s.program.Kinds() {
		if !kind.AcceptsFacts() {
			continue
		}
		tuples, err := s.st.LoadFacts(ctx, s.program.Name(), kind)
		if err != nil {
			return fmt.Errorf("warm start: %w", err)
		}
		if len(tuples) == 0 {
			continue
		}
		if err := s.eng.Insert(ctx, kind, tuples); err != nil {
			return fmt.Errorf("warm start: insert into %s: %w", kind.Name, err)
		}
		s.base[kind.Name] = append(s.base[kind.Name], tuples...)
	}
	return nil
}
