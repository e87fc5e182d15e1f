package session

import (
	"context"
	"path/filepath"
	"testing"

	"factbridge/internal/codec"
	"factbridge/internal/engine"
	"factbridge/internal/store"
)

func TestSaveFactsAndWarmStart(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "facts.db")

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	prog := reachabilityProgram(t)

	// First session: add facts, persist, shut down.
	s1, err := New(ctx, prog, Options{Mode: engine.Compiled, Store: st})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s1.AddFacts(ctx, []codec.Fact{
		{Kind: "edge", Values: codec.Tuple{"a", "b"}},
		{Kind: "edge", Values: codec.Tuple{"b", "c"}},
	}); err != nil {
		t.Fatalf("AddFacts() error = %v", err)
	}
	if err := s1.SaveFacts(ctx); err != nil {
		t.Fatalf("SaveFacts() error = %v", err)
	}
	if err := s1.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	// Second session over the same store starts with the persisted facts.
	s2, err := New(ctx, prog, Options{Mode: engine.Compiled, Store: st})
	if err != nil {
		t.Fatalf("New() warm start error = %v", err)
	}
	defer s2.Shutdown(ctx)

	snap, err := s2.GetFacts(ctx, "edge")
	if err != nil {
		t.Fatalf("GetFacts() error = %v", err)
	}
	if snap.Len() != 2 || !snap.Contains(codec.Tuple{"a", "b"}) || !snap.Contains(codec.Tuple{"b", "c"}) {
		t.Errorf("warm-started edge facts = %v", snap.Tuples)
	}

	if err := s2.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok, err := s2.FindFact(ctx, "reachable", "a", "c"); err != nil || !ok {
		t.Errorf("FindFact(reachable a->c) = %v, %v; want present", ok, err)
	}
}

func TestSaveFactsWithoutStoreIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})
	if err := s.AddFact(ctx, "edge", "a", "b"); err != nil {
		t.Fatalf("AddFact() error = %v", err)
	}
	if err := s.SaveFacts(ctx); err != nil {
		t.Errorf("SaveFacts() without store error = %v", err)
	}
}
