package engine

import (
	"context"
	"testing"

	"factbridge/internal/codec"
	"factbridge/internal/schema"
)

func newCompiledEngine(t *testing.T, prog *schema.Program) Engine {
	t.Helper()
	eng, err := New(context.Background(), Config{Mode: Compiled}, prog)
	if err != nil {
		t.Fatalf("New(compiled) error = %v", err)
	}
	t.Cleanup(func() { eng.Close(context.Background()) })
	return eng
}

func insertEdges(t *testing.T, eng Engine, kind schema.FactKind, pairs [][2]string) {
	t.Helper()
	tuples := make([]codec.Tuple, len(pairs))
	for i, p := range pairs {
		tuples[i] = codec.Tuple{p[0], p[1]}
	}
	if err := eng.Insert(context.Background(), kind, tuples); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
}

func scanPairs(t *testing.T, eng Engine, kind schema.FactKind) map[[2]string]bool {
	t.Helper()
	out := make(map[[2]string]bool)
	err := eng.Scan(context.Background(), kind, func(tuple codec.Tuple) error {
		out[[2]string{tuple[0].(string), tuple[1].(string)}] = true
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return out
}

func TestCompiledTransitiveClosure(t *testing.T) {
	ctx := context.Background()
	prog := reachabilityProgram(t)
	eng := newCompiledEngine(t, prog)
	edge, _ := prog.Kind("edge")
	reachable, _ := prog.Kind("reachable")

	insertEdges(t, eng, edge, [][2]string{
		{"a", "b"}, {"b", "c"}, {"b", "d"}, {"d", "e"}, {"e", "f"}, {"d", "h"},
	})

	// Derived relations are empty before the first run.
	if got := scanPairs(t, eng, reachable); len(got) != 0 {
		t.Fatalf("Scan(reachable) before Run = %v, want empty", got)
	}

	if err := eng.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := scanPairs(t, eng, reachable)
	for _, want := range [][2]string{
		{"a", "b"}, {"a", "c"}, {"a", "d"}, {"a", "e"}, {"a", "f"}, {"a", "h"},
		{"b", "f"}, {"d", "f"},
	} {
		if !got[want] {
			t.Errorf("reachable missing %v", want)
		}
	}
	for _, absent := range [][2]string{{"c", "a"}, {"f", "a"}, {"h", "e"}} {
		if got[absent] {
			t.Errorf("reachable contains %v, want absent", absent)
		}
	}

	ok, err := eng.Contains(ctx, reachable, codec.Tuple{"a", "f"})
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if !ok {
		t.Error("Contains(reachable, a->f) = false, want true")
	}
	ok, err = eng.Contains(ctx, reachable, codec.Tuple{"f", "a"})
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if ok {
		t.Error("Contains(reachable, f->a) = true, want false")
	}
}

func TestCompiledRerunSeesNewBaseFacts(t *testing.T) {
	ctx := context.Background()
	prog := reachabilityProgram(t)
	eng := newCompiledEngine(t, prog)
	edge, _ := prog.Kind("edge")
	reachable, _ := prog.Kind("reachable")

	insertEdges(t, eng, edge, [][2]string{{"a", "b"}})
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := scanPairs(t, eng, reachable); got[[2]string{"a", "c"}] {
		t.Fatal("reachable contains a->c before edge b->c exists")
	}

	insertEdges(t, eng, edge, [][2]string{{"b", "c"}})
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := scanPairs(t, eng, reachable); !got[[2]string{"a", "c"}] {
		t.Error("reachable missing a->c after rerun")
	}
}

func TestCompiledRepeatedRunsAreDeterministic(t *testing.T) {
	ctx := context.Background()
	prog := reachabilityProgram(t)
	eng := newCompiledEngine(t, prog)
	edge, _ := prog.Kind("edge")
	reachable, _ := prog.Kind("reachable")

	insertEdges(t, eng, edge, [][2]string{
		{"a", "b"}, {"b", "c"}, {"b", "d"}, {"d", "e"},
	})
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	first := scanPairs(t, eng, reachable)

	for i := 0; i < 3; i++ {
		if err := eng.Run(ctx); err != nil {
			t.Fatalf("Run() %d error = %v", i+2, err)
		}
		again := scanPairs(t, eng, reachable)
		if len(again) != len(first) {
			t.Fatalf("run %d derived %d tuples, first run derived %d", i+2, len(again), len(first))
		}
		for pair := range first {
			if !again[pair] {
				t.Errorf("run %d missing %v", i+2, pair)
			}
		}
	}
}

func TestCompiledInputScanAndDuplicates(t *testing.T) {
	ctx := context.Background()
	prog := reachabilityProgram(t)
	eng := newCompiledEngine(t, prog)
	edge, _ := prog.Kind("edge")

	insertEdges(t, eng, edge, [][2]string{{"a", "b"}, {"a", "b"}})

	// Base facts are set-valued and readable without a run.
	got := scanPairs(t, eng, edge)
	if len(got) != 1 || !got[[2]string{"a", "b"}] {
		t.Errorf("Scan(edge) = %v, want exactly {a b}", got)
	}

	ok, err := eng.Contains(ctx, edge, codec.Tuple{"a", "b"})
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if !ok {
		t.Error("Contains(edge, a->b) = false, want true")
	}
}

func TestCompiledNumericRoundTrip(t *testing.T) {
	ctx := context.Background()
	prog, err := schema.Declare("metrics", "high(S, V) :- sample(S, _, V).", []schema.FactKind{
		schema.NewKind("sample", schema.Input,
			schema.Field{Name: "sensor", Type: schema.Symbol},
			schema.Field{Name: "seq", Type: schema.Unsigned},
			schema.Field{Name: "value", Type: schema.Float}),
		schema.NewKind("high", schema.Output,
			schema.Field{Name: "sensor", Type: schema.Symbol},
			schema.Field{Name: "value", Type: schema.Float}),
	})
	if err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	eng := newCompiledEngine(t, prog)
	sample, _ := prog.Kind("sample")
	high, _ := prog.Kind("high")

	if err := eng.Insert(ctx, sample, []codec.Tuple{{"probe", uint32(9), 98.25}}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var got []codec.Tuple
	if err := eng.Scan(ctx, high, func(tuple codec.Tuple) error {
		got = append(got, tuple)
		return nil
	}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 1 || !got[0].Equal(codec.Tuple{"probe", 98.25}) {
		t.Errorf("Scan(high) = %v, want [probe 98.25]", got)
	}
}

func TestCompiledClosedEngineRejectsUse(t *testing.T) {
	ctx := context.Background()
	prog := reachabilityProgram(t)
	eng := newCompiledEngine(t, prog)
	edge, _ := prog.Kind("edge")

	if err := eng.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := eng.Close(ctx); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if err := eng.Insert(ctx, edge, []codec.Tuple{{"a", "b"}}); err == nil {
		t.Error("Insert() after Close succeeded, want error")
	}
	if err := eng.Run(ctx); err == nil {
		t.Error("Run() after Close succeeded, want error")
	}
}
