package session

import (
	"context"
	"time"

	"factbridge/internal/codec"
)

// RelationSnapshot is the read-only contents of one relation at a point
// in time. It does not update after retrieval. Tuple order is unspecified
// unless the engine declares the relation ordered.
type RelationSnapshot struct {
	Kind    string
	TakenAt time.Time
	Tuples  []codec.Tuple
}

// Len returns the number of tuples in the snapshot.
func (rs *RelationSnapshot) Len() int { return len(rs.Tuples) }

// Facts materializes the snapshot as fact instances.
func (rs *RelationSnapshot) Facts() []codec.Fact {
	out := make([]codec.Fact, len(rs.Tuples))
	for i, t := range rs.Tuples {
		out[i] = codec.Fact{Kind: rs.Kind, Values: t}
	}
	return out
}

// Contains reports snapshot membership of a tuple.
func (rs *RelationSnapshot) Contains(t codec.Tuple) bool {
	for _, have := range rs.Tuples {
		if have.Equal(t) {
			return true
		}
	}
	return false
}

// GetFacts returns a snapshot of the relation's current contents: base
// facts for input kinds, derived tuples from the last Run for output
// kinds. Ready state only.
func (s *Session) GetFacts(ctx context.Context, kindName string) (*RelationSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, &InvalidStateError{Op: "GetFacts", State: s.state}
	}
	kind, err := s.program.Check(kindName)
	if err != nil {
		return nil, err
	}

	snap := &RelationSnapshot{Kind: kindName, TakenAt: time.Now()}
	err = s.eng.Scan(ctx, kind, func(t codec.Tuple) error {
		snap.Tuples = append(snap.Tuples, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// FindFact tests membership of one fact in the relation's current
// contents, using the engine's indexed lookup where available. Ready
// state only.
func (s *Session) FindFact(ctx context.Context, kindName string, values ...any) (codec.Fact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return codec.Fact{}, false, &InvalidStateError{Op: "FindFact", State: s.state}
	}
	kind, err := s.program.Check(kindName)
	if err != nil {
		return codec.Fact{}, false, err
	}
	t, err := codec.Encode(kind, values...)
	if err != nil {
		return codec.Fact{}, false, err
	}

	ok, err := s.eng.Contains(ctx, kind, t)
	if err != nil || !ok {
		return codec.Fact{}, false, err
	}
	return codec.Fact{Kind: kindName, Values: t}, true, nil
}
