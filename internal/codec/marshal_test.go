package codec

import (
	"errors"
	"testing"
)

type measurement struct {
	Sensor string
	Delta  int32
	Seq    uint32
	Value  float64
}

type wideMeasurement struct {
	Sensor string
	Delta  int64 // wider than the declared number field
	Seq    uint
	Value  float64
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	kind := measurementKind()
	in := measurement{Sensor: "probe-1", Delta: -40, Seq: 7, Value: 98.25}

	tuple, err := Marshal(kind, in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !tuple.Equal(Tuple{"probe-1", int32(-40), uint32(7), 98.25}) {
		t.Errorf("Marshal() = %v", tuple)
	}

	var out measurement
	if err := Unmarshal(kind, tuple, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestMarshalPointerRecord(t *testing.T) {
	kind := measurementKind()
	in := &measurement{Sensor: "p", Delta: 1, Seq: 2, Value: 3}
	tuple, err := Marshal(kind, in)
	if err != nil {
		t.Fatalf("Marshal(pointer) error = %v", err)
	}
	if tuple[0] != "p" {
		t.Errorf("Marshal(pointer)[0] = %v, want p", tuple[0])
	}
}

func TestUnmarshalWidensNumericFields(t *testing.T) {
	kind := measurementKind()
	tuple := Tuple{"p", int32(-5), uint32(8), 1.5}

	var out wideMeasurement
	if err := Unmarshal(kind, tuple, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Delta != -5 || out.Seq != 8 {
		t.Errorf("widened record = %+v", out)
	}
}

func TestUnmarshalRejectsCrossClassFields(t *testing.T) {
	kind := measurementKind()
	tuple := Tuple{"p", int32(1), uint32(2), 3.0}

	// Delta declared as string: int32 must not be rune-converted into it.
	var out struct {
		Sensor string
		Delta  string
		Seq    uint32
		Value  float64
	}
	err := Unmarshal(kind, tuple, &out)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("Unmarshal() error = %v, want ErrSchemaMismatch", err)
	}
}

func TestMarshalRejectsBadRecords(t *testing.T) {
	kind := measurementKind()

	if _, err := Marshal(kind, "not a struct"); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Marshal(string) error = %v, want ErrSchemaMismatch", err)
	}
	if _, err := Marshal(kind, (*measurement)(nil)); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Marshal(nil pointer) error = %v, want ErrSchemaMismatch", err)
	}
	if _, err := Marshal(kind, struct{ Only string }{"x"}); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Marshal(wrong field count) error = %v, want ErrSchemaMismatch", err)
	}
}

func TestUnmarshalRejectsBadTargets(t *testing.T) {
	kind := measurementKind()
	tuple := Tuple{"p", int32(1), uint32(2), 3.0}

	var m measurement
	if err := Unmarshal(kind, tuple, m); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Unmarshal(non-pointer) error = %v, want ErrSchemaMismatch", err)
	}
	if err := Unmarshal(kind, tuple, nil); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Unmarshal(nil) error = %v, want ErrSchemaMismatch", err)
	}
}

func TestMarshalSkipsUnexportedFields(t *testing.T) {
	kind := measurementKind()
	type tagged struct {
		Sensor string
		Delta  int32
		Seq    uint32
		Value  float64
		note   string // ignored
	}
	tuple, err := Marshal(kind, tagged{Sensor: "p", Delta: 1, Seq: 2, Value: 3, note: "x"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if len(tuple) != 4 {
		t.Errorf("Marshal() len = %d, want 4", len(tuple))
	}
}
