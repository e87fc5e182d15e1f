package schema

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSchema = `
relations:
  - name: edge
    direction: input
    fields:
      - {name: from, type: symbol}
      - {name: to, type: symbol}
  - name: hop_count
    direction: output
    fields:
      - {name: node, type: symbol}
      - {name: n, type: number}
`

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("ParseKinds() error = %v", err)
	}
	if len(kinds) != 2 {
		t.Fatalf("ParseKinds() returned %d kinds, want 2", len(kinds))
	}
	if kinds[0].Name != "edge" || kinds[0].Dir != Input || kinds[0].Arity() != 2 {
		t.Errorf("edge kind = %+v", kinds[0])
	}
	if kinds[1].Fields[1].Type != Number {
		t.Errorf("hop_count field 1 type = %v, want Number", kinds[1].Fields[1].Type)
	}
}

func TestParseKindsRejectsBadSchema(t *testing.T) {
	for name, in := range map[string]string{
		"not yaml":       "relations: [",
		"no relations":   "relations: []",
		"bad direction":  "relations:\n  - {name: r, direction: up, fields: [{type: symbol}]}",
		"bad field type": "relations:\n  - {name: r, direction: input, fields: [{type: blob}]}",
		"bad name":       "relations:\n  - {name: 9r, direction: input, fields: [{type: symbol}]}",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseKinds([]byte(in)); err == nil {
				t.Error("ParseKinds() succeeded, want error")
			}
		})
	}
}

func TestLoadKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(sampleSchema), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	kinds, err := LoadKinds(path)
	if err != nil {
		t.Fatalf("LoadKinds() error = %v", err)
	}
	if len(kinds) != 2 {
		t.Errorf("LoadKinds() returned %d kinds, want 2", len(kinds))
	}

	if _, err := LoadKinds(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadKinds(missing) succeeded, want error")
	}
}
