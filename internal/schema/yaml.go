package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// kindSpec mirrors one relation entry in a schema file.
type kindSpec struct {
	Name      string      `yaml:"name"`
	Direction string      `yaml:"direction"`
	Fields    []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type schemaFile struct {
	Relations []kindSpec `yaml:"relations"`
}

// LoadKinds reads fact kind declarations from a YAML schema file:
//
//	relations:
//	  - name: edge
//	    direction: input
//	    fields:
//	      - {name: from, type: symbol}
//	      - {name: to, type: symbol}
func LoadKinds(path string) ([]FactKind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return ParseKinds(data)
}

// ParseKinds parses fact kind declarations from YAML bytes.
func ParseKinds(data []byte) ([]FactKind, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	if len(file.Relations) == 0 {
		return nil, fmt.Errorf("schema file declares no relations")
	}

	kinds := make([]FactKind, 0, len(file.Relations))
	for _, spec := range file.Relations {
		dir, err := ParseDirection(spec.Direction)
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", spec.Name, err)
		}
		fields := make([]Field, 0, len(spec.Fields))
		for _, fs := range spec.Fields {
			ft, err := ParseFieldType(fs.Type)
			if err != nil {
				return nil, fmt.Errorf("relation %s field %s: %w", spec.Name, fs.Name, err)
			}
			fields = append(fields, Field{Name: fs.Name, Type: ft})
		}
		k := NewKind(spec.Name, dir, fields...)
		if err := k.validate(); err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
