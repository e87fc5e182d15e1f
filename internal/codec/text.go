package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"factbridge/internal/schema"
)

// The text codec speaks the engine's fact-file format: one tuple per line,
// fields separated by tabs. The same format backs the persisted fact store
// so loaded facts re-enter the bridge through field-typed parsing instead
// of a lossy generic decode.

// FormatLine renders one tuple as a tab-separated line (without trailing
// newline). Symbol values may not contain tabs or line breaks; the format
// has no escaping, so such values are rejected rather than corrupted.
func FormatLine(kind schema.FactKind, t Tuple) (string, error) {
	normalized, err := Encode(kind, []any(t)...)
	if err != nil {
		return "", err
	}
	cols := make([]string, len(normalized))
	for i, v := range normalized {
		switch x := v.(type) {
		case string:
			if strings.ContainsAny(x, "\t\n\r") {
				return "", &SchemaMismatchError{
					Kind:   kind.Name,
					Field:  i,
					Reason: "symbol value contains tab or line break, unrepresentable in fact file",
				}
			}
			cols[i] = x
		case int32:
			cols[i] = strconv.FormatInt(int64(x), 10)
		case uint32:
			cols[i] = strconv.FormatUint(uint64(x), 10)
		case float64:
			cols[i] = strconv.FormatFloat(x, 'g', -1, 64)
		default:
			return "", &SchemaMismatchError{Kind: kind.Name, Field: i, Reason: fmt.Sprintf("unexpected value type %T", v)}
		}
	}
	return strings.Join(cols, "\t"), nil
}

// ParseLine parses one tab-separated line into a validated tuple.
func ParseLine(kind schema.FactKind, line string) (Tuple, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != kind.Arity() {
		return nil, &SchemaMismatchError{
			Kind:   kind.Name,
			Field:  -1,
			Reason: fmt.Sprintf("want %d columns, got %d", kind.Arity(), len(cols)),
		}
	}
	values := make([]any, len(cols))
	for i, col := range cols {
		switch kind.Fields[i].Type {
		case schema.Symbol:
			values[i] = col
		case schema.Number:
			n, err := strconv.ParseInt(col, 10, 32)
			if err != nil {
				return nil, &SchemaMismatchError{Kind: kind.Name, Field: i, Reason: fmt.Sprintf("bad number %q", col)}
			}
			values[i] = int32(n)
		case schema.Unsigned:
			n, err := strconv.ParseUint(col, 10, 32)
			if err != nil {
				return nil, &SchemaMismatchError{Kind: kind.Name, Field: i, Reason: fmt.Sprintf("bad unsigned %q", col)}
			}
			values[i] = uint32(n)
		case schema.Float:
			f, err := strconv.ParseFloat(col, 64)
			if err != nil {
				return nil, &SchemaMismatchError{Kind: kind.Name, Field: i, Reason: fmt.Sprintf("bad float %q", col)}
			}
			values[i] = f
		}
	}
	return Tuple(values), nil
}

// WriteFacts writes tuples to w in fact-file form, order-preserving.
func WriteFacts(w io.Writer, kind schema.FactKind, tuples []Tuple) error {
	bw := bufio.NewWriter(w)
	for _, t := range tuples {
		line, err := FormatLine(kind, t)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFacts parses an entire fact file. Blank lines are skipped.
func ReadFacts(r io.Reader, kind schema.FactKind) ([]Tuple, error) {
	var out []Tuple
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		t, err := ParseLine(kind, line)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fact file: %w", err)
	}
	return out, nil
}
