package engine

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"

	"factbridge/internal/schema"
)

// Artifact is a compiled program: parsed, analyzed and indexed once, then
// shared by any number of compiled-mode sessions. Rebuilding is only
// needed when the ruleset changes.
type Artifact struct {
	info  *analysis.ProgramInfo
	preds map[string]ast.PredicateSym
}

// Compile builds the in-process artifact for a program. The relation
// declarations are generated from the program's fact kinds; the rule text
// is appended verbatim.
func Compile(prog *schema.Program) (*Artifact, error) {
	src := CompiledSource(prog)

	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("compile program %s: parse: %w", prog.Name(), err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("compile program %s: analyze: %w", prog.Name(), err)
	}

	preds := make(map[string]ast.PredicateSym, len(info.Decls))
	for sym := range info.Decls {
		preds[sym.Symbol] = sym
	}
	// Head predicates of rules without explicit decls are still addressable.
	for _, clause := range info.Rules {
		sym := clause.Head.Predicate
		if _, ok := preds[sym.Symbol]; !ok {
			preds[sym.Symbol] = sym
		}
	}

	return &Artifact{info: info, preds: preds}, nil
}

// Predicate resolves the engine predicate symbol for a fact kind.
func (a *Artifact) Predicate(kind schema.FactKind) (ast.PredicateSym, error) {
	sym, ok := a.preds[kind.Name]
	if !ok {
		return ast.PredicateSym{}, fmt.Errorf("relation %s missing from compiled program", kind.Name)
	}
	if sym.Arity != kind.Arity() {
		return ast.PredicateSym{}, fmt.Errorf("relation %s: compiled arity %d, declared arity %d", kind.Name, sym.Arity, kind.Arity())
	}
	return sym, nil
}

// CompiledSource renders the full program text for the in-process engine:
// one generated declaration per fact kind, followed by the opaque rules.
func CompiledSource(prog *schema.Program) string {
	var b strings.Builder
	for _, k := range prog.Kinds() {
		b.WriteString("Decl ")
		b.WriteString(k.Name)
		b.WriteByte('(')
		for i := range k.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "X%d", i)
		}
		b.WriteString(").\n")
	}
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(prog.Rules()))
	b.WriteByte('\n')
	return b.String()
}
