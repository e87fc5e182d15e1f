package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"factbridge/internal/codec"
	"factbridge/internal/schema"
)

// defaultRunTimeout bounds a single external evaluation.
const defaultRunTimeout = 5 * time.Minute

// interpEngine drives the external engine binary. Each Run writes the
// current base facts into the session's scratch directory, executes the
// binary against the rendered program, and reads the output relations
// back. The scratch directory and any in-flight process belong to this
// engine and are released by Close on every exit path.
type interpEngine struct {
	binary     string
	prog       *schema.Program
	runTimeout time.Duration

	workDir  string
	progPath string
	factDir  string
	outDir   string

	base map[string][]codec.Tuple // base facts per input relation, insertion order
	out  map[string][]codec.Tuple // output relations from the last run
	ran  bool

	procMu sync.Mutex
	proc   *os.Process
	closed bool
}

func newInterpreted(cfg Config, prog *schema.Program) (*interpEngine, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, &NotFoundError{Mode: Interpreted, Detail: fmt.Sprintf("binary %q not found in PATH", binary)}
	}

	workDir, err := os.MkdirTemp(cfg.WorkDir, "factbridge-"+prog.Name()+"-*")
	if err != nil {
		return nil, fmt.Errorf("create engine work dir: %w", err)
	}

	e := &interpEngine{
		binary:     resolved,
		prog:       prog,
		runTimeout: cfg.RunTimeout,
		workDir:    workDir,
		progPath:   filepath.Join(workDir, prog.Name()+".dl"),
		factDir:    filepath.Join(workDir, "facts"),
		outDir:     filepath.Join(workDir, "out"),
		base:       make(map[string][]codec.Tuple),
	}
	if e.runTimeout <= 0 {
		e.runTimeout = defaultRunTimeout
	}

	if err := os.WriteFile(e.progPath, []byte(InterpretedSource(prog)), 0o644); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("write program source: %w", err)
	}
	for _, dir := range []string{e.factDir, e.outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			os.RemoveAll(workDir)
			return nil, fmt.Errorf("create engine work dir: %w", err)
		}
	}
	return e, nil
}

func (e *interpEngine) Insert(ctx context.Context, kind schema.FactKind, tuples []codec.Tuple) error {
	if e.isClosed() {
		return fmt.Errorf("engine closed")
	}
	e.base[kind.Name] = append(e.base[kind.Name], tuples...)
	return nil
}

func (e *interpEngine) Run(ctx context.Context) error {
	if e.isClosed() {
		return fmt.Errorf("engine closed")
	}
	if err := e.writeFactFiles(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary,
		"-F", e.factDir,
		"-D", e.outDir,
		e.progPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start engine process: %w", err)
	}
	e.setProc(cmd.Process)
	err := cmd.Wait()
	e.setProc(nil)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("engine run aborted: %w", ctx.Err())
		}
		return fmt.Errorf("engine run failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	out, err := e.readOutputs(ctx)
	if err != nil {
		return err
	}
	e.out = out
	e.ran = true
	return nil
}

func (e *interpEngine) Scan(ctx context.Context, kind schema.FactKind, fn func(codec.Tuple) error) error {
	if e.isClosed() {
		return fmt.Errorf("engine closed")
	}
	for _, t := range e.relation(kind) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// Contains is a snapshot scan; the external engine exposes no point
// lookups between runs.
func (e *interpEngine) Contains(ctx context.Context, kind schema.FactKind, tuple codec.Tuple) (bool, error) {
	if e.isClosed() {
		return false, fmt.Errorf("engine closed")
	}
	for _, t := range e.relation(kind) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if t.Equal(tuple) {
			return true, nil
		}
	}
	return false, nil
}

// Close kills any in-flight engine process and removes the scratch
// directory. Safe to call more than once.
func (e *interpEngine) Close(ctx context.Context) error {
	e.procMu.Lock()
	if e.closed {
		e.procMu.Unlock()
		return nil
	}
	e.closed = true
	proc := e.proc
	e.proc = nil
	e.procMu.Unlock()

	if proc != nil {
		_ = proc.Kill()
	}
	if err := os.RemoveAll(e.workDir); err != nil {
		return fmt.Errorf("remove engine work dir: %w", err)
	}
	return nil
}

func (e *interpEngine) relation(kind schema.FactKind) []codec.Tuple {
	if kind.Dir == schema.Input {
		return e.base[kind.Name]
	}
	if !e.ran {
		return nil
	}
	return e.out[kind.Name]
}

func (e *interpEngine) setProc(p *os.Process) {
	e.procMu.Lock()
	e.proc = p
	e.procMu.Unlock()
}

func (e *interpEngine) isClosed() bool {
	e.procMu.Lock()
	defer e.procMu.Unlock()
	return e.closed
}

// writeFactFiles materializes the current base facts for every relation
// that accepts input, one fact file per relation.
func (e *interpEngine) writeFactFiles() error {
	for _, kind := range e.prog.Kinds() {
		if !kind.AcceptsFacts() {
			continue
		}
		path := filepath.Join(e.factDir, kind.Name+".facts")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("write fact file %s: %w", path, err)
		}
		if err := codec.WriteFacts(f, kind, e.base[kind.Name]); err != nil {
			f.Close()
			return fmt.Errorf("write fact file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write fact file %s: %w", path, err)
		}
	}
	return nil
}

// readOutputs parses every readable relation from the engine's output
// directory, one reader per relation.
func (e *interpEngine) readOutputs(ctx context.Context) (map[string][]codec.Tuple, error) {
	kinds := e.prog.Kinds()
	results := make([][]codec.Tuple, len(kinds))

	g, _ := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		if !kind.Readable() {
			continue
		}
		g.Go(func() error {
			path := filepath.Join(e.outDir, kind.Name+".csv")
			f, err := os.Open(path)
			if err != nil {
				if os.IsNotExist(err) {
					// The engine omits files for relations it never wrote.
					return nil
				}
				return fmt.Errorf("read output %s: %w", path, err)
			}
			defer f.Close()
			tuples, err := codec.ReadFacts(f, kind)
			if err != nil {
				return fmt.Errorf("read output %s: %w", path, err)
			}
			results[i] = tuples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]codec.Tuple, len(kinds))
	for i, kind := range kinds {
		if kind.Readable() {
			out[kind.Name] = results[i]
		}
	}
	return out, nil
}

// InterpretedSource renders the program for the external engine: generated
// relation declarations and I/O directives, then the opaque rules.
func InterpretedSource(prog *schema.Program) string {
	var b strings.Builder
	for _, k := range prog.Kinds() {
		b.WriteString(".decl ")
		b.WriteString(k.Name)
		b.WriteByte('(')
		for i, f := range k.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s:%s", k.FieldName(i), souffleType(f.Type))
		}
		b.WriteString(")\n")
		if k.AcceptsFacts() {
			fmt.Fprintf(&b, ".input %s\n", k.Name)
		}
		if k.Readable() {
			fmt.Fprintf(&b, ".output %s\n", k.Name)
		}
	}
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(prog.Rules()))
	b.WriteByte('\n')
	return b.String()
}

func souffleType(ft schema.FieldType) string {
	switch ft {
	case schema.Symbol:
		return "symbol"
	case schema.Number:
		return "number"
	case schema.Unsigned:
		return "unsigned"
	case schema.Float:
		return "float"
	default:
		return "symbol"
	}
}
