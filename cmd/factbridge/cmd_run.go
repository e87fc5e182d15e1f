package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"factbridge/internal/codec"
	"factbridge/internal/engine"
	"factbridge/internal/schema"
	"factbridge/internal/session"
	"factbridge/internal/store"
)

var (
	runSchemaPath string
	runFactsDir   string
	runQuery      []string
	runMode       string
	runName       string
	runSave       bool
	runWatch      bool
)

// runCmd evaluates a program against fact files and prints relations.
var runCmd = &cobra.Command{
	Use:   "run <program.dl>",
	Short: "Evaluate a Datalog program and print output relations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srcPath := args[0]

		prog, err := loadProgram(srcPath, runSchemaPath, runName)
		if err != nil {
			return err
		}

		if !runWatch {
			return runOnce(cmd.Context(), prog)
		}

		// Watch mode: rerun on every saved change to the source file.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rerun := make(chan struct{}, 1)
		watcher, err := engine.NewSourceWatcher(srcPath, func(string) {
			select {
			case rerun <- struct{}{}:
			default:
			}
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()

		if err := runOnce(ctx, prog); err != nil {
			logger.Warn("run failed, watching for changes", zap.Error(err))
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-rerun:
				prog, err := loadProgram(srcPath, runSchemaPath, runName)
				if err != nil {
					logger.Warn("program reload failed", zap.Error(err))
					continue
				}
				if err := runOnce(ctx, prog); err != nil {
					logger.Warn("run failed, watching for changes", zap.Error(err))
				}
			}
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "", "relation schema file (required)")
	runCmd.Flags().StringVar(&runFactsDir, "facts", "", "directory of <relation>.facts input files")
	runCmd.Flags().StringSliceVar(&runQuery, "query", nil, "relations to print after the run (default: all output relations)")
	runCmd.Flags().StringVar(&runMode, "mode", "", "execution mode: interpreted or compiled (default: config)")
	runCmd.Flags().StringVar(&runName, "name", "", "program name (default: source file base name)")
	runCmd.Flags().BoolVar(&runSave, "save", false, "persist input facts to the configured store")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "rerun when the program source changes")
	_ = runCmd.MarkFlagRequired("schema")
}

// loadProgram declares a program from a source file and schema file.
func loadProgram(srcPath, schemaPath, name string) (*schema.Program, error) {
	kinds, err := schema.LoadKinds(schemaPath)
	if err != nil {
		return nil, err
	}
	rules, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("read program source: %w", err)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	}
	return schema.Declare(name, string(rules), kinds)
}

// runOnce drives one full session lifecycle: init, load facts, run,
// print, shutdown.
func runOnce(ctx context.Context, prog *schema.Program) error {
	modeName := runMode
	if modeName == "" {
		modeName = cfg.Engine.Mode
	}
	mode, err := engine.ParseMode(modeName)
	if err != nil {
		return err
	}

	opts := session.Options{
		Mode:             mode,
		EngineBinary:     cfg.Engine.Binary,
		WorkDir:          cfg.Engine.WorkDir,
		RunTimeout:       cfg.Engine.Timeout(),
		DerivedFactLimit: cfg.Engine.DerivedFactLimit,
		Logger:           logger,
	}
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Store = st
	}

	sess, err := session.New(ctx, prog, opts)
	if err != nil {
		return err
	}
	defer sess.Shutdown(context.WithoutCancel(ctx))

	if runFactsDir != "" {
		if err := loadFactFiles(ctx, sess, prog); err != nil {
			return err
		}
	}
	if err := sess.Run(ctx); err != nil {
		return err
	}
	if runSave && opts.Store != nil {
		if err := sess.SaveFacts(ctx); err != nil {
			return err
		}
	}

	queries := runQuery
	if len(queries) == 0 {
		for _, k := range prog.Kinds() {
			if k.Readable() {
				queries = append(queries, k.Name)
			}
		}
	}
	for _, rel := range queries {
		kind, err := prog.Check(rel)
		if err != nil {
			return err
		}
		snap, err := sess.GetFacts(ctx, rel)
		if err != nil {
			return err
		}
		fmt.Printf("--- %s (%d)\n", rel, snap.Len())
		if err := codec.WriteFacts(os.Stdout, kind, snap.Tuples); err != nil {
			return err
		}
	}
	return nil
}

// loadFactFiles feeds every <relation>.facts file in the facts directory
// into the session.
func loadFactFiles(ctx context.Context, sess *session.Session, prog *schema.Program) error {
	var facts []codec.Fact
	for _, kind := range prog.Kinds() {
		if !kind.AcceptsFacts() {
			continue
		}
		path := filepath.Join(runFactsDir, kind.Name+".facts")
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("open fact file %s: %w", path, err)
		}
		tuples, err := codec.ReadFacts(f, kind)
		f.Close()
		if err != nil {
			return fmt.Errorf("load fact file %s: %w", path, err)
		}
		for _, t := range tuples {
			facts = append(facts, codec.Fact{Kind: kind.Name, Values: t})
		}
	}
	return sess.AddFacts(ctx, facts)
}
