// Package store persists base facts between sessions. Facts are keyed by
// (program, relation) and stored in the same text form the engine's fact
// files use, so loading goes back through field-typed parsing.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"factbridge/internal/codec"
	"factbridge/internal/schema"
)

const factsTable = `
CREATE TABLE IF NOT EXISTS facts (
	program  TEXT    NOT NULL,
	relation TEXT    NOT NULL,
	seq      INTEGER NOT NULL,
	payload  TEXT    NOT NULL,
	PRIMARY KEY (program, relation, seq)
);`

// Store is a SQLite-backed fact store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open fact store: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure fact store: %w", err)
	}
	if _, err := db.Exec(factsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate fact store: %w", err)
	}
	return &Store{db: db}, nil
}

// ReplaceFacts replaces all persisted facts for one relation of a program
// in a single transaction, preserving tuple order.
func (s *Store) ReplaceFacts(ctx context.Context, program string, kind schema.FactKind, tuples []codec.Tuple) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace facts: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM facts WHERE program = ? AND relation = ?`, program, kind.Name); err != nil {
		return fmt.Errorf("replace facts: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO facts (program, relation, seq, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("replace facts: %w", err)
	}
	defer stmt.Close()

	for i, t := range tuples {
		line, err := codec.FormatLine(kind, t)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, program, kind.Name, i, line); err != nil {
			return fmt.Errorf("replace facts: %w", err)
		}
	}
	return tx.Commit()
}

// LoadFacts returns the persisted facts for one relation in stored order.
func (s *Store) LoadFacts(ctx context.Context, program string, kind schema.FactKind) ([]codec.Tuple, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM facts WHERE program = ? AND relation = ? ORDER BY seq`,
		program, kind.Name)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	defer rows.Close()

	var out []codec.Tuple
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("load facts: %w", err)
		}
		t, err := codec.ParseLine(kind, payload)
		if err != nil {
			return nil, fmt.Errorf("load facts for %s: %w", kind.Name, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	return out, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
