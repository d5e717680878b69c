// Package review tracks which recommended papers the user has already
// reviewed, so repeat runs can surface only new material.
package review

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one reviewed paper.
type Record struct {
	PaperID    string    `json:"paper_id"`
	Title      string    `json:"title,omitempty"`
	Journal    string    `json:"journal,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// Store persists reviewed papers in a SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS reviewed (
  paper_id TEXT PRIMARY KEY,
  title TEXT,
  journal TEXT,
  reviewed_at TEXT NOT NULL
)`

// Open opens (creating if needed) the reviewed-papers database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Mark records a paper as reviewed. Marking an already-reviewed paper
// refreshes its metadata and timestamp.
func (s *Store) Mark(ctx context.Context, id, title, journal string) error {
	if id == "" {
		return fmt.Errorf("empty paper id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reviewed (paper_id, title, journal, reviewed_at) VALUES (?, ?, ?, ?)`,
		id, title, journal, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("marking reviewed: %w", err)
	}
	return nil
}

// IsReviewed reports whether the paper has been marked reviewed.
func (s *Store) IsReviewed(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM reviewed WHERE paper_id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking reviewed: %w", err)
	}
	return true, nil
}

// ReviewedIDs returns the set of all reviewed paper identifiers.
func (s *Store) ReviewedIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT paper_id FROM reviewed`)
	if err != nil {
		return nil, fmt.Errorf("listing reviewed: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// List returns all reviewed papers, most recently reviewed first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, title, journal, reviewed_at FROM reviewed ORDER BY reviewed_at DESC, paper_id`)
	if err != nil {
		return nil, fmt.Errorf("listing reviewed: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var reviewedAt string
		if err := rows.Scan(&r.PaperID, &r.Title, &r.Journal, &reviewedAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, reviewedAt); err == nil {
			r.ReviewedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of reviewed papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviewed`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting reviewed: %w", err)
	}
	return n, nil
}

// Clear removes every reviewed record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reviewed`); err != nil {
		return fmt.Errorf("clearing reviewed: %w", err)
	}
	return nil
}
