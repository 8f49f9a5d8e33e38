// Package sqlite persists job rows into a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS job_data (
	pk_id        INTEGER PRIMARY KEY,
	job_id       TEXT NOT NULL,
	app_name     TEXT NOT NULL,
	state        TEXT NOT NULL,
	date_created TEXT NOT NULL
)`

const insertSQL = `
INSERT INTO job_data (pk_id, job_id, app_name, state, date_created)
VALUES (?, ?, ?, ?, ?)`

// Sink owns the single SQLite connection for the process. Every statement runs inside
// one critical section; the driver is not relied on for writer concurrency.
type Sink struct {
	mu sync.Mutex
	db *sql.DB
}

// Open connects to the database file at path and verifies it is usable.
func Open(ctx context.Context, path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", jobdata.ErrStoreUnavailable)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", jobdata.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %w", jobdata.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: configure sqlite: %w", jobdata.ErrStoreUnavailable, err)
	}
	return &Sink{db: db}, nil
}

// InitSchema creates job_data if it does not exist yet.
func (s *Sink) InitSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create job_data: %w", err)
	}
	return nil
}

// Insert writes one row and commits it before returning.
func (s *Sink) Insert(ctx context.Context, row jobdata.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, insertSQL,
		row.PKID,
		row.JobID,
		row.AppName,
		row.State,
		row.DateCreated,
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return fmt.Errorf("insert pk_id %d: %w: %w", row.PKID, jobdata.ErrDuplicateKey, err)
		}
		return fmt.Errorf("insert pk_id %d: %w", row.PKID, err)
	}
	return nil
}

// Rows returns every stored row ordered by primary key.
func (s *Sink) Rows(ctx context.Context) ([]jobdata.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT pk_id, job_id, app_name, state, date_created FROM job_data ORDER BY pk_id`)
	if err != nil {
		return nil, fmt.Errorf("select job_data: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below

	var out []jobdata.Row
	for rows.Next() {
		var r jobdata.Row
		if err := rows.Scan(&r.PKID, &r.JobID, &r.AppName, &r.State, &r.DateCreated); err != nil {
			return nil, fmt.Errorf("scan job_data: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job_data: %w", err)
	}
	return out, nil
}

// Close releases the connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

func isPrimaryKeyViolation(err error) bool {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	return sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
