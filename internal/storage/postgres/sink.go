// Package postgres persists job rows into PostgreSQL over one dedicated connection.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS job_data (
	pk_id        BIGINT PRIMARY KEY,
	job_id       TEXT NOT NULL,
	app_name     TEXT NOT NULL,
	state        TEXT NOT NULL,
	date_created TEXT NOT NULL
)`

const insertSQL = `
INSERT INTO job_data (pk_id, job_id, app_name, state, date_created)
VALUES ($1, $2, $3, $4, $5)`

// execCloser is the subset of *pgx.Conn the sink needs; pgxmock satisfies it in tests.
type execCloser interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
}

// Sink writes rows through a single pgx connection. A pgx.Conn is not safe for
// concurrent use, so every call holds mu for its full duration.
type Sink struct {
	mu   sync.Mutex
	conn execCloser
}

// Connect dials dsn and returns a ready Sink.
func Connect(ctx context.Context, dsn string) (*Sink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: store.dsn is required", jobdata.ErrStoreUnavailable)
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse postgres dsn: %w", jobdata.ErrStoreUnavailable, err)
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", jobdata.ErrStoreUnavailable, err)
	}
	return &Sink{conn: conn}, nil
}

// NewWithConn constructs a sink from an existing connection (primarily for testing).
func NewWithConn(conn execCloser) (*Sink, error) {
	if conn == nil {
		return nil, errors.New("conn is required")
	}
	return &Sink{conn: conn}, nil
}

// InitSchema creates job_data if it does not exist yet.
func (s *Sink) InitSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create job_data: %w", err)
	}
	return nil
}

// Insert writes one row. Outside an explicit transaction each statement commits on its own.
func (s *Sink) Insert(ctx context.Context, row jobdata.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(ctx, insertSQL,
		row.PKID,
		row.JobID,
		row.AppName,
		row.State,
		row.DateCreated,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("insert pk_id %d: %w: %w", row.PKID, jobdata.ErrDuplicateKey, err)
		}
		return fmt.Errorf("insert pk_id %d: %w", row.PKID, err)
	}
	return nil
}

// Close terminates the connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Close(context.Background()); err != nil {
		return fmt.Errorf("close postgres connection: %w", err)
	}
	return nil
}
