// Package memory provides an in-process Sink for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

// Sink keeps rows in a map keyed by primary key.
type Sink struct {
	mu     sync.RWMutex
	schema bool
	rows   map[int64]jobdata.Row
	closed bool
}

// NewSink constructs an empty Sink.
func NewSink() *Sink {
	return &Sink{rows: make(map[int64]jobdata.Row)}
}

// InitSchema marks the table as present.
func (s *Sink) InitSchema(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory sink: closed")
	}
	s.schema = true
	return nil
}

// Insert stores a row, rejecting duplicate keys like a real table would.
func (s *Sink) Insert(_ context.Context, row jobdata.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return fmt.Errorf("memory sink: closed")
	case !s.schema:
		return fmt.Errorf("memory sink: no such table: %s", jobdata.TableName)
	}
	if _, exists := s.rows[row.PKID]; exists {
		return fmt.Errorf("insert pk_id %d: %w", row.PKID, jobdata.ErrDuplicateKey)
	}
	s.rows[row.PKID] = row
	return nil
}

// Rows returns a copy of every stored row ordered by primary key.
func (s *Sink) Rows() []jobdata.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]jobdata.Row, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b jobdata.Row) int {
		switch {
		case a.PKID < b.PKID:
			return -1
		case a.PKID > b.PKID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Close rejects further writes.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
