// Package memory provides an in-process sheets.Exporter, used when no
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"sync"

	"shiori/internal/projection"
	"shiori/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	rows    [][]any
	exports int
}

var _ sheets.Exporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// ExportItinerary replaces the stored rows.
func (s *Store) ExportItinerary(_ context.Context, view projection.View) error {
	rows := sheets.Rows(view)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.exports++
	return nil
}

// Rows returns a copy of the last export.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Exports counts calls to ExportItinerary.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
