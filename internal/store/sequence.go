package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequence issues the numbers that order saved paths and logged adjustments
// against each other. Paths and adjustments sit in separate tables, so their
// row IDs are not comparable; a path's sequence tells which adjustments came
// after it.
type sequence struct {
	mu sync.Mutex
	db *sql.DB
}

// Next returns the next number, starting at 1.
func (s *sequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	row := s.db.QueryRowContext(ctx, `UPDATE kpath_sequence SET value = value + 1 WHERE id = 1 RETURNING value`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
