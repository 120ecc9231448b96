// ABOUTME: Activation journal methods for the SQLite store
// ABOUTME: Replayed at startup so activations survive restarts

package store

import (
	"context"
	"fmt"
	"time"
)

// Activation is one journaled tenant-category activation.
type Activation struct {
	TenantID  string
	Category  string
	CreatedAt time.Time
}

// SaveActivation journals an activation. Saving the same pair twice is a
// no-op, matching idempotent activation semantics.
func (s *SQLiteStore) SaveActivation(ctx context.Context, tenantID, category string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO activations (tenant_id, category, created_at)
		VALUES (?, ?, ?)
	`, tenantID, category, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving activation: %w", err)
	}
	return nil
}

// ListActivations returns every journaled activation, oldest first.
func (s *SQLiteStore) ListActivations(ctx context.Context) ([]Activation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, category, created_at
		FROM activations
		ORDER BY created_at ASC, tenant_id ASC, category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing activations: %w", err)
	}
	defer rows.Close()

	var out []Activation
	for rows.Next() {
		var a Activation
		if err := rows.Scan(&a.TenantID, &a.Category, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
