// ABOUTME: Tool-call audit log methods for the SQLite store
// ABOUTME: Records which tenant called which tool, whether it failed, and how long it took

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ToolCall is one audited tool invocation.
type ToolCall struct {
	ID        string
	TenantID  string
	Tool      string
	IsError   bool
	Duration  time.Duration
	CreatedAt time.Time
}

// RecordToolCall appends a tool invocation to the audit log.
func (s *SQLiteStore) RecordToolCall(ctx context.Context, tenantID, tool string, isError bool, duration time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (id, tenant_id, tool, is_error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), tenantID, tool, isError, duration.Milliseconds(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording tool call: %w", err)
	}
	return nil
}

// ListRecentToolCalls returns the tenant's most recent tool calls,
// newest first, capped at limit.
func (s *SQLiteStore) ListRecentToolCalls(ctx context.Context, tenantID string, limit int) ([]ToolCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, tool, is_error, duration_ms, created_at
		FROM tool_calls
		WHERE tenant_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing tool calls: %w", err)
	}
	defer rows.Close()

	var out []ToolCall
	for rows.Next() {
		var tc ToolCall
		var durationMS int64
		if err := rows.Scan(&tc.ID, &tc.TenantID, &tc.Tool, &tc.IsError, &durationMS, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tool call: %w", err)
		}
		tc.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, tc)
	}
	return out, rows.Err()
}
