// ABOUTME: Upstream warehouse API call log.
// ABOUTME: Records every call the dashboard makes so admins can audit failures.

package store

import (
	"context"
	"time"
)

// APICall is one recorded call to the warehouse API.
type APICall struct {
	ID         int64
	Timestamp  time.Time
	Method     string
	Path       string
	Resource   string
	StatusCode int
	DurationMs int
	ErrorKind  string // auth, validation, network or empty
	Error      string
}

// LogAPICall inserts an upstream call record.
func (s *Store) LogAPICall(ctx context.Context, c *APICall) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_calls (method, path, resource, status_code, duration_ms, error_kind, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.Method, c.Path, c.Resource, c.StatusCode, c.DurationMs, c.ErrorKind, c.Error)
	return err
}

// RecentAPICalls returns the newest calls, optionally for one resource.
func (s *Store) RecentAPICalls(ctx context.Context, res string, limit int) ([]*APICall, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, timestamp, method, path, resource, COALESCE(status_code, 0), COALESCE(duration_ms, 0),
	          COALESCE(error_kind, ''), COALESCE(error, '')
	          FROM api_calls`
	args := []any{}
	if res != "" {
		query += " WHERE resource = ?"
		args = append(args, res)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []*APICall
	for rows.Next() {
		c := &APICall{}
		var timestamp string
		if err := rows.Scan(&c.ID, &timestamp, &c.Method, &c.Path, &c.Resource, &c.StatusCode,
			&c.DurationMs, &c.ErrorKind, &c.Error); err != nil {
			return nil, err
		}
		c.Timestamp = parseTimestamp(timestamp)
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
