// ABOUTME: Dashboard request log storage operations.
// ABOUTME: Handles inserting and querying logged dashboard requests.

package store

import (
	"context"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// RequestLog represents one dashboard request. Bodies are never stored since
// sign-in and sign-up forms carry passwords.
type RequestLog struct {
	ID         int64
	Timestamp  time.Time
	Method     string
	Path       string
	StatusCode int
	DurationMs int
	Username   string
	Role       string
	IPAddress  string
	UserAgent  string
	Error      string
}

// LogRequest inserts a request log entry
func (s *Store) LogRequest(ctx context.Context, log *RequestLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO request_logs (method, path, status_code, duration_ms, username, role, ip_address, user_agent, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.Method, log.Path, log.StatusCode, log.DurationMs, log.Username, log.Role, log.IPAddress, log.UserAgent, log.Error)
	return err
}

// RequestLogQuery represents filters for request logs
type RequestLogQuery struct {
	Limit      int
	Offset     int
	Method     string
	PathPrefix string
	StatusCode int
	Username   string
}

// RequestLogStats represents aggregate statistics
type RequestLogStats struct {
	TotalRequests   int
	TodayRequests   int
	ErrorRequests   int
	AvgDurationMs   int
	UniqueEndpoints int
	UniqueUsers     int
	UpstreamCalls   int
	UpstreamErrors  int
}

// GetRequestLogs retrieves request logs with filtering, newest first
func (s *Store) GetRequestLogs(ctx context.Context, q *RequestLogQuery) ([]*RequestLog, error) {
	query := `SELECT id, timestamp, method, path, status_code, duration_ms,
	          COALESCE(username, ''), COALESCE(role, ''), COALESCE(ip_address, ''),
	          COALESCE(user_agent, ''), COALESCE(error, '')
	          FROM request_logs WHERE 1=1`
	args := []any{}

	if q.Method != "" {
		query += " AND method = ?"
		args = append(args, q.Method)
	}
	if q.PathPrefix != "" {
		query += ` AND path LIKE ? ESCAPE '\'`
		args = append(args, prefixPattern(q.PathPrefix))
	}
	if q.StatusCode > 0 {
		query += " AND status_code = ?"
		args = append(args, q.StatusCode)
	}
	if q.Username != "" {
		query += " AND username = ?"
		args = append(args, q.Username)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		log := &RequestLog{}
		var timestamp string
		if err := rows.Scan(&log.ID, &timestamp, &log.Method, &log.Path, &log.StatusCode,
			&log.DurationMs, &log.Username, &log.Role, &log.IPAddress, &log.UserAgent, &log.Error); err != nil {
			return nil, err
		}
		log.Timestamp = parseTimestamp(timestamp)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// GetRequestLogStats returns aggregate statistics over both logs
func (s *Store) GetRequestLogStats(ctx context.Context) (*RequestLogStats, error) {
	stats := &RequestLogStats{}
	today := time.Now().UTC().Format("2006-01-02")

	queries := []struct {
		sql  string
		args []any
		dest *int
	}{
		{"SELECT COUNT(*) FROM request_logs", nil, &stats.TotalRequests},
		{"SELECT COUNT(*) FROM request_logs WHERE date(timestamp) = ?", []any{today}, &stats.TodayRequests},
		{"SELECT COUNT(*) FROM request_logs WHERE status_code >= 400", nil, &stats.ErrorRequests},
		{"SELECT CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER) FROM request_logs", nil, &stats.AvgDurationMs},
		{"SELECT COUNT(DISTINCT path) FROM request_logs", nil, &stats.UniqueEndpoints},
		{"SELECT COUNT(DISTINCT username) FROM request_logs WHERE username != ''", nil, &stats.UniqueUsers},
		{"SELECT COUNT(*) FROM api_calls", nil, &stats.UpstreamCalls},
		{"SELECT COUNT(*) FROM api_calls WHERE error_kind != ''", nil, &stats.UpstreamErrors},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql, q.args...).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// EndpointCount is one row of GetTopEndpoints.
type EndpointCount struct {
	Path  string
	Count int
	AvgMs int
}

// GetTopEndpoints returns the most frequently requested dashboard paths
func (s *Store) GetTopEndpoints(ctx context.Context, limit int) ([]EndpointCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, COUNT(*) as count, AVG(duration_ms) as avg_ms
		FROM request_logs
		GROUP BY path
		ORDER BY count DESC, path
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []EndpointCount
	for rows.Next() {
		var e EndpointCount
		var avgMs float64
		if err := rows.Scan(&e.Path, &e.Count, &avgMs); err != nil {
			return nil, err
		}
		e.AvgMs = int(avgMs)
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
