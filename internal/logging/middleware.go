// ABOUTME: HTTP request logging middleware.
// ABOUTME: Captures method, path, status, duration and session user, and stores them in the database.

package logging

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/2389/xylen/internal/session"
	"github.com/2389/xylen/internal/store"
)

// RequestStore persists dashboard requests.
type RequestStore interface {
	LogRequest(ctx context.Context, log *store.RequestLog) error
}

const writeTimeout = 5 * time.Second

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware logs dashboard requests to the store. Bodies are not captured:
// sign-in and form submissions carry passwords.
func Middleware(s RequestStore, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			sess := session.FromContext(r.Context())

			entry := &store.RequestLog{
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: wrapped.statusCode,
				DurationMs: int(duration.Milliseconds()),
				Username:   sess.Username,
				Role:       string(sess.Role),
				IPAddress:  clientIP(r),
				UserAgent:  r.Header.Get("User-Agent"),
			}

			logger.Debug("request",
				zap.String("method", entry.Method),
				zap.String("path", entry.Path),
				zap.Int("status", entry.StatusCode),
				zap.Duration("duration", duration),
				zap.String("user", entry.Username))

			// Fire and forget; the request context ends with the response.
			ctx := context.WithoutCancel(r.Context())
			go func() {
				ctx, cancel := context.WithTimeout(ctx, writeTimeout)
				defer cancel()
				if err := s.LogRequest(ctx, entry); err != nil {
					logger.Warn("failed to store request log", zap.Error(err))
				}
			}()
		})
	}
}

// skipPath excludes health checks and static assets from the request log.
func skipPath(path string) bool {
	return path == "/healthz" || path == "/favicon.ico" || strings.HasPrefix(path, "/static/")
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return r.RemoteAddr
}
