// ABOUTME: Persists upstream warehouse API calls reported by the API client.
// ABOUTME: Bridges api.Recorder to the activity store.

package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/2389/xylen/internal/api"
	apperrors "github.com/2389/xylen/internal/errors"
	"github.com/2389/xylen/internal/store"
)

// APICallStore persists upstream calls.
type APICallStore interface {
	LogAPICall(ctx context.Context, c *store.APICall) error
}

// APIRecorder returns an api.Recorder that writes each call to s.
func APIRecorder(s APICallStore, logger *zap.Logger) api.Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(call api.Call) {
		entry := &store.APICall{
			Method:     call.Method,
			Path:       call.Path,
			Resource:   call.Resource,
			StatusCode: call.StatusCode,
			DurationMs: int(call.Duration.Milliseconds()),
			ErrorKind:  apperrors.Kind(call.Err),
		}
		if call.Err != nil {
			entry.Error = call.Err.Error()
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := s.LogAPICall(ctx, entry); err != nil {
				logger.Warn("failed to store api call", zap.Error(err))
			}
		}()
	}
}
