// ABOUTME: Unit tests for the failure taxonomy and error response helpers
// ABOUTME: Validates classification, wrapping, status mapping and JSON output

package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
		network  bool
		auth     bool
		invalid  bool
	}{
		{"network", Network(io.ErrUnexpectedEOF, "GET /products"), "network", true, false, false},
		{"auth", Auth("no session token"), "auth", false, true, false},
		{"validation", Validation("unknown resource %q", "widgets"), "validation", false, false, true},
		{"plain", fmt.Errorf("boom"), "unknown", false, false, false},
		{"nil", nil, "", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, Kind(tt.err))
			assert.Equal(t, tt.network, IsNetwork(tt.err))
			assert.Equal(t, tt.auth, IsAuth(tt.err))
			assert.Equal(t, tt.invalid, IsValidation(tt.err))
		})
	}
}

func TestClassification_SurvivesWrapping(t *testing.T) {
	base := Auth("token rejected")
	wrapped := cerrors.Wrap(base, "deleting product 4")
	assert.True(t, IsAuth(wrapped))

	stdWrapped := fmt.Errorf("submit: %w", Validation("bad payload"))
	assert.True(t, IsValidation(stdWrapped))
}

func TestNetwork_KeepsCause(t *testing.T) {
	err := Network(io.ErrUnexpectedEOF, "GET /products")
	assert.True(t, cerrors.Is(err, io.ErrUnexpectedEOF))
	assert.Contains(t, Message(err), "GET /products")
	assert.Equal(t, "", Message(nil))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{Auth("x"), http.StatusUnauthorized, ErrUnauthorized},
		{Validation("x"), http.StatusUnprocessableEntity, ErrValidationFailed},
		{Network(io.EOF, "x"), http.StatusBadGateway, ErrServiceUnavailable},
		{fmt.Errorf("x"), http.StatusInternalServerError, ErrInternal},
	}

	for _, tt := range tests {
		status, code := StatusFor(tt.err)
		assert.Equal(t, tt.wantStatus, status)
		assert.Equal(t, tt.wantCode, code)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, ErrNotFound, "View not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, ErrNotFound, resp.Code)
	assert.Equal(t, "View not found", resp.Message)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Empty(t, resp.Field)
	assert.Empty(t, resp.Details)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorWithDetails(w, http.StatusServiceUnavailable, ErrServiceUnavailable, "Warehouse API unavailable", "dial tcp: connection refused")

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "dial tcp: connection refused", resp.Details)
}

func TestWriteFailure(t *testing.T) {
	w := httptest.NewRecorder()
	WriteFailure(w, Auth("session expired"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, ErrUnauthorized, resp.Code)
	assert.Equal(t, "session expired", resp.Message)
}
