// ABOUTME: Tests for session cookie encoding and session middleware.
// ABOUTME: Verifies signing, tamper rejection, expiry and role gating.

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/2389/xylen/internal/resource"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testSecret, time.Hour, false)
	require.NoError(t, err)
	return c
}

func TestNewCodec_RejectsShortSecret(t *testing.T) {
	_, err := NewCodec("short", time.Hour, false)
	assert.Error(t, err)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	s := New("root", "upstream-token", resource.RoleAdmin)
	require.NotEmpty(t, s.ID)

	raw, err := c.Encode(s)
	require.NoError(t, err)

	got, err := c.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.True(t, got.Authenticated())
}

func TestDecode_RejectsTamperedAndForeignTokens(t *testing.T) {
	c := newTestCodec(t)
	raw, err := c.Encode(New("kim", "tok", resource.RoleStaff))
	require.NoError(t, err)

	_, err = c.Decode(raw + "x")
	assert.Error(t, err)

	other, err := NewCodec("another-secret-another-secret", time.Hour, false)
	require.NoError(t, err)
	_, err = other.Decode(raw)
	assert.Error(t, err)

	_, err = c.Decode("not-a-jwt")
	assert.Error(t, err)
}

func TestDecode_RejectsExpired(t *testing.T) {
	c := newTestCodec(t)
	c.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := c.Encode(New("kim", "tok", resource.RoleStaff))
	require.NoError(t, err)

	c.now = time.Now
	_, err = c.Decode(raw)
	assert.Error(t, err)
}

func TestMiddleware_AttachesSession(t *testing.T) {
	tests := []struct {
		name      string
		cookie    func(c *Codec) string
		wantRole  resource.Role
		wantToken string
		cleared   bool
	}{
		{
			name: "valid cookie",
			cookie: func(c *Codec) string {
				raw, _ := c.Encode(New("root", "tok", resource.RoleAdmin))
				return raw
			},
			wantRole:  resource.RoleAdmin,
			wantToken: "tok",
		},
		{
			name:   "no cookie",
			cookie: func(*Codec) string { return "" },
		},
		{
			name:    "garbage cookie",
			cookie:  func(*Codec) string { return "garbage" },
			cleared: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCodec(t)
			var got Context
			handler := c.Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = FromContext(r.Context())
			}))

			req := httptest.NewRequest("GET", "/", nil)
			if v := tt.cookie(c); v != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: v})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantRole, got.Role)
			assert.Equal(t, tt.wantToken, got.Token)
			if tt.cleared {
				require.Len(t, rr.Result().Cookies(), 1)
				assert.Equal(t, -1, rr.Result().Cookies()[0].MaxAge)
			}
		})
	}
}

func TestWriteAndClear(t *testing.T) {
	c := newTestCodec(t)
	rr := httptest.NewRecorder()
	require.NoError(t, c.Write(rr, New("root", "tok", resource.RoleAdmin)))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	rr = httptest.NewRecorder()
	c.Clear(rr)
	assert.Equal(t, -1, rr.Result().Cookies()[0].MaxAge)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		session    Context
		htmx       bool
		wantStatus int
		wantHeader string
	}{
		{"admin allowed", Context{Token: "t", Role: resource.RoleAdmin}, false, http.StatusOK, ""},
		{"staff forbidden", Context{Token: "t", Role: resource.RoleStaff}, false, http.StatusForbidden, ""},
		{"anonymous redirected", Context{}, false, http.StatusSeeOther, ""},
		{"anonymous htmx redirected", Context{}, true, http.StatusUnauthorized, "/signin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(resource.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/admin/tables", nil)
			req = req.WithContext(WithContext(req.Context(), tt.session))
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantHeader, rr.Header().Get("HX-Redirect"))
		})
	}
}
