// ABOUTME: Session context carried by the signed session cookie.
// ABOUTME: Encodes the upstream bearer token and role as an HS256 JWT.

package session

import (
	"context"
	"net/http"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/2389/xylen/internal/resource"
)

// CookieName is the name of the dashboard session cookie.
const CookieName = "xylen_session"

// Context is the read-only session for one request. It is immutable; the
// only mutation is signing out, which replaces it with the zero value.
type Context struct {
	ID       string // session id, owner of mounted views
	Username string
	Token    string // opaque bearer token issued by the warehouse API
	Role     resource.Role
}

// Authenticated reports whether a bearer token is present.
func (c Context) Authenticated() bool {
	return c.Token != ""
}

// claims is the JWT payload of the session cookie.
type claims struct {
	Username string `json:"usr,omitempty"`
	Token    string `json:"tok"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session cookies.
type Codec struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewCodec creates a codec. The secret must be at least 16 bytes.
func NewCodec(secret string, ttl time.Duration, secure bool) (*Codec, error) {
	if len(secret) < 16 {
		return nil, cerrors.New("session secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Codec{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}, nil
}

// New starts a session for a signed-in user.
func New(username, token string, role resource.Role) Context {
	return Context{
		ID:       uuid.NewString(),
		Username: username,
		Token:    token,
		Role:     role,
	}
}

// Encode signs the session as a JWT.
func (c *Codec) Encode(s Context) (string, error) {
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: s.Username,
		Token:    s.Token,
		Role:     string(s.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", cerrors.Wrap(err, "signing session")
	}
	return signed, nil
}

// Decode verifies a signed session.
func (c *Codec) Decode(raw string) (Context, error) {
	cl := &claims{}
	_, err := jwt.ParseWithClaims(raw, cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return Context{}, cerrors.Wrap(err, "invalid session")
	}
	if cl.Token == "" {
		return Context{}, cerrors.New("invalid session: no token")
	}
	return Context{
		ID:       cl.ID,
		Username: cl.Username,
		Token:    cl.Token,
		Role:     resource.ParseRole(cl.Role),
	}, nil
}

// Write stores the session cookie on the response.
func (c *Codec) Write(w http.ResponseWriter, s Context) error {
	signed, err := c.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey string

const sessionContextKey contextKey = "session"

// WithContext returns ctx carrying s.
func WithContext(ctx context.Context, s Context) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the request session, or the anonymous zero value.
func FromContext(ctx context.Context) Context {
	s, _ := ctx.Value(sessionContextKey).(Context)
	return s
}
