// ABOUTME: HTTP client for the remote warehouse resource API.
// ABOUTME: Issues list/create/update/delete and sign-in/sign-up calls with bearer auth.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"go.uber.org/zap"

	apperrors "github.com/2389/xylen/internal/errors"
	"github.com/2389/xylen/internal/resource"
)

const maxResponseSize = 4 << 20

// Call describes one completed upstream request, reported to the Recorder.
type Call struct {
	Method     string
	Path       string
	Resource   string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Recorder receives a Call after every upstream request.
type Recorder func(Call)

// Client talks to the warehouse API.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRecorder reports every upstream call to rec.
func WithRecorder(rec Recorder) Option {
	return func(c *Client) { c.recorder = rec }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, cerrors.Wrapf(err, "invalid API URL %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, cerrors.Newf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches every row of a resource in server order. The token is
// attached when present; the server decides whether reads need it.
func (c *Client) List(ctx context.Context, res, token string) ([]resource.Row, error) {
	var rows []resource.Row
	if err := c.do(ctx, http.MethodGet, res, "", token, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Create posts a new row.
func (c *Client) Create(ctx context.Context, res, token string, payload resource.Row) error {
	return c.do(ctx, http.MethodPost, res, "", token, payload, nil)
}

// Update replaces the fields present in payload on row id.
func (c *Client) Update(ctx context.Context, res, id, token string, payload resource.Row) error {
	if id == "" {
		return apperrors.Validation("update %s: missing identifier", res)
	}
	return c.do(ctx, http.MethodPut, res, id, token, payload, nil)
}

// Delete removes row id.
func (c *Client) Delete(ctx context.Context, res, id, token string) error {
	if id == "" {
		return apperrors.Validation("delete %s: missing identifier", res)
	}
	return c.do(ctx, http.MethodDelete, res, id, token, nil, nil)
}

// Credentials is the sign-in request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInResult is the sign-in response.
type SignInResult struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// SignIn exchanges credentials for a bearer token and role.
func (c *Client) SignIn(ctx context.Context, username, password string) (SignInResult, error) {
	var out SignInResult
	body := Credentials{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "signin", "", "", body, &out); err != nil {
		return SignInResult{}, err
	}
	if out.Token == "" {
		return SignInResult{}, apperrors.Auth("sign-in response carried no token")
	}
	return out, nil
}

// Registration is the sign-up request body.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SignUp creates a dashboard account.
func (c *Client) SignUp(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "signup", "", "", reg, nil)
}

// endpoint returns the absolute URL and the path relative to the API root.
func (c *Client) endpoint(res, id string) (string, string) {
	rel := "/" + url.PathEscape(res)
	if id != "" {
		rel += "/" + url.PathEscape(id)
	}
	return c.baseURL.String() + rel, rel
}

func (c *Client) do(ctx context.Context, method, res, id, token string, in, out any) (err error) {
	target, rel := c.endpoint(res, id)
	start := time.Now()
	status := 0
	defer func() {
		c.report(Call{
			Method:     method,
			Path:       rel,
			Resource:   res,
			StatusCode: status,
			Duration:   time.Since(start),
			Err:        err,
		})
	}()

	var body io.Reader
	if in != nil {
		data, merr := json.Marshal(in)
		if merr != nil {
			return apperrors.Validation("encoding %s payload: %v", res, merr)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return apperrors.Network(err, method+" "+res)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Network(err, method+" "+res)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apperrors.Network(err, "reading "+res+" response")
	}

	if err := classifyStatus(method, res, resp.StatusCode, data); err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Network(err, "decoding "+res+" response")
	}
	return nil
}

func (c *Client) report(call Call) {
	fields := []zap.Field{
		zap.String("method", call.Method),
		zap.String("path", call.Path),
		zap.Int("status", call.StatusCode),
		zap.Duration("duration", call.Duration),
	}
	if call.Err != nil {
		c.logger.Warn("upstream call failed", append(fields, zap.String("kind", apperrors.Kind(call.Err)), zap.Error(call.Err))...)
	} else {
		c.logger.Debug("upstream call", fields...)
	}
	if c.recorder != nil {
		c.recorder(call)
	}
}

// classifyStatus maps non-2xx responses onto the failure taxonomy.
func classifyStatus(method, res string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := serverMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Auth("%s %s: %s", method, res, msg)
	case status >= 400 && status < 500:
		return apperrors.Validation("%s %s: %s", method, res, msg)
	default:
		return apperrors.Network(cerrors.Newf("status %d: %s", status, msg), method+" "+res)
	}
}

// serverMessage extracts a readable message from an error body. JSON bodies
// with an "error" or "message" field win; otherwise the trimmed text is used.
func serverMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		for _, key := range []string{"error", "message"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
	}
	s := string(trimmed)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
