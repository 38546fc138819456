// ABOUTME: Test helpers for end-to-end dashboard tests.
// ABOUTME: Provides an in-memory warehouse API, the wired dashboard and a cookie-keeping browser.

package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/2389/xylen/internal/admin"
	"github.com/2389/xylen/internal/api"
	"github.com/2389/xylen/internal/logging"
	"github.com/2389/xylen/internal/resource"
	"github.com/2389/xylen/internal/session"
	"github.com/2389/xylen/internal/store"
	"github.com/2389/xylen/internal/views"
)

type account struct {
	password string
	role     string
}

// Warehouse is an in-memory stand-in for the warehouse REST API.
type Warehouse struct {
	mu       sync.Mutex
	accounts map[string]account
	tokens   map[string]string // token -> username
	tables   map[string][]resource.Row
	nextID   int
}

func NewWarehouse() *Warehouse {
	return &Warehouse{
		accounts: map[string]account{},
		tokens:   map[string]string{},
		tables:   map[string][]resource.Row{},
	}
}

func (wh *Warehouse) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/signin", wh.signin)
	r.Post("/signup", wh.signup)
	r.Get("/{res}", wh.list)
	r.Post("/{res}", wh.authorized(wh.create))
	r.Put("/{res}/{id}", wh.authorized(wh.update))
	r.Delete("/{res}/{id}", wh.authorized(wh.remove))
	return r
}

// Rows returns a copy of a table.
func (wh *Warehouse) Rows(res string) []resource.Row {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	out := make([]resource.Row, 0, len(wh.tables[res]))
	for _, row := range wh.tables[res] {
		out = append(out, row.Clone())
	}
	return out
}

// Insert adds a row directly, bypassing auth.
func (wh *Warehouse) Insert(res string, pairs ...any) string {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	return wh.insertLocked(res, resource.NewRow(pairs...))
}

func (wh *Warehouse) insertLocked(res string, payload resource.Row) string {
	wh.nextID++
	id := strconv.Itoa(wh.nextID)
	row := resource.NewRow(idColumn(res), json.Number(id))
	for _, k := range payload.Keys() {
		v, _ := payload.Get(k)
		row.Set(k, v)
	}
	wh.tables[res] = append(wh.tables[res], row)
	return id
}

func idColumn(res string) string {
	return strings.TrimSuffix(res, "s") + "_id"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (wh *Warehouse) signin(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}
	wh.mu.Lock()
	defer wh.mu.Unlock()
	acct, ok := wh.accounts[creds.Username]
	if !ok || acct.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	token := uuid.NewString()
	wh.tokens[token] = creds.Username
	writeJSON(w, http.StatusOK, api.SignInResult{Token: token, Role: acct.role})
}

func (wh *Warehouse) signup(w http.ResponseWriter, r *http.Request) {
	var reg api.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}
	wh.mu.Lock()
	defer wh.mu.Unlock()
	if _, taken := wh.accounts[reg.Username]; taken {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "username taken"})
		return
	}
	wh.accounts[reg.Username] = account{password: reg.Password, role: reg.Role}
	wh.insertLocked("users", resource.NewRow("username", reg.Username, "password", reg.Password, "role", reg.Role))
	w.WriteHeader(http.StatusCreated)
}

func (wh *Warehouse) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		wh.mu.Lock()
		_, ok := wh.tokens[token]
		wh.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token required"})
			return
		}
		next(w, r)
	}
}

func (wh *Warehouse) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wh.Rows(chi.URLParam(r, "res")))
}

func (wh *Warehouse) create(w http.ResponseWriter, r *http.Request) {
	var payload resource.Row
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}
	wh.mu.Lock()
	id := wh.insertLocked(chi.URLParam(r, "res"), payload)
	wh.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (wh *Warehouse) update(w http.ResponseWriter, r *http.Request) {
	var payload resource.Row
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}
	res, id := chi.URLParam(r, "res"), chi.URLParam(r, "id")
	wh.mu.Lock()
	defer wh.mu.Unlock()
	for i, row := range wh.tables[res] {
		if v, _ := row.Get(idColumn(res)); resource.FormatValue(v) == id {
			for _, k := range payload.Keys() {
				val, _ := payload.Get(k)
				row.Set(k, val)
			}
			wh.tables[res][i] = row
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func (wh *Warehouse) remove(w http.ResponseWriter, r *http.Request) {
	res, id := chi.URLParam(r, "res"), chi.URLParam(r, "id")
	wh.mu.Lock()
	defer wh.mu.Unlock()
	rows := wh.tables[res]
	for i, row := range rows {
		if v, _ := row.Get(idColumn(res)); resource.FormatValue(v) == id {
			wh.tables[res] = append(rows[:i:i], rows[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// TestServer is the wired dashboard in front of a Warehouse.
type TestServer struct {
	Server    *httptest.Server
	Warehouse *Warehouse
	Store     *store.Store
	Views     *views.Registry
}

// StartTestServer wires the dashboard the way the serve command does.
func StartTestServer(t *testing.T) *TestServer {
	t.Helper()

	wh := NewWarehouse()
	upstream := httptest.NewServer(wh.Routes())
	t.Cleanup(upstream.Close)

	s, err := store.New(filepath.Join(t.TempDir(), "xylen.db"), zap.NewNop())
	require.NoError(t, err)

	codec, err := session.NewCodec("e2e-secret-e2e-secret-e2e-secret", time.Hour, false)
	require.NoError(t, err)

	client, err := api.New(upstream.URL, api.WithRecorder(logging.APIRecorder(s, nil)))
	require.NoError(t, err)

	registry := views.NewRegistry(time.Hour, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(codec.Middleware(zap.NewNop()))
	r.Use(logging.Middleware(s, nil))
	admin.NewHandlers(admin.Config{
		API:      client,
		Sessions: codec,
		Views:    registry,
		Store:    s,
	}).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})

	return &TestServer{Server: srv, Warehouse: wh, Store: s, Views: registry}
}

// Browser keeps cookies and follows redirects like a user agent.
type Browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (ts *TestServer) NewBrowser(t *testing.T) *Browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &Browser{t: t, base: ts.Server.URL, client: &http.Client{Jar: jar}}
}

// Page is a fetched response with its final URL.
type Page struct {
	Status int
	Path   string
	Body   string
}

func (b *Browser) page(resp *http.Response, err error) Page {
	b.t.Helper()
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	path := resp.Request.URL.Path
	if q := resp.Request.URL.RawQuery; q != "" {
		path += "?" + q
	}
	return Page{Status: resp.StatusCode, Path: path, Body: string(body)}
}

func (b *Browser) Get(path string) Page {
	b.t.Helper()
	return b.page(b.client.Get(b.base + path))
}

func (b *Browser) Post(path string, form url.Values) Page {
	b.t.Helper()
	return b.page(b.client.PostForm(b.base+path, form))
}

// SignUpAndIn registers an account and signs in, landing on the tables page.
func (b *Browser) SignUpAndIn(username, password, role string) Page {
	b.t.Helper()
	p := b.Post("/signup", url.Values{"username": {username}, "password": {password}, "role": {role}})
	require.Equal(b.t, http.StatusOK, p.Status)
	require.Contains(b.t, p.Body, "Account created")
	return b.Post("/signin", url.Values{"username": {username}, "password": {password}})
}

var viewIDPattern = regexp.MustCompile(`/tables/([0-9a-f-]{36})/select`)

// ViewID extracts the mounted view id from a tables page.
func ViewID(t *testing.T, p Page) string {
	t.Helper()
	m := viewIDPattern.FindStringSubmatch(p.Body)
	require.Len(t, m, 2, "no view id in %s", p.Path)
	return m[1]
}
