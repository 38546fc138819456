// ABOUTME: HTTP handlers for the dashboard pages.
// ABOUTME: Serves the landing page, sign-in/up/out, activity log and health check.

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/xylen/internal/api"
	"github.com/2389/xylen/internal/controller"
	apperrors "github.com/2389/xylen/internal/errors"
	"github.com/2389/xylen/internal/resource"
	"github.com/2389/xylen/internal/session"
	"github.com/2389/xylen/internal/store"
	"github.com/2389/xylen/internal/views"
)

// Upstream is the warehouse API as used by the dashboard.
type Upstream interface {
	controller.API
	SignIn(ctx context.Context, username, password string) (api.SignInResult, error)
	SignUp(ctx context.Context, reg api.Registration) error
}

// ActivityStore is the read side of the activity database.
type ActivityStore interface {
	Ping(ctx context.Context) error
	RecentAPICalls(ctx context.Context, res string, limit int) ([]*store.APICall, error)
	GetRequestLogs(ctx context.Context, q *store.RequestLogQuery) ([]*store.RequestLog, error)
	GetRequestLogStats(ctx context.Context) (*store.RequestLogStats, error)
	GetTopEndpoints(ctx context.Context, limit int) ([]store.EndpointCount, error)
}

// Config wires the handlers.
type Config struct {
	API            Upstream
	Sessions       *session.Codec
	Views          *views.Registry
	Store          ActivityStore
	SignupGateHash string
	Logger         *zap.Logger
}

type Handlers struct {
	api      Upstream
	sessions *session.Codec
	views    *views.Registry
	store    ActivityStore
	gateHash []byte
	logger   *zap.Logger
}

func NewHandlers(cfg Config) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{
		api:      cfg.API,
		sessions: cfg.Sessions,
		views:    cfg.Views,
		store:    cfg.Store,
		logger:   logger,
	}
	if cfg.SignupGateHash != "" {
		h.gateHash = []byte(cfg.SignupGateHash)
	}
	return h
}

// RegisterRoutes mounts every dashboard route. The session middleware must
// already be installed on r.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.landing)
	r.Get("/start", h.start)
	r.Get("/signin", h.signinForm)
	r.Post("/signin", h.signin)
	r.Get("/signup", h.signupForm)
	r.Post("/signup", h.signup)
	r.Post("/signout", h.signout)
	r.Get("/healthz", h.healthz)

	r.With(session.RequireRole(resource.RoleAdmin)).Get("/activity", h.activity)

	for _, role := range []resource.Role{resource.RoleAdmin, resource.RoleStaff} {
		r.With(session.RequireRole(role)).Route("/"+string(role)+"/tables", h.tableRoutes(role))
	}
}

// page builds template data carrying the session for the layout.
func page(r *http.Request, title string, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	data["Title"] = title
	data["Session"] = session.FromContext(r.Context())
	return data
}

func (h *Handlers) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := renderPage(w, name, data); err != nil {
		h.logger.Error("render failed", zap.String("page", name), zap.Error(err))
	}
}

func (h *Handlers) landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "landing", page(r, "Home", nil))
}

// start routes Get Started by role.
func (h *Handlers) start(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	target := "/signin"
	if sess.Authenticated() {
		switch sess.Role {
		case resource.RoleAdmin, resource.RoleStaff:
			target = "/" + string(sess.Role) + "/tables"
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handlers) signinForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "signin", page(r, "Sign In", map[string]any{
		"Registered": r.URL.Query().Get("registered") == "1",
	}))
}

func (h *Handlers) signin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	fail := func(err error) {
		h.logger.Info("sign-in failed", zap.String("user", username), zap.String("kind", apperrors.Kind(err)))
		status, _ := apperrors.StatusFor(err)
		h.render(w, status, "signin", page(r, "Sign In", map[string]any{
			"Error":    apperrors.Message(err),
			"Username": username,
		}))
	}

	if username == "" || password == "" {
		fail(apperrors.Validation("username and password are required"))
		return
	}

	res, err := h.api.SignIn(r.Context(), username, password)
	if err != nil {
		fail(err)
		return
	}
	role := resource.ParseRole(res.Role)
	if role == resource.RoleNone {
		fail(apperrors.Auth("account has no dashboard role"))
		return
	}

	sess := session.New(username, res.Token, role)
	if err := h.sessions.Write(w, sess); err != nil {
		h.logger.Error("writing session", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("signed in", zap.String("user", username), zap.String("role", string(role)))
	http.Redirect(w, r, "/start", http.StatusSeeOther)
}

func (h *Handlers) signupData(r *http.Request, data map[string]any) map[string]any {
	data = page(r, "Sign Up", data)
	data["Gated"] = h.gateHash != nil
	data["Roles"] = []string{string(resource.RoleStaff), string(resource.RoleAdmin)}
	if _, ok := data["SelectedRole"]; !ok {
		data["SelectedRole"] = string(resource.RoleStaff)
	}
	return data
}

func (h *Handlers) signupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "signup", h.signupData(r, nil))
}

// signup registers an account. When a gate hash is configured the caller
// must also present the admin passphrase.
func (h *Handlers) signup(w http.ResponseWriter, r *http.Request) {
	reg := api.Registration{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
	}

	fail := func(status int, msg string) {
		h.render(w, status, "signup", h.signupData(r, map[string]any{
			"Error":        msg,
			"Username":     reg.Username,
			"SelectedRole": reg.Role,
		}))
	}

	if h.gateHash != nil {
		if err := bcrypt.CompareHashAndPassword(h.gateHash, []byte(r.PostFormValue("passphrase"))); err != nil {
			h.logger.Warn("sign-up gate rejected", zap.String("user", reg.Username))
			fail(http.StatusForbidden, "Wrong admin passphrase")
			return
		}
	}
	if reg.Username == "" || reg.Password == "" {
		fail(http.StatusUnprocessableEntity, "Username and password are required")
		return
	}
	if resource.ParseRole(reg.Role) == resource.RoleNone {
		fail(http.StatusUnprocessableEntity, "Pick a role")
		return
	}
	reg.Role = string(resource.ParseRole(reg.Role))

	if err := h.api.SignUp(r.Context(), reg); err != nil {
		status, _ := apperrors.StatusFor(err)
		fail(status, apperrors.Message(err))
		return
	}
	h.logger.Info("account registered", zap.String("user", reg.Username), zap.String("role", reg.Role))
	http.Redirect(w, r, "/signin?registered=1", http.StatusSeeOther)
}

// signout clears the cookie and unmounts the caller's views.
func (h *Handlers) signout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess.ID != "" {
		n := h.views.DropOwner(sess.ID)
		h.logger.Info("signed out", zap.String("user", sess.Username), zap.Int("views", n))
	}
	h.sessions.Clear(w)
	redirect(w, r, "/")
}

func (h *Handlers) activity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := r.URL.Query().Get("resource")

	calls, err := h.store.RecentAPICalls(ctx, res, 100)
	if err != nil {
		h.storeFailure(w, err)
		return
	}
	requests, err := h.store.GetRequestLogs(ctx, &store.RequestLogQuery{Limit: 50})
	if err != nil {
		h.storeFailure(w, err)
		return
	}
	stats, err := h.store.GetRequestLogStats(ctx)
	if err != nil {
		h.storeFailure(w, err)
		return
	}
	top, err := h.store.GetTopEndpoints(ctx, 10)
	if err != nil {
		h.storeFailure(w, err)
		return
	}

	h.render(w, http.StatusOK, "activity", page(r, "Activity", map[string]any{
		"Calls":            calls,
		"Requests":         requests,
		"Stats":            stats,
		"TopEndpoints":     top,
		"Resources":        resource.AdminConfiguration().Names(),
		"SelectedResource": res,
	}))
}

func (h *Handlers) storeFailure(w http.ResponseWriter, err error) {
	h.logger.Error("activity store", zap.Error(err))
	apperrors.WriteError(w, http.StatusInternalServerError, apperrors.ErrInternal, "activity store unavailable")
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		apperrors.WriteErrorWithDetails(w, http.StatusServiceUnavailable, apperrors.ErrServiceUnavailable,
			"activity store unavailable", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "views": h.views.Len()})
}

// redirect sends the browser to target, using HX-Redirect for htmx requests.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
