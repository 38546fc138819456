// ABOUTME: Session middleware for dashboard requests.
// ABOUTME: Decodes the session cookie into request context and gates routes by role.

package session

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/2389/xylen/internal/resource"
)

// Middleware attaches the decoded session to every request. A cookie that
// fails verification is cleared and the request continues anonymously.
func (c *Codec) Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s Context
			if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
				decoded, err := c.Decode(cookie.Value)
				if err != nil {
					logger.Debug("dropping session cookie", zap.Error(err))
					c.Clear(w)
				} else {
					s = decoded
				}
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), s)))
		})
	}
}

// RequireRole lets through sessions holding one of roles. Anonymous
// requests are sent to the sign-in page; other roles get 403.
func RequireRole(roles ...resource.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := FromContext(r.Context())
			if !s.Authenticated() {
				redirect(w, r, "/signin")
				return
			}
			if !slices.Contains(roles, s.Role) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// redirect sends the browser to target, using HX-Redirect for htmx requests.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
