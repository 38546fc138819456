// ABOUTME: Table screen routes that drive one controller per mounted view.
// ABOUTME: Each action re-renders the view partial for htmx or redirects back to the page.

package admin

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2389/xylen/internal/controller"
	apperrors "github.com/2389/xylen/internal/errors"
	"github.com/2389/xylen/internal/resource"
	"github.com/2389/xylen/internal/session"
	"github.com/2389/xylen/internal/views"
)

// tableView is the data rendered by the table-view partial.
type tableView struct {
	ID            string
	Base          string
	Resources     []resource.ResourceDescriptor
	State         controller.ViewState
	Descriptor    resource.ResourceDescriptor
	HasDescriptor bool
	TableHTML     template.HTML
	FormHTML      template.HTML
}

func (h *Handlers) tableRoutes(role resource.Role) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.mountTable(role))
		r.Route("/{view}", func(r chi.Router) {
			r.Post("/select", h.viewAction(role, h.selectResource))
			r.Post("/form", h.viewAction(role, h.openForm))
			r.Post("/field", h.setFields(role))
			r.Post("/submit", h.viewAction(role, h.submitForm))
			r.Post("/cancel", h.viewAction(role, h.cancelForm))
			r.Post("/delete/{id}", h.viewAction(role, h.deleteRow))
		})
	}
}

func tablesPath(role resource.Role) string {
	return "/" + string(role) + "/tables"
}

// mountTable renders the tables page. ?view= reattaches to a mounted view
// owned by the caller; otherwise a new one is mounted. ?resource= selects.
func (h *Handlers) mountTable(role resource.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())

		var v *views.View
		if id := r.URL.Query().Get("view"); id != "" {
			v, _ = h.views.Get(id, sess.ID)
		}
		if v == nil || v.Role != role {
			ctrl := controller.New(resource.ConfigurationFor(role), h.api, sess, h.logger.Named("controller"))
			id := h.views.Mount(sess.ID, role, ctrl)
			v, _ = h.views.Get(id, sess.ID)
		}

		if name := r.URL.Query().Get("resource"); name != "" {
			// Failures are surfaced in the view notice.
			_ = v.Controller.Select(r.Context(), name)
		}

		h.render(w, http.StatusOK, "tables", page(r, "Tables", map[string]any{
			"View": buildTableView(role, v),
		}))
	}
}

type actionFunc func(r *http.Request, v *views.View) error

// viewAction resolves the view, runs the action and re-renders. Action
// errors are already surfaced in the view state.
func (h *Handlers) viewAction(role resource.Role, action actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := h.lookupView(w, r, role)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			apperrors.WriteError(w, http.StatusBadRequest, apperrors.ErrInvalidRequest, "malformed form")
			return
		}
		if err := action(r, v); err != nil {
			h.logger.Debug("view action failed",
				zap.String("view", v.ID),
				zap.String("path", r.URL.Path),
				zap.String("kind", apperrors.Kind(err)))
		}
		h.renderView(w, r, role, v)
	}
}

func (h *Handlers) lookupView(w http.ResponseWriter, r *http.Request, role resource.Role) (*views.View, bool) {
	sess := session.FromContext(r.Context())
	v, ok := h.views.Get(chi.URLParam(r, "view"), sess.ID)
	if ok && v.Role == role {
		return v, true
	}
	if isHTMX(r) {
		w.Header().Set("HX-Refresh", "true")
		apperrors.WriteError(w, http.StatusNotFound, apperrors.ErrNotFound, "view expired")
		return nil, false
	}
	http.Redirect(w, r, tablesPath(role), http.StatusSeeOther)
	return nil, false
}

func (h *Handlers) renderView(w http.ResponseWriter, r *http.Request, role resource.Role, v *views.View) {
	if !isHTMX(r) {
		http.Redirect(w, r, tablesPath(role)+"?view="+url.QueryEscape(v.ID), http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPartial(w, "table-view", buildTableView(role, v)); err != nil {
		h.logger.Error("render failed", zap.String("partial", "table-view"), zap.Error(err))
	}
}

func buildTableView(role resource.Role, v *views.View) tableView {
	base := tablesPath(role) + "/" + v.ID
	st := v.Controller.State()
	tv := tableView{
		ID:        v.ID,
		Base:      base,
		Resources: v.Controller.Resources(),
		State:     st,
	}
	if desc, ok := v.Controller.Descriptor(); ok {
		tv.Descriptor = desc
		tv.HasDescriptor = true
		tv.TableHTML = template.HTML(RenderResourceTable(desc, st.Rows, base))
		tv.FormHTML = template.HTML(RenderResourceForm(desc, st.Form, base))
	}
	return tv
}

func (h *Handlers) selectResource(r *http.Request, v *views.View) error {
	return v.Controller.Select(r.Context(), r.PostForm.Get("resource"))
}

func (h *Handlers) openForm(r *http.Request, v *views.View) error {
	mode, ok := controller.ParseMode(r.PostForm.Get("mode"))
	if !ok {
		return apperrors.Validation("unknown form mode")
	}
	var seed resource.Row
	if mode == controller.ModeUpdate {
		id := r.PostForm.Get("id")
		row, found := v.Controller.RowByID(id)
		if !found {
			return apperrors.Validation("no row %q", id)
		}
		seed = row
	}
	return v.Controller.OpenForm(mode, seed)
}

// applyFields merges every posted value that names a form field.
func applyFields(r *http.Request, v *views.View) error {
	for _, f := range v.Controller.State().Form.Schema {
		if !r.PostForm.Has(f.Name) {
			continue
		}
		if err := v.Controller.SetField(f.Name, r.PostForm.Get(f.Name)); err != nil {
			return err
		}
	}
	return nil
}

// setFields merges edited fields as the user types; nothing is re-rendered.
func (h *Handlers) setFields(role resource.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := h.lookupView(w, r, role)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			apperrors.WriteError(w, http.StatusBadRequest, apperrors.ErrInvalidRequest, "malformed form")
			return
		}
		if !v.Controller.State().Form.Open {
			apperrors.WriteFailure(w, apperrors.Validation("no form open"))
			return
		}
		if err := applyFields(r, v); err != nil {
			apperrors.WriteFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handlers) submitForm(r *http.Request, v *views.View) error {
	if err := applyFields(r, v); err != nil {
		return err
	}
	return v.Controller.Submit(r.Context())
}

func (h *Handlers) cancelForm(r *http.Request, v *views.View) error {
	v.Controller.CancelForm()
	return nil
}

// deleteRow reads the identifier from the path. chi matches on RawPath when
// one is set, so only then is the parameter still escaped.
func (h *Handlers) deleteRow(r *http.Request, v *views.View) error {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(id)
		if err != nil {
			return apperrors.Validation("malformed identifier")
		}
		id = unescaped
	}
	return v.Controller.Delete(r.Context(), id)
}
