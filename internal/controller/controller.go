// ABOUTME: Schema-driven table controller shared by every role's table screen.
// ABOUTME: Owns selection, fetched rows and form state, synced with the warehouse API.

package controller

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/2389/xylen/internal/errors"
	"github.com/2389/xylen/internal/resource"
	"github.com/2389/xylen/internal/session"
)

// Mode is the form editing mode.
type Mode string

const (
	ModeAdd    Mode = "add"
	ModeUpdate Mode = "update"
)

// ParseMode returns the mode named by s.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeAdd:
		return ModeAdd, true
	case ModeUpdate:
		return ModeUpdate, true
	}
	return "", false
}

// API is the subset of the warehouse client the controller drives.
type API interface {
	List(ctx context.Context, res, token string) ([]resource.Row, error)
	Create(ctx context.Context, res, token string, payload resource.Row) error
	Update(ctx context.Context, res, id, token string, payload resource.Row) error
	Delete(ctx context.Context, res, id, token string) error
}

// FormState is the add/update form sub-state.
type FormState struct {
	Open     bool
	Mode     Mode
	Schema   []resource.FieldDescriptor // fields rendered, in order
	Fields   map[string]any
	TargetID string
}

// ViewState is a snapshot of one mounted table view.
type ViewState struct {
	Selected string
	Rows     []resource.Row
	Loading  bool
	Form     FormState
	Notice   string
}

// Controller drives one mounted view. It is safe for concurrent use; the
// lock is never held while talking to the API.
type Controller struct {
	cfg    resource.Configuration
	api    API
	sess   session.Context
	logger *zap.Logger

	mu    sync.Mutex
	state ViewState
	gen   uint64
}

// New creates a controller with nothing selected.
func New(cfg resource.Configuration, api API, sess session.Context, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:    cfg,
		api:    api,
		sess:   sess,
		logger: logger.With(zap.String("role", string(cfg.Role))),
	}
}

// Resources returns the descriptors offered by the configuration.
func (c *Controller) Resources() []resource.ResourceDescriptor {
	return c.cfg.Resources
}

// Descriptor returns the descriptor of the selected resource.
func (c *Controller) Descriptor() (resource.ResourceDescriptor, bool) {
	c.mu.Lock()
	name := c.state.Selected
	c.mu.Unlock()
	if name == "" {
		return resource.ResourceDescriptor{}, false
	}
	return c.cfg.Lookup(name)
}

// State returns a copy of the current view state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	st.Rows = make([]resource.Row, len(c.state.Rows))
	for i, r := range c.state.Rows {
		st.Rows[i] = r.Clone()
	}
	st.Form.Schema = append([]resource.FieldDescriptor(nil), c.state.Form.Schema...)
	if c.state.Form.Fields != nil {
		st.Form.Fields = make(map[string]any, len(c.state.Form.Fields))
		for k, v := range c.state.Form.Fields {
			st.Form.Fields[k] = v
		}
	}
	return st
}

// RowByID finds a fetched row of the selected resource by identifier.
func (c *Controller) RowByID(id string) (resource.Row, bool) {
	desc, ok := c.Descriptor()
	if !ok {
		return resource.Row{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.state.Rows {
		if rid, ok := desc.IdentifierOf(r); ok && rid == id {
			return r.Clone(), true
		}
	}
	return resource.Row{}, false
}

// Select switches to resource name, discarding rows and any open form, and
// fetches its rows. The empty name clears the view without a fetch.
func (c *Controller) Select(ctx context.Context, name string) error {
	if name != "" {
		if _, ok := c.cfg.Lookup(name); !ok {
			err := apperrors.Validation("unknown resource %q", name)
			c.surface(err)
			return err
		}
	}

	c.mu.Lock()
	c.gen++
	c.state.Selected = name
	c.state.Rows = nil
	c.state.Form = FormState{}
	c.state.Notice = ""
	c.state.Loading = name != ""
	gen := c.gen
	c.mu.Unlock()

	if name == "" {
		return nil
	}
	return c.fetch(ctx, name, gen)
}

// Refresh re-fetches the selected resource. On failure the current rows stay.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	name := c.state.Selected
	if name == "" {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	c.state.Loading = true
	gen := c.gen
	c.mu.Unlock()

	return c.fetch(ctx, name, gen)
}

// fetch lists name and applies the result if no later fetch was dispatched.
func (c *Controller) fetch(ctx context.Context, name string, gen uint64) error {
	rows, err := c.api.List(ctx, name, c.sess.Token)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || name != c.state.Selected {
		c.logger.Debug("discarding stale rows", zap.String("resource", name))
		return nil
	}
	c.state.Loading = false
	if err != nil {
		c.noticeLocked(err)
		return err
	}
	c.state.Rows = rows
	c.state.Notice = ""
	return nil
}

// OpenForm opens the add or update form. Update captures the seed row's
// identifier as the target before any field is edited; sensitive fields
// start blank so an untouched password is left unchanged.
func (c *Controller) OpenForm(mode Mode, seed resource.Row) error {
	desc, ok := c.Descriptor()
	if !ok {
		return c.reject(apperrors.Validation("no resource selected"))
	}
	if !desc.CanWrite {
		return c.reject(apperrors.Validation("%s does not allow create or update", desc.Name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var sample *resource.Row
	if seed.Len() > 0 {
		sample = &seed
	} else if len(c.state.Rows) > 0 {
		sample = &c.state.Rows[0]
	}

	form := FormState{
		Open:   true,
		Mode:   mode,
		Schema: desc.FormFields(sample),
		Fields: map[string]any{},
	}

	switch mode {
	case ModeAdd:
		for _, f := range form.Schema {
			form.Fields[f.Name] = blank(f)
		}
	case ModeUpdate:
		id, ok := desc.IdentifierOf(seed)
		if !ok {
			err := apperrors.Validation("update %s: row has no identifier", desc.Name)
			c.noticeLocked(err)
			return err
		}
		form.TargetID = id
		// Columns the row does not carry stay out of the payload until edited.
		for _, f := range form.Schema {
			v, ok := seed.Get(f.Name)
			if f.Sensitive {
				v, ok = blank(f), true
			}
			if ok {
				form.Fields[f.Name] = v
			}
		}
	default:
		err := apperrors.Validation("unknown form mode %q", mode)
		c.noticeLocked(err)
		return err
	}

	c.state.Form = form
	return nil
}

// SetField merges one edited field into the open form. Number fields are
// parsed; anything unparsable becomes nil. A blank edit to a column the
// updated row never had is ignored.
func (c *Controller) SetField(name, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Form.Open {
		return apperrors.Validation("no form open")
	}
	var field resource.FieldDescriptor
	found := false
	for _, f := range c.state.Form.Schema {
		if f.Name == name {
			field, found = f, true
			break
		}
	}
	if !found {
		return apperrors.Validation("unknown field %q", name)
	}

	if _, present := c.state.Form.Fields[name]; !present && c.state.Form.Mode == ModeUpdate && raw == "" {
		return nil
	}
	c.state.Form.Fields[name] = coerce(field, raw)
	return nil
}

// Submit sends the open form as a create or update. On failure the form
// stays open with its fields untouched.
func (c *Controller) Submit(ctx context.Context) error {
	desc, ok := c.Descriptor()
	if !ok {
		return c.reject(apperrors.Validation("no resource selected"))
	}

	c.mu.Lock()
	form := c.state.Form
	if !form.Open {
		c.mu.Unlock()
		return apperrors.Validation("no form open")
	}
	payload := buildPayload(form)
	c.mu.Unlock()

	if !c.sess.Authenticated() {
		return c.reject(apperrors.Auth("sign in to change %s", desc.Name))
	}

	var err error
	if form.Mode == ModeUpdate {
		err = c.api.Update(ctx, desc.Name, form.TargetID, c.sess.Token, payload)
	} else {
		err = c.api.Create(ctx, desc.Name, c.sess.Token, payload)
	}
	if err != nil {
		return c.reject(err)
	}

	c.logger.Info("record saved",
		zap.String("resource", desc.Name),
		zap.String("mode", string(form.Mode)),
		zap.String("target", form.TargetID))

	c.mu.Lock()
	c.state.Form = FormState{}
	c.state.Notice = ""
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// CancelForm discards the form state.
func (c *Controller) CancelForm() {
	c.mu.Lock()
	c.state.Form = FormState{}
	c.mu.Unlock()
}

// Delete removes row id from the selected resource. Without a token nothing
// is sent. On failure the rows stay as they were.
func (c *Controller) Delete(ctx context.Context, id string) error {
	desc, ok := c.Descriptor()
	if !ok {
		return c.reject(apperrors.Validation("no resource selected"))
	}
	if !desc.CanDelete {
		return c.reject(apperrors.Validation("%s does not allow delete", desc.Name))
	}
	if !c.sess.Authenticated() {
		return c.reject(apperrors.Auth("sign in to delete from %s", desc.Name))
	}

	if err := c.api.Delete(ctx, desc.Name, id, c.sess.Token); err != nil {
		return c.reject(err)
	}
	c.logger.Info("record deleted", zap.String("resource", desc.Name), zap.String("id", id))

	c.mu.Lock()
	c.state.Form = FormState{}
	c.state.Notice = ""
	c.mu.Unlock()

	return c.Refresh(ctx)
}

func (c *Controller) reject(err error) error {
	c.surface(err)
	return err
}

func (c *Controller) surface(err error) {
	c.mu.Lock()
	c.noticeLocked(err)
	c.mu.Unlock()
}

func (c *Controller) noticeLocked(err error) {
	c.logger.Warn("table action failed",
		zap.String("resource", c.state.Selected),
		zap.String("kind", apperrors.Kind(err)),
		zap.Error(err))
	c.state.Notice = err.Error()
}

// buildPayload orders the form fields by schema. A blank sensitive field is
// dropped on update and kept on add; fields never set are left out.
func buildPayload(form FormState) resource.Row {
	payload := resource.Row{}
	for _, f := range form.Schema {
		v, ok := form.Fields[f.Name]
		if !ok {
			continue
		}
		if f.Sensitive && form.Mode == ModeUpdate && isBlank(v) {
			continue
		}
		payload.Set(f.Name, v)
	}
	return payload
}

func blank(f resource.FieldDescriptor) any {
	if f.Kind == resource.KindNumber {
		return nil
	}
	return ""
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func coerce(f resource.FieldDescriptor, raw string) any {
	if f.Kind != resource.KindNumber {
		return raw
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return n
}
