// ABOUTME: Registry of mounted table views, one controller per view id.
// ABOUTME: Views are owned by a session and evicted after sitting idle.

package views

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/2389/xylen/internal/controller"
	"github.com/2389/xylen/internal/resource"
)

// View is a mounted table screen.
type View struct {
	ID         string
	Owner      string // session id
	Role       resource.Role
	Controller *controller.Controller
	lastUsed   time.Time
}

// Registry holds mounted views.
type Registry struct {
	mu     sync.Mutex
	views  map[string]*View
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistry creates a registry evicting views idle for longer than ttl.
func NewRegistry(ttl time.Duration, logger *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		views:  make(map[string]*View),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Mount registers a controller for owner and returns the new view id.
func (r *Registry) Mount(owner string, role resource.Role, ctrl *controller.Controller) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.views[id] = &View{
		ID:         id,
		Owner:      owner,
		Role:       role,
		Controller: ctrl,
		lastUsed:   r.now(),
	}
	n := len(r.views)
	r.mu.Unlock()

	r.logger.Debug("view mounted", zap.String("view", id), zap.String("role", string(role)), zap.Int("views", n))
	return id
}

// Get returns view id if it belongs to owner, marking it used.
func (r *Registry) Get(id, owner string) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[id]
	if !ok || v.Owner != owner {
		return nil, false
	}
	v.lastUsed = r.now()
	return v, true
}

// DropOwner unmounts every view of owner. Used on sign-out.
func (r *Registry) DropOwner(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, v := range r.views {
		if v.Owner == owner {
			delete(r.views, id)
			dropped++
		}
	}
	return dropped
}

// Sweep evicts idle views and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	evicted := 0
	for id, v := range r.views {
		if v.lastUsed.Before(cutoff) {
			delete(r.views, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("evicted idle views", zap.Int("count", n))
			}
		}
	}
}

// Len returns the number of mounted views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
