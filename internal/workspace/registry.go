package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/logger"
)

// DefaultTTL is how long an idle workspace is kept.
const DefaultTTL = 2 * time.Hour

// Registry maps session ids to open workspaces. Idle workspaces expire after
// the TTL; expiry and Close both tear down the subscriptions.
type Registry struct {
	svc   *bureau.Service
	ttl   time.Duration
	mu    sync.Mutex
	items *cache.Cache
}

// NewRegistry returns a registry opening workspaces on svc.
func NewRegistry(svc *bureau.Service, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := cache.New(ttl, ttl/4)
	c.OnEvicted(func(id string, v any) {
		if w, ok := v.(*Workspace); ok {
			w.Close()
			GetLogger().Debug("workspace closed", logger.String("workspace", id))
		}
	})
	return &Registry{svc: svc, ttl: ttl, items: c}
}

// Get returns the workspace for id and extends its lifetime.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

func (r *Registry) getLocked(id string) (*Workspace, bool) {
	v, ok := r.items.Get(id)
	if !ok {
		return nil, false
	}
	// Set on an existing key does not trigger OnEvicted
	r.items.SetDefault(id, v)
	return v.(*Workspace), true
}

// GetOrOpen returns the workspace for id, opening one if needed.
func (r *Registry) GetOrOpen(ctx context.Context, id string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.getLocked(id); ok {
		return w
	}
	// an expired entry would otherwise be overwritten without teardown
	r.items.DeleteExpired()
	w := Open(ctx, id, r.svc)
	r.items.SetDefault(id, w)
	GetLogger().Debug("workspace opened", logger.String("workspace", id))
	return w
}

// Close tears down the workspace for id, if any.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items.Delete(id)
}

// CloseAll tears down every workspace.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.items.Items() {
		r.items.Delete(id)
	}
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	return r.items.ItemCount()
}
