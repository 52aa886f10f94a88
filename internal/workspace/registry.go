package workspace

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/tkstan/fusiondoc/internal/logger"
)

var ErrNotFound = errors.New("workspace not found")

// Registry keeps live workspaces in memory. A workspace expires after ttl
// without being looked up; expiry releases its blobs.
type Registry struct {
	items *cache.Cache
	opts  Options

	// mu orders lookups against eviction so a touch never revives a closed
	// workspace.
	mu sync.Mutex

	// explicit marks ids removed through Delete rather than by expiry.
	explicit sync.Map
}

func NewRegistry(ttl time.Duration, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	cleanup := ttl / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}

	r := &Registry{
		items: cache.New(ttl, cleanup),
		opts:  opts,
	}
	r.items.OnEvicted(r.evicted)
	return r
}

func (r *Registry) Create() *Workspace {
	ws := New(uuid.NewString(), r.opts)
	r.items.Set(ws.ID(), ws, cache.DefaultExpiration)
	r.opts.Logger.Info("workspace", "workspace created", map[string]interface{}{"workspace": ws.ID()})
	return ws
}

// Get returns the workspace and extends its lifetime.
func (r *Registry) Get(id string) (*Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	ws := item.(*Workspace)
	if ws.Closed() {
		return nil, ErrNotFound
	}
	r.items.Set(id, ws, cache.DefaultExpiration)
	return ws, nil
}

// Delete removes the workspace and releases its blobs.
func (r *Registry) Delete(id string) error {
	if _, ok := r.items.Get(id); !ok {
		return ErrNotFound
	}
	// Delete fires the eviction hook, which closes the workspace.
	r.explicit.Store(id, struct{}{})
	r.items.Delete(id)
	return nil
}

func (r *Registry) Count() int {
	return r.items.ItemCount()
}

// Sweep evicts expired workspaces now instead of waiting for the janitor.
func (r *Registry) Sweep() {
	r.items.DeleteExpired()
}

func (r *Registry) evicted(id string, item interface{}) {
	ws, ok := item.(*Workspace)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, explicit := r.explicit.LoadAndDelete(id)
	if !explicit {
		// A Get between removal and this hook put it back; it is live again.
		if current, ok := r.items.Get(id); ok && current == item {
			return
		}
	}
	if ws.Busy() && !explicit {
		// Keep it alive until the merge resolves.
		r.items.Set(id, ws, cache.DefaultExpiration)
		return
	}
	if err := ws.Close(); err != nil {
		r.opts.Logger.Warn("workspace", "release workspace blobs failed", map[string]interface{}{
			"workspace": id,
			"error":     err.Error(),
		})
		return
	}
	r.opts.Logger.Info("workspace", "workspace released", map[string]interface{}{"workspace": id})
}
