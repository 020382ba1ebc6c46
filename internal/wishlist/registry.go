package wishlist

import (
	"context"
	"sync"
	"time"

	"github.com/microip/storefront-backend/internal/storage"
	"github.com/microip/storefront-backend/pkg/logger"
)

type registryEntry struct {
	store    *Store
	lastSeen time.Time
}

// Registry caches each visitor's loaded wishlist so the backend is read once per visit.
type Registry struct {
	mu      sync.Mutex
	backend storage.Backend
	logg    *logger.Logger
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*registryEntry
}

func NewRegistry(backend storage.Backend, ttl time.Duration, logg *logger.Logger) *Registry {
	return &Registry{
		backend: backend,
		logg:    logg,
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]*registryEntry{},
	}
}

// For returns the visitor's wishlist, loading it from the backend on first use.
func (r *Registry) For(ctx context.Context, visitorID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.entries[visitorID]
	if !ok || (r.ttl > 0 && now.Sub(entry.lastSeen) > r.ttl) {
		entry = &registryEntry{store: Load(ctx, r.backend, storage.Key(StorageScope, visitorID), r.logg)}
		r.entries[visitorID] = entry
	}
	entry.lastSeen = now
	return entry.store
}

// Sweep drops cached wishlists idle past the ttl. Their data stays in the backend.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, entry := range r.entries {
		if r.ttl > 0 && now.Sub(entry.lastSeen) > r.ttl {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
