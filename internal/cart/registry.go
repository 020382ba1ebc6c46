package cart

import (
	"sync"
	"time"
)

type registryEntry struct {
	store    *Store
	lastSeen time.Time
}

// Registry hands out one Store per visitor session and forgets carts idle longer than
// the session TTL.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*registryEntry
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{ttl: ttl, now: time.Now, entries: map[string]*registryEntry{}}
}

// For returns the session's cart, creating an empty one on first use.
func (r *Registry) For(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.entries[sessionID]
	if !ok || r.expired(entry, now) {
		entry = &registryEntry{store: NewStore()}
		r.entries[sessionID] = entry
	}
	entry.lastSeen = now
	return entry.store
}

// Sweep drops idle carts and reports how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, entry := range r.entries {
		if r.expired(entry, now) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) expired(entry *registryEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(entry.lastSeen) > r.ttl
}
