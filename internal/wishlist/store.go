package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/storage"
	"github.com/microip/storefront-backend/pkg/logger"
)

// StorageScope is the fixed key scope the serialized wishlist lives under.
const StorageScope = "wishlist"

type Item struct {
	ID           cart.ItemID `json:"id" validate:"required"`
	Name         string      `json:"name" validate:"required"`
	Image        string      `json:"image"`
	Price        string      `json:"price"`
	MonthlyPrice string      `json:"monthlyPrice,omitempty"`
}

// Store is one visitor's wishlist: membership only, no quantities. The full list is
// written to the backend after every change.
type Store struct {
	mu      sync.RWMutex
	key     string
	backend storage.Backend
	logg    *logger.Logger
	items   []Item
}

// Load reads the persisted list once. Missing or malformed data yields an empty wishlist;
// read failures are logged and never returned.
func Load(ctx context.Context, backend storage.Backend, key string, logg *logger.Logger) *Store {
	s := &Store{key: key, backend: backend, logg: logg, items: []Item{}}

	raw, err := backend.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s
	case err != nil:
		logg.Error(logg.WithField(ctx, "storage_key", key), "failed to read wishlist", err)
		return s
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{"storage_key": key, "error": err.Error()}), "discarding malformed wishlist")
		return s
	}
	seen := map[cart.ItemID]struct{}{}
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		s.items = append(s.items, item)
	}
	return s
}

// AddItem adds item unless its id is already present. It reports whether the list changed.
func (s *Store) AddItem(ctx context.Context, item Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(item.ID) >= 0 {
		return false
	}
	s.items = append(s.items, item)
	s.persistLocked(ctx)
	return true
}

// RemoveItem drops id; absent ids are ignored.
func (s *Store) RemoveItem(ctx context.Context, id cart.ItemID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.persistLocked(ctx)
	return true
}

func (s *Store) IsInWishlist(id cart.ItemID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id) >= 0
}

// ItemCount is the number of distinct entries.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item{}, s.items...)
}

func (s *Store) indexLocked(id cart.ItemID) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the whole list. Write failures keep the in-memory state and are
// only logged.
func (s *Store) persistLocked(ctx context.Context) {
	payload, err := json.Marshal(s.items)
	if err != nil {
		s.logg.Error(ctx, "failed to encode wishlist", err)
		return
	}
	if err := s.backend.Set(ctx, s.key, string(payload), 0); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "storage_key", s.key), "failed to persist wishlist", err)
	}
}
