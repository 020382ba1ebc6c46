package cart

import "sync"

// Store is one visitor's cart. It lives only in memory for the visitor session.
type Store struct {
	mu    sync.RWMutex
	items []Item
}

func NewStore() *Store {
	return &Store{}
}

// AddItem bumps the quantity of an existing line by one, ignoring the other incoming
// fields, or appends the item with quantity 1.
func (s *Store) AddItem(item Item) Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Quantity++
			return s.items[i].clone()
		}
	}
	added := item.clone()
	added.Quantity = 1
	s.items = append(s.items, added)
	return added.clone()
}

// RemoveItem drops the line; absent ids are ignored.
func (s *Store) RemoveItem(id ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *Store) removeLocked(id ItemID) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// UpdateQuantity sets the quantity exactly; zero or less removes the line.
func (s *Store) UpdateQuantity(id ItemID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(id)
		return
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = quantity
			return
		}
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	for i, item := range s.items {
		out[i] = item.clone()
	}
	return out
}

// Get returns the line with id, if present.
func (s *Store) Get(id ItemID) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item.clone(), true
		}
	}
	return Item{}, false
}

// ItemCount is the sum of quantities, not the number of lines.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}
