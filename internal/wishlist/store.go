package wishlist

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/piligrim/bookshelf/internal/metrics"
)

// Store is the set of liked book identifiers of one browser.
// Every mutation is written through the persistence port before returning.
type Store struct {
	mu    sync.Mutex
	p     Persistence
	ids   []int
	index map[int]struct{}
}

// Open rehydrates a store from p. Missing or malformed data yields an
// empty store; the problem is logged and never returned.
func Open(p Persistence, log logrus.FieldLogger) *Store {
	s := &Store{p: p, index: make(map[int]struct{})}

	data, err := p.Load()
	if err != nil {
		log.WithError(err).Warn("wishlist.load.failed")
		return s
	}
	ids, err := decode(data)
	if err != nil {
		log.WithError(err).Warn("wishlist.load.malformed")
		return s
	}
	s.replace(ids)
	return s
}

// Reload re-reads the persisted list, picking up writes made by other
// processes. On error the current contents are kept.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.p.Load()
	if err != nil {
		return fmt.Errorf("failed to reload wishlist: %w", err)
	}
	ids, err := decode(data)
	if err != nil {
		return fmt.Errorf("failed to reload wishlist: %w", err)
	}
	s.replace(ids)
	return nil
}

// decode parses a stored JSON array, dropping duplicates and non-positive ids
func decode(data []byte) ([]int, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var stored []int
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(stored))
	ids := make([]int, 0, len(stored))
	for _, id := range stored {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// replace swaps in a decoded list. Callers hold mu or own s exclusively.
func (s *Store) replace(ids []int) {
	s.ids = ids
	s.index = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		s.index[id] = struct{}{}
	}
}

// Contains reports whether id is in the wishlist
func (s *Store) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// Add inserts id; adding a present id is a no-op
func (s *Store) Add(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; ok {
		return nil
	}
	return s.set(id, true)
}

// Remove deletes id; removing an absent id is a no-op
func (s *Store) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return nil
	}
	return s.set(id, false)
}

// Toggle flips membership of id and returns the resulting state
func (s *Store) Toggle(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, present := s.index[id]
	if err := s.set(id, !present); err != nil {
		return present, err
	}

	state := "removed"
	if !present {
		state = "added"
	}
	metrics.WishlistTogglesTotal.WithLabelValues(state).Inc()
	return !present, nil
}

// Count returns the number of liked books
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// All returns the liked identifiers in the order they were added
func (s *Store) All() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// set applies a membership change and flushes it; on a failed flush the
// change is undone so memory never runs ahead of storage. Callers hold mu.
func (s *Store) set(id int, member bool) error {
	if id <= 0 {
		return fmt.Errorf("invalid book id %d", id)
	}

	prev := s.ids
	var next []int
	if member {
		next = append(slices.Clone(prev), id)
	} else {
		next = slices.DeleteFunc(slices.Clone(prev), func(v int) bool { return v == id })
	}

	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := s.p.Save(data); err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}

	s.ids = next
	if member {
		s.index[id] = struct{}{}
	} else {
		delete(s.index, id)
	}
	return nil
}
