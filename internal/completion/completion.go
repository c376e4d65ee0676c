// Package completion tracks which briefing items are done.
//
// Completion is keyed by item id alone. The same id appearing in two dated
// documents is one completion entity, so checking it off in one briefing checks
// it off everywhere.
package completion

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
)

// StorageKey is the key the done-set blob is persisted under.
const StorageKey = "morning-briefing-checks"

// Storage is a durable string key/value medium.
type Storage interface {
	GetValue(key string) (value string, ok bool, err error)
	SetValue(key, value string) error
}

// Store is the set of completed item ids. Every mutation is persisted in full
// before SetDone returns.
type Store struct {
	mu      sync.Mutex
	done    map[string]bool
	storage Storage
}

// Load reads the persisted done-set. Missing or corrupt data yields an empty
// store; read failures are logged and the store keeps working in memory.
func Load(storage Storage) *Store {
	s := &Store{done: make(map[string]bool), storage: storage}
	if storage == nil {
		return s
	}

	raw, ok, err := storage.GetValue(StorageKey)
	if err != nil {
		log.Printf("Failed to read completion state: %v", err)
		return s
	}
	if !ok || raw == "" {
		return s
	}

	var persisted map[string]bool
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		log.Printf("Ignoring corrupt completion state: %v", err)
		return s
	}
	for id, v := range persisted {
		if v {
			s.done[id] = true
		}
	}
	return s
}

// IsDone reports whether id is marked done.
func (s *Store) IsDone(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done[id]
}

// SetDone marks id done or not done and persists the whole set, even when the
// call does not change anything.
func (s *Store) SetDone(id string, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if done {
		s.done[id] = true
	} else {
		delete(s.done, id)
	}
	s.persistLocked()
}

// Toggle flips id and returns the new state.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := !s.done[id]
	if next {
		s.done[id] = true
	} else {
		delete(s.done, id)
	}
	s.persistLocked()
	return next
}

// Clear marks every id pending, persists the empty set and returns how many
// ids were done.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.done)
	s.done = make(map[string]bool)
	s.persistLocked()
	return n
}

func (s *Store) persistLocked() {
	if s.storage == nil {
		return
	}
	data, err := json.Marshal(s.done)
	if err != nil {
		log.Printf("Failed to encode completion state: %v", err)
		return
	}
	if err := s.storage.SetValue(StorageKey, string(data)); err != nil {
		log.Printf("Failed to persist completion state: %v", err)
	}
}

// Snapshot returns a read-only copy of the done-set.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make(map[string]bool, len(s.done))
	for id := range s.done {
		cp[id] = true
	}
	return Snapshot(cp)
}

// DoneIDs returns the done ids in sorted order.
func (s *Store) DoneIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.done))
	for id := range s.done {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of done ids.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done)
}

// Snapshot is a frozen copy of the done-set.
type Snapshot map[string]bool

// IsDone reports whether id was done when the snapshot was taken.
func (s Snapshot) IsDone(id string) bool {
	return s[id]
}
