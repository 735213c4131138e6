package association

import (
	"sort"
	"sync"
)

// #region store-struct
// Store holds the mode↔token association table (β). It is a pure data
// holder: values are written exactly as given and clamping is the caller's
// job. Reads may run concurrently; writes are exclusive.
type Store struct {
	mu   sync.RWMutex
	beta map[Key]float64
}

// #endregion store-struct

// #region constructor
// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{beta: make(map[Key]float64)}
}

// #endregion constructor

// #region read
// Get returns β(mode, token), or 0.0 when the pair was never set.
func (s *Store) Get(mode, token string) float64 {
	v, _ := s.Lookup(mode, token)
	return v
}

// Lookup returns β(mode, token) and whether the pair is materialized.
func (s *Store) Lookup(mode, token string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.beta[Key{Mode: mode, Token: token}]
	return v, ok
}

// Len returns the number of materialized entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.beta)
}

// #endregion read

// #region write
// Set stores value for (mode, token).
func (s *Store) Set(mode, token string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beta[Key{Mode: mode, Token: token}] = value
}

// Update runs a read-modify-write on a single cell under the write lock.
// fn receives the current value and presence and returns the value to store;
// returning write=false leaves the cell untouched.
func (s *Store) Update(key Key, fn func(current float64, present bool) (next float64, write bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.beta[key]
	next, write := fn(cur, ok)
	if write {
		s.beta[key] = next
	}
}

// Seed replaces the table with a copy of seeds.
func (s *Store) Seed(seeds map[Key]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beta = make(map[Key]float64, len(seeds))
	for k, v := range seeds {
		s.beta[k] = v
	}
}

// Reset drops every entry.
func (s *Store) Reset() {
	s.Seed(nil)
}

// #endregion write

// #region snapshot
// Snapshot returns a copy of every explicitly set entry. Unset pairs are
// never included.
func (s *Store) Snapshot() map[Key]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Key]float64, len(s.beta))
	for k, v := range s.beta {
		out[k] = v
	}
	return out
}

// Entries returns the snapshot as a slice sorted by (mode, token).
func (s *Store) Entries() []Entry {
	snap := s.Snapshot()
	entries := make([]Entry, 0, len(snap))
	for k, v := range snap {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.Less(entries[j].Key)
	})
	return entries
}

// #endregion snapshot
