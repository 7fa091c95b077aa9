package triples

import (
	"sync"

	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

// Store is an in-memory, process-local pool of unconsumed triples,
// keyed by the sorted party set they were generated against. A triple
// generated for one set of co-signers must never be used by a
// different set (spec §6), and is destroyed on first use (spec §3) —
// this holds for the lifetime of the process only, no disk
// persistence.
type Store struct {
	mu      sync.Mutex
	byGroup map[string][]*Result
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byGroup: make(map[string][]*Result)}
}

func groupKey(parties party.IDSlice) string {
	sorted := party.NewIDSlice([]party.ID(parties))
	buf := make([]byte, 4*len(sorted))
	for i, id := range sorted {
		buf[4*i] = byte(id >> 24)
		buf[4*i+1] = byte(id >> 16)
		buf[4*i+2] = byte(id >> 8)
		buf[4*i+3] = byte(id)
	}
	return string(buf)
}

// Put adds a freshly generated triple, tagged with the party set it
// was generated against.
func (s *Store) Put(parties party.IDSlice, r *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupKey(parties)
	s.byGroup[key] = append(s.byGroup[key], r)
}

// Take removes and returns one unconsumed triple generated against
// parties, or reports false if none remain.
func (s *Store) Take(parties party.IDSlice) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupKey(parties)
	q := s.byGroup[key]
	if len(q) == 0 {
		return nil, false
	}
	r := q[0]
	s.byGroup[key] = q[1:]
	return r, true
}

// Len reports how many unconsumed triples remain for parties.
func (s *Store) Len(parties party.IDSlice) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byGroup[groupKey(parties)])
}
