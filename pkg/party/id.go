// Package party defines the opaque, totally-ordered participant
// identity used throughout the triple-generation pipeline.
package party

import "sort"

// ID is an opaque, totally-ordered identity for a party in the
// protocol. Ordering is canonical and agreed out-of-band; it is used
// to pick the sender/receiver roles in two-party subprotocols (the
// lesser ID is always the Setup sender for a pair) and to evaluate
// secret-sharing polynomials.
type ID uint32

// Less reports whether id sorts before other under the canonical
// party ordering.
func (id ID) Less(other ID) bool { return id < other }

// IDSlice is a set of party IDs kept sorted in canonical order.
type IDSlice []ID

// NewIDSlice sorts and returns ids as an IDSlice.
func NewIDSlice(ids []ID) IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Contains reports whether id is present in the set.
func (s IDSlice) Contains(id ID) bool {
	for _, other := range s {
		if other == id {
			return true
		}
	}
	return false
}

// Len is the number of parties in the set.
func (s IDSlice) Len() int { return len(s) }

// Others returns every ID in the set except self.
func (s IDSlice) Others(self ID) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, id := range s {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// OrderedPair returns (lo, hi) for a and b, where lo < hi. The lesser
// ID is by convention the Setup sender (§4.3) for the pair {a, b}.
func OrderedPair(a, b ID) (lo, hi ID) {
	if a < b {
		return a, b
	}
	return b, a
}
