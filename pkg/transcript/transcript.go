// Package transcript implements the Fiat-Shamir transcript and Maurer
// zero-knowledge proof system (spec §4, §6, component C2) that every
// discrete-log-flavoured proof in Triple Generation (C10) is built on:
// plain knowledge of a discrete log (`φ_G0(x) = x·G0`) and equality of
// two discrete logs under different bases
// (`φ_{G0,F}(x) = (x·G0, x·F)`).
package transcript

import (
	"github.com/zeebo/blake3"

	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
)

// Transcript absorbs protocol messages and derives Fiat-Shamir
// challenges from them. Every challenge is bound to the full history
// of Add calls plus the branch tag passed to Clone, so proofs for
// distinct branches of the same run (e.g. `dlog0/i` vs `dlog1/i`)
// never collide even though they share one underlying transcript.
type Transcript struct {
	group curve.Curve
	hash  *blake3.Hasher
}

// New creates a transcript bound to group, seeded with a session tag
// (e.g. the triple generation run's Confirm_i) so two concurrent runs
// never produce colliding challenges.
func New(group curve.Curve, sessionTag []byte) *Transcript {
	h := blake3.New()
	_, _ = h.Write([]byte("threshold-ecdsa/transcript/v1"))
	_, _ = h.Write(sessionTag)
	return &Transcript{group: group, hash: h}
}

// Add absorbs each of bs into the transcript in order.
func (t *Transcript) Add(bs ...[]byte) {
	for _, b := range bs {
		var lenPrefix [8]byte
		lenPrefix[7] = byte(len(b))
		_, _ = t.hash.Write(lenPrefix[:])
		_, _ = t.hash.Write(b)
	}
}

// Clone derives an independent sub-transcript for one proof branch,
// tagged by name and an index path (e.g. Clone("dlog0", i) for party
// i's branch of the Round 2 proof π^0_i). The parent transcript's
// state up to this point is carried into the clone; absorbing more
// into the clone never affects the parent.
func (t *Transcript) Clone(tag string, indices ...int) *Transcript {
	h := t.hash.Clone()
	_, _ = h.Write([]byte(tag))
	for _, idx := range indices {
		var b [8]byte
		b[7] = byte(idx)
		_, _ = h.Write(b[:])
	}
	return &Transcript{group: t.group, hash: h}
}

// challenge derives the Fiat-Shamir challenge scalar for the current
// transcript state, absorbing the statement being proved first so the
// challenge is bound to it.
func (t *Transcript) challenge(statement ...[]byte) curve.Scalar {
	h := t.hash.Clone()
	for _, s := range statement {
		_, _ = h.Write(s)
	}
	digest := make([]byte, 64)
	_, _ = h.Digest().Read(digest)
	return t.group.HashToScalar("threshold-ecdsa/transcript/v1/challenge", digest)
}
