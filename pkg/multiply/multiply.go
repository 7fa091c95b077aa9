// Package multiply implements n-party multiplication (spec §4.7,
// component C9): every party holds additive shares a_i, b_i of two
// secrets a = Σa_i, b = Σb_i and ends up with an additive share c_i of
// a·b, built from one pairwise MtA exchange per unordered pair of
// parties.
package multiply

import (
	"fmt"
	"sort"

	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/mta"
	"github.com/sigmabit/threshold-ecdsa/pkg/ot"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

type pairResult struct {
	gamma0, gamma1 curve.Scalar
}

// sortedGroup returns group sorted ascending, used to derive a
// canonical, self-independent numbering of every unordered pair.
func sortedGroup(group []party.ID) []party.ID {
	out := make([]party.ID, len(group))
	copy(out, group)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// pairIndex assigns every unordered pair {x,y} within sorted a unique,
// order-independent index, so that two parties spawning a shared
// pairwise sub-protocol via SpawnAt land on the same child channel
// without coordinating spawn order.
func pairIndex(sorted []party.ID, x, y party.ID) uint32 {
	if x > y {
		x, y = y, x
	}
	xi, yi := -1, -1
	for i, id := range sorted {
		if id == x {
			xi = i
		}
		if id == y {
			yi = i
		}
	}
	n := len(sorted)
	idx := 0
	for k := 0; k < xi; k++ {
		idx += n - 1 - k
	}
	idx += yi - xi - 1
	return uint32(idx)
}

// pairSessionID derives the Random OT Extension session ID for one
// pair, stable regardless of which of the two parties computes it.
func pairSessionID(sid []byte, x, y party.ID) []byte {
	if x > y {
		x, y = y, x
	}
	out := make([]byte, 0, len(sid)+8)
	out = append(out, sid...)
	out = append(out, byte(x>>24), byte(x>>16), byte(x>>8), byte(x))
	out = append(out, byte(y>>24), byte(y>>16), byte(y>>8), byte(y))
	return out
}

// pairBody runs one pair's worth of C9: a single 2κ-row Random OT
// Extension split into two κ-row MtA exchanges. Whichever side the
// store says self played as base-OT sender (the K0/K1, "Both" side)
// runs the MtA receiver role against b first and a second; the Δ side
// runs the MtA sender role against a first and b second. The two
// halves therefore net exactly the cross terms a_Δ·b_Both and
// a_Both·b_Δ (spec §4.7 step 2).
func pairBody(group curve.Curve, store *ot.Store, peer party.ID, a, b curve.Scalar, sid []byte, kappa int) engine.Body {
	return func(t *engine.Task) (interface{}, error) {
		senderSetup, isBoth := store.SenderSetup(peer)
		receiverSetup, isDelta := store.ReceiverSetup(peer)
		if !isBoth && !isDelta {
			return nil, engine.NewFail(engine.InvariantViolated, fmt.Errorf("multiply: no OT setup for peer %d", peer))
		}
		if isBoth && isDelta {
			// Setups in both directions: the lesser ID takes the K0/K1 side.
			isBoth = t.Self() < peer
		}

		if isBoth {
			extRes, err := ot.RandomBothBody(group, senderSetup, peer, sid, 2*kappa)(t)
			if err != nil {
				return nil, err
			}
			both := extRes.(*ot.RandomBothResult)
			first := &ot.RandomBothResult{Bits: both.Bits[:kappa], V: both.V[:kappa]}
			second := &ot.RandomBothResult{Bits: both.Bits[kappa:], V: both.V[kappa:]}

			g0, err := mta.ReceiverBody(group, peer, b, first)(t)
			if err != nil {
				return nil, err
			}
			g1, err := mta.ReceiverBody(group, peer, a, second)(t)
			if err != nil {
				return nil, err
			}
			return pairResult{gamma0: g0.(curve.Scalar), gamma1: g1.(curve.Scalar)}, nil
		}

		extRes, err := ot.RandomDeltaBody(group, receiverSetup, peer, sid, 2*kappa)(t)
		if err != nil {
			return nil, err
		}
		delta := extRes.(*ot.RandomDeltaResult)
		first := &ot.RandomDeltaResult{V0: delta.V0[:kappa], V1: delta.V1[:kappa]}
		second := &ot.RandomDeltaResult{V0: delta.V0[kappa:], V1: delta.V1[kappa:]}

		g0, err := mta.SenderBody(group, peer, a, first)(t)
		if err != nil {
			return nil, err
		}
		g1, err := mta.SenderBody(group, peer, b, second)(t)
		if err != nil {
			return nil, err
		}
		return pairResult{gamma0: g0.(curve.Scalar), gamma1: g1.(curve.Scalar)}, nil
	}
}

// Body runs n-party multiplication for self against group (the full
// party set, self included — every member must pass the identical
// group slice so the pairwise channel numbering agrees). self holds
// shares a,b and outputs c = a·b + Σ_{peer}(γ^0_peer+γ^1_peer), an
// additive share of the product of the parties' combined secrets
// (spec §4.7).
func Body(group curve.Curve, store *ot.Store, parties []party.ID, self party.ID, a, b curve.Scalar, sid []byte) engine.Body {
	return func(t *engine.Task) (interface{}, error) {
		kappa := mta.Kappa(group)
		sorted := sortedGroup(parties)

		children := make(map[party.ID]*engine.Task, len(sorted))
		for _, peer := range sorted {
			if peer == self {
				continue
			}
			pSid := pairSessionID(sid, self, peer)
			idx := pairIndex(sorted, self, peer)
			children[peer] = t.SpawnAt(idx, pairBody(group, store, peer, a, b, pSid, kappa))
		}

		c := group.NewScalar().Set(a).Mul(b)
		for peer, child := range children {
			res, err := t.AwaitChild(child)
			if err != nil {
				return nil, fmt.Errorf("multiply: pair with %d failed: %w", peer, err)
			}
			pr := res.(pairResult)
			c.Add(pr.gamma0).Add(pr.gamma1)
		}
		return c, nil
	}
}
