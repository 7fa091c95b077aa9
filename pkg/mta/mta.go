// Package mta implements the multiplicative-to-additive share
// conversion of spec §4.6 (component C8): given party i's secret a
// and party j's secret b, the two parties end up holding α, β with
// α+β = a·b, consuming one batch of Random OT Extension (C7) output.
//
// Role mapping to C7: MtA's sender holds (v^0_i,v^1_i) per row — the
// Δ-holding side of C7 (ot.RandomDeltaResult). MtA's receiver holds
// (t_i,v^{t_i}_i) per row — the K0/K1-holding side (ot.RandomBothResult),
// whose own random choice bits play the role of t_i here.
package mta

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/sigmabit/threshold-ecdsa/internal/bitvec"
	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/ot"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

type wirePair struct {
	C0 []byte `cbor:"1,keyasint"`
	C1 []byte `cbor:"2,keyasint"`
}

type wireSenderBatch struct {
	Pairs []wirePair `cbor:"1,keyasint"`
}

type wireReceiverReveal struct {
	Seed []byte `cbor:"1,keyasint"`
	Chi1 []byte `cbor:"2,keyasint"`
}

// Kappa returns ⌈log2(q)⌉+λ for a curve whose scalar field serializes
// to ScalarBytes()*8 bits — the batch size C8 needs from C7 (spec
// §4.6).
func Kappa(group curve.Curve) int {
	return group.ScalarBytes()*8 + bitvec.LambdaBits
}

func chiIndex(i int) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(i))
	return b[:]
}

// expandChi reconstructs the full χ vector from the receiver's seed
// and its specially-chosen χ_1 (spec §4.6 step 3): χ_2..χ_κ come from
// PRG(seed), χ_1 is sent explicitly because it is not uniform.
func expandChi(group curve.Curve, seed []byte, kappa int, chi1 curve.Scalar) []curve.Scalar {
	chis := make([]curve.Scalar, kappa)
	chis[0] = chi1
	for i := 1; i < kappa; i++ {
		chis[i] = group.HashToScalar("threshold-ecdsa/mta/v1/chi", seed, chiIndex(i))
	}
	return chis
}

// SenderBody runs MtA's sender role: it holds secret a and the
// Δ-side Random OT Extension output against peer, and outputs α such
// that α+β = a·b for whatever b the receiver holds.
func SenderBody(group curve.Curve, peer party.ID, a curve.Scalar, otResult *ot.RandomDeltaResult) engine.Body {
	return func(t *engine.Task) (interface{}, error) {
		kappa := len(otResult.V0)
		if kappa == 0 {
			return nil, engine.NewFail(engine.InvariantViolated, fmt.Errorf("mta: empty OT extension batch"))
		}
		delta := make([]curve.Scalar, kappa)
		pairs := make([]wirePair, kappa)
		for i := 0; i < kappa; i++ {
			delta[i] = group.SampleUniform(rand.Reader)
			// c0 = -a + delta_i + v^0_i ; c1 = a + delta_i + v^1_i
			c0 := group.NewScalar().Set(a).Negate().Add(delta[i]).Add(otResult.V0[i])
			c1 := group.NewScalar().Set(a).Add(delta[i]).Add(otResult.V1[i])
			pairs[i] = wirePair{C0: c0.Bytes(), C1: c1.Bytes()}
		}
		payload, err := cbor.Marshal(wireSenderBatch{Pairs: pairs})
		if err != nil {
			return nil, engine.NewFail(engine.InvariantViolated, err)
		}
		t.SendOne(peer, payload)

		raw := t.Recv(peer)
		var reveal wireReceiverReveal
		if err := cbor.Unmarshal(raw, &reveal); err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}
		chi1, err := group.NewScalar().SetBytes(reveal.Chi1)
		if err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}
		chis := expandChi(group, reveal.Seed, kappa, chi1)

		// α = -⟨χ_i,δ_i⟩ (spec §4.6 step 5).
		alpha := group.NewScalar()
		for i := 0; i < kappa; i++ {
			alpha.Sub(group.NewScalar().Set(chis[i]).Mul(delta[i]))
		}
		return alpha, nil
	}
}

// ReceiverBody runs MtA's receiver role: it holds secret b and the
// K0/K1-side Random OT Extension output against peer (whose Bits
// field supplies t_i), and outputs β.
func ReceiverBody(group curve.Curve, peer party.ID, b curve.Scalar, otResult *ot.RandomBothResult) engine.Body {
	return func(t *engine.Task) (interface{}, error) {
		kappa := len(otResult.Bits)
		raw := t.Recv(peer)
		var batch wireSenderBatch
		if err := cbor.Unmarshal(raw, &batch); err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}
		if len(batch.Pairs) != kappa {
			return nil, engine.NewFail(engine.Malformed, fmt.Errorf("mta: expected %d pairs, got %d", kappa, len(batch.Pairs)))
		}

		m := make([]curve.Scalar, kappa)
		for i := range m {
			var cBytes []byte
			if otResult.Bits[i] {
				cBytes = batch.Pairs[i].C1
			} else {
				cBytes = batch.Pairs[i].C0
			}
			c, err := group.NewScalar().SetBytes(cBytes)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			m[i] = c.Sub(otResult.V[i])
		}

		var seed [32]byte
		if _, err := rand.Read(seed[:]); err != nil {
			return nil, engine.NewFail(engine.InvariantViolated, err)
		}
		chis := make([]curve.Scalar, kappa)
		for i := 1; i < kappa; i++ {
			chis[i] = group.HashToScalar("threshold-ecdsa/mta/v1/chi", seed[:], chiIndex(i))
		}

		// χ_1 is fixed so that ⟨χ_i,(-1)^{t_i}⟩ = -b: combined with
		// m_i - δ_i = -a·(-1)^{t_i} and α = -⟨χ,δ⟩ on the sender side,
		// this is what makes α+β telescope to exactly a·b (spec §4.6
		// step 3, sign resolved to match the stated guarantee).
		sum := group.NewScalar()
		for i := 1; i < kappa; i++ {
			term := group.NewScalar().Set(chis[i])
			if otResult.Bits[i] {
				term.Negate()
			}
			sum.Add(term)
		}
		chi1 := group.NewScalar().Set(b).Negate().Sub(sum)
		if otResult.Bits[0] {
			chi1.Negate()
		}
		chis[0] = chi1

		beta := group.NewScalar()
		for i := 0; i < kappa; i++ {
			beta.Add(group.NewScalar().Set(chis[i]).Mul(m[i]))
		}

		payload, err := cbor.Marshal(wireReceiverReveal{Seed: seed[:], Chi1: chi1.Bytes()})
		if err != nil {
			return nil, engine.NewFail(engine.InvariantViolated, err)
		}
		t.SendOne(peer, payload)

		return beta, nil
	}
}
