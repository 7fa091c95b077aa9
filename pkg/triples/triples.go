// Package triples implements Triple Generation (spec §4.8, component
// C10): a five-round threshold protocol producing additive-to-
// threshold shares (a_i, b_i, c_i) with a·b=c, plus the public
// commitments (A,B,C), using n-party Multiplication (C9) in parallel
// with the outer rounds.
package triples

import (
	"crypto/rand"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/pkg/commitment"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/multiply"
	"github.com/sigmabit/threshold-ecdsa/pkg/ot"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
	"github.com/sigmabit/threshold-ecdsa/pkg/transcript"
)

// Result is Triple Generation's output: one party's threshold shares
// of a,b,c plus the group's public commitments (spec §3 "Triple").
type Result struct {
	ShareA, ShareB, ShareC curve.Scalar
	A, B, C                curve.Point
}

func samplePolynomial(group curve.Curve, t int, zeroConstant bool) *curve.Polynomial {
	coeffs := make([]curve.Scalar, t)
	for i := range coeffs {
		coeffs[i] = group.SampleUniform(rand.Reader)
	}
	if zeroConstant {
		coeffs[0] = group.NewScalar()
	}
	return curve.NewPolynomial(group, coeffs)
}

func marshalPoints(pts []curve.Point) [][]byte {
	out := make([][]byte, len(pts))
	for i, p := range pts {
		out[i] = p.Bytes()
	}
	return out
}

func serializeCommitted(E, F, L *curve.PointPolynomial) []byte {
	var buf []byte
	for _, pts := range [][]curve.Point{E.Coefficients, F.Coefficients, L.Coefficients} {
		for _, p := range marshalPoints(pts) {
			buf = append(buf, p...)
		}
	}
	return buf
}

func deserializeCommitted(group curve.Curve, t int, value []byte) (E, F, L *curve.PointPolynomial, err error) {
	pointLen := group.PointBytes()
	want := 3 * t * pointLen
	if len(value) != want {
		return nil, nil, nil, fmt.Errorf("triples: commitment opening has wrong length %d, want %d", len(value), want)
	}
	parse := func(offset int) (*curve.PointPolynomial, error) {
		coeffs := make([]curve.Point, t)
		for i := 0; i < t; i++ {
			b := value[offset+i*pointLen : offset+(i+1)*pointLen]
			p, err := group.NewPoint().SetBytes(b)
			if err != nil {
				return nil, err
			}
			coeffs[i] = p
		}
		return curve.NewPointPolynomial(group, coeffs), nil
	}
	if E, err = parse(0); err != nil {
		return
	}
	if F, err = parse(t * pointLen); err != nil {
		return
	}
	L, err = parse(2 * t * pointLen)
	return
}

func shiftConstant(group curve.Curve, P *curve.PointPolynomial, shift curve.Point) *curve.PointPolynomial {
	coeffs := make([]curve.Point, P.Degree()+1)
	for i, c := range P.Coefficients {
		coeffs[i] = group.NewPoint().Add(c)
	}
	coeffs[0] = coeffs[0].Add(shift)
	return curve.NewPointPolynomial(group, coeffs)
}

func computeConfirm(sorted party.IDSlice, coms map[party.ID]commitment.Com) []byte {
	h := blake3.New()
	_, _ = h.Write([]byte("threshold-ecdsa/triples/confirm/v1"))
	for _, p := range sorted {
		c := coms[p]
		_, _ = h.Write(c[:])
	}
	digest := make([]byte, 32)
	_, _ = h.Digest().Read(digest)
	return digest
}

type wireCommit struct {
	Com []byte `cbor:"1,keyasint"`
}

type wireConfirm struct {
	Confirm []byte `cbor:"1,keyasint"`
}

type wireProof struct {
	A [][]byte `cbor:"1,keyasint"`
	Z []byte   `cbor:"2,keyasint"`
}

func marshalProof(p *transcript.Proof) wireProof {
	return wireProof{A: marshalPoints(p.A), Z: p.Z.Bytes()}
}

func unmarshalProof(group curve.Curve, w wireProof) (*transcript.Proof, error) {
	pts := make([]curve.Point, len(w.A))
	for i, b := range w.A {
		p, err := group.NewPoint().SetBytes(b)
		if err != nil {
			return nil, err
		}
		pts[i] = p
	}
	z, err := group.NewScalar().SetBytes(w.Z)
	if err != nil {
		return nil, err
	}
	return &transcript.Proof{A: pts, Z: z}, nil
}

type wireOpening struct {
	Value []byte    `cbor:"1,keyasint"`
	Salt  []byte    `cbor:"2,keyasint"`
	Pi0   wireProof `cbor:"3,keyasint"`
	Pi1   wireProof `cbor:"4,keyasint"`
}

type wireShare struct {
	A []byte `cbor:"1,keyasint"`
	B []byte `cbor:"2,keyasint"`
}

type wireDlogEq struct {
	C  []byte    `cbor:"1,keyasint"`
	Pi wireProof `cbor:"2,keyasint"`
}

type wireDlog struct {
	Point []byte    `cbor:"1,keyasint"`
	Pi    wireProof `cbor:"2,keyasint"`
}

type wireCShare struct {
	C []byte `cbor:"1,keyasint"`
}

type peerRound2 struct {
	E, F, L  *curve.PointPolynomial
	Pi0, Pi1 *transcript.Proof
}

func marshalOrFail(v interface{}) ([]byte, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, engine.NewFail(engine.InvariantViolated, err)
	}
	return b, nil
}

// Body runs Triple Generation for self within parties, producing a
// threshold-t sharing of (a,b,c=a·b). store must already hold C5
// Triple Setups against every other party in parties (spec §4.3). The
// session's Confirm value, derived from each run's fresh random
// polynomial commitments, doubles as the child Multiplication's
// session id, so independently scheduled runs (e.g. Batch's concurrent
// instances) never collide without needing an externally supplied sid.
func Body(group curve.Curve, store *ot.Store, parties party.IDSlice, self party.ID, t int) engine.Body {
	return func(task *engine.Task) (interface{}, error) {
		sorted := party.NewIDSlice([]party.ID(parties))
		others := sorted.Others(self)

		// Round 1.
		e := samplePolynomial(group, t, false)
		f := samplePolynomial(group, t, false)
		l := samplePolynomial(group, t, true)
		E := e.Commit()
		F := f.Commit()
		L := l.Commit()

		value := serializeCommitted(E, F, L)
		com, opener, err := commitment.Commit(value)
		if err != nil {
			return nil, engine.NewFail(engine.InvariantViolated, err)
		}

		payload, err := marshalOrFail(wireCommit{Com: com[:]})
		if err != nil {
			return nil, err
		}
		task.SendMany(payload)

		coms := map[party.ID]commitment.Com{self: com}
		for _, p := range others {
			raw := task.Recv(p)
			var w wireCommit
			if err := cbor.Unmarshal(raw, &w); err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			var c commitment.Com
			copy(c[:], w.Com)
			coms[p] = c
		}

		// Round 2.
		confirm := computeConfirm(sorted, coms)
		tr := transcript.New(group, confirm)

		multiplyChild := task.Spawn(multiply.Body(group, store, []party.ID(sorted), self, e.Constant(), f.Constant(), confirm))

		pi0 := transcript.ProveDlog(tr, E.Constant(), e.Constant(), "dlog0", int(self))
		pi1 := transcript.ProveDlog(tr, F.Constant(), f.Constant(), "dlog1", int(self))

		confirmPayload, err := marshalOrFail(wireConfirm{Confirm: confirm})
		if err != nil {
			return nil, err
		}
		task.SendMany(confirmPayload)

		openingPayload, err := marshalOrFail(wireOpening{
			Value: opener.Value,
			Salt:  opener.Salt[:],
			Pi0:   marshalProof(pi0),
			Pi1:   marshalProof(pi1),
		})
		if err != nil {
			return nil, err
		}
		task.SendMany(openingPayload)

		for _, p := range others {
			share := wireShare{A: e.EvaluateID(p).Bytes(), B: f.EvaluateID(p).Bytes()}
			sharePayload, err := marshalOrFail(share)
			if err != nil {
				return nil, err
			}
			task.SendOne(p, sharePayload)
		}

		// Round 3.
		for _, p := range others {
			raw := task.Recv(p)
			var w wireConfirm
			if err := cbor.Unmarshal(raw, &w); err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			if string(w.Confirm) != string(confirm) {
				return nil, engine.NewFail(engine.ConsistencyFailed, fmt.Errorf("triples: Confirm mismatch from party %d", p))
			}
		}

		round2 := make(map[party.ID]*peerRound2, len(others))
		for _, p := range others {
			raw := task.Recv(p)
			var w wireOpening
			if err := cbor.Unmarshal(raw, &w); err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			opener := &commitment.Opener{Value: w.Value}
			copy(opener.Salt[:], w.Salt)
			if err := commitment.CheckCommit(coms[p], opener); err != nil {
				return nil, engine.NewFail(engine.CommitmentFailed, err)
			}
			peerE, peerF, peerL, err := deserializeCommitted(group, t, w.Value)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			if !peerL.Constant().IsIdentity() {
				return nil, engine.NewFail(engine.ConsistencyFailed, fmt.Errorf("triples: L_%d(0) != O", p))
			}
			peerPi0, err := unmarshalProof(group, w.Pi0)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			peerPi1, err := unmarshalProof(group, w.Pi1)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			if err := transcript.VerifyDlog(tr, peerE.Constant(), peerPi0, "dlog0", int(p)); err != nil {
				return nil, engine.NewFail(engine.ProofFailed, err)
			}
			if err := transcript.VerifyDlog(tr, peerF.Constant(), peerPi1, "dlog1", int(p)); err != nil {
				return nil, engine.NewFail(engine.ProofFailed, err)
			}
			round2[p] = &peerRound2{E: peerE, F: peerF, L: peerL, Pi0: peerPi0, Pi1: peerPi1}
		}

		aShares := map[party.ID]curve.Scalar{self: e.EvaluateID(self)}
		bShares := map[party.ID]curve.Scalar{self: f.EvaluateID(self)}
		for _, p := range others {
			raw := task.Recv(p)
			var w wireShare
			if err := cbor.Unmarshal(raw, &w); err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			aShare, err := group.NewScalar().SetBytes(w.A)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			bShare, err := group.NewScalar().SetBytes(w.B)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			aShares[p] = aShare
			bShares[p] = bShare
		}

		aSelf := group.NewScalar()
		bSelf := group.NewScalar()
		Eagg := E
		Fagg := F
		for _, p := range sorted {
			if p == self {
				aSelf.Add(aShares[self])
				bSelf.Add(bShares[self])
				continue
			}
			aSelf.Add(aShares[p])
			bSelf.Add(bShares[p])
			Eagg = Eagg.Add(round2[p].E)
			Fagg = Fagg.Add(round2[p].F)
		}

		selfIDScalar := curve.IDScalar(group, self)
		if !Eagg.Evaluate(selfIDScalar).Equal(aSelf.ActOnBase()) {
			return nil, engine.NewFail(engine.ConsistencyFailed, fmt.Errorf("triples: E(%d) != a_%d*G0", self, self))
		}
		if !Fagg.Evaluate(selfIDScalar).Equal(bSelf.ActOnBase()) {
			return nil, engine.NewFail(engine.ConsistencyFailed, fmt.Errorf("triples: F(%d) != b_%d*G0", self, self))
		}

		Ci := e.Constant().Act(Fagg.Constant())
		piEq := transcript.ProveDlogEq(tr, group.Generator(), E.Constant(), Fagg.Constant(), Ci, e.Constant(), "dlogeq0", int(self))

		dlogEqPayload, err := marshalOrFail(wireDlogEq{C: Ci.Bytes(), Pi: marshalProof(piEq)})
		if err != nil {
			return nil, err
		}
		task.SendMany(dlogEqPayload)

		// Round 4.
		C := group.NewPoint().Add(Ci)
		for _, p := range others {
			raw := task.Recv(p)
			var w wireDlogEq
			if err := cbor.Unmarshal(raw, &w); err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			Cj, err := group.NewPoint().SetBytes(w.C)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			piJ, err := unmarshalProof(group, w.Pi)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			if err := transcript.VerifyDlogEq(tr, group.Generator(), round2[p].E.Constant(), Fagg.Constant(), Cj, piJ, "dlogeq0", int(p)); err != nil {
				return nil, engine.NewFail(engine.ProofFailed, err)
			}
			C = C.Add(Cj)
		}

		multiplyResult, err := task.AwaitChild(multiplyChild)
		if err != nil {
			return nil, err
		}
		l0 := multiplyResult.(curve.Scalar)

		chatSelf := l0.ActOnBase()
		piDlog2 := transcript.ProveDlog(tr, chatSelf, l0, "dlog2", int(self))

		dlogPayload, err := marshalOrFail(wireDlog{Point: chatSelf.Bytes(), Pi: marshalProof(piDlog2)})
		if err != nil {
			return nil, err
		}
		task.SendMany(dlogPayload)

		for _, p := range others {
			c := group.NewScalar().Set(l0).Add(l.EvaluateID(p))
			cPayload, err := marshalOrFail(wireCShare{C: c.Bytes()})
			if err != nil {
				return nil, err
			}
			task.SendOne(p, cPayload)
		}

		// Round 5.
		chatByPeer := make(map[party.ID]curve.Point, len(others))
		for _, p := range others {
			raw := task.Recv(p)
			var w wireDlog
			if err := cbor.Unmarshal(raw, &w); err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			chatJ, err := group.NewPoint().SetBytes(w.Point)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			piJ, err := unmarshalProof(group, w.Pi)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			if err := transcript.VerifyDlog(tr, chatJ, piJ, "dlog2", int(p)); err != nil {
				return nil, engine.NewFail(engine.ProofFailed, err)
			}
			chatByPeer[p] = chatJ
		}

		Ltotal := shiftConstant(group, L, chatSelf)
		for _, p := range others {
			Ltotal = Ltotal.Add(shiftConstant(group, round2[p].L, chatByPeer[p]))
		}
		if !C.Equal(Ltotal.Constant()) {
			return nil, engine.NewFail(engine.ConsistencyFailed, fmt.Errorf("triples: C != L(0)"))
		}

		cSelf := group.NewScalar().Set(l0).Add(l.EvaluateID(self))
		for _, p := range others {
			raw := task.Recv(p)
			var w wireCShare
			if err := cbor.Unmarshal(raw, &w); err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			cj, err := group.NewScalar().SetBytes(w.C)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			cSelf.Add(cj)
		}

		if !Ltotal.Evaluate(selfIDScalar).Equal(cSelf.ActOnBase()) {
			return nil, engine.NewFail(engine.ConsistencyFailed, fmt.Errorf("triples: L(%d) != c_%d*G0", self, self))
		}

		return &Result{
			ShareA: aSelf,
			ShareB: bSelf,
			ShareC: cSelf,
			A:      Eagg.Constant(),
			B:      Fagg.Constant(),
			C:      C,
		}, nil
	}
}
