package ot

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/sigmabit/threshold-ecdsa/internal/bitvec"
	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/internal/prg"
	"github.com/sigmabit/threshold-ecdsa/pkg/commitment"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

// lambdaPad is the 2λ statistical padding Random OT Extension adds to
// the batch (spec §4.5(a)).
const lambdaPad = 2 * bitvec.LambdaBits

// expandColumns runs PRG_sid over every one of the λ base-OT keys in
// keys (one per column) for numRows output bits each, then transposes
// the result into numRows λ-bit rows (spec §4.4's T^b_{ij}).
func expandColumns(sid []byte, keys []bitvec.Elem, numRows int) []bitvec.Elem {
	var columns [bitvec.LambdaBits][]byte
	for j := 0; j < bitvec.LambdaBits; j++ {
		columns[j] = prg.ExpandColumnBits(sid, keys[j], numRows)
	}
	return prg.ColumnsToRows(columns, numRows)
}

type wireCommit struct {
	Com []byte `cbor:"1,keyasint"`
}

type wireOpener struct {
	Value []byte `cbor:"1,keyasint"`
	Salt  []byte `cbor:"2,keyasint"`
}

type wireRows struct {
	Rows [][]byte `cbor:"1,keyasint"`
}

type wireConsistency struct {
	X []byte `cbor:"1,keyasint"`
	T []byte `cbor:"2,keyasint"`
}

func marshalRows(rows []bitvec.Elem) wireRows {
	out := make([][]byte, len(rows))
	for i, r := range rows {
		b := make([]byte, bitvec.LambdaBytes)
		copy(b, r[:])
		out[i] = b
	}
	return wireRows{Rows: out}
}

func unmarshalRows(w wireRows) ([]bitvec.Elem, error) {
	rows := make([]bitvec.Elem, len(w.Rows))
	for i, b := range w.Rows {
		if len(b) != bitvec.LambdaBytes {
			return nil, fmt.Errorf("ot: row %d has wrong length %d", i, len(b))
		}
		copy(rows[i][:], b)
	}
	return rows, nil
}

func exchangeSeedsForChi(t *engine.Task, peer party.ID, numChallenges int) ([]bitvec.Elem, error) {
	var mySeed [32]byte
	if _, err := rand.Read(mySeed[:]); err != nil {
		return nil, engine.NewFail(engine.InvariantViolated, err)
	}
	com, opener, err := commitment.Commit(mySeed[:])
	if err != nil {
		return nil, engine.NewFail(engine.InvariantViolated, err)
	}
	commitPayload, err := cbor.Marshal(wireCommit{Com: com[:]})
	if err != nil {
		return nil, engine.NewFail(engine.InvariantViolated, err)
	}
	t.SendOne(peer, commitPayload)

	theirCommitRaw := t.Recv(peer)
	var theirCommit wireCommit
	if err := cbor.Unmarshal(theirCommitRaw, &theirCommit); err != nil {
		return nil, engine.NewFail(engine.Malformed, err)
	}
	var theirCom commitment.Com
	copy(theirCom[:], theirCommit.Com)

	openPayload, err := cbor.Marshal(wireOpener{Value: opener.Value, Salt: opener.Salt[:]})
	if err != nil {
		return nil, engine.NewFail(engine.InvariantViolated, err)
	}
	t.SendOne(peer, openPayload)

	theirOpenRaw := t.Recv(peer)
	var theirOpen wireOpener
	if err := cbor.Unmarshal(theirOpenRaw, &theirOpen); err != nil {
		return nil, engine.NewFail(engine.Malformed, err)
	}
	theirOpener := &commitment.Opener{Value: theirOpen.Value}
	copy(theirOpener.Salt[:], theirOpen.Salt)
	if err := commitment.CheckCommit(theirCom, theirOpener); err != nil {
		return nil, engine.NewFail(engine.CommitmentFailed, err)
	}

	combined := make([]byte, 32)
	for i := range combined {
		combined[i] = mySeed[i] ^ theirOpener.Value[i]
	}
	return prg.ExpandChallenges(combined, numChallenges), nil
}

// RandomBothResult is the output of the party holding K0/K1 (the
// base-OT-sender half of the pair's Setup): kappa random choice bits
// and the single field element it obtained for each.
type RandomBothResult struct {
	Bits []bool
	V    []curve.Scalar
}

// RandomDeltaResult is the output of the Δ-holding party: both
// candidate field elements for every row.
type RandomDeltaResult struct {
	V0, V1 []curve.Scalar
}

// RandomBothBody runs Random OT Extension (spec §4.5, wrapping §4.4)
// from the perspective of the party whose Setup against peer holds
// K0/K1. kappa is the number of usable random OT pairs requested; an
// extra 2λ rows are added and spent entirely on the consistency
// check.
func RandomBothBody(group curve.Curve, setup *Setup, peer party.ID, sid []byte, kappa int) engine.Body {
	return func(t *engine.Task) (interface{}, error) {
		if setup.Role != RoleSender {
			return nil, engine.NewFail(engine.InvariantViolated, fmt.Errorf("ot: RandomBothBody requires a K0/K1 setup"))
		}
		numRows := kappa + lambdaPad
		bits := make([]bool, numRows)
		for i := range bits {
			var b [1]byte
			if _, err := rand.Read(b[:]); err != nil {
				return nil, engine.NewFail(engine.InvariantViolated, err)
			}
			bits[i] = b[0]&1 == 1
		}

		T0 := expandColumns(sid, setup.K0, numRows)
		T1 := expandColumns(sid, setup.K1, numRows)

		X := make([]bitvec.Elem, numRows)
		for i, b := range bits {
			X[i] = bitvec.FromBit(b)
		}
		U := make([]bitvec.Elem, numRows)
		for i := range U {
			U[i] = bitvec.Xor(bitvec.Xor(T0[i], T1[i]), X[i])
		}
		uPayload, err := cbor.Marshal(marshalRows(U))
		if err != nil {
			return nil, engine.NewFail(engine.InvariantViolated, err)
		}
		t.SendOne(peer, uPayload)

		chi, err := exchangeSeedsForChi(t, peer, numRows)
		if err != nil {
			return nil, err
		}

		// T_i is this party's own row matching its chosen bit, for the
		// consistency check (spec §4.5(d) "t = ⟨mul(T_i•,χ_i),1⟩") and
		// for the final random-OT output.
		Tb := make([]bitvec.Elem, numRows)
		for i, b := range bits {
			if b {
				Tb[i] = T1[i]
			} else {
				Tb[i] = T0[i]
			}
		}
		x := bitvec.DotBits(bits, chi)
		tCheck := bitvec.InnerProduct(Tb, chi)
		checkPayload, err := cbor.Marshal(wireConsistency{X: x[:], T: tCheck[:]})
		if err != nil {
			return nil, engine.NewFail(engine.InvariantViolated, err)
		}
		t.SendOne(peer, checkPayload)

		V := make([]curve.Scalar, kappa)
		for i := 0; i < kappa; i++ {
			V[i] = group.HashToScalar("threshold-ecdsa/ot/randomext/v1", sid, hIndex(i), Tb[i][:])
		}
		return &RandomBothResult{Bits: bits[:kappa], V: V}, nil
	}
}

// RandomDeltaBody runs Random OT Extension from the Δ-holding party's
// perspective.
func RandomDeltaBody(group curve.Curve, setup *Setup, peer party.ID, sid []byte, kappa int) engine.Body {
	return func(t *engine.Task) (interface{}, error) {
		if setup.Role != RoleReceiver {
			return nil, engine.NewFail(engine.InvariantViolated, fmt.Errorf("ot: RandomDeltaBody requires a Δ setup"))
		}
		numRows := kappa + lambdaPad
		TDelta := expandColumns(sid, setup.KDelta, numRows)

		uRaw := t.Recv(peer)
		var wireU wireRows
		if err := cbor.Unmarshal(uRaw, &wireU); err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}
		U, err := unmarshalRows(wireU)
		if err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}
		if len(U) != numRows {
			return nil, engine.NewFail(engine.Malformed, fmt.Errorf("ot: expected %d rows, got %d", numRows, len(U)))
		}

		Q := make([]bitvec.Elem, numRows)
		for i := range Q {
			Q[i] = bitvec.Xor(bitvec.And(setup.Delta, U[i]), TDelta[i])
		}

		chi, err := exchangeSeedsForChi(t, peer, numRows)
		if err != nil {
			return nil, err
		}

		checkRaw := t.Recv(peer)
		var check wireConsistency
		if err := cbor.Unmarshal(checkRaw, &check); err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}
		var x, tCheck bitvec.Elem
		copy(x[:], check.X)
		copy(tCheck[:], check.T)

		q := bitvec.InnerProduct(Q, chi)
		want := bitvec.Xor(tCheck, bitvec.Mul(x, setup.Delta))
		if q != want {
			return nil, engine.NewFail(engine.ConsistencyFailed, fmt.Errorf("ot: random OT extension consistency check failed"))
		}

		V0 := make([]curve.Scalar, kappa)
		V1 := make([]curve.Scalar, kappa)
		for i := 0; i < kappa; i++ {
			V0[i] = group.HashToScalar("threshold-ecdsa/ot/randomext/v1", sid, hIndex(i), Q[i][:])
			deltaQ := bitvec.Xor(Q[i], setup.Delta)
			V1[i] = group.HashToScalar("threshold-ecdsa/ot/randomext/v1", sid, hIndex(i), deltaQ[:])
		}
		return &RandomDeltaResult{V0: V0, V1: V1}, nil
	}
}

// hIndex serializes the row index i for absorption into H_i (spec
// §4.5), the hash that derives each row's final field-element output.
func hIndex(i int) []byte {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(i))
	return idx[:]
}
