// Package ot implements the oblivious-transfer stack of spec §4.2-4.5:
// base "simplest OT" (C4), per-pair Triple Setup (C5), Correlated OT
// Extension (C6), and Random OT Extension (C7). Every subprotocol here
// is an engine.Body: it runs as a Task (root or spawned child) and
// communicates with exactly one peer over private SendOne/Recv calls.
package ot

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/sigmabit/threshold-ecdsa/internal/bitvec"
	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

// hashKey realizes the key-derivation hash H of spec §4.2: its
// parameter tuple (index, both public points, the shared DH value)
// binds the transcript context so the derived key cannot be reused or
// confused across positions or sessions.
func hashKey(i int, Y, X []byte, shared curve.Point) bitvec.Elem {
	h := blake3.NewDeriveKey("threshold-ecdsa/ot/baseot/v1")
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(i))
	_, _ = h.Write(idx[:])
	_, _ = h.Write(Y)
	_, _ = h.Write(X)
	_, _ = h.Write(shared.Bytes())
	var out bitvec.Elem
	if _, err := io.ReadFull(h.Digest(), out[:]); err != nil {
		panic(err)
	}
	return out
}

// SenderKeys is what the sender side of base OT learns: both
// candidate keys K^0_i, K^1_i for each of the l positions.
type SenderKeys struct {
	K0 []bitvec.Elem
	K1 []bitvec.Elem
}

// ReceiverKeys is what the receiver side learns: its choice bits and
// the single key K^{b_i}_i it obtained for each position.
type ReceiverKeys struct {
	Choices []bool
	K       []bitvec.Elem
}

type wireSenderHello struct {
	Y []byte `cbor:"1,keyasint"`
}

type wireReceiverBatch struct {
	X [][]byte `cbor:"2,keyasint"`
}

// SenderBody runs the sender's half of "simplest OT" (spec §4.2) for
// a batch of size l against peer.
func SenderBody(group curve.Curve, peer party.ID, l int) engine.Body {
	return func(t *engine.Task) (interface{}, error) {
		y := group.SampleUniform(rand.Reader)
		Y := y.ActOnBase()
		zNeg := y.Act(Y)
		zNeg.Negate()

		hello, err := cbor.Marshal(wireSenderHello{Y: Y.Bytes()})
		if err != nil {
			return nil, engine.NewFail(engine.InvariantViolated, err)
		}
		t.SendOne(peer, hello)

		raw := t.Recv(peer)
		var batch wireReceiverBatch
		if err := cbor.Unmarshal(raw, &batch); err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}
		if len(batch.X) != l {
			return nil, engine.NewFail(engine.Malformed,
				fmt.Errorf("ot: expected %d choice points, got %d", l, len(batch.X)))
		}

		K0 := make([]bitvec.Elem, l)
		K1 := make([]bitvec.Elem, l)
		for i, xb := range batch.X {
			Xi, err := group.NewPoint().SetBytes(xb)
			if err != nil {
				return nil, engine.NewFail(engine.Malformed, err)
			}
			yXi := y.Act(Xi)
			K0[i] = hashKey(i, Y.Bytes(), xb, yXi)
			yXi.Add(zNeg)
			K1[i] = hashKey(i, Y.Bytes(), xb, yXi)
		}
		return &SenderKeys{K0: K0, K1: K1}, nil
	}
}

// ReceiverBody runs the receiver's half of "simplest OT" against
// peer, learning the key indexed by choices[i] at each position i.
func ReceiverBody(group curve.Curve, peer party.ID, choices []bool) engine.Body {
	return func(t *engine.Task) (interface{}, error) {
		raw := t.Recv(peer)
		var hello wireSenderHello
		if err := cbor.Unmarshal(raw, &hello); err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}
		Y, err := group.NewPoint().SetBytes(hello.Y)
		if err != nil {
			return nil, engine.NewFail(engine.Malformed, err)
		}

		l := len(choices)
		Xs := make([][]byte, l)
		keys := make([]bitvec.Elem, l)
		for i, b := range choices {
			xi := group.SampleUniform(rand.Reader)
			Xi := xi.ActOnBase()
			if b {
				Xi.Add(Y)
			}
			shared := xi.Act(Y)
			keys[i] = hashKey(i, hello.Y, Xi.Bytes(), shared)
			Xs[i] = Xi.Bytes()
		}

		payload, err := cbor.Marshal(wireReceiverBatch{X: Xs})
		if err != nil {
			return nil, engine.NewFail(engine.InvariantViolated, err)
		}
		t.SendOne(peer, payload)
		return &ReceiverKeys{Choices: append([]bool(nil), choices...), K: keys}, nil
	}
}
