package transcript

import (
	"crypto/rand"
	"errors"

	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
)

// ErrProofFailed is returned by Verify* when a Maurer proof does not
// verify; callers classify this as engine.ProofFailed.
var ErrProofFailed = errors.New("transcript: maurer proof verification failed")

// Proof is a generic Maurer (Schnorr-style) Σ-protocol transcript,
// made non-interactive via Fiat-Shamir: commitment A, challenge c
// (implicit, recomputed by the verifier), response z such that
// z·Base = A + c·Statement for every Base/Statement pair of the
// homomorphism being proved.
type Proof struct {
	A []curve.Point
	Z curve.Scalar
}

// ProveDlog proves knowledge of witness such that statement =
// witness·G0, for the homomorphism φ_G0(x) = x·G0 (spec §6). tag
// identifies the transcript branch (e.g. "dlog0", party index i).
func ProveDlog(t *Transcript, statement curve.Point, witness curve.Scalar, tag string, idx int) *Proof {
	group := t.group
	branch := t.Clone(tag, idx)

	k := group.SampleUniform(rand.Reader)
	A := k.ActOnBase()
	branch.Add(A.Bytes(), statement.Bytes())
	c := branch.challenge(A.Bytes(), statement.Bytes())

	z := k.Add(c.Mul(witness))
	return &Proof{A: []curve.Point{A}, Z: z}
}

// VerifyDlog checks a ProveDlog proof.
func VerifyDlog(t *Transcript, statement curve.Point, proof *Proof, tag string, idx int) error {
	if len(proof.A) != 1 {
		return ErrProofFailed
	}
	branch := t.Clone(tag, idx)
	branch.Add(proof.A[0].Bytes(), statement.Bytes())
	c := branch.challenge(proof.A[0].Bytes(), statement.Bytes())

	lhs := proof.Z.ActOnBase()
	rhs := proof.A[0].Add(c.Act(statement))
	if !lhs.Equal(rhs) {
		return ErrProofFailed
	}
	return nil
}

// ProveDlogEq proves the witness is the discrete log of both
// statement0 (w.r.t. base0) and statement1 (w.r.t. base1) — the
// equality-of-discrete-logs homomorphism φ_{base0,base1}(x) =
// (x·base0, x·base1) used for Triple Generation's Round 3 `C_i`
// binding (spec §4.8, transcript branch `dlogeq0/i`).
func ProveDlogEq(t *Transcript, base0, statement0, base1, statement1 curve.Point, witness curve.Scalar, tag string, idx int) *Proof {
	branch := t.Clone(tag, idx)

	k := base0.Curve().SampleUniform(rand.Reader)
	A0 := k.Act(base0)
	A1 := k.Act(base1)
	branch.Add(A0.Bytes(), A1.Bytes(), base0.Bytes(), statement0.Bytes(), base1.Bytes(), statement1.Bytes())
	c := branch.challenge(A0.Bytes(), A1.Bytes())

	z := k.Add(c.Mul(witness))
	return &Proof{A: []curve.Point{A0, A1}, Z: z}
}

// VerifyDlogEq checks a ProveDlogEq proof.
func VerifyDlogEq(t *Transcript, base0, statement0, base1, statement1 curve.Point, proof *Proof, tag string, idx int) error {
	if len(proof.A) != 2 {
		return ErrProofFailed
	}
	branch := t.Clone(tag, idx)
	branch.Add(proof.A[0].Bytes(), proof.A[1].Bytes(), base0.Bytes(), statement0.Bytes(), base1.Bytes(), statement1.Bytes())
	c := branch.challenge(proof.A[0].Bytes(), proof.A[1].Bytes())

	if !proof.Z.Act(base0).Equal(proof.A[0].Add(c.Act(statement0))) {
		return ErrProofFailed
	}
	if !proof.Z.Act(base1).Equal(proof.A[1].Add(c.Act(statement1))) {
		return ErrProofFailed
	}
	return nil
}
