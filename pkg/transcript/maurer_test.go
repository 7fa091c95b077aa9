package transcript_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/transcript"
)

func TestProveVerifyDlog(t *testing.T) {
	group := curve.Secp256k1{}
	witness := group.SampleUniform(rand.Reader)
	statement := witness.ActOnBase()

	tr := transcript.New(group, []byte("session-1"))
	proof := transcript.ProveDlog(tr, statement, witness, "dlog0", 3)

	tr2 := transcript.New(group, []byte("session-1"))
	require.NoError(t, transcript.VerifyDlog(tr2, statement, proof, "dlog0", 3))
}

func TestVerifyDlogRejectsWrongStatement(t *testing.T) {
	group := curve.Secp256k1{}
	witness := group.SampleUniform(rand.Reader)
	statement := witness.ActOnBase()
	other := group.SampleUniform(rand.Reader).ActOnBase()

	tr := transcript.New(group, []byte("session-1"))
	proof := transcript.ProveDlog(tr, statement, witness, "dlog0", 1)

	tr2 := transcript.New(group, []byte("session-1"))
	require.ErrorIs(t, transcript.VerifyDlog(tr2, other, proof, "dlog0", 1), transcript.ErrProofFailed)
}

func TestVerifyDlogRejectsWrongBranch(t *testing.T) {
	group := curve.Secp256k1{}
	witness := group.SampleUniform(rand.Reader)
	statement := witness.ActOnBase()

	tr := transcript.New(group, []byte("session-1"))
	proof := transcript.ProveDlog(tr, statement, witness, "dlog0", 1)

	tr2 := transcript.New(group, []byte("session-1"))
	require.ErrorIs(t, transcript.VerifyDlog(tr2, statement, proof, "dlog1", 1), transcript.ErrProofFailed)
}

func TestProveVerifyDlogEq(t *testing.T) {
	group := curve.Secp256k1{}
	witness := group.SampleUniform(rand.Reader)
	base0 := group.Generator()
	base1 := group.SampleUniform(rand.Reader).ActOnBase()
	statement0 := witness.Act(base0)
	statement1 := witness.Act(base1)

	tr := transcript.New(group, []byte("session-2"))
	proof := transcript.ProveDlogEq(tr, base0, statement0, base1, statement1, witness, "dlogeq0", 2)

	tr2 := transcript.New(group, []byte("session-2"))
	require.NoError(t, transcript.VerifyDlogEq(tr2, base0, statement0, base1, statement1, proof, "dlogeq0", 2))
}

func TestVerifyDlogEqRejectsMismatchedWitnesses(t *testing.T) {
	group := curve.Secp256k1{}
	witness := group.SampleUniform(rand.Reader)
	otherWitness := group.SampleUniform(rand.Reader)
	base0 := group.Generator()
	base1 := group.SampleUniform(rand.Reader).ActOnBase()
	statement0 := witness.Act(base0)
	statement1 := otherWitness.Act(base1)

	tr := transcript.New(group, []byte("session-2"))
	proof := transcript.ProveDlogEq(tr, base0, statement0, base1, statement1, witness, "dlogeq0", 2)

	tr2 := transcript.New(group, []byte("session-2"))
	require.ErrorIs(t, transcript.VerifyDlogEq(tr2, base0, statement0, base1, statement1, proof, "dlogeq0", 2), transcript.ErrProofFailed)
}
