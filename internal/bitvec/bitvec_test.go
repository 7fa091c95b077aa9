package bitvec_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sigmabit/threshold-ecdsa/internal/bitvec"
)

func TestXorSelfInverse(t *testing.T) {
	a := bitvec.Random(rand.Reader)
	b := bitvec.Random(rand.Reader)
	assert.Equal(t, a, bitvec.Xor(bitvec.Xor(a, b), b))
}

func TestFromBit(t *testing.T) {
	assert.Equal(t, bitvec.Zero, bitvec.FromBit(false))
	assert.Equal(t, bitvec.AllOnes, bitvec.FromBit(true))
}

func TestMulDistributesOverXor(t *testing.T) {
	a := bitvec.Random(rand.Reader)
	b := bitvec.Random(rand.Reader)
	c := bitvec.Random(rand.Reader)
	lhs := bitvec.Mul(a, bitvec.Xor(b, c))
	rhs := bitvec.Xor(bitvec.Mul(a, b), bitvec.Mul(a, c))
	assert.Equal(t, lhs, rhs)
}

func TestMulZero(t *testing.T) {
	a := bitvec.Random(rand.Reader)
	assert.True(t, bitvec.Mul(a, bitvec.Zero).IsZero())
}

func TestBitRoundTrip(t *testing.T) {
	var e bitvec.Elem
	e.SetBit(0)
	e.SetBit(127)
	e.SetBit(64)
	assert.True(t, e.Bit(0))
	assert.True(t, e.Bit(127))
	assert.True(t, e.Bit(64))
	assert.False(t, e.Bit(1))
}

func TestInnerProductAndDotBits(t *testing.T) {
	weights := []bitvec.Elem{bitvec.Random(rand.Reader), bitvec.Random(rand.Reader), bitvec.Random(rand.Reader)}
	bits := []bool{true, false, true}
	got := bitvec.DotBits(bits, weights)
	want := bitvec.Xor(weights[0], weights[2])
	assert.Equal(t, want, got)
}
