// Package curve is the external group/scalar collaborator described in
// spec §6: scalar field F_q and group G arithmetic, sampling, and
// serialization, plus hash-to-scalar. Everything upstream of this
// package (transcript, commitment, OT, MtA, multiplication, triple
// generation) is written against the Scalar/Point/Curve interfaces
// here and never assumes a specific curve.
package curve

import "io"

// Scalar is an element of the prime field F_q of a Curve's group
// order. Implementations are mutable value-receivers in the sense
// that every method returns the receiver after mutating it in place,
// matching the chaining style the teacher's curve package exposes
// (group.NewScalar().Set(x).Mul(y)).
type Scalar interface {
	// Add sets the receiver to receiver+other and returns it.
	Add(other Scalar) Scalar
	// Sub sets the receiver to receiver-other and returns it.
	Sub(other Scalar) Scalar
	// Mul sets the receiver to receiver*other and returns it.
	Mul(other Scalar) Scalar
	// Negate sets the receiver to -receiver and returns it.
	Negate() Scalar
	// Invert sets the receiver to receiver^-1 and returns it. The
	// zero scalar has no inverse; callers must not invert zero.
	Invert() Scalar
	// Set copies other's value into the receiver and returns it.
	Set(other Scalar) Scalar
	// SetInt sets the receiver to the (reduced) value of n and returns it.
	SetInt(n int64) Scalar
	// Equal reports whether the receiver and other hold the same value.
	Equal(other Scalar) bool
	// IsZero reports whether the receiver is the additive identity.
	IsZero() bool
	// Act performs scalar multiplication of the receiver against pt,
	// returning a new Point (receiver·pt).
	Act(pt Point) Point
	// ActOnBase returns receiver·G0, the curve's generator.
	ActOnBase() Point
	// Bytes serializes the scalar to its curve's fixed-length encoding.
	Bytes() []byte
	// SetBytes decodes a fixed-length encoding into the receiver.
	SetBytes(data []byte) (Scalar, error)
	// Curve returns the curve this scalar belongs to.
	Curve() Curve
}

// Point is an element of the group G with generator G0. Operations
// are treated as additive, per spec §3.
type Point interface {
	// Add sets the receiver to receiver+other and returns it.
	Add(other Point) Point
	// Negate sets the receiver to -receiver and returns it.
	Negate() Point
	// Equal reports whether the receiver and other are the same point.
	Equal(other Point) bool
	// IsIdentity reports whether the receiver is the group identity O.
	IsIdentity() bool
	// Bytes serializes the point to its curve's fixed-length
	// compressed encoding.
	Bytes() []byte
	// SetBytes decodes a fixed-length compressed encoding into the
	// receiver.
	SetBytes(data []byte) (Point, error)
	// Curve returns the curve this point belongs to.
	Curve() Curve
}

// Curve is a named elliptic-curve group together with its scalar
// field. A Curve identifier string is absorbed into every transcript
// root (spec §6) so that proofs/commitments from different curves
// never collide.
type Curve interface {
	// Name is the curve identifier absorbed into transcripts.
	Name() string
	// NewScalar returns a fresh zero-valued scalar bound to this curve.
	NewScalar() Scalar
	// NewPoint returns a fresh identity-valued point bound to this curve.
	NewPoint() Point
	// Generator returns G0.
	Generator() Point
	// ScalarBytes is the fixed length of a serialized Scalar.
	ScalarBytes() int
	// PointBytes is the fixed length of a serialized Point.
	PointBytes() int
	// SampleUniform draws a uniformly random scalar using r.
	SampleUniform(r io.Reader) Scalar
	// SampleConstantTime draws a uniformly random scalar in constant
	// time (no data-dependent branching on the sampled value itself).
	SampleConstantTime(r io.Reader) Scalar
	// HashToScalar derives a scalar deterministically from the
	// concatenation of data, domain-separated by tag.
	HashToScalar(tag string, data ...[]byte) Scalar
}
