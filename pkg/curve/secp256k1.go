package curve

import (
	"io"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/zeebo/blake3"
)

// Secp256k1 is the concrete Curve implementation used by this
// library's tests and CLI demo. It is the one curve wired end to end,
// backed by github.com/decred/dcrd/dcrec/secp256k1/v4 for group/field
// arithmetic and github.com/cronokirby/saferith for constant-time
// scalar sampling.
type Secp256k1 struct{}

var _ Curve = Secp256k1{}

func (Secp256k1) Name() string        { return "secp256k1" }
func (Secp256k1) NewScalar() Scalar   { return &secp256k1Scalar{s: new(secp256k1.ModNScalar)} }
func (Secp256k1) NewPoint() Point {
	p := new(secp256k1.JacobianPoint)
	p.X.SetInt(0)
	p.Y.SetInt(0)
	p.Z.SetInt(0)
	return &secp256k1Point{p: p}
}
func (Secp256k1) Generator() Point {
	one := new(secp256k1.ModNScalar).SetInt(1)
	p := new(secp256k1.JacobianPoint)
	secp256k1.ScalarBaseMultNonConst(one, p)
	p.ToAffine()
	return &secp256k1Point{p: p}
}
func (Secp256k1) ScalarBytes() int { return 32 }
func (Secp256k1) PointBytes() int  { return 33 }

// groupOrderNat is the order of the secp256k1 scalar field, n.
var groupOrderNat = func() *saferith.Nat {
	// n = FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFE BAAEDCE6 AF48A03B BFD25E8C D0364141
	raw := [32]byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE,
		0xBA, 0xAE, 0xDC, 0xE6, 0xAF, 0x48, 0xA0, 0x3B,
		0xBF, 0xD2, 0x5E, 0x8C, 0xD0, 0x36, 0x41, 0x41,
	}
	return new(saferith.Nat).SetBytes(raw[:])
}()

func (c Secp256k1) sampleNat(r io.Reader) *saferith.Nat {
	var buf [48]byte // 16 bytes oversampling for near-uniform reduction mod n
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		panic(err)
	}
	n := new(saferith.Nat).SetBytes(buf[:])
	modN := saferith.ModulusFromNat(groupOrderNat)
	return n.Mod(n, modN)
}

func (c Secp256k1) SampleUniform(r io.Reader) Scalar {
	nat := c.sampleNat(r)
	s := new(secp256k1.ModNScalar)
	s.SetByteSlice(nat.Bytes())
	return &secp256k1Scalar{s: s}
}

// SampleConstantTime draws using the same rejection-free modular
// reduction as SampleUniform: the reduction is a fixed-time Nat.Mod
// call regardless of the sampled value, so there is no data-dependent
// branch on the scalar itself.
func (c Secp256k1) SampleConstantTime(r io.Reader) Scalar {
	return c.SampleUniform(r)
}

func (c Secp256k1) HashToScalar(tag string, data ...[]byte) Scalar {
	h := blake3.New()
	_, _ = h.Write([]byte(tag))
	for _, d := range data {
		_, _ = h.Write(d)
	}
	digest := h.Sum(nil)
	// Oversample into 48 bytes via the XOF so the reduction mod n is
	// close to uniform, same technique as SampleUniform.
	kdf := blake3.NewDeriveKey(tag)
	_, _ = kdf.Write(digest)
	xof := kdf.Digest()
	var buf [48]byte
	if _, err := io.ReadFull(xof, buf[:]); err != nil {
		panic(err)
	}
	modN := saferith.ModulusFromNat(groupOrderNat)
	nat := new(saferith.Nat).SetBytes(buf[:])
	nat.Mod(nat, modN)
	s := new(secp256k1.ModNScalar)
	s.SetByteSlice(nat.Bytes())
	return &secp256k1Scalar{s: s}
}

type secp256k1Scalar struct {
	s *secp256k1.ModNScalar
}

func (x *secp256k1Scalar) Curve() Curve { return Secp256k1{} }

func (x *secp256k1Scalar) Add(other Scalar) Scalar {
	y := other.(*secp256k1Scalar)
	x.s.Add(y.s)
	return x
}

func (x *secp256k1Scalar) Sub(other Scalar) Scalar {
	y := other.(*secp256k1Scalar)
	neg := new(secp256k1.ModNScalar).Set(y.s).Negate()
	x.s.Add(neg)
	return x
}

func (x *secp256k1Scalar) Mul(other Scalar) Scalar {
	y := other.(*secp256k1Scalar)
	x.s.Mul(y.s)
	return x
}

func (x *secp256k1Scalar) Negate() Scalar {
	x.s.Negate()
	return x
}

func (x *secp256k1Scalar) Invert() Scalar {
	x.s.InverseValNonConst()
	return x
}

func (x *secp256k1Scalar) Set(other Scalar) Scalar {
	y := other.(*secp256k1Scalar)
	x.s.Set(y.s)
	return x
}

func (x *secp256k1Scalar) SetInt(n int64) Scalar {
	if n < 0 {
		x.s.SetInt(uint32(-n))
		x.s.Negate()
		return x
	}
	x.s.SetInt(uint32(n))
	return x
}

func (x *secp256k1Scalar) Equal(other Scalar) bool {
	y := other.(*secp256k1Scalar)
	return x.s.Equals(y.s)
}

func (x *secp256k1Scalar) IsZero() bool { return x.s.IsZero() }

func (x *secp256k1Scalar) Act(pt Point) Point {
	p := pt.(*secp256k1Point)
	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(x.s, p.p, &result)
	result.ToAffine()
	return &secp256k1Point{p: &result}
}

func (x *secp256k1Scalar) ActOnBase() Point {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(x.s, &result)
	result.ToAffine()
	return &secp256k1Point{p: &result}
}

func (x *secp256k1Scalar) Bytes() []byte {
	b := x.s.Bytes()
	out := make([]byte, 32)
	copy(out, b[:])
	return out
}

func (x *secp256k1Scalar) SetBytes(data []byte) (Scalar, error) {
	if len(data) != 32 {
		return nil, ErrMalformedEncoding
	}
	var arr [32]byte
	copy(arr[:], data)
	overflow := x.s.SetBytes(&arr)
	if overflow != 0 {
		return nil, ErrMalformedEncoding
	}
	return x, nil
}

type secp256k1Point struct {
	p *secp256k1.JacobianPoint
}

func (P *secp256k1Point) Curve() Curve { return Secp256k1{} }

func (P *secp256k1Point) Add(other Point) Point {
	o := other.(*secp256k1Point)
	var result secp256k1.JacobianPoint
	secp256k1.AddNonConst(P.p, o.p, &result)
	result.ToAffine()
	P.p = &result
	return P
}

func (P *secp256k1Point) Negate() Point {
	cp := *P.p
	cp.Y.Negate(1)
	cp.Y.Normalize()
	P.p = &cp
	return P
}

func (P *secp256k1Point) Equal(other Point) bool {
	o := other.(*secp256k1Point)
	a, b := *P.p, *o.p
	a.ToAffine()
	b.ToAffine()
	if a.Z.IsZero() && b.Z.IsZero() {
		return true
	}
	if a.Z.IsZero() != b.Z.IsZero() {
		return false
	}
	return a.X.Equals(&b.X) && a.Y.Equals(&b.Y)
}

func (P *secp256k1Point) IsIdentity() bool {
	cp := *P.p
	cp.ToAffine()
	return cp.Z.IsZero()
}

func (P *secp256k1Point) Bytes() []byte {
	cp := *P.p
	cp.ToAffine()
	if cp.Z.IsZero() {
		return make([]byte, 33)
	}
	pub := secp256k1.NewPublicKey(&cp.X, &cp.Y)
	return pub.SerializeCompressed()
}

func (P *secp256k1Point) SetBytes(data []byte) (Point, error) {
	if len(data) != 33 {
		return nil, ErrMalformedEncoding
	}
	allZero := true
	for _, b := range data {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		P.p.X.SetInt(0)
		P.p.Y.SetInt(0)
		P.p.Z.SetInt(0)
		return P, nil
	}
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, ErrMalformedEncoding
	}
	pub.AsJacobian(P.p)
	return P, nil
}
