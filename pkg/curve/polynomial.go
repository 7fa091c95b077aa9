package curve

import "github.com/sigmabit/threshold-ecdsa/pkg/party"

// Polynomial is a Scalar-coefficient polynomial of degree < t over
// F_q, used for Shamir secret sharing (spec §3). Coefficients[0] is
// the constant term (the shared secret, or zero for the correction
// polynomial l in Triple Generation).
type Polynomial struct {
	group        Curve
	Coefficients []Scalar
}

// NewPolynomial builds a degree-(len(coefficients)-1) polynomial.
func NewPolynomial(group Curve, coefficients []Scalar) *Polynomial {
	return &Polynomial{group: group, Coefficients: coefficients}
}

// Degree is the polynomial's degree.
func (p *Polynomial) Degree() int { return len(p.Coefficients) - 1 }

// Constant returns the polynomial's constant term, f(0).
func (p *Polynomial) Constant() Scalar { return p.Coefficients[0] }

// Evaluate computes f(x) by Horner's method, for x the scalar
// encoding of a party ID (or zero, for the constant term).
func (p *Polynomial) Evaluate(x Scalar) Scalar {
	group := p.group
	result := group.NewScalar()
	if len(p.Coefficients) == 0 {
		return result
	}
	result.Set(p.Coefficients[len(p.Coefficients)-1])
	for i := len(p.Coefficients) - 2; i >= 0; i-- {
		result.Mul(x)
		result.Add(p.Coefficients[i])
	}
	return result
}

// EvaluateID evaluates f at the scalar encoding of a party ID.
func (p *Polynomial) EvaluateID(id party.ID) Scalar {
	return p.Evaluate(IDScalar(p.group, id))
}

// PointPolynomial is a t-1-degree curve over G: the coefficientwise
// scalar multiplications of G0 by a Polynomial's coefficients (spec
// §3). It lets every party check threshold shares against a public
// per-index point, without revealing the polynomial itself.
type PointPolynomial struct {
	group        Curve
	Coefficients []Point
}

// NewPointPolynomial builds a point-polynomial directly from known
// coefficients, used when deserializing one received over the wire.
func NewPointPolynomial(group Curve, coefficients []Point) *PointPolynomial {
	return &PointPolynomial{group: group, Coefficients: coefficients}
}

// Commit computes the PointPolynomial Coefficients[i]·G0 for a
// Polynomial's coefficients.
func (p *Polynomial) Commit() *PointPolynomial {
	coeffs := make([]Point, len(p.Coefficients))
	for i, c := range p.Coefficients {
		coeffs[i] = c.ActOnBase()
	}
	return &PointPolynomial{group: p.group, Coefficients: coeffs}
}

// Degree is the point-polynomial's degree.
func (P *PointPolynomial) Degree() int { return len(P.Coefficients) - 1 }

// Constant returns the point-polynomial's constant term, F(0).
func (P *PointPolynomial) Constant() Point { return P.Coefficients[0] }

// Evaluate computes F(x) = Sum_i x^i * Coefficients[i] by Horner's
// method in the exponent.
func (P *PointPolynomial) Evaluate(x Scalar) Point {
	group := P.group
	if len(P.Coefficients) == 0 {
		return group.NewPoint()
	}
	result := group.NewPoint().Add(P.Coefficients[len(P.Coefficients)-1])
	for i := len(P.Coefficients) - 2; i >= 0; i-- {
		result = x.Act(result)
		result = result.Add(P.Coefficients[i])
	}
	return result
}

// EvaluateID evaluates F at the scalar encoding of a party ID.
func (P *PointPolynomial) EvaluateID(id party.ID, group Curve) Point {
	return P.Evaluate(IDScalar(group, id))
}

// Add adds two point-polynomials coefficientwise, padding the
// shorter with identity coefficients. Used to aggregate per-party
// E/F/L point-polynomials in Triple Generation round 3/5.
func (P *PointPolynomial) Add(other *PointPolynomial) *PointPolynomial {
	n := len(P.Coefficients)
	if len(other.Coefficients) > n {
		n = len(other.Coefficients)
	}
	out := make([]Point, n)
	for i := 0; i < n; i++ {
		out[i] = P.group.NewPoint()
		if i < len(P.Coefficients) {
			out[i] = out[i].Add(P.Coefficients[i])
		}
		if i < len(other.Coefficients) {
			out[i] = out[i].Add(other.Coefficients[i])
		}
	}
	return &PointPolynomial{group: P.group, Coefficients: out}
}

// IDScalar encodes a party ID as a scalar, the x-coordinate at which
// that party's shares are evaluated.
func IDScalar(group Curve, id party.ID) Scalar {
	return group.NewScalar().SetInt(int64(id))
}

// Lagrange computes, for every id in ids, the Lagrange coefficient
// lambda_id such that Sum_id lambda_id * f(id) = f(0) for any
// polynomial of degree < len(ids). This converts threshold shares
// into additive shares of the same secret (see GLOSSARY:
// Linearization).
func Lagrange(group Curve, ids party.IDSlice) map[party.ID]Scalar {
	xs := make(map[party.ID]Scalar, len(ids))
	for _, id := range ids {
		xs[id] = IDScalar(group, id)
	}
	coefs := make(map[party.ID]Scalar, len(ids))
	for _, id := range ids {
		xi := xs[id]
		num := group.NewScalar().SetInt(1)
		den := group.NewScalar().SetInt(1)
		for _, other := range ids {
			if other == id {
				continue
			}
			xj := xs[other]
			// num *= (0 - xj) = -xj
			negXj := group.NewScalar().Set(xj).Negate()
			num = num.Mul(negXj)
			// den *= (xi - xj)
			diff := group.NewScalar().Set(xi).Sub(xj)
			den = den.Mul(diff)
		}
		den = den.Invert()
		coefs[id] = num.Mul(den)
	}
	return coefs
}
