package curve

import "errors"

// ErrMalformedEncoding is returned when SetBytes is given data that
// does not decode to a valid Scalar/Point for the curve.
var ErrMalformedEncoding = errors.New("curve: malformed encoding")
