// Package commitment implements the hash-based commitment scheme of
// spec §6 (component C3): commit to an arbitrary byte string now,
// reveal an opening later, and let anyone check the reveal matches the
// original commitment without having seen the value in between.
package commitment

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"

	"github.com/zeebo/blake3"
)

// saltSize is the opener's random salt, sized at λ=128 bits per spec
// §4 (same security parameter the base-OT and OT-extension components
// use), enough to make the commitment hiding even for a low-entropy
// committed value.
const saltSize = 16

// ErrMismatch is returned by CheckCommit when the opening does not
// reproduce the commitment.
var ErrMismatch = errors.New("commitment: opening does not match commitment")

// Com is a binding, hiding commitment to a value.
type Com [32]byte

// Opener is the information needed to later open a Com: the
// committed value itself plus the salt used to randomize the digest.
type Opener struct {
	Value []byte
	Salt  [saltSize]byte
}

func digest(value []byte, salt [saltSize]byte) Com {
	h := blake3.New()
	_, _ = h.Write(salt[:])
	_, _ = h.Write(value)
	var out Com
	copy(out[:], h.Sum(nil))
	return out
}

// Commit commits to value, returning the commitment to broadcast now
// and the opener to broadcast in a later round.
func Commit(value []byte) (Com, *Opener, error) {
	var salt [saltSize]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return Com{}, nil, err
	}
	op := &Opener{Value: append([]byte(nil), value...), Salt: salt}
	return digest(value, salt), op, nil
}

// CheckCommit verifies that opener is a valid opening of com, in
// constant time with respect to the digest comparison.
func CheckCommit(com Com, opener *Opener) error {
	got := digest(opener.Value, opener.Salt)
	if subtle.ConstantTimeCompare(got[:], com[:]) != 1 {
		return ErrMismatch
	}
	return nil
}
