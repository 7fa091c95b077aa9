package engine

import "fmt"

// Kind is the catalog of fatal protocol-abort reasons (spec §7). Every
// Fail is one of these; the caller learns *that* the protocol failed
// and which kind, never *who* misbehaved (no identifiable aborts,
// spec §1 Non-goals).
type Kind int

const (
	// Malformed marks a decoding failure, wrong-degree polynomial, or
	// bad point/scalar encoding.
	Malformed Kind = iota + 1
	// ProofFailed marks a Maurer verification failure.
	ProofFailed
	// CommitmentFailed marks a CheckCommit rejection.
	CommitmentFailed
	// ConsistencyFailed marks a party-wide equality check failing
	// (Confirm_j mismatch, E(i) != a_i·G0, q != t+mul(x,Δ), C != L(0)).
	ConsistencyFailed
	// SessionReused marks a host-supplied non-unique sid to an OT
	// extension.
	SessionReused
	// InvariantViolated marks an internal impossibility (a bug, not a
	// peer's fault).
	InvariantViolated
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "Malformed"
	case ProofFailed:
		return "ProofFailed"
	case CommitmentFailed:
		return "CommitmentFailed"
	case ConsistencyFailed:
		return "ConsistencyFailed"
	case SessionReused:
		return "SessionReused"
	case InvariantViolated:
		return "InvariantViolated"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Fail is the error surfaced by Step() when a protocol instance
// aborts. It implements error so it can be returned/wrapped like any
// other Go error.
type Fail struct {
	Kind Kind
	Err  error
}

func (f *Fail) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("engine: %s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("engine: %s", f.Kind)
}

func (f *Fail) Unwrap() error { return f.Err }

// NewFail builds a *Fail of the given kind wrapping err.
func NewFail(kind Kind, err error) *Fail {
	return &Fail{Kind: kind, Err: err}
}

// asFail coerces any error returned from a task body into a *Fail,
// defaulting to InvariantViolated for errors the body didn't
// explicitly classify — an unclassified failure inside our own code
// is exactly the "internal impossibility" case, not a peer's fault.
func asFail(err error) *Fail {
	if err == nil {
		return nil
	}
	var f *Fail
	if ok := asFailTo(err, &f); ok {
		return f
	}
	return NewFail(InvariantViolated, err)
}

func asFailTo(err error, out **Fail) bool {
	type unwrapper interface{ Unwrap() error }
	for e := err; e != nil; {
		if f, ok := e.(*Fail); ok {
			*out = f
			return true
		}
		u, ok := e.(unwrapper)
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}
