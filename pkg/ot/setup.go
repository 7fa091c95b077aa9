package ot

import (
	"crypto/rand"

	"github.com/sigmabit/threshold-ecdsa/internal/bitvec"
	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

// SetupRole distinguishes which side of a Triple Setup a party played
// for one ordered pair: the base-OT sender holds two keys per
// position, the base-OT receiver holds Δ plus one key per position.
type SetupRole int

const (
	// RoleSender means this party ran C4 as the base-OT sender for this pair.
	RoleSender SetupRole = iota
	// RoleReceiver means this party ran C4 as the base-OT receiver,
	// and additionally sampled the pair's Δ.
	RoleReceiver
)

// Setup is the per-ordered-pair state produced by Triple Setup (spec
// §4.3, C5), reused across every subsequent extension against that
// peer until key rotation.
type Setup struct {
	Peer party.ID
	Role SetupRole

	// Populated when Role == RoleSender.
	K0, K1 []bitvec.Elem

	// Populated when Role == RoleReceiver.
	Delta bitvec.Elem
	KDelta []bitvec.Elem
}

// SetupSenderBody runs C5's base-OT-sender role for one ordered pair:
// it runs C4 as sender with batch size bitvec.LambdaBits.
func SetupSenderBody(group curve.Curve, peer party.ID) engine.Body {
	inner := SenderBody(group, peer, bitvec.LambdaBits)
	return func(t *engine.Task) (interface{}, error) {
		result, err := inner(t)
		if err != nil {
			return nil, err
		}
		keys := result.(*SenderKeys)
		return &Setup{Peer: peer, Role: RoleSender, K0: keys.K0, K1: keys.K1}, nil
	}
}

// SetupReceiverBody runs C5's base-OT-receiver role for one ordered
// pair: it samples Δ (spec §4.3) then runs C4 as receiver with Δ's
// bits as the choice vector.
func SetupReceiverBody(group curve.Curve, peer party.ID) engine.Body {
	delta := bitvec.Random(rand.Reader)
	choices := make([]bool, bitvec.LambdaBits)
	for i := range choices {
		choices[i] = delta.Bit(i)
	}
	inner := ReceiverBody(group, peer, choices)
	return func(t *engine.Task) (interface{}, error) {
		result, err := inner(t)
		if err != nil {
			return nil, err
		}
		keys := result.(*ReceiverKeys)
		return &Setup{Peer: peer, Role: RoleReceiver, Delta: delta, KDelta: keys.K}, nil
	}
}

// Store holds the Setup for every ordered pair this party participates
// in, keyed by (role, peer): against each other party it may hold a
// sender-role setup, a receiver-role setup, or both (spec §3 "Setup").
// Multiplication uses one setup per peer, the two ends taking opposite
// roles; when a party holds both against a peer, the lesser ID takes
// the sender-role side.
type Store struct {
	asSender   map[party.ID]*Setup
	asReceiver map[party.ID]*Setup
}

// NewStore creates an empty Setup store.
func NewStore() *Store {
	return &Store{
		asSender:   make(map[party.ID]*Setup),
		asReceiver: make(map[party.ID]*Setup),
	}
}

// PutSenderSetup records a completed sender-role setup against peer.
func (s *Store) PutSenderSetup(setup *Setup) { s.asSender[setup.Peer] = setup }

// PutReceiverSetup records a completed receiver-role setup against peer.
func (s *Store) PutReceiverSetup(setup *Setup) { s.asReceiver[setup.Peer] = setup }

// SenderSetup returns this party's sender-role setup against peer, if any.
func (s *Store) SenderSetup(peer party.ID) (*Setup, bool) {
	setup, ok := s.asSender[peer]
	return setup, ok
}

// ReceiverSetup returns this party's receiver-role setup against peer, if any.
func (s *Store) ReceiverSetup(peer party.ID) (*Setup, bool) {
	setup, ok := s.asReceiver[peer]
	return setup, ok
}
