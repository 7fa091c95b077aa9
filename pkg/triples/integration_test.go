package triples_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/ot"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
	"github.com/sigmabit/threshold-ecdsa/pkg/triples"
)

func TestTriplesIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Triple Generation Integration Suite")
}

// outcome is one party's terminal state after a relay run: Result
// holds whatever the protocol body returned (an *ot.Setup during
// setup, an *triples.Result during Triple Generation).
type outcome struct {
	result interface{}
	fail   *engine.Fail
}

// runRelay steps every machine to a terminal action or until maxSteps
// is exhausted, routing SendOne/SendMany traffic through drop (return
// true to withhold a message entirely) and mutate (transform a
// payload that is delivered). Parties with no terminal action when
// maxSteps runs out are simply absent from the returned map — this is
// how the "dropped broadcast" scenario observes indefinite waiting.
func runRelay(
	machines map[party.ID]*engine.Machine,
	maxSteps int,
	drop func(from, to party.ID, broadcast bool) bool,
	mutate func(from, to party.ID, broadcast bool, payload []byte) []byte,
) map[party.ID]outcome {
	outcomes := make(map[party.ID]outcome, len(machines))
	done := make(map[party.ID]bool, len(machines))

	for i := 0; i < maxSteps; i++ {
		allDone := true
		for id, m := range machines {
			if done[id] {
				continue
			}
			allDone = false
			act := m.Step()
			switch act.Kind {
			case engine.ActionSendOne:
				if drop != nil && drop(id, act.To, false) {
					continue
				}
				payload := act.Payload
				if mutate != nil {
					payload = mutate(id, act.To, false, payload)
				}
				if peer, ok := machines[act.To]; ok {
					peer.Deliver(id, act.Channel, payload)
				}
			case engine.ActionSendMany:
				for peerID, peer := range machines {
					if peerID == id {
						continue
					}
					if drop != nil && drop(id, peerID, true) {
						continue
					}
					payload := act.Payload
					if mutate != nil {
						payload = mutate(id, peerID, true, payload)
					}
					peer.Deliver(id, act.Channel, payload)
				}
			case engine.ActionDone:
				done[id] = true
				outcomes[id] = outcome{result: act.Result}
			case engine.ActionFail:
				done[id] = true
				outcomes[id] = outcome{fail: act.Err}
			}
		}
		if allDone {
			break
		}
	}
	return outcomes
}

// establishAllSetups runs C4+C5 between every unordered pair of ids
// and records the resulting Setup in both parties' stores.
func establishAllSetups(group curve.Curve, ids []party.ID, stores map[party.ID]*ot.Store, rootStart uint64) {
	root := rootStart
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			rootCh := engine.NewRootChannel(root, false)
			root++
			senderM := engine.New(a, rootCh, ot.SetupSenderBody(group, b), nil)
			receiverM := engine.New(b, rootCh, ot.SetupReceiverBody(group, a), nil)
			results := runRelay(map[party.ID]*engine.Machine{a: senderM, b: receiverM}, 10000, nil, nil)
			Expect(results[a].fail).To(BeNil())
			Expect(results[b].fail).To(BeNil())
			stores[a].PutSenderSetup(results[a].result.(*ot.Setup))
			stores[b].PutReceiverSetup(results[b].result.(*ot.Setup))
		}
	}
}

// newTriplesNetwork wires up N machines running Body against parties,
// sharing the given root channel number.
func newTriplesNetwork(group curve.Curve, stores map[party.ID]*ot.Store, ids []party.ID, t int, root uint64) map[party.ID]*engine.Machine {
	parties := party.NewIDSlice(ids)
	rootCh := engine.NewRootChannel(root, false)
	machines := make(map[party.ID]*engine.Machine, len(ids))
	for _, id := range ids {
		machines[id] = engine.New(id, rootCh, triples.Body(group, stores[id], parties, id, t), nil)
	}
	return machines
}

// reconstruct Lagrange-interpolates the scalar shares named by
// shareOf across the given subset of ids.
func reconstruct(group curve.Curve, ids party.IDSlice, results map[party.ID]outcome, shareOf func(*triples.Result) curve.Scalar) curve.Scalar {
	lambda := curve.Lagrange(group, ids)
	acc := group.NewScalar()
	for _, id := range ids {
		r := results[id].result.(*triples.Result)
		acc.Add(group.NewScalar().Set(lambda[id]).Mul(shareOf(r)))
	}
	return acc
}

func shareA(r *triples.Result) curve.Scalar { return r.ShareA }
func shareB(r *triples.Result) curve.Scalar { return r.ShareB }

var _ = Describe("Triple Generation", func() {
	var group curve.Curve

	BeforeEach(func() {
		group = curve.Secp256k1{}
	})

	It("produces a consistent triple for an honest N=3,t=2 run, reconstructible from any threshold subset", func() {
		ids := []party.ID{1, 2, 3}
		stores := map[party.ID]*ot.Store{1: ot.NewStore(), 2: ot.NewStore(), 3: ot.NewStore()}
		establishAllSetups(group, ids, stores, 1)

		machines := newTriplesNetwork(group, stores, ids, 2, 100)
		results := runRelay(machines, 200000, nil, nil)

		Expect(results).To(HaveLen(3))
		for _, id := range ids {
			Expect(results[id].fail).To(BeNil(), "party %d should not fail", id)
			Expect(results[id].result).NotTo(BeNil())
		}

		first := results[1].result.(*triples.Result)
		aFrom12 := reconstruct(group, party.NewIDSlice([]party.ID{1, 2}), results, shareA)
		bFrom23 := reconstruct(group, party.NewIDSlice([]party.ID{2, 3}), results, shareB)

		Expect(aFrom12.ActOnBase().Equal(first.A)).To(BeTrue())
		Expect(bFrom23.ActOnBase().Equal(first.B)).To(BeTrue())

		c := group.NewScalar().Set(aFrom12).Mul(bFrom23)
		Expect(c.ActOnBase().Equal(first.C)).To(BeTrue())
	})

	It("leaves every honest party waiting, never failing or finishing, when a peer's broadcast is withheld (N=5,t=3)", func() {
		ids := []party.ID{1, 2, 3, 4, 5}
		stores := make(map[party.ID]*ot.Store, len(ids))
		for _, id := range ids {
			stores[id] = ot.NewStore()
		}
		establishAllSetups(group, ids, stores, 100)

		const silenced party.ID = 5
		var broadcastsSeen int

		machines := newTriplesNetwork(group, stores, ids, 3, 200)
		drop := func(from, _ party.ID, broadcast bool) bool {
			if from != silenced || !broadcast {
				return false
			}
			broadcastsSeen++
			// Let party 5's first broadcast (Round 1's commitment)
			// through, then withhold everything after it so the rest
			// of the network stalls waiting on its Round 2 broadcast.
			return broadcastsSeen > 4
		}

		results := runRelay(machines, 5000, drop, nil)

		for _, id := range ids {
			if id == silenced {
				continue
			}
			Expect(results[id].fail).To(BeNil(), "party %d must not fail on a silent peer", id)
			Expect(results[id].result).To(BeNil(), "party %d must not finish without party 5's broadcast", id)
		}
	})

	It("fails every honest party with CommitmentFailed when a party's Round 1 commitment does not open to its Round 2 values (N=3,t=2)", func() {
		ids := []party.ID{1, 2, 3}
		stores := map[party.ID]*ot.Store{1: ot.NewStore(), 2: ot.NewStore(), 3: ot.NewStore()}
		establishAllSetups(group, ids, stores, 300)

		const cheater party.ID = 2
		machines := newTriplesNetwork(group, stores, ids, 2, 400)

		var cheaterBroadcasts int
		mutate := func(from, _ party.ID, broadcast bool, payload []byte) []byte {
			if from != cheater || !broadcast {
				return payload
			}
			cheaterBroadcasts++
			// Each of party 2's broadcasts reaches its two peers in turn:
			// calls 1-2 carry the Round 1 commitment, 3-4 Confirm, 5-6 the
			// Round 2 opening. Every peer sees the same commitment (so
			// Confirm agrees everywhere), but the revealed (E,F,L) bytes
			// are altered, so the commitment can never open to them.
			if cheaterBroadcasts != 5 && cheaterBroadcasts != 6 {
				return payload
			}
			// Byte 10 lies inside the opening's Value field, after the
			// CBOR map, key and byte-string headers.
			corrupted := append([]byte(nil), payload...)
			corrupted[10] ^= 0xFF
			return corrupted
		}

		results := runRelay(machines, 200000, nil, mutate)

		for _, id := range ids {
			if id == cheater {
				continue
			}
			Expect(results[id].fail).NotTo(BeNil(), "party %d must detect the bad commitment", id)
			Expect(results[id].fail.Kind).To(Equal(engine.CommitmentFailed))
		}
	})

	It("fails with ConsistencyFailed when a party flips one bit of its Correlated OT Extension U during Multiplication (N=3,t=2)", func() {
		ids := []party.ID{1, 2, 3}
		stores := map[party.ID]*ot.Store{1: ot.NewStore(), 2: ot.NewStore(), 3: ot.NewStore()}
		establishAllSetups(group, ids, stores, 500)

		const cheater party.ID = 1
		machines := newTriplesNetwork(group, stores, ids, 2, 600)

		// The Multiplication child spawned in Round 2 runs
		// RandomBothBody (extension.go's C6/C7 wrapper) per pair; party
		// 1, the lowest ID, holds the K0/K1 side of both its pairs. Its
		// U correction matrix (2κ+2λ = 1024 rows of 16 bytes for
		// secp256k1) is the first private message party 1 sends above
		// uSizeFloor, so flipping one bit of that message hits U
		// without needing to decode CBOR to find it.
		const uSizeFloor = 4096
		var flipped bool
		mutate := func(from, _ party.ID, broadcast bool, payload []byte) []byte {
			if broadcast || from != cheater || flipped || len(payload) < uSizeFloor {
				return payload
			}
			flipped = true
			corrupted := append([]byte(nil), payload...)
			// Flip a bit well past the CBOR header so the corruption
			// lands inside a row's bytes rather than the array/map
			// length prefix (which would misdecode as Malformed
			// instead of exercising the consistency check).
			corrupted[len(corrupted)/2] ^= 0x01
			return corrupted
		}

		results := runRelay(machines, 200000, nil, mutate)
		Expect(flipped).To(BeTrue(), "the test must actually have found and flipped a U payload")

		for _, id := range ids {
			if id == cheater {
				continue
			}
			Expect(results[id].fail).NotTo(BeNil(), "party %d must detect the corrupted extension", id)
			Expect(results[id].fail.Kind).To(Equal(engine.ConsistencyFailed))
		}
	})
})
