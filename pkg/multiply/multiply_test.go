package multiply_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/multiply"
	"github.com/sigmabit/threshold-ecdsa/pkg/ot"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

// runTwoParty drives two Machines to completion, relaying SendOne
// traffic directly between them.
func runTwoParty(t *testing.T, a, b *engine.Machine, idA, idB party.ID) (interface{}, interface{}) {
	t.Helper()
	const maxSteps = 10000
	var aResult, bResult interface{}
	var aDone, bDone bool
	for i := 0; i < maxSteps && !(aDone && bDone); i++ {
		if !aDone {
			act := a.Step()
			switch act.Kind {
			case engine.ActionSendOne:
				require.Equal(t, idB, act.To)
				b.Deliver(idA, act.Channel, act.Payload)
			case engine.ActionDone:
				aDone = true
				aResult = act.Result
			case engine.ActionFail:
				t.Fatalf("party A failed: %v", act.Err)
			}
		}
		if !bDone {
			act := b.Step()
			switch act.Kind {
			case engine.ActionSendOne:
				require.Equal(t, idA, act.To)
				a.Deliver(idB, act.Channel, act.Payload)
			case engine.ActionDone:
				bDone = true
				bResult = act.Result
			case engine.ActionFail:
				t.Fatalf("party B failed: %v", act.Err)
			}
		}
	}
	require.True(t, aDone && bDone, "protocol did not complete")
	return aResult, bResult
}

// establishSetup runs C4+C5 between a and b and records the resulting
// Setup in both of their stores.
func establishSetup(t *testing.T, group curve.Curve, storeA, storeB *ot.Store, idA, idB party.ID, root uint64) {
	t.Helper()
	rootCh := engine.NewRootChannel(root, false)
	senderM := engine.New(idA, rootCh, ot.SetupSenderBody(group, idB), nil)
	receiverM := engine.New(idB, rootCh, ot.SetupReceiverBody(group, idA), nil)
	aRes, bRes := runTwoParty(t, senderM, receiverM, idA, idB)
	storeA.PutSenderSetup(aRes.(*ot.Setup))
	storeB.PutReceiverSetup(bRes.(*ot.Setup))
}

// runNParty relays SendOne traffic among an arbitrary number of
// Machines keyed by party ID until every one of them reaches a
// terminal action.
func runNParty(t *testing.T, machines map[party.ID]*engine.Machine) map[party.ID]interface{} {
	t.Helper()
	const maxSteps = 20000
	results := make(map[party.ID]interface{}, len(machines))
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
				peer, ok := machines[act.To]
				require.True(t, ok, "unknown recipient %d", act.To)
				peer.Deliver(id, act.Channel, act.Payload)
			case engine.ActionDone:
				done[id] = true
				results[id] = act.Result
			case engine.ActionFail:
				t.Fatalf("party %d failed: %v", id, act.Err)
			}
		}
		if allDone {
			break
		}
	}
	for id := range machines {
		require.True(t, done[id], "party %d did not finish", id)
	}
	return results
}

func TestThreePartyMultiplicationSumsToProduct(t *testing.T) {
	group := curve.Secp256k1{}
	ids := []party.ID{1, 2, 3}
	stores := map[party.ID]*ot.Store{1: ot.NewStore(), 2: ot.NewStore(), 3: ot.NewStore()}

	establishSetup(t, group, stores[1], stores[2], 1, 2, 1)
	establishSetup(t, group, stores[1], stores[3], 1, 3, 2)
	establishSetup(t, group, stores[2], stores[3], 2, 3, 3)

	a := map[party.ID]int64{1: 3, 2: 5, 3: 7}
	b := map[party.ID]int64{1: 2, 2: 1, 3: 4}

	sid := []byte("multiply-test-session")
	root := engine.NewRootChannel(10, false)

	machines := make(map[party.ID]*engine.Machine, len(ids))
	for _, id := range ids {
		aShare := group.NewScalar().SetInt(a[id])
		bShare := group.NewScalar().SetInt(b[id])
		machines[id] = engine.New(id, root, multiply.Body(group, stores[id], ids, id, aShare, bShare, sid), nil)
	}

	results := runNParty(t, machines)

	sumC := group.NewScalar()
	for _, id := range ids {
		sumC.Add(results[id].(curve.Scalar))
	}

	var sumA, sumB int64
	for _, id := range ids {
		sumA += a[id]
		sumB += b[id]
	}
	want := group.NewScalar().SetInt(sumA * sumB)
	require.True(t, sumC.Equal(want), "sum of shares should equal (Σa)(Σb)=%d", sumA*sumB)
}
