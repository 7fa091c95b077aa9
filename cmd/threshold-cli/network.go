package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sigmabit/threshold-ecdsa/internal/engine"
	"github.com/sigmabit/threshold-ecdsa/pkg/curve"
	"github.com/sigmabit/threshold-ecdsa/pkg/ot"
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

// runMachines steps an in-process network of Machines to completion,
// relaying both SendOne and SendMany traffic between them directly —
// a simulated transport for demo/bench purposes only (spec §1's
// networking Non-goal: the library itself never dials a socket).
func runMachines(machines map[party.ID]*engine.Machine) (map[party.ID]interface{}, error) {
	const maxSteps = 500000
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
				if !ok {
					return nil, fmt.Errorf("network: unknown recipient %d", act.To)
				}
				peer.Deliver(id, act.Channel, act.Payload)
			case engine.ActionSendMany:
				for peerID, peer := range machines {
					if peerID == id {
						continue
					}
					peer.Deliver(id, act.Channel, act.Payload)
				}
			case engine.ActionDone:
				done[id] = true
				results[id] = act.Result
			case engine.ActionFail:
				return nil, fmt.Errorf("party %d: %w", id, act.Err)
			}
		}
		if allDone {
			return results, nil
		}
	}
	return nil, fmt.Errorf("network: exceeded %d steps without completing", maxSteps)
}

// establishAllSetups runs C4+C5 between every unordered pair of
// parties, seeding each party's ot.Store so Multiplication and Triple
// Generation can run without a separate setup phase in the demo.
func establishAllSetups(log *zap.SugaredLogger, group curve.Curve, ids []party.ID, stores map[party.ID]*ot.Store) error {
	root := uint64(0)
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			root++
			rootCh := engine.NewRootChannel(root, false)
			senderM := engine.New(a, rootCh, ot.SetupSenderBody(group, b), log)
			receiverM := engine.New(b, rootCh, ot.SetupReceiverBody(group, a), log)
			results, err := runMachines(map[party.ID]*engine.Machine{a: senderM, b: receiverM})
			if err != nil {
				return fmt.Errorf("setup(%d,%d): %w", a, b, err)
			}
			stores[a].PutSenderSetup(results[a].(*ot.Setup))
			stores[b].PutReceiverSetup(results[b].(*ot.Setup))
		}
	}
	return nil
}
