package engine

import (
	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

// Body is the function a Task runs. It executes as if it were a
// straightforward sequential procedure — Send/SendTo/Recv suspend it
// transparently — and returns the protocol's result, or an error
// (ideally a *Fail; anything else is treated as InvariantViolated).
type Body func(t *Task) (interface{}, error)

// Task is a single logical thread of execution inside the engine: a
// coroutine realized as a goroutine that suspends only at message
// send or explicit receive (spec §5 "Suspension points"). Every
// protocol is one root Task; nested parallel subprotocols (Round 2 of
// Triple Generation launching Multiplication, spec §4.8) are child
// Tasks spawned on a fresh child ChannelID.
type Task struct {
	m        *Machine
	self     party.ID
	channel  ChannelID
	body     Body
	yieldCh  chan Action
	resumeCh chan struct{}
	started  bool
	finished bool
	nextSeq  uint32
}

// Self is this task's own party ID.
func (t *Task) Self() party.ID { return t.self }

// Channel is this task's channel namespace root.
func (t *Task) Channel() ChannelID { return t.channel }

// yield hands an action to whoever is polling this task and blocks
// until resumed.
func (t *Task) yield(a Action) {
	t.yieldCh <- a
	<-t.resumeCh
}

// SendMany broadcasts payload to every peer on this task's channel.
func (t *Task) SendMany(payload []byte) {
	ch := t.channel.AsBroadcast()
	t.yield(sendMany(ch, payload))
}

// SendOne privately sends payload to to on this task's channel.
func (t *Task) SendOne(to party.ID, payload []byte) {
	ch := t.channel.AsPrivate()
	t.yield(sendOne(ch, to, payload))
}

// Recv suspends until a message from "from" has arrived on this
// task's channel, then returns it. Delivery order across distinct
// (from, channel) pairs is unspecified; within one pair it is FIFO
// (spec §4.1).
func (t *Task) Recv(from party.ID) []byte {
	for {
		if payload, ok := t.m.popInbox(t.channel, from); ok {
			return payload
		}
		t.yield(waitMore())
	}
}

// RecvFrom is like Recv but reads from an explicit channel rather
// than the task's own — used by a parent awaiting messages a child
// emitted on a channel the parent never itself sends on (rare; most
// code should just use Recv with the task's own channel).
func (t *Task) RecvFrom(ch ChannelID, from party.ID) []byte {
	for {
		if payload, ok := t.m.popInbox(ch, from); ok {
			return payload
		}
		t.yield(waitMore())
	}
}

// Spawn launches a child Task running body on a fresh child channel,
// to run concurrently with the parent's subsequent rounds (spec §4.1,
// §9 "nested parallel subprotocols"). The returned handle is later
// joined with AwaitChild.
func (t *Task) Spawn(body Body) *Task {
	idx := t.nextSeq
	t.nextSeq++
	child := &Task{
		m:        t.m,
		self:     t.self,
		channel:  t.channel.Child(idx),
		body:     body,
		yieldCh:  make(chan Action),
		resumeCh: make(chan struct{}),
	}
	t.m.register(child)
	return child
}

// SpawnAt is like Spawn but takes an explicit child index instead of
// drawing from the task's own spawn counter. Used by fan-out
// protocols (Multiplication, spec §4.7) where two parties must derive
// the identical channel for a shared pairwise sub-protocol despite
// each iterating a different subset of peers — callers compute idx
// from a canonical, party-order-independent numbering of the pair
// instead of relying on call order.
func (t *Task) SpawnAt(idx uint32, body Body) *Task {
	child := &Task{
		m:        t.m,
		self:     t.self,
		channel:  t.channel.Child(idx),
		body:     body,
		yieldCh:  make(chan Action),
		resumeCh: make(chan struct{}),
	}
	t.m.register(child)
	return child
}

// AwaitChild suspends the calling task until child has produced a
// result (or failed), without itself polling child directly — each
// Step() call polls the registered tasks in order, children included,
// until one of them sends or the root finishes, so the child keeps
// making progress even while the parent is blocked elsewhere (e.g. Triple
// Generation's Round 3, between spawning Multiplication in Round 2
// and joining it in Round 4).
func (t *Task) AwaitChild(child *Task) (interface{}, error) {
	for {
		if a, ok := t.m.childResult(child); ok {
			if a.Kind == ActionFail {
				return nil, a.Err
			}
			return a.Result, nil
		}
		t.yield(waitMore())
	}
}

// run drives the task's body to completion (or failure), reporting
// the terminal action to whoever last polled it.
func (t *Task) run() {
	result, err := t.body(t)
	if err != nil {
		t.yieldCh <- failAction(asFail(err))
		return
	}
	t.yieldCh <- done(result)
}

// poll resumes (lazily starting, the first time) the task and returns
// the next action it yields.
func (t *Task) poll() Action {
	if !t.started {
		t.started = true
		go t.run()
	} else {
		t.resumeCh <- struct{}{}
	}
	return <-t.yieldCh
}
