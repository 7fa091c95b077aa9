// Package engine is the protocol engine (spec §4.1, component C1): a
// uniform, message-driven cooperative scheduler that every protocol in
// this library — base OT, OT extension, MtA, Multiplication, Triple
// Generation — is built on top of. A Machine presents one protocol
// instance to the host as two operations, Deliver and Step, regardless
// of how many internal parallel Tasks that protocol is composed of.
package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sigmabit/threshold-ecdsa/pkg/party"
)

type inboxKey struct {
	channel string
	from    party.ID
}

// Machine is the host-facing handle for one running protocol
// instance. It is safe for the host to call Deliver and Step from a
// single goroutine in any order; concurrent calls from multiple
// goroutines are also safe, though the host is expected to serialize
// its own usage per spec §5.
type Machine struct {
	log *zap.SugaredLogger

	tasksMu sync.Mutex
	tasks   []*Task
	results map[string]Action // finished child results, keyed by Task.channel.key()

	inboxMu sync.Mutex
	queues  map[inboxKey][][]byte
	seen    map[inboxKey]map[string]bool

	stepMu     sync.Mutex
	rootDone   bool
	rootResult Action
}

// New creates a Machine whose root Task runs body. log may be nil, in
// which case engine lifecycle events are not logged.
func New(self party.ID, root ChannelID, body Body, log *zap.SugaredLogger) *Machine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Machine{
		log:     log,
		results: make(map[string]Action),
		queues:  make(map[inboxKey][][]byte),
		seen:    make(map[inboxKey]map[string]bool),
	}
	rootTask := &Task{
		m:        m,
		self:     self,
		channel:  root,
		body:     body,
		yieldCh:  make(chan Action),
		resumeCh: make(chan struct{}),
	}
	m.tasks = []*Task{rootTask}
	return m
}

func (m *Machine) register(t *Task) {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()
	m.tasks = append(m.tasks, t)
}

func (m *Machine) snapshotTasks() []*Task {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()
	out := make([]*Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

func (m *Machine) childResult(child *Task) (Action, bool) {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()
	a, ok := m.results[child.channel.key()]
	return a, ok
}

// Deliver records an inbound message. It never blocks. A duplicate
// delivery — identical (from, channel-id, payload) to one already
// recorded — is discarded (spec §4.1, §8 idempotence).
func (m *Machine) Deliver(from party.ID, ch ChannelID, payload []byte) {
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()
	key := inboxKey{channel: ch.key(), from: from}
	if m.seen[key] == nil {
		m.seen[key] = make(map[string]bool)
	}
	payloadKey := string(payload)
	if m.seen[key][payloadKey] {
		m.log.Debugw("engine: duplicate delivery discarded", "from", from)
		return
	}
	m.seen[key][payloadKey] = true
	m.queues[key] = append(m.queues[key], payload)
}

func (m *Machine) popInbox(ch ChannelID, from party.ID) ([]byte, bool) {
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()
	key := inboxKey{channel: ch.key(), from: from}
	q := m.queues[key]
	if len(q) == 0 {
		return nil, false
	}
	payload := q[0]
	m.queues[key] = q[1:]
	return payload, true
}

// Step advances the engine by resuming one suspended task at a time
// (spec §5) until some task produces real progress (a send, the final
// Done, or a Fail), or until every task reports WaitMore. Once the
// root task finishes, every subsequent Step call returns the same
// terminal Action (idempotent).
func (m *Machine) Step() Action {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()

	if m.rootDone {
		return m.rootResult
	}

	for _, task := range m.snapshotTasks() {
		if task.finished {
			continue
		}
		a := task.poll()
		switch a.Kind {
		case ActionDone, ActionFail:
			task.finished = true
			m.tasksMu.Lock()
			m.results[task.channel.key()] = a
			m.tasksMu.Unlock()
			if task == m.tasks[0] {
				m.rootDone = true
				m.rootResult = a
				if a.Kind == ActionFail {
					m.log.Warnw("engine: protocol aborted", "kind", a.Err.Kind.String())
				} else {
					m.log.Debugw("engine: protocol done")
				}
				return a
			}
			// A child finished silently; keep scanning this round for
			// another task with real progress to report.
			continue
		case ActionWaitMore:
			continue
		default: // SendMany / SendOne
			return a
		}
	}
	return waitMore()
}

// Result returns the protocol's output once Step has reported Done,
// or the Fail once it has reported failure. The second return value
// is false while the protocol is still running.
func (m *Machine) Result() (interface{}, *Fail, bool) {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()
	if !m.rootDone {
		return nil, nil, false
	}
	if m.rootResult.Kind == ActionFail {
		return nil, m.rootResult.Err, true
	}
	return m.rootResult.Result, nil, true
}
