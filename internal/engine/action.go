package engine

import "github.com/sigmabit/threshold-ecdsa/pkg/party"

// ActionKind distinguishes the five outcomes Step() can return (spec §4.1).
type ActionKind int

const (
	// ActionWaitMore means no progress is possible until new inbound
	// messages arrive.
	ActionWaitMore ActionKind = iota
	// ActionSendMany means payload must be broadcast to every peer on
	// Channel.
	ActionSendMany
	// ActionSendOne means payload must be privately sent to To on Channel.
	ActionSendOne
	// ActionDone means the protocol finished; Result holds its output.
	ActionDone
	// ActionFail means the protocol aborted unrecoverably; Err holds
	// the reason.
	ActionFail
)

// Action is the uniform value Step() returns.
type Action struct {
	Kind    ActionKind
	Channel ChannelID
	Payload []byte
	To      party.ID
	Result  interface{}
	Err     *Fail
}

// IsTerminal reports whether this action ends the protocol (Done or Fail).
func (a Action) IsTerminal() bool {
	return a.Kind == ActionDone || a.Kind == ActionFail
}

func waitMore() Action { return Action{Kind: ActionWaitMore} }

func sendMany(ch ChannelID, payload []byte) Action {
	return Action{Kind: ActionSendMany, Channel: ch, Payload: payload}
}

func sendOne(ch ChannelID, to party.ID, payload []byte) Action {
	return Action{Kind: ActionSendOne, Channel: ch, To: to, Payload: payload}
}

func done(result interface{}) Action {
	return Action{Kind: ActionDone, Result: result}
}

func failAction(f *Fail) Action {
	return Action{Kind: ActionFail, Err: f}
}
