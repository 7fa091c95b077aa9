package engine

import "encoding/binary"

// ChannelID is a hierarchical tag: a root tag plus a path of child
// indices (spec §4.1). A subprotocol spawned as a child gets a fresh
// ChannelID so its messages can never collide with its parent's, even
// when the child runs "in parallel with" the parent's later rounds on
// the same wire.
type ChannelID struct {
	Root      uint64
	Path      []uint32
	Broadcast bool
}

// NewRootChannel creates a fresh top-level channel. root should be
// unique per protocol-role within a session (e.g. a small enum of
// round-purpose tags); broadcast sets the channel's initial marking.
// Private and broadcast sends are distinguished at the API level
// (Task.SendMany vs Task.SendOne), and each send re-marks the channel
// it emits on. Delivery is not typed: the inbox key ignores the
// marking, so Recv on a channel returns private and broadcast payloads
// alike, in arrival order.
func NewRootChannel(root uint64, broadcast bool) ChannelID {
	return ChannelID{Root: root, Broadcast: broadcast}
}

// Child derives a fresh channel for a subprotocol spawned at this
// point, distinguished by idx. Two children launched in parallel by
// the same parent must use distinct idx values (spec §4.1).
func (c ChannelID) Child(idx uint32) ChannelID {
	path := make([]uint32, len(c.Path)+1)
	copy(path, c.Path)
	path[len(path)-1] = idx
	return ChannelID{Root: c.Root, Path: path, Broadcast: c.Broadcast}
}

// AsPrivate returns a copy of c marked as a private (SendOne) channel.
func (c ChannelID) AsPrivate() ChannelID { c.Broadcast = false; return c }

// AsBroadcast returns a copy of c marked as a broadcast (SendMany) channel.
func (c ChannelID) AsBroadcast() ChannelID { c.Broadcast = true; return c }

// key renders the channel to a comparable map key.
func (c ChannelID) key() string {
	buf := make([]byte, 8, 8+4*len(c.Path))
	binary.BigEndian.PutUint64(buf, c.Root)
	for _, p := range c.Path {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], p)
		buf = append(buf, b[:]...)
	}
	return string(buf)
}
