package relay

import "audiosocket-relay/internal/protocol"

// EventKind classifies a connection event.
type EventKind int

const (
	// EventFramingError: a segment too short to decode was discarded.
	EventFramingError EventKind = iota
	// EventQueueOverflow: an audio frame was dropped on a full queue.
	EventQueueOverflow
	// EventPeerError: the peer sent an ERROR frame.
	EventPeerError
)

// Queue names used in overflow events.
const (
	QueueRx = "rx"
	QueueTx = "tx"
)

// Event is one non-fatal connection notification. None of these change
// connection state; fatal conditions surface through Connected instead.
type Event struct {
	Kind  EventKind
	Queue string             // set for EventQueueOverflow
	Code  protocol.ErrorCode // set for EventPeerError
}

const eventBuffer = 32

// emit delivers an event without ever blocking the caller; when nobody
// drains Events, notifications are dropped.
func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

// Events exposes the connection's notification side channel. The channel is
// buffered and lossy and stays open for the life of the Conn; poll Connected
// to learn about teardown.
func (c *Conn) Events() <-chan Event {
	return c.events
}
