package relay

import (
	"time"

	"audiosocket-relay/internal/metrics"
)

// Defaults mirror the tunables of the reference deployment: 500-slot queues,
// 200ms read timeout and hangup grace.
const (
	DefaultQueueSize   = 500
	DefaultReadTimeout = 200 * time.Millisecond
	DefaultHangupGrace = 200 * time.Millisecond
)

// Options tunes a Listener and the connections it accepts. The zero value is
// usable.
type Options struct {
	// RxQueueSize and TxQueueSize bound the per-connection audio queues.
	RxQueueSize int
	TxQueueSize int

	// ReadTimeout bounds Conn.Read; on expiry Read returns silence.
	ReadTimeout time.Duration

	// AcceptTimeout bounds Listener.Accept. Zero blocks forever. On expiry
	// the listening socket is closed and the caller must bind again.
	AcceptTimeout time.Duration

	// HangupGrace is how long Hangup pauses after sending the frame, giving
	// the peer time to react before any further teardown.
	HangupGrace time.Duration

	// Metrics receives per-connection instrumentation. Nil disables it.
	Metrics *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.RxQueueSize <= 0 {
		o.RxQueueSize = DefaultQueueSize
	}
	if o.TxQueueSize <= 0 {
		o.TxQueueSize = DefaultQueueSize
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.HangupGrace <= 0 {
		o.HangupGrace = DefaultHangupGrace
	}
	return o
}
