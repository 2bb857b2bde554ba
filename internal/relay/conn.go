package relay

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"audiosocket-relay/internal/audio/transcode"
	"audiosocket-relay/internal/protocol"
)

// ErrNotConnected is returned by Hangup after the connection tore down.
var ErrNotConnected = errors.New("connection is closed")

// Conn is one live AudioSocket connection. Two goroutines touch it: the
// frame loop started by Accept, and the application calling Read, Write and
// Hangup. All socket writes go through writeMu; the loop is the only reader
// of the socket.
type Conn struct {
	sock net.Conn
	peer net.Addr
	opts Options
	log  zerolog.Logger

	rx chan []byte
	tx chan []byte

	writeMu   sync.Mutex
	closeOnce sync.Once
	connected atomic.Bool

	idMu      sync.Mutex
	callID    uuid.UUID
	callIDRaw []byte

	in  *transcode.Transcoder
	out *transcode.Transcoder

	events chan Event
}

func newConn(sock net.Conn, opts Options) *Conn {
	c := &Conn{
		sock:   sock,
		peer:   sock.RemoteAddr(),
		opts:   opts,
		log:    log.With().Str("peer", sock.RemoteAddr().String()).Logger(),
		rx:     make(chan []byte, opts.RxQueueSize),
		tx:     make(chan []byte, opts.TxQueueSize),
		events: make(chan Event, eventBuffer),
	}
	c.connected.Store(true)
	opts.Metrics.RecordConnectionOpened()
	c.log.Info().Msg("Connection accepted")
	return c
}

// PeerAddr reports the remote address.
func (c *Conn) PeerAddr() net.Addr {
	return c.peer
}

// Connected reports whether the connection is still live. It flips to false
// exactly once, on peer close, receive error or hangup-driven teardown.
func (c *Conn) Connected() bool {
	return c.connected.Load()
}

// CallID returns the call identifier from the first UUID frame, if one with
// a well-formed 16-byte payload arrived.
func (c *Conn) CallID() (uuid.UUID, bool) {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return c.callID, c.callID != uuid.Nil
}

// CallIDBytes returns the raw payload of the first UUID frame, whatever its
// size.
func (c *Conn) CallIDBytes() []byte {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return c.callIDRaw
}

// ConfigureInput installs the write-path transcoder converting application
// audio in f to the 8kHz mono wire format. Call before traffic begins.
func (c *Conn) ConfigureInput(f transcode.Format) error {
	t, err := transcode.NewInput(f)
	if err != nil {
		return err
	}
	c.in = t
	return nil
}

// ConfigureOutput installs the read-path transcoder converting wire audio to
// f. Call before traffic begins.
func (c *Conn) ConfigureOutput(f transcode.Format) error {
	t, err := transcode.NewOutput(f)
	if err != nil {
		return err
	}
	c.out = t
	return nil
}

// Read returns the next inbound audio frame, waiting at most ReadTimeout.
// On timeout it returns a frame of silence: callers treat that as "no new
// audio yet", not as an error. Short frames are zero-padded to the nominal
// size before output transcoding so the converter always sees full frames.
func (c *Conn) Read() []byte {
	var audio []byte

	timer := time.NewTimer(c.opts.ReadTimeout)
	defer timer.Stop()
	select {
	case audio = <-c.rx:
		if len(audio) < protocol.NominalAudioSize {
			padded := make([]byte, protocol.NominalAudioSize)
			copy(padded, audio)
			audio = padded
		}
	case <-timer.C:
		audio = protocol.SilencePayload()
	}

	if c.out != nil {
		converted, err := c.out.Process(audio)
		if err != nil {
			c.log.Warn().Err(err).Msg("Output transcoding failed, returning raw frame")
			return audio
		}
		audio = converted
	}
	return audio
}

// Write queues one frame of application audio for transmission. It never
// blocks: when the tx queue is full the frame is dropped and an overflow is
// reported. The returned error is non-nil only for transcoding failures.
func (c *Conn) Write(audio []byte) error {
	if c.in != nil {
		converted, err := c.in.Process(audio)
		if err != nil {
			return err
		}
		audio = converted
	}

	select {
	case c.tx <- audio:
	default:
		c.log.Warn().Msg("Outbound audio queue is full, dropping frame")
		c.emit(Event{Kind: EventQueueOverflow, Queue: QueueTx})
		c.opts.Metrics.RecordQueueDrop(QueueTx)
	}
	return nil
}

// Hangup asks the peer to tear the call down, then pauses for HangupGrace so
// the peer can react. The socket itself is closed by the frame loop when the
// peer disconnects in response.
func (c *Conn) Hangup() error {
	if !c.connected.Load() {
		return ErrNotConnected
	}
	c.log.Info().Msg("Sending hangup request")

	c.writeMu.Lock()
	_, err := c.sock.Write(protocol.EncodeHangup())
	c.writeMu.Unlock()

	time.Sleep(c.opts.HangupGrace)
	return err
}

// Close tears the connection down from the application side. Safe to call
// any number of times and concurrently with the frame loop.
func (c *Conn) Close() {
	c.teardown()
}

// teardown flips connected and releases the socket, exactly once.
func (c *Conn) teardown() {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		c.sock.Close()
		c.opts.Metrics.RecordConnectionClosed()
		c.idMu.Lock()
		id := c.callID
		c.idMu.Unlock()
		c.log.Info().Str("call_id", id.String()).Msg("Connection ended")
	})
}

// run is the frame loop: one blocking read per iteration, sized for a header
// plus one nominal audio payload, matching the one-frame-per-segment pacing
// of Asterisk.
func (c *Conn) run() {
	defer c.teardown()
	buf := make([]byte, protocol.HeaderSize+protocol.NominalAudioSize)

	for {
		n, err := c.sock.Read(buf)
		if err != nil || n == 0 {
			// EOF, reset by peer or locally closed socket all end the
			// connection; none of them are retried.
			return
		}

		frame, err := protocol.Decode(buf[:n])
		if err != nil {
			c.log.Warn().Err(err).Msg("Discarding undecodable segment")
			c.emit(Event{Kind: EventFramingError})
			c.opts.Metrics.RecordFramingError()
			continue
		}

		switch frame.Kind {
		case protocol.KindAudio:
			c.handleAudio(frame.Payload)
		case protocol.KindUUID:
			c.setCallID(frame.Payload)
		case protocol.KindError:
			code := protocol.DecodeErrorCode(frame.Payload)
			c.log.Warn().Str("peer_error", code.String()).Msg("Peer reported an error")
			c.emit(Event{Kind: EventPeerError, Code: code})
			c.opts.Metrics.RecordPeerError()
		default:
			// KindSilence and unrecognized kinds carry nothing actionable.
		}
	}
}

// handleAudio enqueues one inbound payload and produces exactly one reply
// frame, so the wire never starves even when the application writes nothing.
func (c *Conn) handleAudio(payload []byte) {
	c.opts.Metrics.RecordFrameReceived()

	// The read buffer is reused every iteration; the queue needs its own copy.
	audio := make([]byte, len(payload))
	copy(audio, payload)

	select {
	case c.rx <- audio:
	default:
		c.log.Warn().Msg("Inbound audio queue is full, dropping frame; is Read being called?")
		c.emit(Event{Kind: EventQueueOverflow, Queue: QueueRx})
		c.opts.Metrics.RecordQueueDrop(QueueRx)
	}

	var reply []byte
	select {
	case item := <-c.tx:
		// Oversized items point at a format mismatch upstream; truncation
		// keeps the wire cadence intact but cannot fix the audio.
		reply = protocol.EncodeAudio(item)
	default:
		reply = protocol.EncodeAudio(nil)
		c.opts.Metrics.RecordSilenceSynthesized()
	}

	c.writeMu.Lock()
	_, err := c.sock.Write(reply)
	c.writeMu.Unlock()
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to transmit reply frame")
		return
	}
	c.opts.Metrics.RecordFrameSent()
}

// setCallID stores the identifier from the first UUID frame; later UUID
// frames are ignored.
func (c *Conn) setCallID(payload []byte) {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	if c.callIDRaw != nil {
		return
	}
	c.callIDRaw = make([]byte, len(payload))
	copy(c.callIDRaw, payload)
	if id, err := uuid.FromBytes(c.callIDRaw); err == nil {
		c.callID = id
		c.log.Info().Str("call_id", id.String()).Msg("Call identifier set")
	} else {
		c.log.Info().Hex("call_id", c.callIDRaw).Msg("Call identifier set (not a 16-byte UUID)")
	}
}
