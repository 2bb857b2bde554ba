package relay

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"audiosocket-relay/internal/protocol"
)

func testOptions() Options {
	return Options{
		RxQueueSize: 8,
		TxQueueSize: 8,
		ReadTimeout: 100 * time.Millisecond,
		HangupGrace: time.Millisecond,
	}.withDefaults()
}

// newTestConn wires a Conn to one end of an in-memory pipe and starts its
// frame loop; the other end plays the Asterisk side.
func newTestConn(t *testing.T, opts Options) (*Conn, net.Conn) {
	t.Helper()
	ours, peer := net.Pipe()
	c := newConn(ours, opts)
	go c.run()
	t.Cleanup(func() {
		c.Close()
		peer.Close()
	})
	return c, peer
}

// readReply reads one full outbound audio frame from the peer side. Replies
// always carry the nominal 320-byte payload.
func readReply(t *testing.T, peer net.Conn) protocol.Frame {
	t.Helper()
	buf := make([]byte, protocol.HeaderSize+protocol.NominalAudioSize)
	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(peer, buf); err != nil {
		t.Fatalf("Failed to read reply frame: %v", err)
	}
	frame, err := protocol.Decode(buf)
	if err != nil {
		t.Fatalf("Failed to decode reply frame: %v", err)
	}
	return frame
}

func sendFrame(t *testing.T, peer net.Conn, kind protocol.Kind, payload []byte) {
	t.Helper()
	peer.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := peer.Write(protocol.Encode(kind, payload)); err != nil {
		t.Fatalf("Failed to send %s frame: %v", kind, err)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSilenceReplyWhenTxEmpty(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	inbound := bytes.Repeat([]byte{0x01, 0x02}, 160)
	sendFrame(t, peer, protocol.KindAudio, inbound)

	reply := readReply(t, peer)
	if reply.Kind != protocol.KindAudio {
		t.Errorf("Expected audio reply, got %s", reply.Kind)
	}
	if !bytes.Equal(reply.Payload, make([]byte, protocol.NominalAudioSize)) {
		t.Error("Expected a 320-byte all-zero silence payload")
	}

	if got := c.Read(); !bytes.Equal(got, inbound) {
		t.Error("Read did not return the inbound payload")
	}
}

func TestOversizedTxItemTruncated(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	item := bytes.Repeat([]byte{0xAA}, 400)
	if err := c.Write(item); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	sendFrame(t, peer, protocol.KindAudio, make([]byte, 320))
	reply := readReply(t, peer)
	if !bytes.Equal(reply.Payload, item[:protocol.NominalAudioSize]) {
		t.Error("Expected reply payload to be exactly the first 320 bytes of the tx item")
	}
}

func TestReadTimeoutReturnsSilence(t *testing.T) {
	c, _ := newTestConn(t, testOptions())

	start := time.Now()
	got := c.Read()
	elapsed := time.Since(start)

	if !bytes.Equal(got, make([]byte, protocol.NominalAudioSize)) {
		t.Error("Expected 320 bytes of silence from an empty rx queue")
	}
	if elapsed > time.Second {
		t.Errorf("Read took %s, expected it bounded near the 100ms timeout", elapsed)
	}
}

func TestWriteNeverBlocks(t *testing.T) {
	opts := testOptions()
	opts.TxQueueSize = 1
	c, _ := newTestConn(t, opts)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			c.Write(make([]byte, 320))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on a full tx queue")
	}

	select {
	case ev := <-c.Events():
		if ev.Kind != EventQueueOverflow || ev.Queue != QueueTx {
			t.Errorf("Expected tx overflow event, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected an overflow event for the dropped frames")
	}
}

func TestUUIDFrameSetsCallID(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	id := uuid.New()
	sendFrame(t, peer, protocol.KindUUID, id[:])

	// A follow-up audio exchange guarantees the loop has processed the UUID
	// frame before we assert on it.
	sendFrame(t, peer, protocol.KindAudio, make([]byte, 320))
	readReply(t, peer)

	got, ok := c.CallID()
	if !ok || got != id {
		t.Errorf("Expected call id %s, got %s (ok=%v)", id, got, ok)
	}
}

func TestShortUUIDPayloadKeptRaw(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	sendFrame(t, peer, protocol.KindUUID, []byte("abc123"))
	sendFrame(t, peer, protocol.KindAudio, make([]byte, 320))
	readReply(t, peer)

	if !bytes.Equal(c.CallIDBytes(), []byte("abc123")) {
		t.Errorf("Expected raw call id %q, got %q", "abc123", c.CallIDBytes())
	}
	if _, ok := c.CallID(); ok {
		t.Error("A 6-byte payload must not parse as a UUID")
	}

	// The UUID frame must leave the queues untouched: the only rx item is
	// the audio frame that followed it.
	if got := c.Read(); !bytes.Equal(got, make([]byte, 320)) {
		t.Error("Expected the audio payload as the first rx item")
	}
}

func TestPeerErrorReportedNotFatal(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	sendFrame(t, peer, protocol.KindError, []byte{0x01})

	select {
	case ev := <-c.Events():
		if ev.Kind != EventPeerError || ev.Code != protocol.ErrCodeHangup {
			t.Errorf("Expected hangup-classified peer error, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a peer error event")
	}

	if !c.Connected() {
		t.Error("A peer ERROR frame must not change connected state")
	}
}

func TestFramingErrorKeepsLoopRunning(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	peer.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := peer.Write([]byte{byte(protocol.KindAudio), 0x01}); err != nil {
		t.Fatalf("Failed to send short segment: %v", err)
	}

	select {
	case ev := <-c.Events():
		if ev.Kind != EventFramingError {
			t.Errorf("Expected framing error event, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a framing error event")
	}

	// The connection survives the bad segment.
	sendFrame(t, peer, protocol.KindAudio, make([]byte, 320))
	if reply := readReply(t, peer); reply.Kind != protocol.KindAudio {
		t.Errorf("Expected the loop to keep replying, got %s", reply.Kind)
	}
	if !c.Connected() {
		t.Error("A framing error must not end the connection")
	}
}

func TestSilenceFrameIgnored(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	sendFrame(t, peer, protocol.KindSilence, make([]byte, 320))
	sendFrame(t, peer, protocol.KindAudio, make([]byte, 320))
	readReply(t, peer)

	if !c.Connected() {
		t.Error("Silence frames must be ignored")
	}
}

func TestPeerCloseTearsDownOnce(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	// Hammer the application surface while the peer disconnects.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					c.Read()
					c.Write(make([]byte, 320))
				}
			}
		}()
	}

	peer.Close()
	waitFor(t, func() bool { return !c.Connected() }, "Expected connected=false after peer close")

	close(stop)
	wg.Wait()

	// Redundant teardown paths must be no-ops.
	c.Close()
	c.Close()
	if c.Connected() {
		t.Error("Connection must stay closed")
	}
}

func TestHangupSendsSentinel(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Hangup() }()

	buf := make([]byte, protocol.HeaderSize)
	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(peer, buf); err != nil {
		t.Fatalf("Failed to read hangup frame: %v", err)
	}
	if !bytes.Equal(buf, []byte{0x00, 0x00, 0x00}) {
		t.Errorf("Expected the all-zero hangup sentinel, got %v", buf)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Hangup failed: %v", err)
	}

	// Hangup itself leaves the socket open; teardown belongs to the loop.
	if !c.Connected() {
		t.Error("Hangup must not close the connection directly")
	}
}

func TestHangupAfterTeardown(t *testing.T) {
	c, peer := newTestConn(t, testOptions())

	peer.Close()
	waitFor(t, func() bool { return !c.Connected() }, "Expected teardown after peer close")

	if err := c.Hangup(); err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}
