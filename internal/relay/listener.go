package relay

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrAcceptTimeout is returned by Accept when no connection arrived within
// AcceptTimeout. The listening socket is closed at that point; the caller
// must Listen again to retry.
var ErrAcceptTimeout = errors.New("accept timed out")

// Listener waits for inbound AudioSocket connections. Each Accept call
// serves exactly one connection with its own queues and frame loop.
type Listener struct {
	ln   *net.TCPListener
	opts Options
}

// Listen binds a TCP listener. An empty addr binds all interfaces and port 0
// requests an ephemeral port, readable via Port after binding.
func Listen(addr string, port int, opts Options) (*Listener, error) {
	if addr == "" {
		addr = "0.0.0.0"
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf("invalid bind address %q", addr)
	}
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: ip, Port: port})
	if err != nil {
		return nil, fmt.Errorf("bind %s:%d: %w", addr, port, err)
	}
	return &Listener{ln: ln, opts: opts.withDefaults()}, nil
}

// Addr reports the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port reports the bound port, useful after requesting port 0.
func (l *Listener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// Accept blocks until a connection arrives, bounded by AcceptTimeout when one
// is configured. The returned Conn is live: its frame loop is already
// running. On timeout the listening socket is closed and ErrAcceptTimeout is
// returned.
func (l *Listener) Accept() (*Conn, error) {
	if l.opts.AcceptTimeout > 0 {
		if err := l.ln.SetDeadline(time.Now().Add(l.opts.AcceptTimeout)); err != nil {
			return nil, err
		}
	}
	sock, err := l.ln.Accept()
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			l.ln.Close()
			return nil, fmt.Errorf("%w after %s", ErrAcceptTimeout, l.opts.AcceptTimeout)
		}
		return nil, err
	}

	conn := newConn(sock, l.opts)
	go conn.run()
	return conn, nil
}

// Close releases the listening socket. Live connections are unaffected.
func (l *Listener) Close() error {
	return l.ln.Close()
}
