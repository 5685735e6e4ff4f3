package ipc

import (
	"net"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ErrConnectionLost marks a transport whose socket has died. Every call
// fails fast with it until Reconnect succeeds.
var ErrConnectionLost = errors.New("ipc: connection lost")

// CommandError is a command the window manager received but refused to
// execute.
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return "ipc: command " + e.Command + " rejected: " + e.Reason
}

// Transport owns one socket connection and multiplexes its two logical
// channels: the strictly request/reply command channel and the push event
// channel. The protocol has no request correlation, so at most one command
// may ever be in flight; the mutex enforces that, and also guarantees that
// one frame is fully decoded before the next begins regardless of which
// channel it belongs to.
//
// Transport never reconnects on its own. After a loss the caller decides
// when to call Reconnect, so repeated failures stay visible.
type Transport struct {
	path string

	// mu serializes the command/reply exchange and event reads: one frame
	// is fully decoded before the next begins.
	mu      sync.Mutex
	pending []Frame // events read while awaiting a command reply
	lost    bool

	// connMu guards the socket pointer only, so Close can reach it while
	// a reader holds mu inside a blocking read.
	connMu sync.Mutex
	conn   net.Conn
	closed bool
}

// Connect dials the IPC socket at path. No retries.
func Connect(path string) (*Transport, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "ipc: connect %s", path)
	}
	return &Transport{path: path, conn: conn}, nil
}

// NewTransport wraps an already established connection. Reconnect is only
// available when the transport was created with Connect.
func NewTransport(conn net.Conn) *Transport {
	return &Transport{conn: conn}
}

// SendCommand writes one command frame and blocks until its reply frame is
// read back. Event frames arriving while the reply is awaited are queued in
// order for NextEvent. The reply type must echo the request type.
func (t *Transport) SendCommand(typ MessageType, payload []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lost {
		return nil, ErrConnectionLost
	}
	conn := t.socket()

	if err := WriteFrame(conn, Frame{Type: typ, Payload: payload}); err != nil {
		return nil, t.markLost(err)
	}

	for {
		f, err := ReadFrame(conn)
		if err != nil {
			// a framing error leaves the stream desynced, which is as
			// unrecoverable as a dead socket
			return nil, t.markLost(err)
		}

		if f.Type.Event() {
			t.pending = append(t.pending, f)
			continue
		}

		if f.Type != typ {
			return nil, errors.Wrapf(ErrMalformed, "reply type %d does not match command type %d", f.Type, typ)
		}
		return f.Payload, nil
	}
}

// RunCommand sends a textual command and checks the per-command success
// flags in the reply.
func (t *Transport) RunCommand(cmd string) error {
	reply, err := t.SendCommand(MessageRunCommand, []byte(cmd))
	if err != nil {
		return err
	}

	var results []struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(reply, &results); err != nil {
		return errors.Wrapf(ErrMalformed, "run_command reply: %s", err)
	}

	for _, res := range results {
		if !res.Success {
			return &CommandError{Command: cmd, Reason: res.Error}
		}
	}
	return nil
}

// Subscribe registers for the given event types. After a successful
// subscribe the window manager pushes event frames at any time; read them
// with NextEvent.
func (t *Transport) Subscribe(events ...string) error {
	payload, err := json.Marshal(events)
	if err != nil {
		return errors.Wrap(err, "ipc: encode subscribe payload")
	}

	reply, err := t.SendCommand(MessageSubscribe, payload)
	if err != nil {
		return err
	}

	var res struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(reply, &res); err != nil {
		return errors.Wrapf(ErrMalformed, "subscribe reply: %s", err)
	}
	if !res.Success {
		return &CommandError{Command: "subscribe", Reason: "subscription refused"}
	}
	return nil
}

// NextEvent blocks until the next pushed event frame: first any events
// queued during a command exchange, then the socket. A reply frame arriving
// with no command in flight is a protocol violation.
func (t *Transport) NextEvent() (Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lost {
		return Frame{}, ErrConnectionLost
	}

	if len(t.pending) > 0 {
		f := t.pending[0]
		t.pending = t.pending[1:]
		return f, nil
	}

	f, err := ReadFrame(t.socket())
	if err != nil {
		return Frame{}, t.markLost(err)
	}

	if !f.Type.Event() {
		return Frame{}, errors.Wrapf(ErrMalformed, "reply frame type %d with no command in flight", f.Type)
	}
	return f, nil
}

// Reconnect re-dials the socket after a loss. Events queued from the old
// connection are dropped and the caller must subscribe again. A closed
// transport stays closed.
func (t *Transport) Reconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.path == "" {
		return errors.New("ipc: transport has no socket path to reconnect")
	}

	conn, err := net.Dial("unix", t.path)
	if err != nil {
		return errors.Wrapf(err, "ipc: reconnect %s", t.path)
	}

	t.connMu.Lock()
	if t.closed {
		t.connMu.Unlock()
		conn.Close()
		return errors.Wrap(ErrConnectionLost, "ipc: transport closed")
	}
	old := t.conn
	t.conn = conn
	t.connMu.Unlock()

	if old != nil {
		old.Close()
	}
	t.pending = nil
	t.lost = false
	return nil
}

// Close shuts the socket down. It deliberately does not take mu: a reader
// blocked inside NextEvent or SendCommand holds it, and closing the socket
// is exactly what unblocks that read, which then surfaces ErrConnectionLost.
func (t *Transport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	t.closed = true
	return t.conn.Close()
}

func (t *Transport) socket() net.Conn {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn
}

// markLost is called with t.mu held after a socket-level failure.
func (t *Transport) markLost(err error) error {
	t.lost = true

	t.connMu.Lock()
	t.conn.Close()
	t.connMu.Unlock()

	return errors.Wrapf(ErrConnectionLost, "%v", err)
}
