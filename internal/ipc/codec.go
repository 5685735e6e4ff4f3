// Package ipc speaks the window manager's IPC wire protocol: a Unix socket
// carrying length-prefixed binary frames for both the synchronous
// command/reply exchange and the asynchronous event stream.
package ipc

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MessageType is the 32-bit type tag of a frame. Event frames set the high
// bit; the low bits then carry the event kind instead of a command kind.
type MessageType uint32

const (
	MessageRunCommand MessageType = 0
	MessageSubscribe  MessageType = 2
	MessageGetTree    MessageType = 4

	EventWindow MessageType = eventMask | 3

	eventMask MessageType = 1 << 31
)

// Event reports whether the frame is an asynchronous event rather than a
// command reply.
func (t MessageType) Event() bool { return t&eventMask != 0 }

var magic = [6]byte{'i', '3', '-', 'i', 'p', 'c'}

const headerSize = 14 // magic + u32 length + u32 type

// MaxPayload is the largest payload length accepted from the wire. A full
// layout tree is a few hundred KB; a declared length past this means the
// stream is corrupt, not that the tree grew.
const MaxPayload = 1 << 24

// ErrMalformed marks frames and payloads that violate the protocol.
var ErrMalformed = errors.New("ipc: malformed frame")

// Frame is one decoded protocol message.
type Frame struct {
	Type    MessageType
	Payload []byte
}

// WriteFrame encodes f and writes it to w in a single write.
func WriteFrame(w io.Writer, f Frame) error {
	buf := make([]byte, headerSize+len(f.Payload))
	copy(buf, magic[:])
	binary.LittleEndian.PutUint32(buf[6:], uint32(len(f.Payload)))
	binary.LittleEndian.PutUint32(buf[10:], uint32(f.Type))
	copy(buf[headerSize:], f.Payload)

	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "ipc: write frame")
	}
	return nil
}

// ReadFrame decodes exactly one frame from r, blocking until a full frame is
// available. Short reads are resumed via io.ReadFull; only a genuine
// mismatch or stream closure is an error. A magic mismatch or an oversized
// declared length fails with ErrMalformed before any payload bytes are
// consumed.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, errors.Wrap(err, "ipc: read header")
	}

	if !bytes.Equal(hdr[:6], magic[:]) {
		return Frame{}, errors.Wrapf(ErrMalformed, "bad magic %q", hdr[:6])
	}

	length := binary.LittleEndian.Uint32(hdr[6:10])
	typ := MessageType(binary.LittleEndian.Uint32(hdr[10:14]))
	if length > MaxPayload {
		return Frame{}, errors.Wrapf(ErrMalformed, "declared length %d exceeds maximum %d", length, MaxPayload)
	}

	f := Frame{Type: typ, Payload: make([]byte, length)}
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return Frame{}, errors.Wrap(err, "ipc: read payload")
	}
	return f, nil
}
