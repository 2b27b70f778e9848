package scanio

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Magic identifies the start of a framed message on the parent<->worker
// pipe, the same role the reference transport package's packet magic
// plays for its serial framing.
const Magic uint32 = 0xBADAB00A

// maxFrameSize bounds a single message so a corrupted length prefix can
// never cause an unbounded allocation.
const maxFrameSize = 1 << 20

var errContextDone = errors.New("scanio: context done")

// MsgType tags the kind of message on the wire.
type MsgType string

const (
	MsgStarted MsgType = "started"
	MsgScan    MsgType = "scan"
	MsgError   MsgType = "error"
)

// Message is the envelope exchanged between the scan-source parent and its
// isolated child worker.
type Message struct {
	Type  MsgType `json:"type"`
	Scan  *Frame  `json:"scan,omitempty"`
	Error string  `json:"error,omitempty"`
}

// WriteMessage frames msg as Magic(4) + Length(4) + JSON(Length) and writes
// it to w. Used by the child worker to emit messages to its stdout.
func WriteMessage(w io.Writer, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("scanio: marshal message: %w", err)
	}
	if len(payload) > maxFrameSize {
		return fmt.Errorf("scanio: message too large (%d bytes)", len(payload))
	}
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:4], Magic)
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("scanio: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("scanio: write payload: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message from r, honoring ctx cancellation
// between the header read and the payload read the way the reference
// transport package's readAll polls ctx.Done() during a multi-read frame.
func ReadMessage(ctx context.Context, r *bufio.Reader) (Message, error) {
	var msg Message

	select {
	case <-ctx.Done():
		return msg, errContextDone
	default:
	}

	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return msg, err
	}
	magic := binary.BigEndian.Uint32(header[0:4])
	if magic != Magic {
		return msg, fmt.Errorf("scanio: bad magic %x", magic)
	}
	length := binary.BigEndian.Uint32(header[4:8])
	if length > maxFrameSize {
		return msg, fmt.Errorf("scanio: frame too large (%d bytes)", length)
	}

	select {
	case <-ctx.Done():
		return msg, errContextDone
	default:
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return msg, err
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, fmt.Errorf("scanio: unmarshal message: %w", err)
	}
	return msg, nil
}
