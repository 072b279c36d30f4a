package wire

import (
	"bufio"
	"encoding/binary"
	"io"
)

// WriteMessage writes payload as one length-prefixed message and flushes w.
func WriteMessage(w *bufio.Writer, payload []byte) error {
	var hdr [LengthPrefixSize]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	if _, err := w.Write(payload); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	if err := w.Flush(); err != nil {
		return &ConnectionError{Op: "flush", Err: err}
	}
	return nil
}

// ReadMessage reads exactly one length-prefixed message from r.
// Messages announcing more than maxSize bytes are rejected before allocation.
func ReadMessage(r io.Reader, maxSize uint64) ([]byte, error) {
	var hdr [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, &ConnectionError{Op: "read", Err: err}
	}

	size := binary.LittleEndian.Uint64(hdr[:])
	if size > maxSize {
		return nil, &ConnectionError{Op: "read", Err: ErrMessageTooLarge}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &ConnectionError{Op: "read", Err: err}
	}
	return payload, nil
}

// AppendCommand appends the wire form of a textual command: the text and its terminator.
func AppendCommand(dst []byte, command string) []byte {
	dst = append(dst, command...)
	return append(dst, CommandTerminator)
}
