package frame

import (
	"errors"
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// ErrEmptyEnvelope is returned when an envelope would carry no frame.
var ErrEmptyEnvelope = errors.New("frame: empty envelope")

// AppendEnvelope appends a batch of encoded frames to dst:
// the chunk tag, an array header with the frame count, then each frame as a
// binary blob.
func AppendEnvelope(dst []byte, frames [][]byte) ([]byte, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyEnvelope
	}

	dst = append(dst, ChunkTag...)
	dst = msgp.AppendArrayHeader(dst, uint32(len(frames)))
	for _, f := range frames {
		dst = msgp.AppendBytes(dst, f)
	}
	return dst, nil
}

// IsEnvelope reports whether payload starts with the envelope tag.
func IsEnvelope(payload []byte) bool {
	return len(payload) >= len(ChunkTag) && string(payload[:len(ChunkTag)]) == ChunkTag
}

// ParseEnvelope splits an envelope into its encoded frames.
// The frames alias payload.
func ParseEnvelope(payload []byte) ([][]byte, error) {
	if !IsEnvelope(payload) {
		return nil, fmt.Errorf("%w: missing envelope tag", ErrInvalidFrame)
	}

	n, rest, err := msgp.ReadArrayHeaderBytes(payload[len(ChunkTag):])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if n == 0 {
		return nil, ErrEmptyEnvelope
	}
	if uint64(n) > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFrame, msgp.ErrShortBytes)
	}

	frames := make([][]byte, 0, n)
	for range n {
		var f []byte
		f, rest, err = msgp.ReadBytesZC(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
