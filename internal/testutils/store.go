package testutils

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/pior/rsp/frame"
	"github.com/pior/rsp/wire"
)

// Store is a Handler simulating the stream commands used by uploads: META
// answers with the configured bit depth, OPEN and CLOSE track open streams,
// and envelopes are parsed, checksummed and decoded.
type Store struct {
	// BitDepth answers "META '<id>' 'bit_depth'".
	BitDepth wire.Value

	// FailEnvelope, when positive, answers the envelope with this index
	// (starting at 1) with an error.
	FailEnvelope int

	mu        sync.Mutex
	open      map[string]bool
	envelopes int
	frames    []frame.Frame
}

// Handle implements Handler.
func (s *Store) Handle(payload []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open == nil {
		s.open = map[string]bool{}
	}

	if frame.IsEnvelope(payload) {
		return s.handleEnvelope(payload)
	}

	command := string(bytes.TrimSuffix(payload, []byte{wire.CommandTerminator}))
	name, args, _ := strings.Cut(command, " ")

	switch name {
	case "META":
		if strings.HasSuffix(args, "'bit_depth'") {
			return Respond(s.BitDepth)
		}
		return RespondError("unknown attribute")
	case "OPEN":
		s.open[args] = true
		return Respond(wire.Str("OK"))
	case "CLOSE":
		if !s.open[args] {
			return RespondError("stream not open: " + args)
		}
		delete(s.open, args)
		return Respond(wire.Str("OK"))
	case "PING":
		return Respond(wire.Str("PONG"))
	default:
		return RespondError("unknown command: " + name)
	}
}

func (s *Store) handleEnvelope(payload []byte) []byte {
	s.envelopes++
	if s.envelopes == s.FailEnvelope {
		return RespondError("write failed")
	}

	raw, err := frame.ParseEnvelope(payload)
	if err != nil {
		return RespondError(err.Error())
	}

	for _, b := range raw {
		f, err := frame.Parse(b)
		if err != nil {
			return RespondError(err.Error())
		}
		f.Block = bytes.Clone(f.Block)
		s.frames = append(s.frames, f)
	}
	return Respond(wire.Int(len(raw)))
}

// Frames returns the frames received so far.
func (s *Store) Frames() []frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame.Frame(nil), s.frames...)
}

// Samples decodes the blocks of the frames received so far.
func (s *Store) Samples(bitDepth int) ([]int32, error) {
	var samples []int32
	for i, f := range s.Frames() {
		block := f.Block
		if f.Compressed() {
			var err error
			if block, err = frame.Decompress(nil, block); err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
		}
		decoded, err := frame.UnpackSamples(block, bitDepth)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		samples = append(samples, decoded...)
	}
	return samples, nil
}
