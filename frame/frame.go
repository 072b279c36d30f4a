package frame

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
)

// Frame layout:
//
//	[3 bytes]  chunk tag "rsp"
//	[16 bytes] session id
//	[8 bytes]  stream name hash (little-endian uint64)
//	[4 bytes]  CRC32C of the block (little-endian uint32)
//	[2 bytes]  block length (little-endian uint16)
//	[1 byte]   flags (bit 0: compressed)
//	[N bytes]  block
const (
	ChunkTag      = "rsp"
	SessionIDSize = 16
	HeaderSize    = len(ChunkTag) + SessionIDSize + 8 + 4 + 2 + 1
	MaxBlockSize  = math.MaxUint16

	FlagCompressed byte = 0x01
)

var (
	ErrBlockTooLarge    = errors.New("frame: block exceeds 65535 bytes")
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
	ErrInvalidFrame     = errors.New("frame: invalid frame")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checksum returns the CRC32C (Castagnoli) of block.
func Checksum(block []byte) uint32 {
	return crc32.Checksum(block, castagnoli)
}

// Options configures an Encoder.
type Options struct {
	// Compressed sets the compressed flag on every frame.
	// The caller is responsible for compressing blocks before packing them.
	Compressed bool

	// SessionID generates the session identifier. Defaults to RandomSessionID.
	SessionID func() [SessionIDSize]byte

	// Hash hashes the stream name. Defaults to Murmur3Hash.
	Hash NameHash
}

// Encoder frames the blocks of one upload session.
// The session id and stream hash are generated once and shared by every frame.
type Encoder struct {
	sessionID  [SessionIDSize]byte
	streamHash uint64
	flags      byte
}

// NewEncoder creates an encoder for a new upload session to streamID.
func NewEncoder(streamID string, opts Options) *Encoder {
	newSessionID := opts.SessionID
	if newSessionID == nil {
		newSessionID = RandomSessionID
	}
	hash := opts.Hash
	if hash == nil {
		hash = Murmur3Hash
	}

	e := &Encoder{
		sessionID:  newSessionID(),
		streamHash: hash([]byte(streamID)),
	}
	if opts.Compressed {
		e.flags |= FlagCompressed
	}
	return e
}

// SessionID returns the session identifier carried by every frame.
func (e *Encoder) SessionID() [SessionIDSize]byte { return e.sessionID }

// StreamHash returns the hash of the stream name carried by every frame.
func (e *Encoder) StreamHash() uint64 { return e.streamHash }

// Flags returns the flag byte carried by every frame.
func (e *Encoder) Flags() byte { return e.flags }

// Pack returns block wrapped in a frame.
func (e *Encoder) Pack(block []byte) ([]byte, error) {
	return e.Append(make([]byte, 0, HeaderSize+len(block)), block)
}

// Append appends the frame of block to dst.
func (e *Encoder) Append(dst, block []byte) ([]byte, error) {
	if len(block) > MaxBlockSize {
		return nil, ErrBlockTooLarge
	}

	dst = append(dst, ChunkTag...)
	dst = append(dst, e.sessionID[:]...)
	dst = binary.LittleEndian.AppendUint64(dst, e.streamHash)
	dst = binary.LittleEndian.AppendUint32(dst, Checksum(block))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(block)))
	dst = append(dst, e.flags)
	return append(dst, block...), nil
}

// Frame is a decoded frame.
type Frame struct {
	SessionID  [SessionIDSize]byte
	StreamHash uint64
	Checksum   uint32
	Flags      byte
	Block      []byte
}

// Compressed reports whether the block is compressed.
func (f Frame) Compressed() bool {
	return f.Flags&FlagCompressed != 0
}

// Parse decodes one frame and verifies its checksum.
// Block aliases b.
func Parse(b []byte) (Frame, error) {
	if len(b) < HeaderSize || string(b[:len(ChunkTag)]) != ChunkTag {
		return Frame{}, ErrInvalidFrame
	}

	var f Frame
	pos := len(ChunkTag)
	copy(f.SessionID[:], b[pos:pos+SessionIDSize])
	pos += SessionIDSize
	f.StreamHash = binary.LittleEndian.Uint64(b[pos:])
	pos += 8
	f.Checksum = binary.LittleEndian.Uint32(b[pos:])
	pos += 4
	size := int(binary.LittleEndian.Uint16(b[pos:]))
	pos += 2
	f.Flags = b[pos]
	pos++

	if len(b)-pos != size {
		return Frame{}, ErrInvalidFrame
	}
	f.Block = b[pos:]

	if Checksum(f.Block) != f.Checksum {
		return Frame{}, ErrChecksumMismatch
	}
	return f, nil
}
