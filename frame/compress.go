package frame

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// DefaultCompressionLevel is the zstd level used when none is configured.
const DefaultCompressionLevel = 3

// Compressor compresses frame blocks.
type Compressor interface {
	// Compress appends the compressed form of src to dst.
	Compress(dst, src []byte) []byte

	// MaxEncodedSize returns the largest compressed size of a size-byte input.
	MaxEncodedSize(size int) int
}

// ZstdCompressor compresses blocks with zstd. Safe for concurrent use.
type ZstdCompressor struct {
	enc *zstd.Encoder
}

var _ Compressor = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a compressor for a zstd level (1 to 22).
func NewZstdCompressor(level int) (*ZstdCompressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	return &ZstdCompressor{enc: enc}, nil
}

func (c *ZstdCompressor) Compress(dst, src []byte) []byte {
	return c.enc.EncodeAll(src, dst)
}

// MaxEncodedSize returns the zstd worst case for a size-byte block, reached by
// incompressible input.
func (c *ZstdCompressor) MaxEncodedSize(size int) int {
	return c.enc.MaxEncodedSize(size)
}

// Close releases the encoder resources.
func (c *ZstdCompressor) Close() error {
	return c.enc.Close()
}

var decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
})

// Decompress appends the decompressed form of a zstd block to dst.
func Decompress(dst, src []byte) ([]byte, error) {
	dec, err := decoder()
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(src, dst)
}
