package rsp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pior/rsp/frame"
	"github.com/pior/rsp/internal/bufpool"
	"github.com/pior/rsp/wire"
)

// ErrInvalidBitDepth is returned when the bit depth of a stream is not an integer.
var ErrInvalidBitDepth = errors.New("rsp: invalid bit depth")

// UploadStage identifies the step of an upload.
type UploadStage string

const (
	StageConfig UploadStage = "config"
	StageMeta   UploadStage = "meta"
	StageOpen   UploadStage = "open"
	StagePack   UploadStage = "pack"
	StageFlush  UploadStage = "flush"
	StageClose  UploadStage = "close"
)

// UploadError is returned by a failed upload.
// Once an upload fails, no further command is sent for it: the stream is not closed.
type UploadError struct {
	StreamID string
	Stage    UploadStage
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload to %q failed during %s: %v", e.StreamID, e.Stage, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

var (
	envelopePool = bufpool.New(64 << 10)
	blockPool    = bufpool.New(frame.MaxBlockSize)
)

// Upload sends samples to a stream: it resolves the stream bit depth, opens the
// stream, sends the samples in batches of frames and closes the stream.
//
// The setters configure the upload and return it, an Upload can be executed
// any number of times.
type Upload struct {
	client           *Client
	streamID         string
	chunkSize        int
	batchSize        int
	compression      bool
	compressionLevel int
}

// ChunkSize sets the number of packed bytes per frame, rounded down to whole samples.
// It must hold at least one sample and fit a frame block. With compression, the
// worst-case compressed size of a chunk must fit a frame block.
func (u *Upload) ChunkSize(bytes int) *Upload {
	u.chunkSize = bytes
	return u
}

// BatchSize sets the number of frames per envelope.
func (u *Upload) BatchSize(frames int) *Upload {
	u.batchSize = frames
	return u
}

// Compression enables the zstd compression of frame blocks.
func (u *Upload) Compression(enabled bool) *Upload {
	u.compression = enabled
	return u
}

// CompressionLevel sets the zstd level.
func (u *Upload) CompressionLevel(level int) *Upload {
	u.compressionLevel = level
	return u
}

// Execute uploads samples.
//
// Each envelope is acknowledged by the server before the next one is sent.
// The context is checked before every envelope.
func (u *Upload) Execute(ctx context.Context, samples []int32) error {
	c := u.client
	logger := c.logger.With().Str("stream", u.streamID).Logger()

	if err := u.validate(); err != nil {
		return u.fail(StageConfig, err)
	}

	var compressor frame.Compressor
	if u.compression {
		comp, err := c.compressor(u.compressionLevel)
		if err != nil {
			return u.fail(StageConfig, err)
		}
		if bound := comp.MaxEncodedSize(u.chunkSize); bound > frame.MaxBlockSize {
			return u.fail(StageConfig, fmt.Errorf("%w: chunk size %d compresses to up to %d bytes",
				frame.ErrBlockTooLarge, u.chunkSize, bound))
		}
		compressor = comp
	}

	bitDepth, err := u.resolveBitDepth(ctx)
	if err != nil {
		return u.fail(StageMeta, err)
	}
	width, _ := frame.BytesPerSample(bitDepth)
	samplesPerFrame := u.chunkSize / width
	if samplesPerFrame < 1 {
		return u.fail(StageConfig, fmt.Errorf("chunk size %d is smaller than a %d-bit sample", u.chunkSize, bitDepth))
	}

	if _, err := c.Execute(ctx, fmt.Sprintf("OPEN '%s'", u.streamID)); err != nil {
		return u.fail(StageOpen, err)
	}

	up := &uploader{
		client:     c,
		logger:     logger,
		bitDepth:   bitDepth,
		compressor: compressor,
		batchSize:  u.batchSize,
		encoder: frame.NewEncoder(u.streamID, frame.Options{
			Compressed: compressor != nil,
			Hash:       c.config.StreamHash,
		}),
	}
	logger.Debug().
		Int("bit_depth", bitDepth).
		Int("samples", len(samples)).
		Int("samples_per_frame", samplesPerFrame).
		Bool("compression", compressor != nil).
		Msg("upload opened")

	for start := 0; start < len(samples); start += samplesPerFrame {
		end := min(start+samplesPerFrame, len(samples))

		if err := up.add(samples[start:end]); err != nil {
			return u.fail(StagePack, err)
		}

		if up.pending() >= u.batchSize {
			if err := up.flush(ctx); err != nil {
				return u.fail(StageFlush, err)
			}
		}
	}

	if err := up.flush(ctx); err != nil {
		return u.fail(StageFlush, err)
	}

	if _, err := c.Execute(ctx, fmt.Sprintf("CLOSE '%s'", u.streamID)); err != nil {
		return u.fail(StageClose, err)
	}

	c.stats.recordUpload()
	logger.Debug().Int("frames", up.frames).Int("batches", up.batches).Msg("upload closed")
	return nil
}

func (u *Upload) validate() error {
	if u.chunkSize < 1 || u.chunkSize > frame.MaxBlockSize {
		return fmt.Errorf("chunk size %d out of range [1, %d]", u.chunkSize, frame.MaxBlockSize)
	}
	if u.batchSize < 1 {
		return fmt.Errorf("batch size %d must be positive", u.batchSize)
	}
	return nil
}

// resolveBitDepth queries the bit depth of the stream. It is not cached: a
// stream can be recreated with another bit depth between uploads.
func (u *Upload) resolveBitDepth(ctx context.Context) (int, error) {
	v, err := u.client.Execute(ctx, fmt.Sprintf("META '%s' 'bit_depth'", u.streamID))
	if err != nil {
		return 0, err
	}

	depth, ok := v.(wire.Int)
	if !ok {
		return 0, fmt.Errorf("%w: got %s", ErrInvalidBitDepth, wire.Format(v))
	}
	if _, err := frame.BytesPerSample(int(depth)); err != nil {
		return 0, fmt.Errorf("%w: %d", err, depth)
	}
	return int(depth), nil
}

func (u *Upload) fail(stage UploadStage, err error) error {
	return &UploadError{StreamID: u.streamID, Stage: stage, Err: err}
}

// uploader holds the state of one upload: the frame encoder of the session and
// the frames waiting to be flushed.
type uploader struct {
	client     *Client
	logger     zerolog.Logger
	encoder    *frame.Encoder
	compressor frame.Compressor
	bitDepth   int
	batchSize  int

	// Encoded frames, back to back. ends holds the end offset of each frame.
	batch []byte
	ends  []int

	frames  int
	batches int
}

// add packs, compresses and encodes one group of samples into the batch.
func (up *uploader) add(samples []int32) error {
	buf := blockPool.Get()
	defer blockPool.Put(buf)

	packed, err := frame.AppendSamples(*buf, samples, up.bitDepth)
	if err != nil {
		return err
	}
	*buf = packed

	block := packed
	if up.compressor != nil {
		compressed := blockPool.Get()
		defer blockPool.Put(compressed)

		*compressed = up.compressor.Compress(*compressed, packed)
		block = *compressed
	}

	batch, err := up.encoder.Append(up.batch, block)
	if err != nil {
		return err
	}
	up.batch = batch
	up.ends = append(up.ends, len(up.batch))
	return nil
}

func (up *uploader) pending() int {
	return len(up.ends)
}

// flush sends the pending frames as one envelope and waits for the
// acknowledgment. The batch is kept when the flush fails.
func (up *uploader) flush(ctx context.Context) error {
	if len(up.ends) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frames := make([][]byte, len(up.ends))
	start := 0
	for i, end := range up.ends {
		frames[i] = up.batch[start:end]
		start = end
	}

	buf := envelopePool.Get()
	defer envelopePool.Put(buf)

	payload, err := frame.AppendEnvelope(*buf, frames)
	if err != nil {
		return err
	}
	*buf = payload

	if _, err := up.client.execute(ctx, payload); err != nil {
		return err
	}

	up.client.stats.recordBatch(len(frames), len(payload))
	up.logger.Debug().Int("frames", len(frames)).Int("bytes", len(payload)).Msg("batch flushed")

	up.frames += len(frames)
	up.batches++
	up.batch = up.batch[:0]
	up.ends = up.ends[:0]
	return nil
}
