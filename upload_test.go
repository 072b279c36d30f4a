package rsp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/rsp/frame"
	"github.com/pior/rsp/internal/testutils"
	"github.com/pior/rsp/wire"
)

func rampSamples(n int, scale int32) []int32 {
	samples := make([]int32, n)
	for i := range samples {
		samples[i] = (int32(i) - int32(n)/2) * scale
	}
	return samples
}

func TestUpload(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, server := newTestClient(t, store.Handle, Config{PoolSize: 1})

	samples := rampSamples(100, 100)
	err := client.Stream("s1").ChunkSize(8).BatchSize(2).Execute(context.Background(), samples)
	require.NoError(t, err)

	requests := server.Requests()
	require.Len(t, requests, 3+13)
	assert.Equal(t, "META 's1' 'bit_depth'\x00", string(requests[0]))
	assert.Equal(t, "OPEN 's1'\x00", string(requests[1]))
	assert.Equal(t, "CLOSE 's1'\x00", string(requests[len(requests)-1]))
	assert.Equal(t, []string{"META 's1' 'bit_depth'", "OPEN 's1'", "CLOSE 's1'"}, server.Commands())

	envelopes := server.Envelopes()
	require.Len(t, envelopes, 13)
	for i, env := range envelopes {
		frames, err := frame.ParseEnvelope(env)
		require.NoError(t, err)
		if i < 12 {
			assert.Len(t, frames, 2, "envelope %d", i)
		} else {
			assert.Len(t, frames, 1, "last envelope holds the remainder")
		}
	}

	frames := store.Frames()
	require.Len(t, frames, 25)
	for _, f := range frames {
		assert.Len(t, f.Block, 8, "4 samples of 2 bytes per frame")
		assert.Equal(t, frames[0].SessionID, f.SessionID, "one session per upload")
		assert.Equal(t, frame.Murmur3Hash([]byte("s1")), f.StreamHash)
		assert.False(t, f.Compressed())
	}

	got, err := store.Samples(16)
	require.NoError(t, err)
	assert.Equal(t, samples, got)

	stats := client.Stats()
	assert.Equal(t, uint64(1), stats.Uploads)
	assert.Equal(t, uint64(25), stats.FramesSent)
	assert.Equal(t, uint64(13), stats.BatchesSent)
	assert.Equal(t, uint64(3), stats.Commands)
	assert.Equal(t, uint64(0), stats.Errors)
}

func TestUpload_ShortLastFrame(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, _ := newTestClient(t, store.Handle, Config{PoolSize: 1})

	samples := rampSamples(10, 1)
	require.NoError(t, client.Stream("s1").ChunkSize(8).Execute(context.Background(), samples))

	frames := store.Frames()
	require.Len(t, frames, 3)
	assert.Len(t, frames[2].Block, 4, "2 remaining samples")
}

func TestUpload_ExactBatches(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, server := newTestClient(t, store.Handle, Config{PoolSize: 1})

	err := client.Stream("s1").ChunkSize(8).BatchSize(2).Execute(context.Background(), rampSamples(16, 1))
	require.NoError(t, err)

	assert.Len(t, server.Envelopes(), 2, "no empty envelope is sent")
	assert.Len(t, store.Frames(), 4)
}

func TestUpload_24Bit(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(24)}
	client, _ := newTestClient(t, store.Handle, Config{PoolSize: 1})

	samples := rampSamples(1000, 8000)
	samples = append(samples, 1<<23-1, -1<<23)

	err := client.Stream("s24").ChunkSize(32).BatchSize(8).Execute(context.Background(), samples)
	require.NoError(t, err)

	frames := store.Frames()
	assert.Len(t, frames, int(math.Ceil(float64(len(samples))/10)), "10 samples of 3 bytes per 32-byte chunk")

	got, err := store.Samples(24)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestUpload_Compression(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, _ := newTestClient(t, store.Handle, Config{PoolSize: 1})

	samples := make([]int32, 20000)
	for i := range samples {
		samples[i] = int32(i % 16)
	}

	err := client.Stream("s1").
		Compression(true).
		CompressionLevel(1).
		Execute(context.Background(), samples)
	require.NoError(t, err)

	frames := store.Frames()
	require.Len(t, frames, 2, "32768-byte chunks of 2-byte samples")
	for _, f := range frames {
		assert.True(t, f.Compressed())
		assert.Less(t, len(f.Block), 16384*2)
	}

	got, err := store.Samples(16)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func noiseSamples(n int) []int32 {
	r := rand.New(rand.NewPCG(7, 11))
	samples := make([]int32, n)
	for i := range samples {
		samples[i] = int32(int16(r.Uint32()))
	}
	return samples
}

func TestUpload_CompressionChunkTooBig(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, server := newTestClient(t, store.Handle, Config{PoolSize: 1})

	err := client.Stream("s1").
		ChunkSize(65534).
		Compression(true).
		Execute(context.Background(), noiseSamples(40000))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, StageConfig, uploadErr.Stage)
	assert.ErrorIs(t, err, frame.ErrBlockTooLarge)
	assert.Empty(t, server.Requests(), "nothing is sent before the chunk size is rejected")

	// The same chunk size is fine without compression.
	err = client.Stream("s1").ChunkSize(65534).Execute(context.Background(), noiseSamples(40000))
	require.NoError(t, err)
}

func TestUpload_CompressionIncompressibleSamples(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, _ := newTestClient(t, store.Handle, Config{PoolSize: 1})

	samples := noiseSamples(40000)
	err := client.Stream("s1").
		ChunkSize(65000).
		Compression(true).
		Execute(context.Background(), samples)
	require.NoError(t, err)

	frames := store.Frames()
	require.Len(t, frames, 2, "32500 samples per frame")
	for _, f := range frames {
		assert.True(t, f.Compressed())
		assert.LessOrEqual(t, len(f.Block), frame.MaxBlockSize)
	}

	got, err := store.Samples(16)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestUpload_ClientDefaults(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, server := newTestClient(t, store.Handle, Config{
		PoolSize:    1,
		ChunkSize:   4,
		BatchSize:   3,
		Compression: true,
		StreamHash:  frame.XXH3Hash,
	})

	require.NoError(t, client.Stream("s1").Execute(context.Background(), rampSamples(12, 1)))

	assert.Len(t, server.Envelopes(), 2)
	frames := store.Frames()
	require.Len(t, frames, 6)
	assert.True(t, frames[0].Compressed())
	assert.Equal(t, frame.XXH3Hash([]byte("s1")), frames[0].StreamHash)
}

func TestUpload_NoSamples(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, server := newTestClient(t, store.Handle, Config{PoolSize: 1})

	require.NoError(t, client.Stream("s1").Execute(context.Background(), nil))

	assert.Equal(t, []string{"META 's1' 'bit_depth'", "OPEN 's1'", "CLOSE 's1'"}, server.Commands())
	assert.Empty(t, server.Envelopes())
}

func TestUpload_SessionPerExecute(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, _ := newTestClient(t, store.Handle, Config{PoolSize: 1})

	upload := client.Stream("s1")
	require.NoError(t, upload.Execute(context.Background(), []int32{1}))
	require.NoError(t, upload.Execute(context.Background(), []int32{2}))

	frames := store.Frames()
	require.Len(t, frames, 2)
	assert.NotEqual(t, frames[0].SessionID, frames[1].SessionID)
	assert.Equal(t, frames[0].StreamHash, frames[1].StreamHash)
}

func TestUpload_BitDepthErrors(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth wire.Value
		wantErr  error
	}{
		{"not an int", wire.Str("16"), ErrInvalidBitDepth},
		{"null", wire.Nil{}, ErrInvalidBitDepth},
		{"unsupported", wire.Int(8), frame.ErrUnsupportedBitDepth},
		{"32 bits", wire.Int(32), frame.ErrUnsupportedBitDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &testutils.Store{BitDepth: tt.bitDepth}
			client, server := newTestClient(t, store.Handle, Config{PoolSize: 1})

			err := client.Stream("s1").Execute(context.Background(), rampSamples(10, 1))
			require.ErrorIs(t, err, tt.wantErr)

			var uploadErr *UploadError
			require.ErrorAs(t, err, &uploadErr)
			assert.Equal(t, StageMeta, uploadErr.Stage)
			assert.Equal(t, "s1", uploadErr.StreamID)

			assert.Equal(t, []string{"META 's1' 'bit_depth'"}, server.Commands(), "nothing is sent after the metadata query")
		})
	}
}

func TestUpload_MetaServerError(t *testing.T) {
	handler := func([]byte) []byte { return testutils.RespondError("no such stream") }
	client, server := newTestClient(t, handler, Config{PoolSize: 1})

	err := client.Stream("missing").Execute(context.Background(), rampSamples(10, 1))

	var serverErr *wire.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "no such stream", serverErr.Message)
	assert.Len(t, server.Requests(), 1)
}

func TestUpload_OpenError(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	handler := func(payload []byte) []byte {
		if string(payload) == "OPEN 's1'\x00" {
			return testutils.RespondError("stream locked")
		}
		return store.Handle(payload)
	}
	client, server := newTestClient(t, handler, Config{PoolSize: 1})

	err := client.Stream("s1").Execute(context.Background(), rampSamples(10, 1))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, StageOpen, uploadErr.Stage)
	assert.Empty(t, server.Envelopes())
	assert.Equal(t, []string{"META 's1' 'bit_depth'", "OPEN 's1'"}, server.Commands())
}

func TestUpload_FlushError(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16), FailEnvelope: 2}
	client, server := newTestClient(t, store.Handle, Config{PoolSize: 1})

	err := client.Stream("s1").ChunkSize(8).BatchSize(2).Execute(context.Background(), rampSamples(100, 1))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, StageFlush, uploadErr.Stage)

	var serverErr *wire.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "write failed", serverErr.Message)

	assert.Len(t, server.Envelopes(), 2, "the upload stops at the first failed batch")
	assert.NotContains(t, server.Commands(), "CLOSE 's1'")
	assert.Len(t, store.Frames(), 2)

	stats := client.Stats()
	assert.Equal(t, uint64(0), stats.Uploads)
	assert.Equal(t, uint64(1), stats.BatchesSent)
	assert.Equal(t, uint64(1), stats.ServerErrors)
}

func TestUpload_AcknowledgmentDecodeError(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	handler := func(payload []byte) []byte {
		if frame.IsEnvelope(payload) {
			return []byte("garbage")
		}
		return store.Handle(payload)
	}
	client, server := newTestClient(t, handler, Config{PoolSize: 1})

	err := client.Stream("s1").Execute(context.Background(), rampSamples(10, 1))

	var decodeErr *wire.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.NotContains(t, server.Commands(), "CLOSE 's1'")
}

func TestUpload_ConnectionLost(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	handler := func(payload []byte) []byte {
		if frame.IsEnvelope(payload) {
			return nil
		}
		return store.Handle(payload)
	}
	client, server := newTestClient(t, handler, Config{PoolSize: 1})

	err := client.Stream("s1").Execute(context.Background(), rampSamples(10, 1))

	var connErr *wire.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.NotContains(t, server.Commands(), "CLOSE 's1'")
}

func TestUpload_ContextCanceledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &testutils.Store{BitDepth: wire.Int(16)}
	handler := func(payload []byte) []byte {
		if frame.IsEnvelope(payload) {
			cancel()
		}
		return store.Handle(payload)
	}
	client, server := newTestClient(t, handler, Config{PoolSize: 1})

	err := client.Stream("s1").ChunkSize(8).BatchSize(1).Execute(ctx, rampSamples(100, 1))
	require.ErrorIs(t, err, context.Canceled)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, StageFlush, uploadErr.Stage)

	assert.Len(t, server.Envelopes(), 1)
	assert.NotContains(t, server.Commands(), "CLOSE 's1'")
}

func TestUpload_InvalidConfig(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, server := newTestClient(t, store.Handle, Config{PoolSize: 1})

	tests := map[string]*Upload{
		"zero batch":     client.Stream("s1").BatchSize(0),
		"zero chunk":     client.Stream("s1").ChunkSize(0),
		"chunk too big":  client.Stream("s1").ChunkSize(frame.MaxBlockSize + 1),
		"negative batch": client.Stream("s1").BatchSize(-1),
	}

	for name, upload := range tests {
		t.Run(name, func(t *testing.T) {
			err := upload.Execute(context.Background(), []int32{1})

			var uploadErr *UploadError
			require.ErrorAs(t, err, &uploadErr)
			assert.Equal(t, StageConfig, uploadErr.Stage)
		})
	}

	assert.Empty(t, server.Requests(), "invalid uploads send nothing")
}

func TestUpload_ChunkSmallerThanSample(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(24)}
	client, server := newTestClient(t, store.Handle, Config{PoolSize: 1})

	err := client.Stream("s1").ChunkSize(2).Execute(context.Background(), []int32{1})

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, StageConfig, uploadErr.Stage)
	assert.Equal(t, []string{"META 's1' 'bit_depth'"}, server.Commands())
}

func TestUploadError(t *testing.T) {
	cause := errors.New("boom")
	err := &UploadError{StreamID: "s1", Stage: StageFlush, Err: cause}

	assert.Equal(t, `upload to "s1" failed during flush: boom`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), cause)
}
