package rsp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/rsp/internal/testutils"
	"github.com/pior/rsp/wire"
)

func TestPoolStats(t *testing.T) {
	for name, newPool := range poolFactories {
		t.Run(name, func(t *testing.T) {
			dialer := &mockDialer{}
			pool, err := newPool(context.Background(), dialer.constructor, 2)
			require.NoError(t, err)
			defer pool.Close()

			ctx := context.Background()

			// Connections are opened eagerly
			stats := pool.Stats()
			assert.Equal(t, int32(2), stats.TotalConns)
			assert.Equal(t, int32(2), stats.IdleConns)
			assert.Equal(t, int32(0), stats.ActiveConns)
			assert.Equal(t, uint64(2), stats.CreatedConns)
			assert.Equal(t, uint64(0), stats.AcquireCount)

			res, err := pool.Acquire(ctx)
			require.NoError(t, err)

			stats = pool.Stats()
			assert.Equal(t, int32(1), stats.IdleConns)
			assert.Equal(t, int32(1), stats.ActiveConns)
			assert.Equal(t, uint64(1), stats.AcquireCount)

			res.Release()

			stats = pool.Stats()
			assert.Equal(t, int32(2), stats.IdleConns)
			assert.Equal(t, int32(0), stats.ActiveConns)

			// Acquire again (should reuse existing connection)
			res, err = pool.Acquire(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), pool.Stats().AcquireCount)
			assert.Equal(t, uint64(2), pool.Stats().CreatedConns)

			res.Destroy()

			require.Eventually(t, func() bool {
				s := pool.Stats()
				return s.DestroyedConns == 1 && s.TotalConns == 1
			}, time.Second, 5*time.Millisecond)
		})
	}
}

func TestPoolStats_AcquireWait(t *testing.T) {
	for name, newPool := range poolFactories {
		t.Run(name, func(t *testing.T) {
			dialer := &mockDialer{}
			pool, err := newPool(context.Background(), dialer.constructor, 1)
			require.NoError(t, err)
			defer pool.Close()

			res, err := pool.Acquire(context.Background())
			require.NoError(t, err)

			go func() {
				time.Sleep(20 * time.Millisecond)
				res.Release()
			}()

			waited, err := pool.Acquire(context.Background())
			require.NoError(t, err)
			waited.Release()

			stats := pool.Stats()
			assert.Equal(t, uint64(1), stats.AcquireWaitCount)
			assert.Positive(t, stats.AcquireWaitTimeNs)

			avg := time.Duration(stats.AcquireWaitTimeNs / stats.AcquireWaitCount)
			assert.GreaterOrEqual(t, avg, 10*time.Millisecond)
		})
	}
}

func TestClientStats(t *testing.T) {
	store := &testutils.Store{BitDepth: wire.Int(16)}
	client, _ := newTestClient(t, func(payload []byte) []byte {
		switch string(payload) {
		case "LIST '*'\x00":
			return testutils.Respond(wire.List{wire.Str("mic-1")})
		case "OPEN 'missing'\x00":
			return testutils.RespondError("no such stream")
		}
		return store.Handle(payload)
	}, Config{})
	ctx := context.Background()

	_, err := client.Execute(ctx, "LIST '*'")
	require.NoError(t, err)

	_, err = client.Execute(ctx, "OPEN 'missing'")
	require.Error(t, err)

	_, err = client.Pipeline().Ping().Ping().Execute(ctx)
	require.NoError(t, err)

	stats := client.Stats()
	assert.Equal(t, uint64(3), stats.Commands)
	assert.Equal(t, uint64(1), stats.Pipelines)
	assert.Equal(t, uint64(1), stats.ServerErrors)
	assert.Equal(t, uint64(1), stats.Errors)

	err = client.Stream("mic-1").ChunkSize(8).BatchSize(2).Execute(ctx, make([]int32, 12))
	require.NoError(t, err)

	stats = client.Stats()
	assert.Equal(t, uint64(1), stats.Uploads)
	assert.Equal(t, uint64(3), stats.FramesSent)
	assert.Equal(t, uint64(2), stats.BatchesSent)
	assert.Positive(t, stats.BytesSent)
}

func TestClient_ServerStats(t *testing.T) {
	client, server := newTestClient(t, testutils.Reply(wire.Str("PONG")), Config{
		PoolSize:          2,
		NewCircuitBreaker: NewCircuitBreakerConfig(3, time.Minute, 10*time.Second),
	})

	require.NoError(t, client.Ping(context.Background()))

	stats := client.ServerStats()
	assert.Equal(t, server.Addr(), stats.Addr)
	assert.Equal(t, int32(2), stats.PoolStats.TotalConns)
	assert.Equal(t, uint64(2), stats.PoolStats.CreatedConns)
	assert.Equal(t, uint32(1), stats.CircuitBreakerCounts.Requests)
}
