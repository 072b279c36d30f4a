package rsp

import (
	"sync/atomic"
	"time"
)

// PoolStats contains statistics about a connection pool.
//
// For Prometheus integration, expose these as:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns, AcquireErrors
//   - Counter: AcquireWaitTimeNs (seconds waiting for a connection)
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedConns      uint64 // Total connections created
	DestroyedConns    uint64 // Total connections destroyed
	AcquireErrors     uint64 // Failed acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Total connections in pool (active + idle)
	IdleConns   int32 // Idle connections available
	ActiveConns int32 // Connections currently in use
}

// ClientStats contains statistics about client operations.
//
// For Prometheus integration, expose these as counters.
type ClientStats struct {
	Commands     uint64 // Commands executed, pipelines included
	Pipelines    uint64 // Pipelines executed
	Uploads      uint64 // Uploads completed
	FramesSent   uint64 // Frames acknowledged by the server
	BatchesSent  uint64 // Envelopes acknowledged by the server
	BytesSent    uint64 // Envelope bytes acknowledged by the server
	ServerErrors uint64 // Error responses from the server
	Errors       uint64 // Total errors across all operations, server errors included
}

// poolStatsCollector provides internal methods for updating pool stats.
type poolStatsCollector struct {
	acquireCount      atomic.Uint64
	acquireWaitCount  atomic.Uint64
	createdConns      atomic.Uint64
	destroyedConns    atomic.Uint64
	acquireErrors     atomic.Uint64
	acquireWaitTimeNs atomic.Uint64

	totalConns  atomic.Int32
	idleConns   atomic.Int32
	activeConns atomic.Int32
}

func (c *poolStatsCollector) recordAcquire() {
	c.acquireCount.Add(1)
}

func (c *poolStatsCollector) recordAcquireWait(d time.Duration) {
	c.acquireWaitCount.Add(1)
	c.acquireWaitTimeNs.Add(uint64(d.Nanoseconds()))
}

func (c *poolStatsCollector) recordAcquireError() {
	c.acquireErrors.Add(1)
}

// recordCreate counts a new connection, owned by its creator until released.
func (c *poolStatsCollector) recordCreate() {
	c.createdConns.Add(1)
	c.totalConns.Add(1)
	c.activeConns.Add(1)
}

// recordDestroy counts the destruction of a checked out connection.
func (c *poolStatsCollector) recordDestroy() {
	c.destroyedConns.Add(1)
	c.totalConns.Add(-1)
	c.activeConns.Add(-1)
}

func (c *poolStatsCollector) recordAcquireFromIdle() {
	c.idleConns.Add(-1)
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordRelease() {
	c.idleConns.Add(1)
	c.activeConns.Add(-1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		TotalConns:        c.totalConns.Load(),
		IdleConns:         c.idleConns.Load(),
		ActiveConns:       c.activeConns.Load(),
		AcquireCount:      c.acquireCount.Load(),
		AcquireWaitCount:  c.acquireWaitCount.Load(),
		CreatedConns:      c.createdConns.Load(),
		DestroyedConns:    c.destroyedConns.Load(),
		AcquireErrors:     c.acquireErrors.Load(),
		AcquireWaitTimeNs: c.acquireWaitTimeNs.Load(),
	}
}

// clientStatsCollector provides internal methods for updating client stats.
type clientStatsCollector struct {
	commands     atomic.Uint64
	pipelines    atomic.Uint64
	uploads      atomic.Uint64
	framesSent   atomic.Uint64
	batchesSent  atomic.Uint64
	bytesSent    atomic.Uint64
	serverErrors atomic.Uint64
	errors       atomic.Uint64
}

func (c *clientStatsCollector) recordCommand() {
	c.commands.Add(1)
}

func (c *clientStatsCollector) recordPipeline() {
	c.pipelines.Add(1)
}

func (c *clientStatsCollector) recordUpload() {
	c.uploads.Add(1)
}

func (c *clientStatsCollector) recordBatch(frames int, bytes int) {
	c.batchesSent.Add(1)
	c.framesSent.Add(uint64(frames))
	c.bytesSent.Add(uint64(bytes))
}

func (c *clientStatsCollector) recordServerError() {
	c.serverErrors.Add(1)
	c.errors.Add(1)
}

func (c *clientStatsCollector) recordError() {
	c.errors.Add(1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Commands:     c.commands.Load(),
		Pipelines:    c.pipelines.Load(),
		Uploads:      c.uploads.Load(),
		FramesSent:   c.framesSent.Load(),
		BatchesSent:  c.batchesSent.Load(),
		BytesSent:    c.bytesSent.Load(),
		ServerErrors: c.serverErrors.Load(),
		Errors:       c.errors.Load(),
	}
}
