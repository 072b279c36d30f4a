package rsp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/rsp/frame"
	"github.com/pior/rsp/wire"
)

const (
	DefaultPoolSize    = 3
	DefaultDialTimeout = 5 * time.Second
	DefaultChunkSize   = 32 << 10
	DefaultBatchSize   = 50
)

// Config holds configuration for the client.
// Zero values select the defaults.
type Config struct {
	// PoolSize is the number of connections opened to the server.
	// Defaults to 3.
	PoolSize int32

	// DialTimeout bounds the establishment of each connection.
	// Defaults to 5s. Ignored when Dialer is set.
	DialTimeout time.Duration

	// RequestTimeout bounds every operation whose context has no deadline,
	// from connection checkout to response. Zero means no timeout.
	RequestTimeout time.Duration

	// MaxMessageSize is the largest response accepted.
	// Defaults to wire.DefaultMaxMessageSize.
	MaxMessageSize uint64

	// FailFast makes operations fail with ErrNoConnectionsAvailable when every
	// connection is checked out, instead of waiting for one to be returned.
	FailFast bool

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit. Enforced by health checks.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle before being closed.
	// Zero means no limit. Enforced by health checks.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often to check idle connections for health.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// Dialer is the net.Dialer used to create new connections.
	Dialer *net.Dialer

	// NewPool is the connection pool factory function.
	// Defaults to NewPuddlePool. NewChannelPool is the alternative.
	NewPool NewPoolFunc

	// NewCircuitBreaker creates the circuit breaker of the server.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(addr string) *gobreaker.CircuitBreaker[[]byte]

	// ChunkSize is the default number of packed bytes per uploaded frame.
	// Defaults to 32768.
	ChunkSize int

	// BatchSize is the default number of frames per uploaded envelope.
	// Defaults to 50.
	BatchSize int

	// Compression enables zstd compression of uploaded frames by default.
	Compression bool

	// CompressionLevel is the default zstd level of uploads. Defaults to 3.
	CompressionLevel int

	// StreamHash hashes stream names in upload frames. Defaults to frame.Murmur3Hash.
	StreamHash frame.NameHash

	// Logger receives debug logs of commands and uploads, and warnings about
	// destroyed connections. Defaults to a disabled logger.
	Logger *zerolog.Logger

	// for testing purposes only
	constructor Constructor
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{Timeout: c.DialTimeout}
	}
	if c.NewPool == nil {
		c.NewPool = NewPuddlePool
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.CompressionLevel == 0 {
		c.CompressionLevel = frame.DefaultCompressionLevel
	}
	if c.StreamHash == nil {
		c.StreamHash = frame.Murmur3Hash
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}

// Client is a client of one server, backed by a connection pool.
// It is safe for concurrent use.
type Client struct {
	config Config
	server *ServerPool
	logger zerolog.Logger

	compressorsMu sync.Mutex
	compressors   map[int]*frame.ZstdCompressor

	// Health check management
	stopHealthCheck chan struct{}
	healthCheckDone chan struct{}
	closeOnce       sync.Once

	stats clientStatsCollector
}

// NewClient connects to the server at addr.
// Every connection of the pool is established before NewClient returns: if
// one fails, the others are closed and the error is returned.
func NewClient(addr string, config Config) (*Client, error) {
	config = config.withDefaults()

	server, err := NewServerPool(context.Background(), addr, config)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	client := &Client{
		config:          config,
		server:          server,
		logger:          *config.Logger,
		compressors:     make(map[int]*frame.ZstdCompressor),
		stopHealthCheck: make(chan struct{}),
		healthCheckDone: make(chan struct{}),
	}

	if config.HealthCheckInterval > 0 {
		go client.healthCheckLoop()
	} else {
		close(client.healthCheckDone)
	}

	return client, nil
}

// Close stops health checks and closes all connections.
// With the puddle pool, Close waits for in-flight operations to complete.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stopHealthCheck)
		<-c.healthCheckDone

		c.server.Close()

		c.compressorsMu.Lock()
		for _, comp := range c.compressors {
			_ = comp.Close()
		}
		c.compressorsMu.Unlock()
	})
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.server.Address()
}

// Execute sends a command and returns its decoded response.
// An error response from the server is returned as a *wire.ServerError.
func (c *Client) Execute(ctx context.Context, command string) (wire.Value, error) {
	c.stats.recordCommand()
	return c.execute(ctx, wire.AppendCommand(nil, command))
}

// Ping checks that the server answers commands.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "PING")
	return err
}

// Pipeline returns an empty pipeline executed by this client.
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{client: c}
}

// Stream returns an upload to streamID configured with the client defaults.
func (c *Client) Stream(streamID string) *Upload {
	return &Upload{
		client:           c,
		streamID:         streamID,
		chunkSize:        c.config.ChunkSize,
		batchSize:        c.config.BatchSize,
		compression:      c.config.Compression,
		compressionLevel: c.config.CompressionLevel,
	}
}

// execute runs one request/response exchange and decodes the response.
func (c *Client) execute(ctx context.Context, payload []byte) (wire.Value, error) {
	ctx, cancel := c.withRequestTimeout(ctx)
	defer cancel()

	resp, err := c.server.Execute(ctx, payload)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	value, err := wire.Decode(resp)
	if err != nil {
		var serverErr *wire.ServerError
		if errors.As(err, &serverErr) {
			c.stats.recordServerError()
		} else {
			c.stats.recordError()
		}
		return nil, err
	}
	return value, nil
}

func (c *Client) withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}

// compressor returns the shared compressor of a zstd level.
func (c *Client) compressor(level int) (frame.Compressor, error) {
	c.compressorsMu.Lock()
	defer c.compressorsMu.Unlock()

	if comp, ok := c.compressors[level]; ok {
		return comp, nil
	}
	comp, err := frame.NewZstdCompressor(level)
	if err != nil {
		return nil, err
	}
	c.compressors[level] = comp
	return comp, nil
}

// healthCheckLoop periodically checks idle connections for health and lifecycle limits.
func (c *Client) healthCheckLoop() {
	defer close(c.healthCheckDone)

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkPoolConnections(c.server.pool)
		}
	}
}

// checkPoolConnections checks all idle connections in a pool and destroys those that are stale or unhealthy.
func (c *Client) checkPoolConnections(pool Pool) {
	now := time.Now()

	for _, res := range pool.AcquireAllIdle() {
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			res.Destroy()
			continue
		}

		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			res.Destroy()
			continue
		}

		if err := c.healthCheck(res.Value()); err != nil {
			c.logger.Warn().Err(err).Str("addr", c.Addr()).Msg("health check failed")
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

// healthCheck sends a PING on a connection.
func (c *Client) healthCheck(conn *Connection) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.DialTimeout)
	defer cancel()

	resp, err := conn.Send(ctx, wire.AppendCommand(nil, "PING"))
	if err != nil {
		return err
	}
	if _, err := wire.Decode(resp); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// ServerStats returns the stats of the connection pool and circuit breaker.
func (c *Client) ServerStats() ServerPoolStats {
	return c.server.Stats()
}
