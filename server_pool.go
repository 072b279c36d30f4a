package rsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/rsp/wire"
)

// NewServerPool opens the connection pool of addr.
// The config must have its defaults applied.
func NewServerPool(ctx context.Context, addr string, config Config) (*ServerPool, error) {
	constructor := config.constructor
	if constructor == nil {
		constructor = func(ctx context.Context) (*Connection, error) {
			return dialConnection(ctx, config.Dialer, addr, config.MaxMessageSize)
		}
	}

	pool, err := config.NewPool(ctx, constructor, config.PoolSize)
	if err != nil {
		return nil, err
	}

	sp := &ServerPool{
		addr:     addr,
		pool:     pool,
		failFast: config.FailFast,
		logger:   config.Logger.With().Str("addr", addr).Logger(),
	}
	if config.NewCircuitBreaker != nil {
		sp.circuitBreaker = config.NewCircuitBreaker(addr)
	}
	return sp, nil
}

// ServerPool wraps a pool, a circuit breaker with its server address.
type ServerPool struct {
	addr           string
	pool           Pool
	circuitBreaker *gobreaker.CircuitBreaker[[]byte]
	failFast       bool
	logger         zerolog.Logger
}

func (sp *ServerPool) Address() string {
	return sp.addr
}

// ServerPoolStats contains stats for a single server pool
type ServerPoolStats struct {
	Addr                 string
	PoolStats            PoolStats
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

func (sp *ServerPool) Stats() ServerPoolStats {
	stats := ServerPoolStats{
		Addr:      sp.addr,
		PoolStats: sp.pool.Stats(),
	}
	if sp.circuitBreaker != nil {
		stats.CircuitBreakerState = sp.circuitBreaker.State()
		stats.CircuitBreakerCounts = sp.circuitBreaker.Counts()
	}
	return stats
}

// Execute sends one message and returns the raw response message, managing the
// connection: it is returned to the pool after use, or destroyed when the
// exchange left it unusable.
// The exchange is wrapped with the server's circuit breaker.
func (sp *ServerPool) Execute(ctx context.Context, payload []byte) ([]byte, error) {
	if sp.circuitBreaker == nil {
		return sp.execRequestDirect(ctx, payload)
	}

	return sp.circuitBreaker.Execute(func() ([]byte, error) {
		return sp.execRequestDirect(ctx, payload)
	})
}

// execRequestDirect performs the actual request execution without circuit breaker.
func (sp *ServerPool) execRequestDirect(ctx context.Context, payload []byte) ([]byte, error) {
	resource, err := sp.acquire(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := resource.Value().Send(ctx, payload)
	if err != nil {
		if wire.ShouldCloseConnection(err) {
			sp.logger.Warn().Err(err).Msg("destroying connection")
			resource.Destroy()
		} else {
			resource.Release()
		}
		return nil, err
	}

	resource.Release()
	return resp, nil
}

func (sp *ServerPool) acquire(ctx context.Context) (Resource, error) {
	if sp.failFast {
		return sp.pool.TryAcquire(ctx)
	}
	return sp.pool.Acquire(ctx)
}

// Close closes the pool.
func (sp *ServerPool) Close() {
	sp.pool.Close()
}
