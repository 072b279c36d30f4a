package rsp

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPoolClosed             = errors.New("rsp: pool closed")
	ErrNoConnectionsAvailable = errors.New("rsp: no connections available")
)

// Constructor opens a new connection for a pool.
type Constructor func(ctx context.Context) (*Connection, error)

// Pool is a fixed-capacity set of connections to one server.
//
// A checked out connection belongs to the caller until it calls Release or
// Destroy on the returned Resource.
type Pool interface {
	// Acquire returns an idle connection, dials a replacement when the pool is
	// below capacity, or waits for a connection to be returned until ctx is done.
	Acquire(ctx context.Context) (Resource, error)

	// TryAcquire returns an idle connection or ErrNoConnectionsAvailable.
	// It never waits.
	TryAcquire(ctx context.Context) (Resource, error)

	// AcquireAllIdle checks out every idle connection. Used by health checks.
	AcquireAllIdle() []Resource

	// Close closes the idle connections. Connections checked out are closed
	// when returned. Later checkouts fail with ErrPoolClosed.
	Close()

	Stats() PoolStats
}

// Resource is a checked out connection.
type Resource interface {
	Value() *Connection

	// Release returns the connection to the pool.
	Release()

	// ReleaseUnused returns the connection without updating its last use time.
	ReleaseUnused()

	// Destroy closes the connection and frees its slot in the pool.
	Destroy()

	CreationTime() time.Time
	IdleDuration() time.Duration
}

// NewPoolFunc creates a pool of size connections. Implementations establish
// every connection before returning and fail if any of them cannot be opened.
type NewPoolFunc func(ctx context.Context, constructor Constructor, size int32) (Pool, error)
