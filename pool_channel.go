package rsp

import (
	"context"
	"sync"
	"time"

	"github.com/pior/rsp/internal/coarsetime"
)

// NewChannelPool creates a channel-based connection pool and opens its size
// connections. This is an alternative pool implementation with fewer allocations.
func NewChannelPool(ctx context.Context, constructor Constructor, size int32) (Pool, error) {
	p := &channelPool{
		constructor: constructor,
		maxSize:     size,
		resources:   make(chan *channelResource, size),
		freed:       make(chan struct{}, size),
	}

	for range size {
		p.size++
		if err := p.createIdle(ctx); err != nil {
			p.size--
			p.Close()
			return nil, err
		}
	}

	return p, nil
}

// channelResource implements Resource for channel pool.
type channelResource struct {
	conn         *Connection
	pool         *channelPool
	creationTime time.Time
	lastUsedTime time.Time
}

func (r *channelResource) Value() *Connection {
	return r.conn
}

func (r *channelResource) Release() {
	r.lastUsedTime = coarsetime.Now()
	r.pool.put(r)
}

func (r *channelResource) ReleaseUnused() {
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	_ = r.conn.Close()
	r.pool.removeResource()
}

func (r *channelResource) CreationTime() time.Time {
	return r.creationTime
}

func (r *channelResource) IdleDuration() time.Duration {
	return coarsetime.Since(r.lastUsedTime)
}

// channelPool keeps idle connections in a buffered channel sized to the pool
// capacity, so returning a connection never blocks.
type channelPool struct {
	constructor Constructor
	maxSize     int32

	// mu guards size and closed, and is held while sending to resources so
	// that Close never races with a send on the closed channel.
	mu        sync.Mutex
	resources chan *channelResource
	size      int32
	closed    bool

	// freed wakes up waiters when a destroyed connection frees a slot.
	freed chan struct{}

	stats poolStatsCollector
}

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	if err := ctx.Err(); err != nil {
		p.stats.recordAcquireError()
		return nil, err
	}

	var waitStart time.Time

	for {
		select {
		case res, ok := <-p.resources:
			if !waitStart.IsZero() {
				p.stats.recordAcquireWait(time.Since(waitStart))
			}
			return p.checkout(res, ok)
		default:
		}

		res, err := p.replace(ctx)
		if err != nil {
			p.stats.recordAcquireError()
			return nil, err
		}
		if res != nil {
			return res, nil
		}

		// Pool is full, wait for a connection to be released or a slot to be freed.
		if waitStart.IsZero() {
			waitStart = time.Now()
		}
		select {
		case res, ok := <-p.resources:
			p.stats.recordAcquireWait(time.Since(waitStart))
			return p.checkout(res, ok)
		case <-p.freed:
		case <-ctx.Done():
			p.stats.recordAcquireError()
			return nil, ctx.Err()
		}
	}
}

// replace dials a new connection if a destroyed connection left a free slot.
// It returns a nil resource when the pool is at capacity.
func (p *channelPool) replace(ctx context.Context) (*channelResource, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.size >= p.maxSize {
		p.mu.Unlock()
		return nil, nil
	}
	p.size++
	p.mu.Unlock()

	res, err := p.create(ctx)
	if err != nil {
		p.releaseSlot()
		return nil, err
	}
	return res, nil
}

func (p *channelPool) TryAcquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	select {
	case res, ok := <-p.resources:
		return p.checkout(res, ok)
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}

	// Replace destroyed connections in the background, like puddle does.
	if p.size < p.maxSize {
		p.size++
		go func() {
			if err := p.createIdle(context.WithoutCancel(ctx)); err != nil {
				p.releaseSlot()
			}
		}()
	}

	p.stats.recordAcquireError()
	return nil, ErrNoConnectionsAvailable
}

func (p *channelPool) checkout(res *channelResource, ok bool) (Resource, error) {
	if !ok {
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}
	p.stats.recordAcquireFromIdle()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		res.Destroy()
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}
	return res, nil
}

// create dials a connection for a slot already reserved in size.
func (p *channelPool) create(ctx context.Context) (*channelResource, error) {
	conn, err := p.constructor(ctx)
	if err != nil {
		return nil, err
	}
	p.stats.recordCreate()

	now := coarsetime.Now()
	return &channelResource{
		conn:         conn,
		pool:         p,
		creationTime: now,
		lastUsedTime: now,
	}, nil
}

// createIdle dials a connection for a reserved slot and adds it to the idle set.
func (p *channelPool) createIdle(ctx context.Context) error {
	res, err := p.create(ctx)
	if err != nil {
		return err
	}
	p.put(res)
	return nil
}

func (p *channelPool) put(res *channelResource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		select {
		case p.resources <- res:
			p.stats.recordRelease()
			return
		default:
		}
	}

	_ = res.conn.Close()
	p.size--
	p.stats.recordDestroy()
}

func (p *channelPool) removeResource() {
	p.releaseSlot()
	p.stats.recordDestroy()
}

func (p *channelPool) releaseSlot() {
	p.mu.Lock()
	p.size--
	p.mu.Unlock()

	select {
	case p.freed <- struct{}{}:
	default:
	}
}

func (p *channelPool) AcquireAllIdle() []Resource {
	var idle []Resource

	for {
		select {
		case res, ok := <-p.resources:
			if !ok {
				return idle
			}
			p.stats.recordAcquireFromIdle()
			idle = append(idle, res)
		default:
			return idle
		}
	}
}

func (p *channelPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.resources)
	p.mu.Unlock()

	for res := range p.resources {
		p.stats.recordAcquireFromIdle()
		res.Destroy()
	}
}

// Stats returns a snapshot of pool statistics.
func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
