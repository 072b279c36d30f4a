// Package bufpool recycles byte slices between operations.
package bufpool

import "sync"

// Pool is a pool of byte slices with a minimum capacity.
type Pool struct {
	pool sync.Pool
}

func New(initialSize int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, 0, initialSize)
				return &b
			},
		},
	}
}

// Get returns an empty slice. Appending to it may grow it: store the result
// back through the pointer before calling Put.
func (p *Pool) Get() *[]byte {
	return p.pool.Get().(*[]byte)
}

func (p *Pool) Put(b *[]byte) {
	*b = (*b)[:0]
	p.pool.Put(b)
}
