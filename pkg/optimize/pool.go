package optimize

import "sync"

// Pool is a typed sync.Pool. reset, if set, runs before a value is returned
// to the pool.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T) T
}

// NewPool creates a pool that builds new values with newFn
func NewPool[T any](newFn func() T, reset func(T) T) *Pool[T] {
	return &Pool[T]{
		pool:  sync.Pool{New: func() interface{} { return newFn() }},
		reset: reset,
	}
}

// Get returns a pooled value or a new one
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns v to the pool
func (p *Pool[T]) Put(v T) {
	if p.reset != nil {
		v = p.reset(v)
	}
	p.pool.Put(v)
}

// BytePool hands out fixed-size read buffers, e.g. one MTU per RTP reader.
type BytePool struct {
	pool *Pool[[]byte]
	size int
}

// NewBytePool creates a pool of size-byte buffers
func NewBytePool(size int) *BytePool {
	return &BytePool{
		size: size,
		pool: NewPool(func() []byte { return make([]byte, size) }, nil),
	}
}

// Get returns a buffer of Size bytes
func (p *BytePool) Get() []byte {
	return p.pool.Get()
}

// Put drops buffers that are too small to be reused.
func (p *BytePool) Put(b []byte) {
	if cap(b) < p.size {
		return
	}
	p.pool.Put(b[:p.size])
}

// Size returns the buffer length handed out by Get
func (p *BytePool) Size() int {
	return p.size
}
