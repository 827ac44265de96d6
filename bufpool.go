package sessions

import (
	"sync"
	"sync/atomic"
)

// bufferPool manages reusable fixed-size byte buffers for read loops.
type bufferPool struct {
	pool sync.Pool
	size int

	gets    atomic.Int64
	creates atomic.Int64
}

func newBufferPool(size int) *bufferPool {
	bp := &bufferPool{size: size}
	bp.pool = sync.Pool{
		New: func() interface{} {
			bp.creates.Add(1)
			return make([]byte, size)
		},
	}
	return bp
}

func (bp *bufferPool) Get() []byte {
	bp.gets.Add(1)
	return bp.pool.Get().([]byte)
}

// Put returns a buffer to the pool, clearing it first. Buffers of the wrong
// size are discarded.
func (bp *bufferPool) Put(buf []byte) {
	if len(buf) != bp.size {
		return
	}
	clear(buf)
	bp.pool.Put(buf)
}

// Stats returns pool usage counters.
func (bp *bufferPool) Stats() PoolStats {
	return PoolStats{
		Size:    bp.size,
		Gets:    bp.gets.Load(),
		Creates: bp.creates.Load(),
	}
}

// PoolStats contains buffer pool usage statistics.
type PoolStats struct {
	Size    int   `json:"size"`
	Gets    int64 `json:"gets"`
	Creates int64 `json:"creates"`
}

// HitRatio returns the cache hit ratio (0.0 to 1.0).
func (ps PoolStats) HitRatio() float64 {
	if ps.Gets == 0 {
		return 0.0
	}
	return 1.0 - (float64(ps.Creates) / float64(ps.Gets))
}

// readBuffer hands out a buffer of the requested size plus its release
// function. Requests matching the pooled size are served from the pool;
// anything else is a one-off allocation counted as a miss.
func (m *Manager) readBuffer(size int) ([]byte, func()) {
	if size == m.pool.size {
		buf := m.pool.Get()
		m.metrics.BufferPoolHits.Add(1)
		return buf, func() { m.pool.Put(buf) }
	}
	m.metrics.BufferPoolMisses.Add(1)
	return make([]byte, size), func() {}
}
