package mempool

import (
	"sync"
)

// Sized buffer pools for the decode hot paths. Buffers are bucketed by
// capacity so maps of similar size reuse each other's allocations.

const bucketStep = 1024

// bucket rounds n up to the next multiple of bucketStep.
func bucket(n int) int {
	if n <= bucketStep {
		return bucketStep
	}
	return (n + bucketStep - 1) / bucketStep * bucketStep
}

// Pool hands out []T buffers of a requested length.
type Pool[T any] struct {
	pools sync.Map // bucket -> *sync.Pool
	zero  bool
}

// NewPool returns a pool. When zero is set, Get clears the returned prefix.
func NewPool[T any](zero bool) *Pool[T] {
	return &Pool[T]{zero: zero}
}

func (p *Pool[T]) sub(cls int) *sync.Pool {
	sp, _ := p.pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return sp.(*sync.Pool) //nolint:forcetypeassert
}

// Get returns a buffer of length n. Return it with Put.
func (p *Pool[T]) Get(n int) []T {
	cls := bucket(n)
	bp, ok := p.sub(cls).Get().(*[]T)
	if !ok || cap(*bp) < cls {
		buf := make([]T, cls)
		bp = &buf
	}
	buf := (*bp)[:n]
	if p.zero {
		clear(buf)
	}
	return buf
}

// Put returns a buffer obtained from Get. Nil is ignored.
func (p *Pool[T]) Put(buf []T) {
	if buf == nil {
		return
	}
	full := buf[:cap(buf)]
	// Only exact buckets go back so Get never sees a short buffer.
	if bucket(cap(full)) != cap(full) {
		return
	}
	p.sub(cap(full)).Put(&full)
}

var (
	float32Pool = NewPool[float32](false)
	boolPool    = NewPool[bool](true)
	int32Pool   = NewPool[int32](true)
)

// GetFloat32 returns a float32 buffer of length n with unspecified contents.
func GetFloat32(n int) []float32 { return float32Pool.Get(n) }

// PutFloat32 releases a buffer from GetFloat32.
func PutFloat32(buf []float32) { float32Pool.Put(buf) }

// GetBool returns a zeroed bool buffer of length n.
func GetBool(n int) []bool { return boolPool.Get(n) }

// PutBool releases a buffer from GetBool.
func PutBool(buf []bool) { boolPool.Put(buf) }

// GetInt32 returns a zeroed int32 buffer of length n.
func GetInt32(n int) []int32 { return int32Pool.Get(n) }

// PutInt32 releases a buffer from GetInt32.
func PutInt32(buf []int32) { int32Pool.Put(buf) }
