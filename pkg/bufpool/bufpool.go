// Package bufpool implements the MTU-sized buffer pool that backs the
// zero-allocation GOOSE ingress path (spec.md §4.1). It pre-allocates every
// buffer once at construction and recycles them through a buffered channel,
// the idiomatic Go stand-in for the lock-free MPMC queue of the original
// design: a channel's internal synchronization is amortized across
// millions of acquire/release pairs and performs no allocation on the hot
// path once warmed up, which is what the spec actually requires.
package bufpool

import "sync/atomic"

// MTU is the Ethernet MTU every pooled buffer is sized to.
const MTU = 1518

// Buffer is a pooled, MTU-capacity byte buffer with a settable logical
// length. It is obtained from a Pool via Acquire and must be released with
// Release; it must not be retained past Release.
type Buffer struct {
	data []byte
	n    int
	pool *Pool
}

// Bytes returns the buffer's full MTU-capacity backing array for writing.
func (b *Buffer) Bytes() []byte { return b.data }

// SetLen sets the logical length of the data written into Bytes(). n must
// be <= MTU.
func (b *Buffer) SetLen(n int) {
	if n < 0 {
		n = 0
	}
	if n > MTU {
		n = MTU
	}
	b.n = n
}

// Len returns the current logical length.
func (b *Buffer) Len() int { return b.n }

// Data returns the logical slice Bytes()[:Len()].
func (b *Buffer) Data() []byte { return b.data[:b.n] }

// Release clears the buffer and returns it to its pool. Release is
// infallible: if the pool's free list is somehow full (it never is, since
// exactly N buffers exist and N were handed out), the buffer is simply
// dropped rather than leaking a panic into the caller.
func (b *Buffer) Release() {
	if b == nil || b.pool == nil {
		return
	}
	b.n = 0
	for i := range b.data {
		b.data[i] = 0
	}
	p := b.pool
	b.pool = nil
	select {
	case p.free <- b:
	default:
	}
	atomic.AddInt64(&p.outstanding, -1)
}

// Pool is a bounded, pre-populated set of MTU-sized buffers safe for
// concurrent Acquire/Release from many goroutines.
type Pool struct {
	free        chan *Buffer
	exhausted   int64
	outstanding int64
	capacity    int
}

// New pre-allocates n MTU-capacity buffers. No further allocation occurs
// once New returns; Acquire/Release only move existing buffers through the
// free-list channel.
func New(n int) *Pool {
	p := &Pool{
		free:     make(chan *Buffer, n),
		capacity: n,
	}
	for i := 0; i < n; i++ {
		b := &Buffer{data: make([]byte, MTU), pool: p}
		p.free <- b
	}
	return p
}

// Acquire pops one free buffer, or reports ok=false if the pool is
// momentarily exhausted. Callers (the LAN receiver, in particular) treat a
// failed acquire as a dropped frame and continue — this is never a fatal
// condition (spec.md §7, transient runtime: "buffer pool exhausted
// (drop)").
func (p *Pool) Acquire() (b *Buffer, ok bool) {
	select {
	case b = <-p.free:
		b.pool = p
		atomic.AddInt64(&p.outstanding, 1)
		return b, true
	default:
		atomic.AddInt64(&p.exhausted, 1)
		return nil, false
	}
}

// Exhausted returns the cumulative count of failed Acquire calls, exposed
// as a prometheus counter by pkg/metrics.
func (p *Pool) Exhausted() int64 { return atomic.LoadInt64(&p.exhausted) }

// Outstanding returns the number of buffers currently on loan.
func (p *Pool) Outstanding() int64 { return atomic.LoadInt64(&p.outstanding) }

// Capacity returns the pool's fixed buffer count.
func (p *Pool) Capacity() int { return p.capacity }
