// Package ringbuffer provides a small fixed-capacity, lock-free ring buffer
// of recent float64 samples, used by the engine to keep a short history of
// block processing times for diagnostics (Engine.procTimes). The CPU-usage
// EMA published in SongState is computed separately and does not read it.
package ringbuffer

import "sync/atomic"

// Float64Ring is a fixed-size circular buffer written by a single producer
// (the audio callback thread) and read by any number of consumers without
// locking; readers may observe a torn snapshot across Samples(), which is
// fine for metering.
type Float64Ring struct {
	buf   []float64
	index int32
}

// NewFloat64Ring returns a ring with the given capacity.
func NewFloat64Ring(capacity int) *Float64Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Float64Ring{buf: make([]float64, capacity)}
}

// Push records a new sample, overwriting the oldest entry once full.
func (r *Float64Ring) Push(v float64) {
	idx := atomic.AddInt32(&r.index, 1)
	r.buf[int(idx)%len(r.buf)] = v
}

// Samples returns a copy of the buffer contents in insertion order (oldest
// first). Intended for diagnostics, not the realtime path.
func (r *Float64Ring) Samples() []float64 {
	n := len(r.buf)
	idx := int(atomic.LoadInt32(&r.index))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(idx+1+i)%n]
	}
	return out
}

// Len returns the ring's capacity.
func (r *Float64Ring) Len() int {
	return len(r.buf)
}
