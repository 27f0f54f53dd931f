// Package performance tracks the Engine's real-time budget: how long each
// audio block takes to process and how many heap allocations happen along
// the way, since either one stalling past the block deadline is an
// audible dropout.
package performance

import "runtime"

// AllocationTracker measures heap allocations made during the audio block
// path. A zero-allocation audio thread is the goal; StartBuffer/EndBuffer
// bracket one ProcessBlock call and record how far short of that goal it
// fell.
type AllocationTracker struct {
	bufferStartMallocs uint64
	lastBufferAllocs   uint64
	maxBufferAllocs    uint64
	totalAllocs        uint64
}

// NewAllocationTracker creates a new allocation tracker.
func NewAllocationTracker() *AllocationTracker {
	return &AllocationTracker{}
}

// StartBuffer records the Go runtime's allocation counter before a block
// is processed.
func (at *AllocationTracker) StartBuffer() {
	at.bufferStartMallocs = mallocCount()
}

// EndBuffer computes how many heap allocations happened since the matching
// StartBuffer call.
func (at *AllocationTracker) EndBuffer() {
	delta := mallocCount() - at.bufferStartMallocs
	at.lastBufferAllocs = delta
	at.totalAllocs += delta
	if delta > at.maxBufferAllocs {
		at.maxBufferAllocs = delta
	}
}

// Stats returns the allocation counts observed so far.
func (at *AllocationTracker) Stats() AllocationStats {
	return AllocationStats{
		LastBufferAllocs: at.lastBufferAllocs,
		MaxBufferAllocs:  at.maxBufferAllocs,
		TotalAllocs:      at.totalAllocs,
	}
}

// AllocationStats reports heap allocation counts across processed blocks.
type AllocationStats struct {
	LastBufferAllocs uint64
	MaxBufferAllocs  uint64
	TotalAllocs      uint64
}

func mallocCount() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Mallocs
}
