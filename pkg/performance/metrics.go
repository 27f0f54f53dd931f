package performance

import (
	"sync/atomic"
	"time"
)

// PerformanceMetrics tracks process-call timing for one Engine's audio
// block path: how long each block took, the worst case seen, and whether
// a block ran past its deadline (a buffer underrun).
type PerformanceMetrics struct {
	processTime      int64 // last process call duration in nanoseconds (atomic)
	maxProcessTime   int64 // worst case duration (atomic)
	totalProcessTime int64 // total time spent processing (atomic)
	processCallCount uint64
	bufferUnderruns  uint64

	sampleRate uint32
	frameCount uint32
}

// NewPerformanceMetrics creates a new performance metrics tracker for
// blocks of frameCount frames at sampleRate.
func NewPerformanceMetrics(sampleRate, frameCount uint32) *PerformanceMetrics {
	return &PerformanceMetrics{
		sampleRate: sampleRate,
		frameCount: frameCount,
	}
}

// StartProcess marks the beginning of audio processing.
func (pm *PerformanceMetrics) StartProcess() time.Time {
	return time.Now()
}

// EndProcess marks the end of audio processing, updates the running
// timing totals, and flags a buffer underrun if duration exceeded 80% of
// the block's deadline.
func (pm *PerformanceMetrics) EndProcess(startTime time.Time) {
	duration := time.Since(startTime).Nanoseconds()

	atomic.StoreInt64(&pm.processTime, duration)

	for {
		max := atomic.LoadInt64(&pm.maxProcessTime)
		if duration <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&pm.maxProcessTime, max, duration) {
			break
		}
	}

	atomic.AddInt64(&pm.totalProcessTime, duration)
	atomic.AddUint64(&pm.processCallCount, 1)

	bufferDuration := int64(pm.frameCount) * int64(time.Second) / int64(pm.sampleRate)
	threshold := bufferDuration * 80 / 100
	if duration > threshold {
		atomic.AddUint64(&pm.bufferUnderruns, 1)
	}
}

// GetStats returns current performance statistics.
func (pm *PerformanceMetrics) GetStats() PerformanceStats {
	processCount := atomic.LoadUint64(&pm.processCallCount)
	totalTime := atomic.LoadInt64(&pm.totalProcessTime)

	avgProcessTime := int64(0)
	if processCount > 0 {
		avgProcessTime = totalTime / int64(processCount)
	}

	return PerformanceStats{
		ProcessTime:      time.Duration(atomic.LoadInt64(&pm.processTime)),
		MaxProcessTime:   time.Duration(atomic.LoadInt64(&pm.maxProcessTime)),
		AvgProcessTime:   time.Duration(avgProcessTime),
		ProcessCallCount: processCount,
		BufferUnderruns:  atomic.LoadUint64(&pm.bufferUnderruns),
	}
}

// PerformanceStats contains performance statistics.
type PerformanceStats struct {
	ProcessTime      time.Duration
	MaxProcessTime   time.Duration
	AvgProcessTime   time.Duration
	ProcessCallCount uint64
	BufferUnderruns  uint64
}
