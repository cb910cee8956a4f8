package profiler

import (
	"runtime"
	"sync"
	"time"
)

// MemoryReport holds the heap and GC statistics sampled alongside a frame rate report.
type MemoryReport struct {
	// HeapMB is the live heap size in MB.
	HeapMB float64
	// AllocRateMB is the allocation rate since the previous sample in MB/s.
	AllocRateMB float64
	// SysMB is the total memory obtained from the OS in MB.
	SysMB float64
	// GCCount is the cumulative number of completed GC cycles.
	GCCount uint32
	// LastPauseUs is the most recent GC pause in microseconds.
	LastPauseUs uint64
	// MaxPauseUs is the longest GC pause since the previous sample in microseconds.
	MaxPauseUs uint64
}

// memorySampler tracks the deltas between consecutive runtime.MemStats reads.
// Samples may be taken from worker goroutines, so its state is guarded.
type memorySampler struct {
	mu             sync.Mutex
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// sample reads the runtime memory statistics and computes rates over elapsed.
//
// Parameters:
//   - elapsed: the time since the previous sample, used for the allocation rate
//
// Returns:
//   - *MemoryReport: the sampled statistics
func (m *memorySampler) sample(elapsed time.Duration) *MemoryReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	runtime.ReadMemStats(&m.memStats)
	// Alloc: live heap. TotalAlloc: cumulative, tracks churn. Sys: process footprint.
	report := &MemoryReport{
		HeapMB:  float64(m.memStats.Alloc) / 1024 / 1024,
		SysMB:   float64(m.memStats.Sys) / 1024 / 1024,
		GCCount: m.memStats.NumGC,
	}

	if secs := elapsed.Seconds(); secs > 0 {
		allocDelta := m.memStats.TotalAlloc - m.lastTotalAlloc
		report.AllocRateMB = float64(allocDelta) / 1024 / 1024 / secs
	}

	gcCount := m.memStats.NumGC
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		report.LastPauseUs = m.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := m.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := m.memStats.PauseNs[i%256] / 1000
			if pause > report.MaxPauseUs {
				report.MaxPauseUs = pause
			}
		}
	}

	m.lastGCCount = gcCount
	m.lastTotalAlloc = m.memStats.TotalAlloc
	return report
}
