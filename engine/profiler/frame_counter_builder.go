package profiler

import (
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// FrameCounterBuilderOption is a functional option for configuring a FrameCounter.
// Use the With* functions to create options.
type FrameCounterBuilderOption func(s *counterSettings)

// WithInterval sets the minimum time between two reports. Values <= 0 are ignored.
//
// Parameters:
//   - interval: the report interval (default 1 second)
//
// Returns:
//   - FrameCounterBuilderOption: option function to apply
func WithInterval(interval time.Duration) FrameCounterBuilderOption {
	return func(s *counterSettings) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithPollInterval sets how often a background counter checks the report window.
// Ignored by the reactive counter. Values <= 0 are ignored.
//
// Parameters:
//   - interval: the poll interval (default 100ms)
//
// Returns:
//   - FrameCounterBuilderOption: option function to apply
func WithPollInterval(interval time.Duration) FrameCounterBuilderOption {
	return func(s *counterSettings) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithClock replaces the time source.
//
// Parameters:
//   - now: the clock to read the current time from
//
// Returns:
//   - FrameCounterBuilderOption: option function to apply
func WithClock(now Clock) FrameCounterBuilderOption {
	return func(s *counterSettings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithReporter replaces the default logging reporter.
//
// Parameters:
//   - r: the function receiving every report
//
// Returns:
//   - FrameCounterBuilderOption: option function to apply
func WithReporter(r Reporter) FrameCounterBuilderOption {
	return func(s *counterSettings) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithMemoryStats attaches heap and GC statistics to every report.
//
// Parameters:
//   - enabled: if true, each report carries a MemoryReport
//
// Returns:
//   - FrameCounterBuilderOption: option function to apply
func WithMemoryStats(enabled bool) FrameCounterBuilderOption {
	return func(s *counterSettings) {
		if enabled {
			s.memory = &memorySampler{}
		} else {
			s.memory = nil
		}
	}
}

// WithWorkerPool delivers reports on the given pool instead of the goroutine that
// recorded the frame. Reports may then arrive out of order.
//
// Parameters:
//   - pool: the worker pool running report delivery
//
// Returns:
//   - FrameCounterBuilderOption: option function to apply
func WithWorkerPool(pool worker.DynamicWorkerPool) FrameCounterBuilderOption {
	return func(s *counterSettings) {
		s.pool = pool
	}
}
