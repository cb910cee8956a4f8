package profiler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/common"
)

// Report is a single frame rate report.
type Report struct {
	// FPS is Frames divided by Elapsed.
	FPS float64
	// Frames is the number of frames recorded since the previous report.
	Frames int
	// Elapsed is the wall-clock time since the previous report.
	Elapsed time.Duration
	// Memory holds heap statistics, or nil unless memory stats are enabled.
	Memory *MemoryReport
}

// Reporter receives frame rate reports.
type Reporter func(Report)

// Clock returns the current time.
type Clock func() time.Time

// FrameCounter accounts rendered frames and periodically reports the frame rate.
// A report is emitted at most once per interval, and only after strictly more than
// the interval has elapsed since the previous one.
type FrameCounter interface {
	// RecordFrame counts one presented frame.
	RecordFrame()

	// Close stops the counter. Background counters join their polling goroutine.
	// Calling Close more than once is safe.
	Close()
}

// counterSettings holds the configuration shared by both FrameCounter variants.
type counterSettings struct {
	interval     time.Duration
	pollInterval time.Duration
	now          Clock
	reporter     Reporter
	memory       *memorySampler
	pool         worker.DynamicWorkerPool
	taskID       int
}

// frameCounter is the reactive FrameCounter. It only reports when a frame is recorded,
// so an idle surface stops reporting. It is touched from the UI thread only.
type frameCounter struct {
	counterSettings
	frames int
	last   time.Time
}

// backgroundFrameCounter reports from a polling goroutine so a 0 FPS report still
// appears while nothing is drawn. State shared with the poller is guarded by mu.
type backgroundFrameCounter struct {
	counterSettings
	mu     sync.Mutex
	frames int
	last   time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ FrameCounter = &frameCounter{}
var _ FrameCounter = &backgroundFrameCounter{}

func defaultSettings() counterSettings {
	return counterSettings{
		interval:     time.Second,
		pollInterval: 100 * time.Millisecond,
		now:          time.Now,
		reporter:     logReport,
	}
}

// NewFrameCounter creates a reactive FrameCounter, for use from a single goroutine.
//
// Parameters:
//   - options: variadic list of FrameCounterBuilderOption functions
//
// Returns:
//   - FrameCounter: the new counter
func NewFrameCounter(options ...FrameCounterBuilderOption) FrameCounter {
	c := &frameCounter{counterSettings: defaultSettings()}
	for _, opt := range options {
		opt(&c.counterSettings)
	}
	c.last = c.now()
	return c
}

// NewBackgroundFrameCounter creates a FrameCounter whose reports are emitted by a
// polling goroutine. The goroutine runs until Close.
//
// Parameters:
//   - options: variadic list of FrameCounterBuilderOption functions
//
// Returns:
//   - FrameCounter: the new counter
func NewBackgroundFrameCounter(options ...FrameCounterBuilderOption) FrameCounter {
	c := &backgroundFrameCounter{
		counterSettings: defaultSettings(),
		stop:            make(chan struct{}),
	}
	for _, opt := range options {
		opt(&c.counterSettings)
	}
	c.last = c.now()

	c.wg.Add(1)
	go c.poll()
	return c
}

func (c *frameCounter) RecordFrame() {
	c.frames++
	now := c.now()
	if elapsed := now.Sub(c.last); elapsed > c.interval {
		c.emit(c.frames, elapsed)
		c.frames = 0
		c.last = now
	}
}

func (c *frameCounter) Close() {}

func (c *backgroundFrameCounter) RecordFrame() {
	c.mu.Lock()
	c.frames++
	c.mu.Unlock()
}

func (c *backgroundFrameCounter) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
	})
}

// poll checks the report window every pollInterval until stopped.
func (c *backgroundFrameCounter) poll() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.check()
		}
	}
}

func (c *backgroundFrameCounter) check() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if elapsed := now.Sub(c.last); elapsed > c.interval {
		c.emit(c.frames, elapsed)
		c.frames = 0
		c.last = now
	}
}

// emit builds the report and delivers it. With a worker pool the memory sample and the
// reporter both run on a pool worker, keeping runtime.ReadMemStats off the caller.
func (s *counterSettings) emit(frames int, elapsed time.Duration) {
	report := Report{
		FPS:     float64(frames) / elapsed.Seconds(),
		Frames:  frames,
		Elapsed: elapsed,
	}
	deliver := func() {
		if s.memory != nil {
			report.Memory = s.memory.sample(elapsed)
		}
		s.reporter(report)
	}

	if s.pool == nil {
		deliver()
		return
	}
	id := s.taskID
	s.taskID++
	s.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			deliver()
			return nil, nil
		},
	})
}

// logReport is the default Reporter, logging through the module logger.
func logReport(r Report) {
	attrs := []any{
		slog.String("fps", fmt.Sprintf("%.1f", r.FPS)),
		slog.Int("frames", r.Frames),
		slog.Duration("elapsed", r.Elapsed),
	}
	if m := r.Memory; m != nil {
		attrs = append(attrs,
			slog.String("heap", fmt.Sprintf("%.2f MB", m.HeapMB)),
			slog.String("allocRate", fmt.Sprintf("%.2f MB/s", m.AllocRateMB)),
			slog.Uint64("gc", uint64(m.GCCount)),
			slog.Uint64("gcLastPauseUs", m.LastPauseUs),
			slog.Uint64("gcMaxPauseUs", m.MaxPauseUs),
			slog.String("sys", fmt.Sprintf("%.2f MB", m.SysMB)),
		)
	}
	common.Logger().Info("FPS", attrs...)
}
