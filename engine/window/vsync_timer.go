package window

import (
	"sync"
	"sync/atomic"
	"time"
)

// defaultRefreshRate is used when the monitor does not report one.
const defaultRefreshRate = 60

// vsyncTimer ticks at the display refresh rate on its own goroutine and hands every tick to
// schedule, which must deliver it onto the UI thread. At most one tick is in flight: ticks that
// fire before the previous one ran are dropped.
type vsyncTimer struct {
	interval time.Duration
	schedule func(func())
	tick     func()

	pending atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// refreshInterval converts a refresh rate to a tick interval.
func refreshInterval(hz int) time.Duration {
	if hz <= 0 {
		hz = defaultRefreshRate
	}
	return time.Second / time.Duration(hz)
}

// startVSyncTimer starts a timer delivering tick through schedule every interval.
func startVSyncTimer(interval time.Duration, schedule func(func()), tick func()) *vsyncTimer {
	t := &vsyncTimer{
		interval: interval,
		schedule: schedule,
		tick:     tick,
		stop:     make(chan struct{}),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

func (t *vsyncTimer) run() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if !t.pending.CompareAndSwap(false, true) {
				continue
			}
			t.schedule(func() {
				t.pending.Store(false)
				t.tick()
			})
		}
	}
}

// Stop halts the timer and waits for its goroutine to exit. A tick already handed to schedule
// may still run afterwards; callers guard against that themselves. Safe to call more than once.
func (t *vsyncTimer) Stop() {
	t.once.Do(func() {
		close(t.stop)
		t.wg.Wait()
	})
}
