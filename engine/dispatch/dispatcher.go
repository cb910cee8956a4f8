package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-view/common"
)

// Task is a one-shot closure queued onto the UI thread. It runs at most once no matter how
// many times it is scheduled or run.
type Task struct {
	fn   func()
	done atomic.Bool
}

// NewTask wraps fn in a one-shot Task.
//
// Parameters:
//   - fn: the closure to run on the UI thread
//
// Returns:
//   - *Task: the new task
func NewTask(fn func()) *Task {
	return &Task{fn: fn}
}

// Run executes the task's closure the first time it is called. Later calls log an error
// and do nothing.
//
// Returns:
//   - bool: true if the closure ran on this call
func (t *Task) Run() bool {
	if !t.done.CompareAndSwap(false, true) {
		common.Logger().Error("tried to execute queued closure on main thread twice")
		return false
	}
	fn := t.fn
	t.fn = nil
	if fn != nil {
		fn()
	}
	return true
}

// Done reports whether the task has already run.
func (t *Task) Done() bool {
	return t.done.Load()
}

// Dispatcher is a FIFO of one-shot tasks executed on the UI thread's event loop.
// Schedule may be called from any goroutine; Drain must only be called by the loop.
type Dispatcher struct {
	mu    sync.Mutex
	queue []*Task
	wake  func()
}

// New creates a Dispatcher.
//
// Parameters:
//   - wake: called after every Schedule to nudge a blocked event loop, may be nil
//
// Returns:
//   - *Dispatcher: the new dispatcher
func New(wake func()) *Dispatcher {
	return &Dispatcher{wake: wake}
}

// Schedule queues fn for execution on a later loop iteration.
//
// Parameters:
//   - fn: the closure to run
//
// Returns:
//   - *Task: the queued task
func (d *Dispatcher) Schedule(fn func()) *Task {
	t := NewTask(fn)
	d.ScheduleTask(t)
	return t
}

// ScheduleTask queues an existing task. Queuing the same task twice results in a single
// execution and a logged error for the second.
//
// Parameters:
//   - t: the task to queue
func (d *Dispatcher) ScheduleTask(t *Task) {
	d.mu.Lock()
	d.queue = append(d.queue, t)
	d.mu.Unlock()
	if d.wake != nil {
		d.wake()
	}
}

// Drain runs every task queued before the call, in FIFO order. Tasks scheduled while
// draining wait for the next Drain.
//
// Returns:
//   - int: the number of tasks whose closure ran
func (d *Dispatcher) Drain() int {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	ran := 0
	for _, t := range batch {
		if t.Run() {
			ran++
		}
	}
	return ran
}

// Pending returns the number of queued tasks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
