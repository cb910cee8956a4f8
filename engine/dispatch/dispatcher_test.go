package dispatch

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainRunsInFIFOOrder(t *testing.T) {
	d := New(nil)
	var got []int
	for i := range 5 {
		d.Schedule(func() { got = append(got, i) })
	}

	assert.Equal(t, 5, d.Pending())
	assert.Equal(t, 5, d.Drain())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, d.Pending())
}

func TestScheduleCallsWake(t *testing.T) {
	var wakes atomic.Int32
	d := New(func() { wakes.Add(1) })

	d.Schedule(func() {})
	d.Schedule(func() {})

	assert.EqualValues(t, 2, wakes.Load())
}

func TestTasksScheduledDuringDrainRunNextTime(t *testing.T) {
	d := New(nil)
	var order []string
	d.Schedule(func() {
		order = append(order, "outer")
		d.Schedule(func() { order = append(order, "inner") })
	})

	require.Equal(t, 1, d.Drain())
	assert.Equal(t, []string{"outer"}, order)
	assert.Equal(t, 1, d.Pending())

	require.Equal(t, 1, d.Drain())
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestTaskRunsAtMostOnce(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer common.SetLogger(nil)

	d := New(nil)
	calls := 0
	task := NewTask(func() { calls++ })
	d.ScheduleTask(task)
	d.ScheduleTask(task)

	assert.Equal(t, 1, d.Drain())
	assert.Equal(t, 1, calls)
	assert.True(t, task.Done())
	assert.False(t, task.Run())
	assert.Equal(t, 1, calls)
	assert.Contains(t, buf.String(), "tried to execute queued closure on main thread twice")
}

func TestScheduleFromManyGoroutines(t *testing.T) {
	d := New(nil)
	var ran atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				d.Schedule(func() { ran.Add(1) })
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1600, d.Drain())
	assert.EqualValues(t, 1600, ran.Load())
}
