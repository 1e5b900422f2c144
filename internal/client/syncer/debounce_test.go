package syncer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_RunsLatestOnce(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls, last atomic.Int64

	for i := int64(1); i <= 5; i++ {
		d.Schedule("k", func() {
			calls.Add(1)
			last.Store(i)
		})
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 5, last.Load())
	assert.Zero(t, d.Pending())
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var a, b atomic.Int64
	d.Schedule("a", func() { a.Add(1) })
	d.Schedule("b", func() { b.Add(1) })
	assert.Equal(t, 2, d.Pending())

	d.Flush()
	assert.EqualValues(t, 1, a.Load())
	assert.EqualValues(t, 1, b.Load())
	assert.Zero(t, d.Pending())

	d.Flush()
	assert.EqualValues(t, 1, a.Load())
}

func TestDebouncer_StopDiscards(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int64
	d.Schedule("k", func() { calls.Add(1) })

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.Zero(t, d.Pending())
}

func TestDebouncer_WaitCoversFiredCalls(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	d.Schedule("k", func() {
		close(started)
		<-release
		finished.Store(true)
	})
	<-started
	assert.Zero(t, d.Pending())

	waited := make(chan struct{})
	go func() {
		d.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while the call was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
	assert.True(t, finished.Load())
}
