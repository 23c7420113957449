package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerFires(t *testing.T) {
	var fired int32
	tm := New(10*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	tm.Start()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, time.Second, time.Millisecond)
	assert.True(t, tm.Over())
}

func TestTimerNeverFires(t *testing.T) {
	var fired int32
	tm := New(Never, func() { atomic.StoreInt32(&fired, 1) })
	tm.Start()
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fired))
	assert.False(t, tm.Over())
}

func TestTimerPauseResume(t *testing.T) {
	var fired int32
	tm := New(40*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	tm.Start()

	time.Sleep(10 * time.Millisecond)
	tm.Pause()
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fired), "paused timer must not fire")

	tm.Resume()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, time.Second, time.Millisecond)
}

func TestTimerCancel(t *testing.T) {
	var fired int32
	tm := New(10*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	tm.Start()
	tm.Cancel()
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fired))
}
