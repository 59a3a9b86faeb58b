package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLoop(name string) *Loop {
	return NewLoop(name, 5*time.Millisecond, time.Millisecond, 20*time.Millisecond, 200*time.Millisecond)
}

func TestLoopRun(t *testing.T) {
	t.Run("fires at or after target, never before", func(t *testing.T) {
		loop := testLoop("fire")
		target := time.Now().Add(50 * time.Millisecond)
		var firedAt time.Time
		ok := loop.Run(context.Background(), target, func() { firedAt = time.Now() })
		assert.True(t, ok)
		assert.False(t, firedAt.Before(target), "task ran %s before target", target.Sub(firedAt))
		assert.Less(t, firedAt.Sub(target), 100*time.Millisecond)
	})

	t.Run("past target fires immediately", func(t *testing.T) {
		loop := testLoop("past")
		var fired atomic.Bool
		ok := loop.Run(context.Background(), time.Now().Add(-time.Second), func() { fired.Store(true) })
		assert.True(t, ok)
		assert.True(t, fired.Load())
	})

	t.Run("cancelled before target", func(t *testing.T) {
		loop := testLoop("cancel")
		ctx, cancel := context.WithCancel(context.Background())
		var fired atomic.Bool
		done := make(chan bool, 1)
		go func() {
			done <- loop.Run(ctx, time.Now().Add(time.Hour), func() { fired.Store(true) })
		}()
		time.Sleep(20 * time.Millisecond)
		cancel()
		select {
		case ok := <-done:
			assert.False(t, ok)
			assert.False(t, fired.Load())
		case <-time.After(time.Second):
			t.Fatal("loop did not exit after cancel")
		}
	})

	t.Run("task runs exactly once", func(t *testing.T) {
		loop := testLoop("once")
		var count atomic.Int32
		loop.Run(context.Background(), time.Now().Add(10*time.Millisecond), func() { count.Add(1) })
		assert.Equal(t, int32(1), count.Load())
	})

	t.Run("fallback tears down a loop whose clock never advances", func(t *testing.T) {
		// Freeze the polling clock before the target so the poll path
		// can never fire; the fallback timer must end the loop.
		start := time.Now()
		target := start.Add(10 * time.Millisecond)
		loop := testLoop("fallback")
		loop.Grace = 30 * time.Millisecond
		loop.nowFn = func() time.Time { return start }
		var fired atomic.Bool
		done := make(chan bool, 1)
		go func() {
			done <- loop.Run(context.Background(), target, func() { fired.Store(true) })
		}()
		select {
		case ok := <-done:
			assert.False(t, ok)
			assert.False(t, fired.Load())
		case <-time.After(time.Second):
			t.Fatal("fallback never tore the loop down")
		}
	})
}

func TestHandle(t *testing.T) {
	t.Run("stop cancels and done closes", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		h := NewHandle(cancel)
		go func() {
			<-ctx.Done()
			h.Finish()
		}()
		h.Stop()
		select {
		case <-h.Done():
		case <-time.After(time.Second):
			t.Fatal("handle never finished")
		}
	})

	t.Run("nil handle is safe", func(t *testing.T) {
		var h *Handle
		h.Stop()
	})
}
