// Package scheduler provides the cancellable fire-at-instant primitive
// behind every timed action in the engine. A coarse poll keeps wakeups
// cheap far from the deadline; a fine poll takes over close to it. The
// task never runs before the target instant.
package scheduler

import (
	"context"
	"time"

	"tempo/internal/logger"
)

type Loop struct {
	Name       string
	Poll       time.Duration
	FinePoll   time.Duration
	FineWindow time.Duration
	Grace      time.Duration

	nowFn func() time.Time
}

func NewLoop(name string, poll, finePoll, fineWindow, grace time.Duration) *Loop {
	return &Loop{
		Name:       name,
		Poll:       poll,
		FinePoll:   finePoll,
		FineWindow: fineWindow,
		Grace:      grace,
		nowFn:      time.Now,
	}
}

// Run blocks until the target instant is reached, then executes task once
// and returns true. Returns false without running task when ctx is
// cancelled first. A fallback timer at target+Grace independently
// guarantees the loop is torn down shortly after the deadline.
func (l *Loop) Run(ctx context.Context, target time.Time, task func()) bool {
	if l == nil || task == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	nowFn := l.nowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	poll := l.Poll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	finePoll := l.FinePoll
	if finePoll <= 0 || finePoll > poll {
		finePoll = poll
	}
	grace := l.Grace
	if grace <= 0 {
		grace = 2 * time.Second
	}

	fallback := time.NewTimer(target.Sub(nowFn()) + grace)
	defer fallback.Stop()

	for {
		now := nowFn()
		if !now.Before(target) {
			task()
			return true
		}
		remaining := target.Sub(now)
		step := poll
		if remaining <= l.FineWindow {
			step = finePoll
		}
		if remaining < step {
			step = remaining
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-fallback.C:
			timer.Stop()
			if !nowFn().Before(target) {
				task()
				return true
			}
			logger.Warnf("scheduler[%s]: fallback fired %s before target, tearing down", l.Name, target.Sub(nowFn()))
			return false
		case <-timer.C:
		}
	}
}
