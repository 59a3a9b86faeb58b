package scheduler

import "context"

// Handle controls one running loop goroutine. Stop is cooperative: the
// next poll observes the cancelled context and the goroutine exits; a task
// already in flight completes.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHandle(cancel context.CancelFunc) *Handle {
	return &Handle{cancel: cancel, done: make(chan struct{})}
}

func (h *Handle) Stop() {
	if h == nil || h.cancel == nil {
		return
	}
	h.cancel()
}

// Finish is called exactly once by the loop goroutine when it exits.
func (h *Handle) Finish() {
	if h == nil {
		return
	}
	close(h.done)
}

// Done is closed once the loop goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	if h == nil {
		return nil
	}
	return h.done
}
