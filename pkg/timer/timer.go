// Package timer provides one-shot cancellable timeouts for session decay.
package timer

import (
	"sync"
	"time"
)

// Task runs when a timeout fires. The handle it receives lets the task
// observe a cancellation that raced with firing.
type Task func(Timeout)

// Timeout is an armed one-shot timer.
type Timeout interface {
	// Cancel stops the timeout before it fires. It reports false when the
	// timeout already fired or was already cancelled.
	Cancel() bool
	// IsCancelled reports whether Cancel won the race against firing.
	IsCancelled() bool
}

// Timer schedules one-shot timeouts.
type Timer interface {
	NewTimeout(task Task, delay time.Duration) Timeout
	// Stop drops every armed timeout silently. Timeouts armed afterwards
	// never fire.
	Stop()
}

// Wheel is the process-wide Timer implementation on top of time.AfterFunc.
type Wheel struct {
	mu      sync.Mutex
	stopped bool
	pending map[*timeout]struct{}
}

// NewWheel creates an empty timer wheel.
func NewWheel() *Wheel {
	return &Wheel{pending: make(map[*timeout]struct{})}
}

type timeout struct {
	wheel      *Wheel
	underlying *time.Timer

	mu        sync.Mutex
	cancelled bool
	fired     bool
}

func (t *timeout) Cancel() bool {
	t.mu.Lock()
	if t.cancelled || t.fired {
		t.mu.Unlock()
		return false
	}

	t.cancelled = true
	t.mu.Unlock()

	if t.underlying != nil {
		t.underlying.Stop()
	}

	t.wheel.forget(t)

	return true
}

func (t *timeout) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cancelled
}

// NewTimeout arms a one-shot timeout. After Stop the wheel hands back an
// already-cancelled handle and never runs the task.
func (w *Wheel) NewTimeout(task Task, delay time.Duration) Timeout {
	t := &timeout{wheel: w}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()

		t.cancelled = true

		return t
	}

	w.pending[t] = struct{}{}
	w.mu.Unlock()

	t.underlying = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			return
		}

		t.fired = true
		t.mu.Unlock()

		w.forget(t)
		task(t)
	})

	return t
}

// Stop cancels every pending timeout and marks the wheel terminal.
func (w *Wheel) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}

	w.stopped = true

	pending := make([]*timeout, 0, len(w.pending))
	for t := range w.pending {
		pending = append(pending, t)
	}

	w.pending = make(map[*timeout]struct{})
	w.mu.Unlock()

	for _, t := range pending {
		t.Cancel()
	}
}

func (w *Wheel) forget(t *timeout) {
	w.mu.Lock()
	delete(w.pending, t)
	w.mu.Unlock()
}
