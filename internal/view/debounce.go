package view

import (
	"sync"
	"time"
)

// Debouncer runs only the last function triggered within a quiet window
type Debouncer struct {
	delay time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	scheduled bool
	idle      chan struct{}
}

// NewDebouncer creates a debouncer with the given quiet window
func NewDebouncer(delay time.Duration) *Debouncer {
	idle := make(chan struct{})
	close(idle)
	return &Debouncer{delay: delay, idle: idle}
}

// Trigger schedules fn, cancelling whatever was scheduled before
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	if !d.scheduled {
		d.idle = make(chan struct{})
		d.scheduled = true
	}

	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stale := gen != d.gen
		d.mu.Unlock()
		if stale {
			return
		}

		fn()

		d.mu.Lock()
		if gen == d.gen {
			d.finish()
		}
		d.mu.Unlock()
	})
}

// Stop cancels the scheduled function, if any
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.finish()
}

// Done returns a channel closed once nothing is scheduled. A triggered
// function has already returned by the time the channel closes.
func (d *Debouncer) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

// finish marks the debouncer idle. Callers hold mu.
func (d *Debouncer) finish() {
	d.timer = nil
	if d.scheduled {
		d.scheduled = false
		close(d.idle)
	}
}
