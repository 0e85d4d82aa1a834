// Package debounce provides per-instance settling and staleness helpers for
// asynchronous requests issued from the editor.
package debounce

import (
	"context"
	"sync"
	"time"
)

// DefaultDelay is the settling delay between the last edit and the request.
const DefaultDelay = time.Second

// Debouncer coalesces bursts of edits. Each edit takes a ticket; only the
// most recent ticket is considered settled once the delay has passed.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	ticket uint64
}

// New returns a debouncer with the given delay (DefaultDelay when <= 0).
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Delay returns the settling delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Bump records an edit and returns its ticket.
func (d *Debouncer) Bump() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticket++
	return d.ticket
}

// Settled reports whether ticket is still the latest edit.
func (d *Debouncer) Settled(ticket uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ticket == d.ticket
}

// Wait blocks for the delay and reports whether ticket survived it.
func (d *Debouncer) Wait(ctx context.Context, ticket uint64) bool {
	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return d.Settled(ticket)
	}
}

// Stop supersedes every outstanding ticket.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticket++
}

// Tracker hands out monotonically increasing request ids so late responses
// can be recognised and dropped.
type Tracker struct {
	mu     sync.Mutex
	latest uint64
}

// Next issues a new request id, superseding every earlier one.
func (t *Tracker) Next() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest++
	return t.latest
}

// Invalidate supersedes any in-flight request without issuing a new one.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest++
}

// IsLatest reports whether id is the most recently issued request.
func (t *Tracker) IsLatest(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return id != 0 && id == t.latest
}
