package client

import (
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the delay between the last keystroke and the search.
const DefaultDebounce = 180 * time.Millisecond

// Debouncer delays a search until input has been quiet for the configured
// delay. Queries are trimmed before fn sees them. In-flight searches are not
// cancelled when a newer one starts, so a slow response may arrive after a
// faster, newer one.
type Debouncer struct {
	delay time.Duration
	fn    func(query string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	seq     uint64
	stopped bool
}

// NewDebouncer creates a Debouncer. A delay of zero or less calls fn
// synchronously on every Trigger.
func NewDebouncer(delay time.Duration, fn func(query string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger records new input and restarts the quiet period.
func (d *Debouncer) Trigger(query string) {
	query = strings.TrimSpace(query)
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.delay <= 0 {
		d.mu.Unlock()
		d.fn(query)
		return
	}
	d.pending = query
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
	d.mu.Unlock()
}

// Flush runs the search immediately with query, dropping any pending one.
// It backs the explicit "search" action.
func (d *Debouncer) Flush(query string) {
	query = strings.TrimSpace(query)
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.fn(query)
}

// Stop cancels any pending search. Later calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire runs a timer's search unless newer input superseded it.
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	query := d.pending
	d.timer = nil
	d.mu.Unlock()
	d.fn(query)
}
