// Package dedup guards the pipeline against reprocessing: once per
// signature per process lifetime, and once per alert key per window.
package dedup

import "sync"

// Deduplicator tracks seen signatures and fired alert keys. The seen-set
// grows monotonically and is bounded by scan volume between restarts.
type Deduplicator struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	alerted map[string]struct{}
}

// New creates an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{
		seen:    make(map[string]struct{}),
		alerted: make(map[string]struct{}),
	}
}

// ShouldProcess reports whether a signature is new, marking it seen in the
// same critical section. It returns true at most once per signature, so a
// slow downstream step cannot cause concurrent reprocessing. Downstream
// failure leaves the signature marked: missing an alert is preferred over
// duplicating one.
func (d *Deduplicator) ShouldProcess(signature string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[signature]; ok {
		return false
	}
	d.seen[signature] = struct{}{}
	return true
}

// MarkAlerted records an alert key, returning true only the first time the
// key is seen in the current window.
func (d *Deduplicator) MarkAlerted(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.alerted[key]; ok {
		return false
	}
	d.alerted[key] = struct{}{}
	return true
}

// ResetAlerts clears the alert-level window. Invoked by the sweep; the
// signature seen-set is never reset.
func (d *Deduplicator) ResetAlerts() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerted = make(map[string]struct{})
}

// SeenCount returns the number of signatures marked so far.
func (d *Deduplicator) SeenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
