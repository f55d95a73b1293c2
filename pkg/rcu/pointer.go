package rcu

import "sync/atomic"

// Pointer is a read-side, lock-free pointer slot: readers Load it during a
// reader section; the control thread replaces it with Store, which defers
// the old value's reclamation through a Domain. This is the concrete
// realisation of spec.md §4.1's "Read-side pointer load" / "Publish
// (replace pointer)" / "Compare-and-set pointer" primitives for a single
// slot; C2/C3/C4/C5/C6 each hold one or more of these.
type Pointer[T any] struct {
	p atomic.Pointer[T]
}

// Load returns the current snapshot. Safe to call without a reader
// section registered, but the returned pointer's validity beyond the
// current reader section is only guaranteed while a section is open.
func (s *Pointer[T]) Load() *T { return s.p.Load() }

// Store publishes a new value and defers the old value's free until the
// domain's grace period for the current epoch elapses. free may be nil if
// the old value needs no cleanup beyond GC (the common case in Go — most
// callers pass nil and rely on the garbage collector once the deferred
// item itself is dropped; free is for cases with non-GC resources, e.g.
// hardware handles released via the FAL façade).
func (s *Pointer[T]) Store(d *Domain, v *T, free func()) {
	s.p.Store(v)
	d.Publish(free)
}

// CompareAndSwap performs slot acquisition for fixed-size tables (spec.md
// §4.1's "Compare-and-set pointer"), e.g. claiming an empty event-bus
// subscriber slot (C8).
func (s *Pointer[T]) CompareAndSwap(old, new *T) bool {
	return s.p.CompareAndSwap(old, new)
}
