// Package rcu implements the quiescent-state reclamation substrate
// described in spec.md §4.1. One control thread publishes pointer updates;
// N forwarding threads (one per core) read those pointers without locks by
// bracketing each read with a reader-section enter/exit. A structure
// unlinked by the control thread is only freed once every forwarding
// thread has been observed to have advanced past the epoch in which the
// unlink happened — a grace period.
//
// This is the one subsystem spec.md explicitly says a plain read-write
// lock cannot substitute for on the fast path (§9 "Grace-period
// reclamation"); the implementation below is a textbook global-epoch QSBR,
// the simplest scheme that satisfies the ordering guarantees of §4.1/§5.
package rcu

import (
	"sync"
	"sync/atomic"

	"github.com/vplaned/dataplane/pkg/vplog"
)

// offline is the epoch value a reader publishes while not in a reader
// section (e.g. blocked on a synchronous command round-trip, per §4.10).
// It must never equal a real epoch value so the grace-period scan can
// distinguish "stale snapshot" from "genuinely not reading".
const offline = ^uint64(0)

// Reader is a per-forwarding-thread handle into the reclamation domain.
// Callers obtain one with Domain.Register and must call it from a single
// goroutine for its lifetime (it is not safe to share across goroutines).
type Reader struct {
	epoch *uint64 // this reader's slot in Domain.epochs
	id    int
}

// Enter marks the start of a lock-free read section: the reader publishes
// the domain's current global epoch, which pins any pointer the reader
// loads afterward against premature reclamation.
func (r *Reader) Enter(d *Domain) {
	e := atomic.LoadUint64(&d.global)
	atomic.StoreUint64(r.epoch, e)
}

// Exit marks the end of a read section. Forwarding threads are expected
// to call Enter/Exit once per packet-poll iteration (spec.md §4.1), not
// once per packet, but the API supports either granularity.
func (r *Reader) Exit() {
	atomic.StoreUint64(r.epoch, offline)
}

// Offline marks the reader as not participating in reclamation accounting
// — used around blocking operations per spec.md §4.1's reader-thread
// "online/offline" contract, e.g. the console thread's synchronous
// command-to-control round trip (§4.10, §5).
func (r *Reader) Offline() { atomic.StoreUint64(r.epoch, offline) }

// Online re-enters the read-side protocol after Offline, equivalent to Enter.
func (r *Reader) Online(d *Domain) { r.Enter(d) }

// deferredItem is a pending free, tagged with the epoch at which it was
// unlinked. It is safe to run once every online reader's last-seen epoch
// is > that tag.
type deferredItem struct {
	epoch uint64
	free  func()
	huge  bool // huge regions are tracked/logged separately per §4.1
}

// Domain is one reclamation domain: a global epoch counter, the set of
// registered readers, and a deferred-free queue drained by a background
// reclaimer goroutine. A process normally has exactly one Domain shared
// by the FIB, next-hop pool, and interface table.
type Domain struct {
	global uint64 // control-thread-owned; advanced on every publish

	mu      sync.Mutex // protects readers slice (registration is rare)
	readers []*uint64

	qmu     sync.Mutex
	queue   []deferredItem
	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

// NewDomain creates a reclamation domain and starts its background
// reclaimer goroutine, which is the "single-consumer" side of the
// single-producer/single-consumer deferred-free queue (spec.md §5).
func NewDomain() *Domain {
	d := &Domain{
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.reclaimLoop()
	return d
}

// Close stops the reclaimer goroutine, first draining anything that is
// already safe to free.
func (d *Domain) Close() {
	close(d.stop)
	<-d.stopped
}

// Register adds a new forwarding-thread reader to the domain. Readers are
// assumed to be registered once at startup, per core (spec.md §2's "N
// forwarding threads, one per CPU core").
func (d *Domain) Register() *Reader {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := new(uint64)
	atomic.StoreUint64(e, offline)
	d.readers = append(d.readers, e)
	return &Reader{epoch: e, id: len(d.readers) - 1}
}

// Publish performs a control-thread pointer replacement: it advances the
// global epoch (so that the replacement becomes visible to readers
// entering a section from this point on, per the ordering guarantee in
// §4.1) and schedules free for the previous value once the grace period
// for the pre-advance epoch has elapsed. Two Publish calls issued in
// program order by the control thread are observed in that order by every
// reader, because both happen-before relationships route through the same
// monotonically increasing d.global counter under a single writer.
func (d *Domain) Publish(freeOld func()) {
	retireEpoch := atomic.AddUint64(&d.global, 1) - 1
	if freeOld == nil {
		return
	}
	d.deferFree(retireEpoch, freeOld, false)
}

// DeferFreeHuge is Publish's free-scheduling half, for large memory
// regions the caller wants tracked separately from small-object frees
// (spec.md §4.1 "Supports free of huge memory regions (tracked
// separately)"). Use when a structure was already unlinked by some other
// means (e.g. removed from a slot by CAS) and only the deferred free is
// needed.
func (d *Domain) DeferFreeHuge(freeOld func()) {
	epoch := atomic.LoadUint64(&d.global)
	d.deferFree(epoch, freeOld, true)
}

// DeferFree schedules an ordinary deferred free at the current epoch.
func (d *Domain) DeferFree(freeOld func()) {
	epoch := atomic.LoadUint64(&d.global)
	d.deferFree(epoch, freeOld, false)
}

func (d *Domain) deferFree(epoch uint64, free func(), huge bool) {
	d.qmu.Lock()
	d.queue = append(d.queue, deferredItem{epoch: epoch, free: free, huge: huge})
	d.qmu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// quiescentEpoch returns the lowest epoch any online reader currently
// reports, or the global epoch plus one when no reader is online; offline
// readers do not hold back reclamation. An item tagged with epoch e is
// safe to free once this value is > e. Callers need not hold d.mu: the
// readers slice only grows, and individual slot values are read
// atomically.
func (d *Domain) quiescentEpoch() uint64 {
	d.mu.Lock()
	readers := d.readers
	d.mu.Unlock()

	min := atomic.LoadUint64(&d.global) + 1
	for _, e := range readers {
		v := atomic.LoadUint64(e)
		if v == offline {
			continue
		}
		if v < min {
			min = v
		}
	}
	return min
}

func (d *Domain) reclaimLoop() {
	defer close(d.stopped)
	log := vplog.WithComponent("rcu")
	for {
		select {
		case <-d.stop:
			d.drainBestEffort()
			return
		case <-d.wake:
		}

		q := d.quiescentEpoch()
		d.qmu.Lock()
		kept := d.queue[:0]
		var ready []deferredItem
		for _, item := range d.queue {
			if item.epoch < q {
				ready = append(ready, item)
			} else {
				kept = append(kept, item)
			}
		}
		d.queue = kept
		d.qmu.Unlock()

		for _, item := range ready {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithField("panic", r).Error("deferred free panicked")
					}
				}()
				item.free()
			}()
		}
		if len(d.queue) > 0 {
			// more remain for a future grace period; re-arm.
			select {
			case d.wake <- struct{}{}:
			default:
			}
		}
	}
}

func (d *Domain) drainBestEffort() {
	q := d.quiescentEpoch()
	d.qmu.Lock()
	defer d.qmu.Unlock()
	for _, item := range d.queue {
		if item.epoch < q {
			item.free()
		}
	}
	d.queue = nil
}

// Pending returns the number of frees not yet safe to run — exposed for
// tests and the `memory` console verb.
func (d *Domain) Pending() int {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	return len(d.queue)
}
