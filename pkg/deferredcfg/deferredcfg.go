// Package deferredcfg implements the deferred-config cache (spec.md §4.9 /
// C9): a name-keyed store of commands that reference an interface which
// does not exist yet. Each feature module that needs replay (speed, PoE,
// breakout, vhost-client, ...) owns its own Cache instance, so the type
// here is a small reusable primitive rather than a singleton, mirroring
// spec.md's "owned by each feature module that needs replay" wording.
//
// The pending-list shape is grounded on transitorykris-kbgp/queue's FIFO
// (a mutex-guarded slice with Push/Pop), generalised from one shared
// queue to one queue per interface name. The self-registering event-bus
// hookup is grounded on C8 (pkg/event) directly.
package deferredcfg

import (
	"sync"
	"sync/atomic"

	"github.com/vplaned/dataplane/pkg/event"
)

// Op classifies a deferred command for the missed_add/missed_update/
// missed_del counters spec.md's Testable Property 7 requires.
type Op int

const (
	OpAdd Op = iota
	OpUpdate
	OpDel
)

// Command is a pending command recorded against an interface name that
// does not exist yet: the operation kind plus a copy of its argv.
type Command struct {
	Op   Op
	Argv []string
}

// Stats holds the counters Testable Property 7 requires, queryable via
// the console `incomplete` verb.
type Stats struct {
	MissedAdd      int64
	MissedUpdate   int64
	MissedDel      int64
	MissedReplayed int64
}

// ReplayFunc is invoked once per replayed command, in the order the
// commands were originally deferred.
type ReplayFunc func(ifName string, cmd Command)

// Cache is a name-keyed pending-command store with replay-on-arrival and
// discard-on-removal semantics (spec.md §4.9).
type Cache struct {
	bus    *event.Bus
	replay ReplayFunc

	mu      sync.Mutex
	pending map[string][]Command
	sub     *event.Subscriber

	missedAdd      int64
	missedUpdate   int64
	missedDel      int64
	missedReplayed int64
}

// New creates an empty cache. It does not register with bus until the
// first command is deferred, per spec.md's "registers its own event-bus
// subscriber at first use" wording.
func New(bus *event.Bus, replay ReplayFunc) *Cache {
	return &Cache{bus: bus, replay: replay, pending: make(map[string][]Command)}
}

// Defer records cmd against ifName. It registers the cache's event
// subscriber on the first call.
func (c *Cache) Defer(ifName string, cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub == nil {
		c.register()
	}
	c.pending[ifName] = append(c.pending[ifName], cmd)

	switch cmd.Op {
	case OpAdd:
		atomic.AddInt64(&c.missedAdd, 1)
	case OpUpdate:
		atomic.AddInt64(&c.missedUpdate, 1)
	case OpDel:
		atomic.AddInt64(&c.missedDel, 1)
	}
}

// register installs the cache's event-bus subscriber. Caller holds c.mu.
func (c *Cache) register() {
	c.sub = &event.Subscriber{
		Name:           "deferredcfg",
		OnIfIndexSet:   c.onIfIndexSet,
		OnIfIndexUnset: c.onIfIndexUnset,
	}
	c.bus.Register(c.sub)
}

// deregisterIfEmptyLocked removes the event subscriber once no interface
// has pending commands, per spec.md's "deregisters when empty". Caller
// holds c.mu.
func (c *Cache) deregisterIfEmptyLocked() {
	if len(c.pending) == 0 && c.sub != nil {
		c.bus.Deregister(c.sub)
		c.sub = nil
	}
}

func (c *Cache) onIfIndexSet(ev event.Event) {
	c.mu.Lock()
	cmds := c.pending[ev.IfName]
	delete(c.pending, ev.IfName)
	c.deregisterIfEmptyLocked()
	c.mu.Unlock()

	for _, cmd := range cmds {
		if cmd.Op == OpAdd {
			atomic.AddInt64(&c.missedReplayed, 1)
		}
		c.replay(ev.IfName, cmd)
	}
}

func (c *Cache) onIfIndexUnset(ev event.Event) {
	c.mu.Lock()
	delete(c.pending, ev.IfName)
	c.deregisterIfEmptyLocked()
	c.mu.Unlock()
}

// Reset discards every pending command, deregisters the cache's event
// subscriber if one is installed, and zeroes the missed/replayed counters,
// returning the cache to its just-constructed state (spec.md §9 "reset
// tears down and re-initialises the process-wide singletons").
func (c *Cache) Reset() {
	c.mu.Lock()
	if c.sub != nil {
		c.bus.Deregister(c.sub)
		c.sub = nil
	}
	c.pending = make(map[string][]Command)
	c.mu.Unlock()

	atomic.StoreInt64(&c.missedAdd, 0)
	atomic.StoreInt64(&c.missedUpdate, 0)
	atomic.StoreInt64(&c.missedDel, 0)
	atomic.StoreInt64(&c.missedReplayed, 0)
}

// Pending reports the number of commands currently queued for ifName.
func (c *Cache) Pending(ifName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending[ifName])
}

// Stats returns a snapshot of the missed/replayed counters.
func (c *Cache) Stats() Stats {
	return Stats{
		MissedAdd:      atomic.LoadInt64(&c.missedAdd),
		MissedUpdate:   atomic.LoadInt64(&c.missedUpdate),
		MissedDel:      atomic.LoadInt64(&c.missedDel),
		MissedReplayed: atomic.LoadInt64(&c.missedReplayed),
	}
}
