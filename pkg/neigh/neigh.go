// Package neigh implements the per-interface, per-family neighbour table
// (spec.md §4.6 / C6): a plain control-side cache of IP-to-MAC entries.
// The insert_arp/remove_arp coordination algorithms that tie this table to
// the LPM and next-hop pool live in pkg/fib, which is the mediator spec.md
// §4.5 describes; this package only owns the entries themselves, in the
// same map-plus-mutex shape pkg/ifnet uses for its name/index indices.
package neigh

import (
	"sync"

	"github.com/vplaned/dataplane/pkg/model"
)

// State is the reachability state of one neighbour entry, following the
// kernel neighbour-cache states the source models its own entries on.
type State int

const (
	StateIncomplete State = iota
	StateReachable
	StateStale
	StatePermanent
	StateFailed
)

// Entry is one neighbour: an IP address resolved to a link-layer address
// on a specific interface.
type Entry struct {
	IfIndex int
	Addr    model.IPv4Key
	MAC     model.MAC
	State   State
}

type key struct {
	ifIndex int
	addr    model.IPv4Key
}

// Table is the neighbour cache for one address family. Callers needing
// IPv4 and IPv6 tables hold two instances.
type Table struct {
	mu      sync.RWMutex
	entries map[key]*Entry
}

func New() *Table {
	return &Table{entries: make(map[key]*Entry)}
}

// Lookup returns the neighbour entry for (ifIndex, addr), if any.
func (t *Table) Lookup(ifIndex int, addr model.IPv4Key) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key{ifIndex, addr}]
	return e, ok
}

// Insert creates or updates a neighbour entry.
func (t *Table) Insert(ifIndex int, addr model.IPv4Key, mac model.MAC, state State) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &Entry{IfIndex: ifIndex, Addr: addr, MAC: mac, State: state}
	t.entries[key{ifIndex, addr}] = e
	return e
}

// Remove deletes the neighbour entry for (ifIndex, addr), if present.
func (t *Table) Remove(ifIndex int, addr model.IPv4Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key{ifIndex, addr})
}

// Walk iterates every entry on the given interface. cb returning false
// stops the walk early.
func (t *Table) Walk(ifIndex int, cb func(*Entry) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for k, e := range t.entries {
		if k.ifIndex != ifIndex {
			continue
		}
		if !cb(e) {
			return
		}
	}
}

// WalkAll iterates every entry in the table regardless of interface, used
// by pkg/fib's link-arp/unlink-arp gateway scans.
func (t *Table) WalkAll(cb func(*Entry) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if !cb(e) {
			return
		}
	}
}
