// Package vrf implements the VRF registry (spec.md §3 "VRF"): lazily
// created routing instances, each owning a set of per-table-id FIB
// tables, with the default-VRF table aliasing behaviour spec.md §4.5
// requires for policy-based routing. Grounded on original_source's
// vrf_create/rt_create_lpm (src/route.c) for the lazy-create and
// table-aliasing rules, expressed in the map-plus-RWMutex idiom
// pkg/ifnet already established for this repo's control-side tables.
package vrf

import (
	"sync"

	"github.com/vplaned/dataplane/pkg/lpm"
	"github.com/vplaned/dataplane/pkg/rcu"
)

// Well-known VRF ids (original_source: VRF_DEFAULT_ID, VRF_INVALID_ID).
const (
	DefaultID = 0
	InvalidID = 0xFFFFFFFF

	// TableMain is the primary route table id (original_source:
	// RT_TABLE_MAIN); TableLocal aliases to it; TableUnspec is rejected.
	TableMain   = 254
	TableLocal  = 255
	TableUnspec = 0
)

// MIB holds the per-VRF protocol counters spec.md §3 lists (IP/ICMP/UDP/
// ARP MIBs); fields are int64 for simplicity rather than a struct per
// protocol, since no operation in scope reads individual MIB fields by
// name — only their aggregate presence is exercised (console `show`/
// statistics surface, C10).
type MIB struct {
	IPInReceives, IPOutRequests   int64
	ICMPInMsgs, ICMPOutMsgs       int64
	UDPInDatagrams, UDPOutDatagrams int64
	ARPRequests, ARPReplies       int64
}

// VRF is one routing/forwarding instance (spec.md §3 "VRF").
type VRF struct {
	ID       uint32
	Name     string
	refcount int32

	mu     sync.RWMutex
	tables map[uint32]*lpm.Table // table id -> IPv4 FIB

	MIB MIB
}

// AddRef/Release track route-caused liveness; the registry destroys a
// non-default VRF once its refcount returns to zero (spec.md §4.5 "If
// this was the last non-reserved rule in a non-default-VRF table,
// decrement the VRF reference").
func (v *VRF) addRef()  { v.refcount++ }
func (v *VRF) release() { v.refcount-- }

// Refcount returns the current route-reference count, for tests and the
// console's `show vrf` surface.
func (v *VRF) Refcount() int32 { return v.refcount }

// Registry is the process-wide VRF table.
type Registry struct {
	mu   sync.Mutex
	dom  *rcu.Domain
	vrfs map[uint32]*VRF
}

func New(dom *rcu.Domain) *Registry {
	r := &Registry{dom: dom, vrfs: make(map[uint32]*VRF)}
	r.vrfs[DefaultID] = &VRF{ID: DefaultID, Name: "default", tables: make(map[uint32]*lpm.Table)}
	return r
}

// Reset discards every VRF (including every FIB table they own) and
// reinstates only the default VRF, empty, matching the registry's state
// right after New (spec.md §9 "reset tears down and re-initialises the
// process-wide singletons").
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vrfs = make(map[uint32]*VRF)
	r.vrfs[DefaultID] = &VRF{ID: DefaultID, Name: "default", tables: make(map[uint32]*lpm.Table)}
}

// Lookup returns the VRF with the given id, if it has been created.
func (r *Registry) Lookup(id uint32) (*VRF, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vrfs[id]
	return v, ok
}

// resolveOrCreate returns the VRF for id, creating it (and taking no
// route reference yet — callers add one once the insert actually
// succeeds) if this is the first time it has been seen.
func (r *Registry) resolveOrCreate(id uint32) *VRF {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vrfs[id]
	if !ok {
		v = &VRF{ID: id, tables: make(map[uint32]*lpm.Table)}
		r.vrfs[id] = v
	}
	return v
}

func (r *Registry) defaultVRF() *VRF {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vrfs[DefaultID]
}

// List returns every currently-existing VRF, for the console `vrf` verb.
func (r *Registry) List() []*VRF {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*VRF, 0, len(r.vrfs))
	for _, v := range r.vrfs {
		out = append(out, v)
	}
	return out
}

// Table returns (creating if necessary) the FIB table for (vrf,
// tableID), applying the RT_LOCAL->RT_MAIN rewrite and the
// default-VRF-aliasing rule from spec.md §4.5 step 1-2. Reserved-route
// population is the caller's responsibility (pkg/fib owns next-hop
// allocation); Table on its own only manages table identity and
// aliasing.
// Table's created return value is true the first time this (vrf, tableID)
// pair is seen, so pkg/fib knows when it must populate reserved routes.
func (r *Registry) Table(vrfID, tableID uint32) (tbl *lpm.Table, v *VRF, created bool, err error) {
	if tableID == TableLocal {
		tableID = TableMain
	}
	if tableID == TableUnspec {
		return nil, nil, false, errUnspecTable
	}

	v = r.resolveOrCreate(vrfID)

	if vrfID != DefaultID && tableID != TableMain {
		// Non-main tables in non-default VRFs alias the default VRF's
		// table of the same id (original_source: rt_create_lpm's
		// "alias all tables other than the main one ... into other
		// VRFs").
		def := r.defaultVRF()
		tbl, created = def.table(tableID, r.dom)
		return tbl, v, created, nil
	}

	tbl, created = v.table(tableID, r.dom)
	return tbl, v, created, nil
}

func (v *VRF) table(tableID uint32, dom *rcu.Domain) (*lpm.Table, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.tables[tableID]
	if !ok {
		t = lpm.New(dom)
		v.tables[tableID] = t
		return t, true
	}
	return t, false
}

// AddRouteRef/ReleaseRouteRef are called by pkg/fib around successful
// insert/delete so non-default VRFs can be destroyed once their last
// route is gone.
func (r *Registry) AddRouteRef(v *VRF) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.addRef()
}

// ReleaseRouteRef decrements v's route refcount and, if v is not the
// default VRF and the count reaches zero, removes it from the registry.
func (r *Registry) ReleaseRouteRef(v *VRF) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.release()
	if v.ID != DefaultID && v.refcount <= 0 {
		delete(r.vrfs, v.ID)
	}
}

type vrfError string

func (e vrfError) Error() string { return string(e) }

const errUnspecTable = vrfError("vrf: RT_TABLE_UNSPEC is not a valid table id")
