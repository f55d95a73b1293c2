// Package nexthop implements the interned, refcounted next-hop group pool
// (spec.md §4.3 / C3): deduplicated sibling sets addressed by a stable
// 1-based index, with ECMP path selection on the read side.
package nexthop

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/rcu"
	"github.com/vplaned/dataplane/pkg/vperr"
)

// Flag is a next-hop sibling attribute (spec.md §3 "Next-hop sibling").
type Flag uint32

const (
	FlagBlackhole Flag = 1 << iota
	FlagReject
	FlagLocal
	FlagGateway
	FlagSlowpath
	FlagDead
	FlagNeighPresent
	FlagNeighCreated
	FlagNoRoute
	FlagBroadcast
)

// cmpMask excludes the runtime-transient flags from the interning hash key
// (spec.md §4.3 "CMP_MASK must exclude ... NEIGH_PRESENT, NEIGH_CREATED,
// DEAD") so that neighbour-link updates never change a group's hash
// identity.
const cmpMask = ^(FlagNeighPresent | FlagNeighCreated | FlagDead)

// Target is the tagged union spec.md §9 calls for ("Tagged union for
// sibling target"): a sibling points at either a bare interface or a
// resolved neighbour, never both, discriminated by the NEIGH_PRESENT flag
// rather than a union+flag pair.
type Target struct {
	NeighAddr  model.IPv4Key // valid iff Flags&FlagNeighPresent != 0
	NeighValid bool
}

// Sibling is one path inside a next-hop group (spec.md §3).
type Sibling struct {
	Gateway    model.IPv4Key // zero if directly connected
	Flags      Flag
	IfIndex    int
	Target     Target
	Labels     []uint32 // MPLS out-label stack
	HWHandle   uint64
}

// Connected reports whether the sibling is "connected" per spec.md §4.5's
// link-arp definition: flags intersect none of
// {BLACKHOLE,REJECT,SLOWPATH,GATEWAY,LOCAL,NOROUTE}.
func (s Sibling) Connected() bool {
	const excluded = FlagBlackhole | FlagReject | FlagSlowpath | FlagGateway | FlagLocal | FlagNoRoute
	return s.Flags&excluded == 0
}

// PDState is the hardware-shadow divergence state (spec.md §3, §4.3, §7).
type PDState int

const (
	PDFull PDState = iota
	PDNotNeeded
	PDNoResource
	PDError
)

// Group is an interned, refcounted set of next-hop siblings (spec.md §3
// "Next-hop group").
type Group struct {
	Proto    int
	Siblings []Sibling

	index int32 // stable, 1-based

	refcount int32 // mutated only under Pool.mu

	HWGroupHandle uint64
	PDState       PDState
}

// Index returns the group's stable, process-wide index.
func (g *Group) Index() int32 { return g.index }

func hashKey(proto int, siblings []Sibling) uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(proto))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(len(siblings)))
	h.Write(buf[:])
	for _, s := range siblings {
		binary.LittleEndian.PutUint64(buf[:], uint64(s.IfIndex))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(s.Gateway))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(s.Flags&cmpMask))
		h.Write(buf[:])
		for _, l := range s.Labels {
			binary.LittleEndian.PutUint32(buf[:4], l)
			h.Write(buf[:4])
		}
	}
	return h.Sum64()
}

func keysEqual(a, b []Sibling, protoA, protoB int) bool {
	if protoA != protoB || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IfIndex != b[i].IfIndex || a[i].Gateway != b[i].Gateway {
			return false
		}
		if a[i].Flags&cmpMask != b[i].Flags&cmpMask {
			return false
		}
		if len(a[i].Labels) != len(b[i].Labels) {
			return false
		}
		for j := range a[i].Labels {
			if a[i].Labels[j] != b[i].Labels[j] {
				return false
			}
		}
	}
	return true
}

// HWBackend creates/destroys hardware-shadow next-hop groups (spec.md
// §4.3 "Hardware shadow" / C11's ip4_new_next_hops/ip4_del_next_hops).
type HWBackend interface {
	NewNextHops(siblings []Sibling) (groupHandle uint64, siblingHandles []uint64, state PDState)
	DelNextHops(groupHandle uint64, siblings []Sibling, siblingHandles []uint64)
}

// Pool is the process-wide next-hop group pool (C3). Index 0 is reserved,
// and BlackholeIndex is allocated at construction time per spec.md §3
// ("A well-known blackhole group exists at startup").
type Pool struct {
	mu     sync.Mutex
	dom    *rcu.Domain
	hw     HWBackend
	slots  []rcu.Pointer[Group] // 1-based; slots[0] unused
	byHash map[uint64][]int32   // hash -> candidate indices sharing that hash
	rover  int32

	BlackholeIndex int32
}

const defaultMaxIndex = 1 << 20 // spec.md §3: "stable index (1-based, ≤ 2^20)"

// New creates a next-hop pool with the given hardware backend (nil uses a
// backend that returns PDNotNeeded for everything, per C11's contract for
// "no backend").
func New(dom *rcu.Domain, hw HWBackend) *Pool {
	if hw == nil {
		hw = noopBackend{}
	}
	p := &Pool{
		dom:    dom,
		hw:     hw,
		slots:  make([]rcu.Pointer[Group], defaultMaxIndex+1),
		byHash: make(map[uint64][]int32),
		rover:  1,
	}
	idx, _, err := p.intern([]Sibling{{Flags: FlagBlackhole}}, 0)
	if err != nil {
		panic("nexthop: failed to allocate well-known blackhole group: " + err.Error())
	}
	p.BlackholeIndex = idx
	return p
}

// Reset discards every interned group and rebuilds the pool to its
// startup state, re-allocating the well-known blackhole group (spec.md §9
// "reset tears down and re-initialises the process-wide singletons").
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots = make([]rcu.Pointer[Group], defaultMaxIndex+1)
	p.byHash = make(map[uint64][]int32)
	p.rover = 1

	idx, _, err := p.intern([]Sibling{{Flags: FlagBlackhole}}, 0)
	if err != nil {
		panic("nexthop: failed to allocate well-known blackhole group: " + err.Error())
	}
	p.BlackholeIndex = idx
}

type noopBackend struct{}

func (noopBackend) NewNextHops(siblings []Sibling) (uint64, []uint64, PDState) {
	return 0, make([]uint64, len(siblings)), PDNotNeeded
}
func (noopBackend) DelNextHops(uint64, []Sibling, []uint64) {}

// Intern dedups a proposed sibling set: if an existing group matches the
// key, its refcount is bumped and its index returned; otherwise a new slot
// is allocated. This is the public, locking entry point; intern (below) is
// reused internally by New for the blackhole group before p.mu exists in
// callers' view.
func (p *Pool) Intern(siblings []Sibling, proto int) (index int32, created bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intern(siblings, proto)
}

func (p *Pool) intern(siblings []Sibling, proto int) (int32, bool, error) {
	key := hashKey(proto, siblings)
	for _, idx := range p.byHash[key] {
		g := p.slots[idx].Load()
		if g != nil && keysEqual(g.Siblings, siblings, g.Proto, proto) {
			g.refcount++
			return idx, false, nil
		}
	}

	idx, err := p.allocSlot()
	if err != nil {
		return 0, false, err
	}

	groupHandle, siblingHandles, pdstate := p.hw.NewNextHops(siblings)
	sibCopy := append([]Sibling(nil), siblings...)
	for i := range sibCopy {
		if i < len(siblingHandles) {
			sibCopy[i].HWHandle = siblingHandles[i]
		}
	}
	g := &Group{
		Proto:         proto,
		Siblings:      sibCopy,
		index:         idx,
		refcount:      1,
		HWGroupHandle: groupHandle,
		PDState:       pdstate,
	}
	p.slots[idx].Store(p.dom, g, nil)
	p.byHash[key] = append(p.byHash[key], idx)
	return idx, true, nil
}

func (p *Pool) allocSlot() (int32, error) {
	start := p.rover
	maxIndex := int32(len(p.slots) - 1)
	for {
		idx := p.rover
		p.rover++
		if p.rover > maxIndex {
			p.rover = 1
		}
		if idx == 0 {
			continue
		}
		if p.slots[idx].Load() == nil {
			return idx, nil
		}
		if p.rover == start {
			return 0, vperr.NoSpace("nexthop.intern", nil)
		}
	}
}

// Release decrements index's refcount; at zero the group is unlinked from
// the hash, the hardware group is destroyed, and the slot is
// deferred-freed after the current grace period so in-flight readers
// still holding a pointer from Get/Select see a valid group.
func (p *Pool) Release(index int32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	g := p.slots[index].Load()
	if g == nil {
		return
	}
	g.refcount--
	if g.refcount > 0 {
		return
	}

	key := hashKey(g.Proto, g.Siblings)
	list := p.byHash[key]
	for i, idx := range list {
		if idx == index {
			p.byHash[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(p.byHash[key]) == 0 {
		delete(p.byHash, key)
	}

	handles := make([]uint64, len(g.Siblings))
	for i, s := range g.Siblings {
		handles[i] = s.HWHandle
	}
	p.hw.DelNextHops(g.HWGroupHandle, g.Siblings, handles)

	p.slots[index].Store(p.dom, nil, nil)
}

// Get is a read-side lookup.
func (p *Pool) Get(index int32) *Group {
	if index <= 0 || int(index) >= len(p.slots) {
		return nil
	}
	return p.slots[index].Load()
}

// ReplaceInPlace is the "replace-in-place" primitive spec.md §4.5's
// link-arp/unlink-arp steps call to flip NEIGH_PRESENT/NEIGH_CREATED on a
// live group without disturbing route references to its index: it builds
// a new Group value with a cloned sibling slice, lets mutate edit the
// clone, and publishes it through the same COW Pointer slot so in-flight
// readers keep seeing a consistent group.
func (p *Pool) ReplaceInPlace(index int32, mutate func(siblings []Sibling)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := p.slots[index].Load()
	if g == nil {
		return
	}
	sibs := append([]Sibling(nil), g.Siblings...)
	mutate(sibs)
	ng := &Group{
		Proto:         g.Proto,
		Siblings:      sibs,
		index:         g.index,
		refcount:      g.refcount,
		HWGroupHandle: g.HWGroupHandle,
		PDState:       g.PDState,
	}
	p.slots[index].Store(p.dom, ng, nil)
}

// WalkByGateway invokes cb for every live group with a sibling whose
// gateway equals the given address (spec.md §4.5/§4.6 "walk all next-hop
// groups whose gateway matches"). It only scans groups that are currently
// interned (via byHash), not the full slot array.
func (p *Pool) WalkByGateway(gateway model.IPv4Key, cb func(index int32, g *Group)) {
	p.mu.Lock()
	var indices []int32
	for _, list := range p.byHash {
		indices = append(indices, list...)
	}
	p.mu.Unlock()

	for _, idx := range indices {
		g := p.Get(idx)
		if g == nil {
			continue
		}
		for _, s := range g.Siblings {
			if s.Gateway == gateway {
				cb(idx, g)
				break
			}
		}
	}
}

// FiveTuple is the packet-field hash input for ECMP selection (spec.md
// §4.3 "computes a 5-tuple hash").
type FiveTuple struct {
	SrcAddr, DstAddr   model.IPv4Key
	SrcPort, DstPort   uint16
	Proto              uint8
}

func (f FiveTuple) hash() uint64 {
	h := xxhash.New()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(f.SrcAddr))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], uint32(f.DstAddr))
	h.Write(buf[:])
	var b2 [2]byte
	binary.LittleEndian.PutUint16(b2[:], f.SrcPort)
	h.Write(b2[:])
	binary.LittleEndian.PutUint16(b2[:], f.DstPort)
	h.Write(b2[:])
	h.Write([]byte{f.Proto})
	return h.Sum64()
}

// Select performs ECMP sibling selection (spec.md §4.3). For a single-path
// group it returns the only sibling. For larger groups it hashes the
// 5-tuple, reduces modulo min(size, ecmpMaxPath), and returns that sibling
// unless it is DEAD, in which case it scans for the first non-DEAD
// sibling; if every sibling is DEAD it returns nil. If the selected
// sibling has NOROUTE set, it also returns nil (the caller must drop).
func (g *Group) Select(tuple FiveTuple, ecmpMaxPath int) *Sibling {
	n := len(g.Siblings)
	if n == 0 {
		return nil
	}
	limit := n
	if ecmpMaxPath > 0 && ecmpMaxPath < limit {
		limit = ecmpMaxPath
	}
	start := int(tuple.hash() % uint64(limit))

	idx := start
	for tries := 0; tries < n; tries++ {
		s := &g.Siblings[idx]
		if s.Flags&FlagDead == 0 {
			if s.Flags&FlagNoRoute != 0 {
				return nil
			}
			return s
		}
		idx = (idx + 1) % n
	}
	return nil
}
