// Package fib implements the FIB coordinator (spec.md §4.5 / C5): the
// mediator between the LPM, the next-hop pool, neighbour events,
// interface events, and the hardware shadow. This is the subsystem
// spec.md itself calls out as "where the real engineering lives";
// insert/delete/lookup_forward and the link-arp/unlink-arp algorithms are
// translated close to the line from original_source/src/route.c, since
// that file is the primary reference for this subsystem rather than a
// teacher idiom (process step 4's "enrich/resolve via original_source").
package fib

import (
	"sync"

	"github.com/vplaned/dataplane/pkg/fal"
	"github.com/vplaned/dataplane/pkg/lpm"
	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/neigh"
	"github.com/vplaned/dataplane/pkg/nexthop"
	"github.com/vplaned/dataplane/pkg/vperr"
	"github.com/vplaned/dataplane/pkg/vplog"
	"github.com/vplaned/dataplane/pkg/vrf"
)

// reserved routes pre-populated into every freshly created table (spec.md
// §3 "Reserved routes"), mirroring original_source's static
// reserved_routes[] table in src/route.c.
var reservedRoutes = []struct {
	addr  model.IPv4Key
	depth uint8
	scope model.Scope
	flags nexthop.Flag
}{
	{0, 0, model.ScopeNowhere, nexthop.FlagNoRoute | nexthop.FlagReject},
	{model.IPv4KeyFromBytes([4]byte{127, 0, 0, 0}), 8, model.ScopeHost, nexthop.FlagBlackhole},
	{model.IPv4KeyFromBytes([4]byte{255, 255, 255, 255}), 32, model.ScopeHost, nexthop.FlagBroadcast | nexthop.FlagLocal},
}

// Stats holds counters for the four outcome classes {FULL, NOT_NEEDED,
// NO_RESOURCE, ERROR} (spec.md §4.5). There is one set of counters;
// software and hardware rules are not counted separately.
type Stats struct {
	mu   sync.Mutex
	Full, NotNeeded, NoResource, Error int
}

// reset zeroes every counter, for the coordinator's Reset.
func (s *Stats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Full, s.NotNeeded, s.NoResource, s.Error = 0, 0, 0, 0
}

func (s *Stats) record(state lpm.PDState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch state {
	case lpm.PDFull:
		s.Full++
	case lpm.PDNotNeeded:
		s.NotNeeded++
	case lpm.PDNoResource:
		s.NoResource++
	default:
		s.Error++
	}
}

// Coordinator is the FIB coordinator (C5). One instance serves the whole
// process; it owns the route mutex spec.md §5 names as the single
// control-side lock shared by insert/delete.
type Coordinator struct {
	vrfs        *vrf.Registry
	nh          *nexthop.Pool
	fal         fal.Backend
	ecmpMaxPath int

	mu sync.Mutex // "the route mutex" (spec.md §4.5/§5)

	neighMu     sync.Mutex
	neighTables map[int]*neigh.Table // keyed by ifIndex

	Stats Stats
}

func New(vrfs *vrf.Registry, nh *nexthop.Pool, backend fal.Backend, ecmpMaxPath int) *Coordinator {
	return &Coordinator{
		vrfs:        vrfs,
		nh:          nh,
		fal:         backend,
		ecmpMaxPath: ecmpMaxPath,
		neighTables: make(map[int]*neigh.Table),
	}
}

// Reset tears down and re-initialises everything the coordinator owns —
// the VRF registry (and with it every per-VRF FIB table), the next-hop
// pool, every per-interface neighbour table, and the FAL statistics — to
// their just-constructed state, for the console `reset` verb (spec.md §9
// "reset tears down and re-initialises the process-wide singletons").
// ECMPMaxPath is configuration, not state, and is left untouched.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vrfs.Reset()
	c.nh.Reset()

	c.neighMu.Lock()
	c.neighTables = make(map[int]*neigh.Table)
	c.neighMu.Unlock()

	c.Stats.reset()
}

// ECMPMaxPath returns the configured maximum number of ECMP siblings a
// group selects among, for the console `ecmp` verb.
func (c *Coordinator) ECMPMaxPath() int { return c.ecmpMaxPath }

// SetECMPMaxPath updates the maximum number of ECMP siblings, for the
// console `ecmp` verb's set form.
func (c *Coordinator) SetECMPMaxPath(n int) { c.ecmpMaxPath = n }

// VRFs exposes the coordinator's VRF registry, for the console `vrf` verb.
func (c *Coordinator) VRFs() *vrf.Registry { return c.vrfs }

// NextHops exposes the coordinator's next-hop pool.
func (c *Coordinator) NextHops() *nexthop.Pool { return c.nh }

func (c *Coordinator) neighTableFor(ifIndex int) *neigh.Table {
	c.neighMu.Lock()
	defer c.neighMu.Unlock()
	t, ok := c.neighTables[ifIndex]
	if !ok {
		t = neigh.New()
		c.neighTables[ifIndex] = t
	}
	return t
}

// WalkNeighbours invokes cb for every neighbour entry on every interface
// that has seen at least one, for the console `arp` verb. It never
// allocates a table the way neighTableFor does.
func (c *Coordinator) WalkNeighbours(cb func(ifIndex int, e *neigh.Entry) bool) {
	c.neighMu.Lock()
	tables := make(map[int]*neigh.Table, len(c.neighTables))
	for idx, t := range c.neighTables {
		tables[idx] = t
	}
	c.neighMu.Unlock()

	for idx, t := range tables {
		t.Walk(idx, func(e *neigh.Entry) bool { return cb(idx, e) })
	}
}

func isReservedRule(dst model.IPv4Key, depth uint8, scope model.Scope) bool {
	for _, r := range reservedRoutes {
		if r.addr == dst && r.depth == depth && r.scope == scope {
			return true
		}
	}
	return false
}

// populateReserved installs the three reserved routes into a freshly
// created table (spec.md §3). These never take a VRF route reference —
// only controller-initiated routes do, so a VRF whose only content is its
// reserved routes is still eligible for destruction.
func (c *Coordinator) populateReserved(tbl *lpm.Table) error {
	for _, r := range reservedRoutes {
		idx, _, err := c.nh.Intern([]nexthop.Sibling{{Flags: r.flags}}, 0)
		if err != nil {
			return vperr.NoMem("fib.populateReserved", err)
		}
		if outcome, _ := tbl.Add(r.addr, r.depth, idx, r.scope); outcome != lpm.Success {
			return vperr.Inval("fib.populateReserved", nil)
		}
	}
	return nil
}

// resolveTable rewrites RT_LOCAL->RT_MAIN, rejects RT_UNSPEC, resolves or
// creates the VRF and table, and populates reserved routes on first
// creation (spec.md §4.5 insert/delete step 1-2).
func (c *Coordinator) resolveTable(vrfID, tableID uint32) (*lpm.Table, *vrf.VRF, error) {
	tbl, v, created, err := c.vrfs.Table(vrfID, tableID)
	if err != nil {
		return nil, nil, vperr.Inval("fib.resolveTable", err)
	}
	if created {
		if err := c.populateReserved(tbl); err != nil {
			return nil, nil, err
		}
	}
	return tbl, v, nil
}

// Insert is spec.md §4.5's `insert(vrf, dst, depth, table_id, scope,
// proto, siblings[], replace)`.
func (c *Coordinator) Insert(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32, scope model.Scope, proto int, siblings []nexthop.Sibling, replace bool) (lpm.Outcome, error) {
	tbl, v, err := c.resolveTable(vrfID, tableID)
	if err != nil {
		return 0, err
	}

	// Host-route signature (spec.md §4.5 step 3): a zero-gateway,
	// non-GATEWAY sibling on a /32 is stamped with the route's own
	// destination so it can later be recognised as ARP-derived.
	if depth == 32 {
		for i := range siblings {
			if siblings[i].Gateway == 0 && siblings[i].Flags&nexthop.FlagGateway == 0 {
				siblings[i].Gateway = dst
			}
		}
	}

	idx, _, err := c.nh.Intern(siblings, proto)
	if err != nil {
		return 0, vperr.NoMem("fib.insert", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if replace {
		if oldIdx, ok := tbl.LookupExact(dst, depth); ok {
			c.unlinkARPPrefix(tbl, dst, depth)
			tbl.Delete(dst, depth, scope)
			c.nh.Release(oldIdx)
		}
	}

	outcome, demoted := tbl.Add(dst, depth, idx, scope)
	switch outcome {
	case lpm.AlreadyExists:
		c.nh.Release(idx)
		return outcome, vperr.Exists("fib.insert", nil)
	case lpm.NoSpace:
		c.nh.Release(idx)
		return outcome, vperr.NoSpace("fib.insert", nil)
	}

	group := c.nh.Get(idx)

	if outcome == lpm.HigherScopeExists {
		// Shadowed by an already-active higher-scope rule: no hardware
		// create is issued for a rule the dataplane will never forward
		// through, and its platform state is NOT_NEEDED (spec.md §4.4
		// "state of the newly-shadowed rule").
		tbl.SetRuleState(dst, depth, scope, lpm.PDNotNeeded, false)
		c.Stats.record(lpm.PDNotNeeded)
	} else {
		status := c.fal.NewRoute(vrfID, dst, depth, tableID, siblings, group.HWGroupHandle)
		tbl.SetRuleState(dst, depth, scope, status.ToLPMState(), true)
		c.Stats.record(status.ToLPMState())

		if demoted != nil {
			// The displaced rule's platform state moves to NOT_NEEDED and
			// hardware is updated via upd, not del-then-new, so its group
			// handle stays live (spec.md §4.5 step 5b).
			tbl.SetRuleState(dst, depth, demoted.Scope, lpm.PDNotNeeded, true)
			c.fal.UpdRoute(vrfID, dst, depth, tableID, siblings, group.HWGroupHandle)
		}
	}

	c.linkARP(tbl, dst, depth, group)

	if !isReservedRule(dst, depth, scope) {
		c.vrfs.AddRouteRef(v)
	}

	return outcome, nil
}

// Delete is spec.md §4.5's `delete(vrf, dst, depth, table_id, scope)`.
func (c *Coordinator) Delete(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32, scope model.Scope) error {
	if isReservedRule(dst, depth, scope) {
		return vperr.Inval("fib.delete", nil)
	}

	tbl, v, err := c.resolveTable(vrfID, tableID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.unlinkARPPrefix(tbl, dst, depth)

	outcome, nhIndex, promoted := tbl.Delete(dst, depth, scope)
	if outcome != lpm.Success {
		return vperr.NoEnt("fib.delete", nil)
	}
	c.nh.Release(nhIndex)
	c.fal.DelRoute(vrfID, dst, depth, tableID)

	if promoted != nil {
		tbl.SetRuleState(dst, depth, promoted.Scope, lpm.PDFull, true)
		if g := c.nh.Get(promoted.NHIndex); g != nil {
			c.fal.UpdRoute(vrfID, dst, depth, tableID, g.Siblings, g.HWGroupHandle)
		}
	}

	if coverKey, coverDepth, coverNH, ok := tbl.FindCover(dst, depth); ok {
		if coverGroup := c.nh.Get(coverNH); coverGroup != nil {
			c.linkARP(tbl, coverKey, coverDepth, coverGroup)
		}
	}

	c.vrfs.ReleaseRouteRef(v)
	return nil
}

// LookupForward is spec.md §4.5's `lookup_forward(vrf, dst, mbuf) ->
// sibling?`: the read-side, fast-path entry point. It never takes the
// route mutex.
func (c *Coordinator) LookupForward(vrfID uint32, dst model.IPv4Key, tuple nexthop.FiveTuple) *nexthop.Sibling {
	v, ok := c.vrfs.Lookup(vrfID)
	if !ok {
		return nil
	}
	tbl, _, _, err := c.vrfs.Table(v.ID, vrf.TableMain)
	if err != nil {
		return nil
	}
	idx, ok := tbl.Lookup(dst)
	if !ok {
		return nil
	}
	group := c.nh.Get(idx)
	if group == nil {
		return nil
	}
	sib := group.Select(tuple, c.ecmpMaxPath)
	if sib == nil || sib.Flags&nexthop.FlagNoRoute != 0 {
		return nil
	}
	return sib
}

// ---- link-arp / unlink-arp (spec.md §4.5 "the hard part") ----

func subtreeContainsNeighCreated(tbl *lpm.Table, prefix model.IPv4Key, depth uint8, cb func(k model.IPv4Key, d uint8)) {
	tbl.SubtreeWalk(prefix, depth, func(k model.IPv4Key, d uint8, r *lpm.Rule) {
		if r == nil || d != 32 {
			return
		}
		// A NEIGH_CREATED rule is recognised by its sibling flags; the
		// rule-level view only carries the next-hop index, so the
		// caller resolves flags through the pool when it needs them.
		cb(k, d)
	})
}

// linkARP recomputes neighbour-present/neighbour-created state after a
// route insert (spec.md §4.5 "On route insert (link-arp)").
func (c *Coordinator) linkARP(tbl *lpm.Table, prefix model.IPv4Key, depth uint8, group *nexthop.Group) {
	anyConnected := false
	for _, s := range group.Siblings {
		if s.Connected() {
			anyConnected = true
			break
		}
	}

	if anyConnected {
		c.cleanupNeighCreatedSubtree(tbl, prefix, depth)
	} else if coverKey, coverDepth, coverNH, ok := tbl.FindCover(prefix, depth); ok {
		if coverGroup := c.nh.Get(coverNH); coverGroup != nil {
			for _, s := range coverGroup.Siblings {
				if s.Connected() {
					c.cleanupNeighCreatedSubtree(tbl, coverKey, coverDepth)
					break
				}
			}
		}
	}

	for i := range group.Siblings {
		sib := group.Siblings[i]
		ift := c.neighTableFor(sib.IfIndex)
		ift.WalkAll(func(e *neigh.Entry) bool {
			matches := e.Addr == sib.Gateway
			if sib.Connected() && sib.Gateway == 0 {
				matches = e.Addr.Network(depth) == prefix
			}
			if !matches {
				return true
			}
			c.insertArpLocked(tbl, sib.IfIndex, e.Addr, e.MAC, sib.Connected())
			c.nh.WalkByGateway(e.Addr, func(idx int32, g *nexthop.Group) {
				c.nh.ReplaceInPlace(idx, func(sibs []nexthop.Sibling) {
					for j := range sibs {
						if sibs[j].Gateway == e.Addr {
							sibs[j].Flags |= nexthop.FlagNeighPresent
						}
					}
				})
			})
			return true
		})
	}
}

// unlinkARPPrefix is spec.md §4.5's pre-delete step: before removing
// (prefix, depth), delete every NEIGH_CREATED /32 whose cover is this
// prefix, since they will be recreated under whatever covers the route
// next.
func (c *Coordinator) unlinkARPPrefix(tbl *lpm.Table, prefix model.IPv4Key, depth uint8) {
	nhIdx, ok := tbl.LookupExact(prefix, depth)
	anyConnected := false
	if ok {
		if g := c.nh.Get(nhIdx); g != nil {
			for _, s := range g.Siblings {
				if s.Connected() {
					anyConnected = true
					break
				}
			}
		}
	}
	if !anyConnected {
		if _, _, coverNH, ok := tbl.FindCover(prefix, depth); ok {
			if g := c.nh.Get(coverNH); g != nil {
				for _, s := range g.Siblings {
					if s.Connected() {
						anyConnected = true
						break
					}
				}
			}
		}
	}
	if anyConnected {
		c.cleanupNeighCreatedSubtree(tbl, prefix, depth)
	}
}

// cleanupNeighCreatedSubtree deletes every /32 rule under (prefix, depth)
// whose cover is exactly (prefix, depth), per spec.md §4.5 steps 1/2 — it
// will be recreated with correct cover semantics by the caller's
// subsequent insert_arp pass.
func (c *Coordinator) cleanupNeighCreatedSubtree(tbl *lpm.Table, prefix model.IPv4Key, depth uint8) {
	var toDelete []model.IPv4Key
	subtreeContainsNeighCreated(tbl, prefix, depth, func(k model.IPv4Key, d uint8) {
		if k == prefix && d == depth {
			return // the inserted/departing rule itself, not a shadow
		}
		if coverKey, coverDepth, _, ok := tbl.FindCover(k, d); ok && coverKey == prefix && coverDepth == depth {
			toDelete = append(toDelete, k)
		}
	})
	for _, k := range toDelete {
		if nhIdx, ok := tbl.LookupExact(k, 32); ok {
			tbl.Delete(k, 32, model.ScopeLink)
			c.nh.Release(nhIdx)
		}
	}
}

// insertArpLocked is spec.md §4.6's insert_arp, called while the route
// mutex is already held by linkARP/Insert/Delete.
func (c *Coordinator) insertArpLocked(tbl *lpm.Table, ifIndex int, addr model.IPv4Key, mac model.MAC, directlyConnected bool) {
	ift := c.neighTableFor(ifIndex)
	ift.Insert(ifIndex, addr, mac, neigh.StateReachable)

	if nhIdx, ok := tbl.LookupExact(addr, 32); ok {
		c.nh.ReplaceInPlace(nhIdx, func(sibs []nexthop.Sibling) {
			for i := range sibs {
				if sibs[i].IfIndex == ifIndex {
					sibs[i].Flags |= nexthop.FlagNeighPresent
				}
			}
		})
		return
	}

	if !directlyConnected {
		return
	}
	_, _, coverNH, ok := tbl.FindCover(addr, 32)
	if !ok {
		return
	}
	coverGroup := c.nh.Get(coverNH)
	if coverGroup == nil {
		return
	}
	anyConnected := false
	for _, s := range coverGroup.Siblings {
		if s.Connected() {
			anyConnected = true
			break
		}
	}
	if !anyConnected {
		return
	}

	newSibs := append([]nexthop.Sibling(nil), coverGroup.Siblings...)
	for i := range newSibs {
		if newSibs[i].IfIndex == ifIndex && newSibs[i].Connected() {
			newSibs[i].Flags |= nexthop.FlagNeighCreated
			newSibs[i].Gateway = addr
		}
	}
	idx, _, err := c.nh.Intern(newSibs, coverGroup.Proto)
	if err != nil {
		vplog.Debugf("arp", "fib: insert_arp failed to create /32 for %s: %v", addr, err)
		return
	}
	if outcome, _ := tbl.Add(addr, 32, idx, model.ScopeLink); outcome != lpm.Success {
		c.nh.Release(idx)
	}
}

// RemoveArp is spec.md §4.6's remove_arp, invoked by the controller when
// a neighbour is removed.
func (c *Coordinator) RemoveArp(ifIndex int, addr model.IPv4Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tbl, _, err := c.resolveTable(vrf.DefaultID, vrf.TableMain)
	if err != nil {
		return
	}
	c.neighTableFor(ifIndex).Remove(ifIndex, addr)

	if nhIdx, ok := tbl.LookupExact(addr, 32); ok {
		g := c.nh.Get(nhIdx)
		neighCreatedCount := 0
		matchIdx := -1
		if g != nil {
			for i, s := range g.Siblings {
				if s.Flags&nexthop.FlagNeighCreated != 0 {
					neighCreatedCount++
					if s.IfIndex == ifIndex && s.Gateway == addr {
						matchIdx = i
					}
				}
			}
		}
		if matchIdx >= 0 {
			if neighCreatedCount <= 1 {
				tbl.Delete(addr, 32, model.ScopeLink)
				c.nh.Release(nhIdx)
			} else {
				c.nh.ReplaceInPlace(nhIdx, func(sibs []nexthop.Sibling) {
					sibs[matchIdx].Flags &^= nexthop.FlagNeighCreated
				})
			}
		} else {
			c.nh.ReplaceInPlace(nhIdx, func(sibs []nexthop.Sibling) {
				for i := range sibs {
					if sibs[i].IfIndex == ifIndex {
						sibs[i].Flags &^= nexthop.FlagNeighPresent
					}
				}
			})
		}
	}

	c.nh.WalkByGateway(addr, func(idx int32, g *nexthop.Group) {
		c.nh.ReplaceInPlace(idx, func(sibs []nexthop.Sibling) {
			for i := range sibs {
				if sibs[i].Gateway == addr {
					sibs[i].Flags &^= nexthop.FlagNeighPresent
				}
			}
		})
	})
}

// InsertArp is spec.md §4.6's insert_arp, invoked by the controller when
// it reports a new or updated neighbour. It takes the route mutex and
// delegates to insertArpLocked, the same entry point linkARP uses after a
// route insert.
func (c *Coordinator) InsertArp(ifIndex int, addr model.IPv4Key, mac model.MAC, directlyConnected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tbl, _, err := c.resolveTable(vrf.DefaultID, vrf.TableMain)
	if err != nil {
		return
	}
	c.insertArpLocked(tbl, ifIndex, addr, mac, directlyConnected)
}
