// Package lpm implements the longest-prefix-match trie (spec.md §4.4 /
// C4): scoped rules with promotion/demotion, a lock-free read side, and a
// control-side mutex for writers. The node-replacement-on-write technique
// (readers hold an immutable snapshot pointer; writers build a new
// snapshot and publish it) is grounded on gaissmai-bart's copy-on-write
// node discipline, generalised here to carry spec.md's scope-stacking
// semantics that bart's own route-replace API does not model.
package lpm

import (
	"sort"
	"sync"

	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/rcu"
)

// Outcome is the result of Add/Delete (spec.md §4.4).
type Outcome int

const (
	Success Outcome = iota
	HigherScopeExists
	LowerScopeExists
	AlreadyExists
	NoSpace
)

// PDState mirrors nexthop.PDState's shape for per-rule platform state
// (spec.md §4.4 "Per-rule platform state"); duplicated here rather than
// imported to keep pkg/lpm free of a dependency on pkg/nexthop — both
// packages are leaves with respect to each other and only pkg/fib
// couples them.
type PDState int

const (
	PDFull PDState = iota
	PDNotNeeded
	PDNoResource
	PDError
)

// entry is one scoped rule at a given (key, depth).
type entry struct {
	scope   model.Scope
	nhIndex int32
	state   PDState
	created bool
}

// node holds every coexisting scope at one (key, depth), sorted so
// entries[0] is always the active (highest-scope) rule.
type node struct {
	key     model.IPv4Key
	depth   uint8
	entries []entry // sorted descending by scope
}

func (n *node) active() *entry {
	if len(n.entries) == 0 {
		return nil
	}
	return &n.entries[0]
}

func (n *node) sort() {
	sort.Slice(n.entries, func(i, j int) bool {
		return n.entries[i].scope > n.entries[j].scope
	})
}

type bucketKey struct {
	key   model.IPv4Key
	depth uint8
}

// snapshot is the immutable, read-side trie contents.
type snapshot struct {
	nodes map[bucketKey]*node
}

func newSnapshot() *snapshot { return &snapshot{nodes: make(map[bucketKey]*node)} }

func (s *snapshot) clone() *snapshot {
	n := newSnapshot()
	for k, v := range s.nodes {
		// nodes are copy-on-write too: readers may be mid-traversal of the
		// old node slice, so a write to a node never mutates in place.
		n.nodes[k] = v
	}
	return n
}

// Table is one LPM trie (one per VRF/table-id pair, per spec.md §4 "FIB
// table").
type Table struct {
	mu   sync.RWMutex // protects the rule list; fast-path Lookup never takes it
	snap rcu.Pointer[snapshot]
	dom  *rcu.Domain
}

// New creates an empty table (callers — pkg/fib — are responsible for
// pre-populating the three reserved routes from spec.md §3 immediately
// after construction).
func New(dom *rcu.Domain) *Table {
	t := &Table{dom: dom}
	t.snap.Store(dom, newSnapshot(), nil)
	return t
}

// Lookup is the read-side, lock-free longest-prefix match.
func (t *Table) Lookup(key model.IPv4Key) (int32, bool) {
	s := t.snap.Load()
	for depth := uint8(32); ; depth-- {
		masked := key.Network(depth)
		if n, ok := s.nodes[bucketKey{masked, depth}]; ok {
			if a := n.active(); a != nil {
				return a.nhIndex, true
			}
		}
		if depth == 0 {
			break
		}
	}
	return 0, false
}

// LookupExact returns the active rule at exactly (key, depth), per
// DESIGN.md's resolution of spec.md §9's open question: it never exposes
// a shadowed scope.
func (t *Table) LookupExact(key model.IPv4Key, depth uint8) (int32, bool) {
	s := t.snap.Load()
	n, ok := s.nodes[bucketKey{key.Network(depth), depth}]
	if !ok {
		return 0, false
	}
	if a := n.active(); a != nil {
		return a.nhIndex, true
	}
	return 0, false
}

// RuleCount returns the number of (key,depth,scope) entries in the table,
// used by spec.md §4.4's "rule_count(lpm) == 3 is treated as empty" and
// Testable Property 5.
func (t *Table) RuleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap.Load()
	n := 0
	for _, nd := range s.nodes {
		n += len(nd.entries)
	}
	return n
}

// Add inserts a scoped rule (spec.md §4.4). The caller (pkg/fib) is
// responsible for having already taken a next-hop-group reference for
// nhIndex before calling Add, and for releasing it if Add returns
// AlreadyExists or NoSpace (the only outcomes that do not store the rule).
func (t *Table) Add(key model.IPv4Key, depth uint8, nhIndex int32, scope model.Scope) (Outcome, *DemotedRule) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.snap.Load()
	bk := bucketKey{key.Network(depth), depth}
	existing, ok := s.nodes[bk]

	if ok {
		for _, e := range existing.entries {
			if e.scope == scope {
				return AlreadyExists, nil
			}
		}
	}

	ns := s.clone()
	var n *node
	if ok {
		n = &node{key: existing.key, depth: existing.depth, entries: append([]entry(nil), existing.entries...)}
	} else {
		n = &node{key: bk.key, depth: depth}
	}

	var prevActive *entry
	if a := n.active(); a != nil {
		cp := *a
		prevActive = &cp
	}

	n.entries = append(n.entries, entry{scope: scope, nhIndex: nhIndex, state: PDNotNeeded})
	n.sort()
	ns.nodes[bk] = n
	t.snap.Store(t.dom, ns, nil)

	newActive := n.active()
	switch {
	case prevActive == nil:
		return Success, nil
	case newActive.scope != scope:
		// Our new rule did not outrank the previous active rule — it is
		// shadowed immediately.
		return HigherScopeExists, nil
	case newActive.scope == scope && prevActive.scope < scope:
		// Displaced a previously active, lower-scope rule — it becomes
		// shadowed. Its platform state moves to NOT_NEEDED (spec.md
		// §4.4 "state of the newly-shadowed rule is set to NOT_NEEDED").
		for i := range n.entries {
			if n.entries[i].scope == prevActive.scope {
				n.entries[i].state = PDNotNeeded
			}
		}
		return LowerScopeExists, &DemotedRule{NHIndex: prevActive.nhIndex, Scope: prevActive.scope}
	default:
		return Success, nil
	}
}

// DemotedRule describes a rule that moved from active to shadowed (or vice
// versa) as a side effect of Add/Delete, so pkg/fib can update hardware
// state (update, not delete-then-create) and release/acquire next-hop
// references accordingly.
type DemotedRule struct {
	NHIndex int32
	Scope   model.Scope
}

// Delete removes the rule at (key, depth, scope). If the deleted rule was
// active, the highest remaining shadowed rule (if any) is promoted, and
// its nhIndex is returned as Promoted (spec.md §4.4 "delete of an active
// rule promotes the highest shadowed rule").
func (t *Table) Delete(key model.IPv4Key, depth uint8, scope model.Scope) (Outcome, nhIndexOf int32, promoted *DemotedRule) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.snap.Load()
	bk := bucketKey{key.Network(depth), depth}
	existing, ok := s.nodes[bk]
	if !ok {
		return AlreadyExists, 0, nil
	}

	idx := -1
	for i, e := range existing.entries {
		if e.scope == scope {
			idx = i
			break
		}
	}
	if idx < 0 {
		return AlreadyExists, 0, nil
	}

	wasActive := idx == 0
	removed := existing.entries[idx]

	ns := s.clone()
	n := &node{key: existing.key, depth: existing.depth}
	n.entries = append(n.entries, existing.entries[:idx]...)
	n.entries = append(n.entries, existing.entries[idx+1:]...)

	if len(n.entries) == 0 {
		delete(ns.nodes, bk)
		t.snap.Store(t.dom, ns, nil)
		return Success, removed.nhIndex, nil
	}

	n.sort()
	if wasActive {
		n.entries[0].state = PDNotNeeded // will be overwritten by caller once hw confirms
		promoted = &DemotedRule{NHIndex: n.entries[0].nhIndex, Scope: n.entries[0].scope}
	}
	ns.nodes[bk] = n
	t.snap.Store(t.dom, ns, nil)
	return Success, removed.nhIndex, promoted
}

// SetRuleState updates the PD state (and created flag) of the rule at
// exactly the given scope, used by pkg/fib after it hears back from the
// FAL façade.
func (t *Table) SetRuleState(key model.IPv4Key, depth uint8, scope model.Scope, state PDState, created bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.snap.Load()
	bk := bucketKey{key.Network(depth), depth}
	existing, ok := s.nodes[bk]
	if !ok {
		return
	}
	ns := s.clone()
	n := &node{key: existing.key, depth: existing.depth, entries: append([]entry(nil), existing.entries...)}
	for i := range n.entries {
		if n.entries[i].scope == scope {
			n.entries[i].state = state
			n.entries[i].created = created
		}
	}
	ns.nodes[bk] = n
	t.snap.Store(t.dom, ns, nil)
}

// RuleState returns the PD state/created flag of the active rule at
// (key,depth), used by tests and the console's state-query handler.
func (t *Table) RuleState(key model.IPv4Key, depth uint8) (PDState, bool, bool) {
	s := t.snap.Load()
	n, ok := s.nodes[bucketKey{key.Network(depth), depth}]
	if !ok {
		return 0, false, false
	}
	a := n.active()
	if a == nil {
		return 0, false, false
	}
	return a.state, a.created, true
}

// FindCover returns the most-specific strictly-shorter prefix matching key
// (spec.md §4.4 "find_cover").
func (t *Table) FindCover(key model.IPv4Key, depth uint8) (coverKey model.IPv4Key, coverDepth uint8, nhIndex int32, ok bool) {
	if depth == 0 {
		return 0, 0, 0, false
	}
	s := t.snap.Load()
	for d := depth - 1; ; d-- {
		masked := key.Network(d)
		if n, found := s.nodes[bucketKey{masked, d}]; found {
			if a := n.active(); a != nil {
				return masked, d, a.nhIndex, true
			}
		}
		if d == 0 {
			break
		}
	}
	return 0, 0, 0, false
}

// SubtreeWalk iterates all rules under a prefix (inclusive, i.e. (key,
// depth) itself plus every more-specific rule beneath it) in ascending
// depth order, per spec.md §4.4.
func (t *Table) SubtreeWalk(key model.IPv4Key, depth uint8, cb func(k model.IPv4Key, d uint8, active *Rule)) {
	s := t.snap.Load()
	type found struct {
		k model.IPv4Key
		d uint8
		n *node
	}
	root := key.Network(depth)
	var all []found
	for bk, n := range s.nodes {
		if bk.depth < depth {
			continue
		}
		if bk.key.Network(depth) == root {
			all = append(all, found{bk.key, bk.depth, n})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].d < all[j].d })
	for _, f := range all {
		cb(f.k, f.d, toRule(f.n))
	}
}

// Rule is a read-only view of one (key,depth)'s active entry, returned by
// walk callbacks.
type Rule struct {
	NHIndex int32
	Scope   model.Scope
	State   PDState
	Created bool
}

func toRule(n *node) *Rule {
	a := n.active()
	if a == nil {
		return nil
	}
	return &Rule{NHIndex: a.nhIndex, Scope: a.scope, State: a.state, Created: a.created}
}

// Walk performs a full control-side traversal of active rules.
func (t *Table) Walk(cb func(key model.IPv4Key, depth uint8, r *Rule) bool) {
	s := t.snap.Load()
	type found struct {
		k model.IPv4Key
		d uint8
		n *node
	}
	var all []found
	for bk, n := range s.nodes {
		all = append(all, found{bk.key, bk.depth, n})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].d != all[j].d {
			return all[i].d < all[j].d
		}
		return all[i].k < all[j].k
	})
	for _, f := range all {
		if !cb(f.k, f.d, toRule(f.n)) {
			return
		}
	}
}

// WalkFrom resumes a full traversal starting at (fromKey, fromDepth)
// inclusive, in the same ascending (depth, key) order Walk uses.
func (t *Table) WalkFrom(fromKey model.IPv4Key, fromDepth uint8, cb func(key model.IPv4Key, depth uint8, r *Rule) bool) {
	started := false
	t.Walk(func(key model.IPv4Key, depth uint8, r *Rule) bool {
		if !started {
			if depth < fromDepth || (depth == fromDepth && key < fromKey) {
				return true
			}
			started = true
		}
		return cb(key, depth, r)
	})
}
