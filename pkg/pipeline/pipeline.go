// Package pipeline implements the forwarding pipeline graph (spec.md §4.7 /
// C7): a compile-time-registered node table with two traversal modes
// (dynamic and fused), walked once per packet.
//
// The node/registration shape is grounded on soypat-lneto/internet's
// StackEthernet/StackIP Register+Demux pattern (a handler registry resolved
// once at configure time, then demultiplexed per packet by a numeric key) —
// generalized here from a single-level protocol demux to the graph's
// named-successor and per-attach-point feature-ordering model spec.md §4.7
// describes, since the teacher has no packet-pipeline precedent of its own.
package pipeline

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vplaned/dataplane/pkg/model"
)

// Kind identifies a node's role in the graph (spec.md §3 "Pipeline node").
type Kind int

const (
	KindProc Kind = iota
	KindAttachPoint
	KindFeature
)

// SuccessorID is the id a node handler returns to tell the walker where to
// go next. Finish and Lookup are reserved; every other value is resolved
// through the owning node's Next table (spec.md §4.7 "Packet traversal").
type SuccessorID int

const (
	// Finish terminates the traversal.
	Finish SuccessorID = -1
	// Lookup re-enters the same node (used by Ethernet lookup after VLAN
	// decap, per spec.md §4.7).
	Lookup SuccessorID = -2
)

// Handler runs one node's logic against pkt and returns the next successor.
type Handler func(pkt *model.Packet) SuccessorID

// NodeSpec is a node's static registration record (spec.md §3 "Pipeline
// node": name, kind, handler, feature-change/iterate callbacks,
// successor-node table; feature registrations additionally carry node
// name, attach-point name, visit-order constraints, and a numeric id).
type NodeSpec struct {
	Name    string
	Kind    Kind
	Handler Handler
	// Next maps a non-reserved successor id this node's Handler may return
	// to the name of the node to continue traversal at.
	Next map[SuccessorID]string

	// AttachPoint-only fields.
	// MaskOf returns the 32-bit slot (holding a 16-bit mask) for the given
	// object id (typically an interface index), for atomic enable/disable
	// of this attach point's features (spec.md §4.7 "Feature bitmask
	// update"). Required for KindAttachPoint.
	MaskOf func(objID int) *uint32

	// Feature-only fields.
	AttachPoint string   // name of the owning attach-point node
	FeatureID   int      // bit index into the attach point's 16-bit mask, 0..15
	VisitAfter  []string // feature names that must run before this one
	VisitBefore []string // feature names that must run after this one
}

// Mode selects how an attach point invokes its features (spec.md §4.7
// "Two modes").
type Mode int

const (
	// ModeDynamic reads the per-object feature mask on every packet and
	// invokes only enabled features, in registered (sorted) order.
	ModeDynamic Mode = iota
	// ModeFused behaves exactly like ModeDynamic: both modes use the
	// feature order computed once at Build() time.
	ModeFused
	// ModeFusedNoDynamic additionally skips the per-object mask check:
	// every registered feature runs unconditionally. Used when a graph's
	// feature set is fixed for the process lifetime.
	ModeFusedNoDynamic
)

type node struct {
	spec     NodeSpec
	next     map[SuccessorID]*node
	features []*node // attach points only, sorted by Build()
}

// Graph is a compile-time-registered pipeline: a set of nodes resolved once
// at Build() into direct pointers, then walked per packet with no further
// name lookups (spec.md §4.7 "resolved once at startup into pointers").
type Graph struct {
	mu       sync.Mutex
	maxNodes int
	mode     Mode
	specs    map[string]NodeSpec
	order    []string // registration order, for deterministic tie-breaks
	nodes    map[string]*node
	built    bool
}

// NewGraph creates an empty graph. maxNodes bounds the number of Register
// calls; registering past it panics, matching spec.md §7's "registration
// slot exhaustion in pipeline: panic. These conditions reflect a
// build-time miscount."
func NewGraph(mode Mode, maxNodes int) *Graph {
	return &Graph{
		maxNodes: maxNodes,
		mode:     mode,
		specs:    make(map[string]NodeSpec),
		nodes:    make(map[string]*node),
	}
}

// Register adds a node's static record to the graph. Must be called
// before Build.
func (g *Graph) Register(spec NodeSpec) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.built {
		panic("pipeline: Register called after Build")
	}
	if _, exists := g.specs[spec.Name]; exists {
		panic(fmt.Sprintf("pipeline: duplicate node name %q", spec.Name))
	}
	if len(g.specs) >= g.maxNodes {
		panic(fmt.Sprintf("pipeline: registration slot exhaustion (max %d nodes)", g.maxNodes))
	}
	if spec.Kind == KindAttachPoint && spec.MaskOf == nil {
		panic(fmt.Sprintf("pipeline: attach point %q registered without MaskOf", spec.Name))
	}
	g.specs[spec.Name] = spec
	g.order = append(g.order, spec.Name)
}

// Build resolves every node's Next table to direct pointers and computes
// each attach point's feature visit order (spec.md §4.7 "topologically
// sorted per attach point and compiled into a dense switch" for the fused
// modes; the dynamic mode reuses the same precomputed order since nothing
// about visit-order constraints is actually runtime-dependent).
func (g *Graph) Build() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.built {
		return nil
	}

	for name, spec := range g.specs {
		n := &node{spec: spec, next: make(map[SuccessorID]*node)}
		g.nodes[name] = n
	}
	for name, spec := range g.specs {
		n := g.nodes[name]
		for sid, succName := range spec.Next {
			succ, ok := g.nodes[succName]
			if !ok {
				return fmt.Errorf("pipeline: node %q: successor %q not registered", name, succName)
			}
			n.next[sid] = succ
		}
	}

	featuresByAttachPoint := make(map[string][]string)
	for _, name := range g.order {
		spec := g.specs[name]
		if spec.Kind != KindFeature {
			continue
		}
		if _, ok := g.specs[spec.AttachPoint]; !ok {
			return fmt.Errorf("pipeline: feature %q: attach point %q not registered", name, spec.AttachPoint)
		}
		featuresByAttachPoint[spec.AttachPoint] = append(featuresByAttachPoint[spec.AttachPoint], name)
	}

	for ap, names := range featuresByAttachPoint {
		sorted, err := topoSortFeatures(names, g.specs)
		if err != nil {
			return fmt.Errorf("pipeline: attach point %q: %w", ap, err)
		}
		apNode := g.nodes[ap]
		for _, name := range sorted {
			apNode.features = append(apNode.features, g.nodes[name])
		}
	}

	g.built = true
	return nil
}

// topoSortFeatures orders names by their VisitAfter/VisitBefore
// constraints using Kahn's algorithm, breaking ties by registration order
// (encoded via names' input order) for determinism.
func topoSortFeatures(names []string, specs map[string]NodeSpec) ([]string, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	indegree := make([]int, len(names))
	adj := make([][]int, len(names))
	addEdge := func(from, to int) {
		adj[from] = append(adj[from], to)
		indegree[to]++
	}
	for _, name := range names {
		spec := specs[name]
		to := index[name]
		for _, after := range spec.VisitAfter {
			if from, ok := index[after]; ok {
				addEdge(from, to)
			}
		}
		for _, before := range spec.VisitBefore {
			if t, ok := index[before]; ok {
				addEdge(to, t)
			}
		}
	}

	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	var out []string
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		out = append(out, names[i])
		next := adj[i]
		sort.Ints(next)
		for _, j := range next {
			indegree[j]--
			if indegree[j] == 0 {
				ready = insertSorted(ready, j)
			}
		}
	}
	if len(out) != len(names) {
		return nil, fmt.Errorf("cyclic visit-order constraint among features")
	}
	return out, nil
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

const maxHops = 64

// Walk traverses the graph starting at startNode, mutating pkt in place
// until a node returns Finish or the hop budget is exceeded (a defensive
// bound against a registration bug forming a successor cycle — spec.md
// does not call for one explicitly, but an unbounded walk is not an
// acceptable fast-path failure mode).
func (g *Graph) Walk(pkt *model.Packet, startNode string) error {
	if !g.built {
		return fmt.Errorf("pipeline: Walk called before Build")
	}
	cur, ok := g.nodes[startNode]
	if !ok {
		return fmt.Errorf("pipeline: unknown start node %q", startNode)
	}

	for hop := 0; hop < maxHops; hop++ {
		sid := g.invoke(cur, pkt)
		switch sid {
		case Finish:
			return nil
		case Lookup:
			continue
		default:
			succ, ok := cur.next[sid]
			if !ok {
				return fmt.Errorf("pipeline: node %q: no successor registered for id %d", cur.spec.Name, sid)
			}
			cur = succ
		}
	}
	return fmt.Errorf("pipeline: exceeded %d hops starting at %q (successor cycle?)", maxHops, startNode)
}

func (g *Graph) invoke(n *node, pkt *model.Packet) SuccessorID {
	switch n.spec.Kind {
	case KindAttachPoint:
		return g.invokeAttachPoint(n, pkt)
	default:
		if n.spec.Handler == nil {
			return Finish
		}
		return n.spec.Handler(pkt)
	}
}

// invokeAttachPoint runs an attach point's enabled features in visit order
// (spec.md §4.7 step 1: "If any feature returns finish, stop"), then falls
// through to the attach point's own handler for whatever node-specific
// logic follows (e.g. the Ethernet-lookup node's MAC classification).
func (g *Graph) invokeAttachPoint(n *node, pkt *model.Packet) SuccessorID {
	var mask uint32
	checkMask := g.mode != ModeFusedNoDynamic
	if checkMask {
		mask = loadMask(n.spec.MaskOf(pkt.InputIfIndex))
	}
	for _, f := range n.features {
		if checkMask && mask&(1<<uint(f.spec.FeatureID)) == 0 {
			continue
		}
		if f.spec.Handler == nil {
			continue
		}
		if f.spec.Handler(pkt) == Finish {
			return Finish
		}
	}
	if n.spec.Handler == nil {
		return Finish
	}
	return n.spec.Handler(pkt)
}

// SetFeature enables or disables feature on attachPoint for objID, via an
// atomic or/and on the object's mask slot (spec.md §4.7 "feat_change on an
// attach point performs an atomic or/and on the per-object 16-bit mask;
// concurrent readers tolerate a racy read").
func (g *Graph) SetFeature(attachPoint string, objID int, featureID int, enable bool) error {
	g.mu.Lock()
	n, ok := g.nodes[attachPoint]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("pipeline: unknown attach point %q", attachPoint)
	}
	if n.spec.Kind != KindAttachPoint {
		return fmt.Errorf("pipeline: %q is not an attach point", attachPoint)
	}
	bit := uint32(1) << uint(featureID)
	slot := n.spec.MaskOf(objID)
	if enable {
		orMask(slot, bit)
	} else {
		andMask(slot, ^bit)
	}
	return nil
}

// IterateFeatures implements spec.md §4.7's feat_iterate hook: returns the
// next enabled feature's id for objID at or after cursor, and the cursor to
// resume from, or ok=false once the feature list is exhausted.
func (g *Graph) IterateFeatures(attachPoint string, objID int, cursor int) (featureID int, next int, ok bool) {
	g.mu.Lock()
	n, found := g.nodes[attachPoint]
	g.mu.Unlock()
	if !found || n.spec.Kind != KindAttachPoint {
		return 0, 0, false
	}
	mask := loadMask(n.spec.MaskOf(objID))
	for i := cursor; i < len(n.features); i++ {
		f := n.features[i]
		if mask&(1<<uint(f.spec.FeatureID)) != 0 {
			return f.spec.FeatureID, i + 1, true
		}
	}
	return 0, 0, false
}

func loadMask(p *uint32) uint32 {
	return atomic.LoadUint32(p)
}

func orMask(p *uint32, bits uint32) {
	for {
		old := atomic.LoadUint32(p)
		if atomic.CompareAndSwapUint32(p, old, old|bits) {
			return
		}
	}
}

func andMask(p *uint32, bits uint32) {
	for {
		old := atomic.LoadUint32(p)
		if atomic.CompareAndSwapUint32(p, old, old&bits) {
			return
		}
	}
}
