package nexthop

import (
	"testing"

	"github.com/vplaned/dataplane/pkg/rcu"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	dom := rcu.NewDomain()
	t.Cleanup(dom.Close)
	return New(dom, nil)
}

func TestInternDedupsEquivalentSiblingSets(t *testing.T) {
	p := newTestPool(t)

	sibs := []Sibling{{IfIndex: 100, Gateway: 0x0A000002, Flags: FlagGateway}}
	idx1, created1, err := p.Intern(sibs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !created1 {
		t.Fatal("expected first intern to create a new group")
	}

	idx2, created2, err := p.Intern(append([]Sibling(nil), sibs...), 2)
	if err != nil {
		t.Fatal(err)
	}
	if created2 {
		t.Fatal("expected second intern of an equivalent set to dedup")
	}
	if idx1 != idx2 {
		t.Fatalf("expected same index, got %d and %d", idx1, idx2)
	}

	g := p.Get(idx1)
	if g.refcount != 2 {
		t.Fatalf("expected refcount=2, got %d", g.refcount)
	}

	p.Release(idx1)
	if p.Get(idx1) == nil {
		t.Fatal("group should still be live with one holder remaining")
	}
	p.Release(idx2)
	if p.Get(idx1) != nil {
		t.Fatal("group should be gone once refcount reaches zero")
	}
}

func TestNeighTransientFlagsExcludedFromHashIdentity(t *testing.T) {
	p := newTestPool(t)
	a := []Sibling{{IfIndex: 1, Gateway: 10, Flags: FlagGateway}}
	b := []Sibling{{IfIndex: 1, Gateway: 10, Flags: FlagGateway | FlagNeighPresent}}

	idxA, _, _ := p.Intern(a, 0)
	idxB, created, _ := p.Intern(b, 0)
	if created {
		t.Fatal("NEIGH_PRESENT must not change hash identity")
	}
	if idxA != idxB {
		t.Fatalf("expected same group, got %d and %d", idxA, idxB)
	}
}

func TestBlackholeGroupExistsAtStartup(t *testing.T) {
	p := newTestPool(t)
	if p.BlackholeIndex == 0 {
		t.Fatal("expected a non-zero blackhole index")
	}
	g := p.Get(p.BlackholeIndex)
	if g == nil || g.Siblings[0].Flags&FlagBlackhole == 0 {
		t.Fatal("expected blackhole group to be blackhole-flagged")
	}
}

func TestSelectECMPCoversBothSiblingsAndRespectsDead(t *testing.T) {
	p := newTestPool(t)
	sibs := []Sibling{
		{IfIndex: 100, Gateway: 1, Flags: FlagGateway},
		{IfIndex: 101, Gateway: 2, Flags: FlagGateway},
	}
	idx, _, _ := p.Intern(sibs, 0)
	g := p.Get(idx)

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		tuple := FiveTuple{SrcPort: uint16(i), DstPort: uint16(i * 7)}
		s := g.Select(tuple, 64)
		if s == nil {
			t.Fatal("expected a sibling")
		}
		seen[s.IfIndex] = true
	}
	if !seen[100] || !seen[101] {
		t.Fatalf("expected ECMP to cover both siblings over many trials, saw %v", seen)
	}

	g.Siblings[0].Flags |= FlagDead
	for i := 0; i < 50; i++ {
		tuple := FiveTuple{SrcPort: uint16(i)}
		s := g.Select(tuple, 64)
		if s == nil || s.IfIndex != 101 {
			t.Fatalf("expected only sibling 101 once sibling 100 is dead, got %+v", s)
		}
	}

	g.Siblings[1].Flags |= FlagDead
	if s := g.Select(FiveTuple{}, 64); s != nil {
		t.Fatalf("expected nil once every sibling is dead, got %+v", s)
	}
}

func TestSelectReturnsNilForNoRoute(t *testing.T) {
	p := newTestPool(t)
	sibs := []Sibling{{IfIndex: 1, Flags: FlagNoRoute}}
	idx, _, _ := p.Intern(sibs, 0)
	g := p.Get(idx)
	if s := g.Select(FiveTuple{}, 64); s != nil {
		t.Fatal("expected nil for a NOROUTE sibling")
	}
}

func TestPoolExhaustionReturnsENOSPC(t *testing.T) {
	dom := rcu.NewDomain()
	defer dom.Close()
	p := &Pool{
		dom:    dom,
		hw:     noopBackend{},
		slots:  make([]rcu.Pointer[Group], 3), // slots[0] unused, 1-2 usable
		byHash: make(map[uint64][]int32),
		rover:  1,
	}
	if _, _, err := p.Intern([]Sibling{{IfIndex: 1}}, 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Intern([]Sibling{{IfIndex: 2}}, 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Intern([]Sibling{{IfIndex: 3}}, 0); err == nil {
		t.Fatal("expected ENOSPC once slots are exhausted")
	}
}
