package neigh

import (
	"testing"

	"github.com/vplaned/dataplane/pkg/model"
)

func TestInsertLookupRemove(t *testing.T) {
	tbl := New()
	addr := model.IPv4KeyFromBytes([4]byte{10, 0, 0, 7})
	tbl.Insert(100, addr, model.MAC{0x02, 0, 0, 0, 0, 1}, StateReachable)

	e, ok := tbl.Lookup(100, addr)
	if !ok || e.State != StateReachable {
		t.Fatalf("expected reachable entry, got %+v ok=%v", e, ok)
	}

	tbl.Remove(100, addr)
	if _, ok := tbl.Lookup(100, addr); ok {
		t.Fatal("expected entry gone after remove")
	}
}

func TestWalkOnlyVisitsGivenInterface(t *testing.T) {
	tbl := New()
	tbl.Insert(100, model.IPv4KeyFromBytes([4]byte{10, 0, 0, 1}), model.MAC{}, StateReachable)
	tbl.Insert(200, model.IPv4KeyFromBytes([4]byte{10, 0, 0, 2}), model.MAC{}, StateReachable)

	var seen []int
	tbl.Walk(100, func(e *Entry) bool {
		seen = append(seen, e.IfIndex)
		return true
	})
	if len(seen) != 1 || seen[0] != 100 {
		t.Fatalf("expected only ifindex 100 visited, got %v", seen)
	}
}

func TestWalkAllVisitsEveryInterface(t *testing.T) {
	tbl := New()
	tbl.Insert(100, model.IPv4KeyFromBytes([4]byte{10, 0, 0, 1}), model.MAC{}, StateReachable)
	tbl.Insert(200, model.IPv4KeyFromBytes([4]byte{10, 0, 0, 2}), model.MAC{}, StateReachable)

	count := 0
	tbl.WalkAll(func(e *Entry) bool {
		count++
		return true
	})
	if count != 2 {
		t.Fatalf("expected 2 entries, got %d", count)
	}
}
