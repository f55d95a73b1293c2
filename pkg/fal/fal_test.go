package fal

import (
	"testing"

	"github.com/vplaned/dataplane/pkg/nexthop"
)

func TestNoopBackendAlwaysNotNeeded(t *testing.T) {
	var b NoopBackend
	if s := b.NewRoute(0, 0, 24, 0, nil, 0); s != StatusNotNeeded {
		t.Fatalf("expected NOT_NEEDED, got %v", s)
	}
	if s := b.DelRoute(0, 0, 24, 0); s != StatusNotNeeded {
		t.Fatalf("expected NOT_NEEDED, got %v", s)
	}
	_, handles, s := b.NewNextHops([]nexthop.Sibling{{}, {}})
	if s != StatusNotNeeded || len(handles) != 2 {
		t.Fatalf("expected NOT_NEEDED and 2 handles, got %v %v", s, handles)
	}
}

func TestStatusToNextHopStateMapping(t *testing.T) {
	cases := map[Status]nexthop.PDState{
		StatusFull:       nexthop.PDFull,
		StatusNotNeeded:  nexthop.PDNotNeeded,
		StatusNoResource: nexthop.PDNoResource,
		StatusError:      nexthop.PDError,
	}
	for in, want := range cases {
		if got := in.ToNextHopState(); got != want {
			t.Fatalf("status %v: expected %v, got %v", in, want, got)
		}
	}
}

func TestNextHopAdapterDelegatesToBackend(t *testing.T) {
	a := NextHopAdapter{Backend: NoopBackend{}}
	handle, handles, state := a.NewNextHops([]nexthop.Sibling{{}})
	if handle != 0 || len(handles) != 1 || state != nexthop.PDNotNeeded {
		t.Fatalf("unexpected adapter result: %d %v %v", handle, handles, state)
	}
	a.DelNextHops(0, nil, nil) // must not panic
}
