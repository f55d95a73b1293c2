package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vplaned/dataplane/pkg/deferredcfg"
	"github.com/vplaned/dataplane/pkg/event"
	"github.com/vplaned/dataplane/pkg/fal"
	"github.com/vplaned/dataplane/pkg/fib"
	"github.com/vplaned/dataplane/pkg/ifnet"
	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/nexthop"
	"github.com/vplaned/dataplane/pkg/pipeline"
	"github.com/vplaned/dataplane/pkg/rcu"
	"github.com/vplaned/dataplane/pkg/vrf"
)

func newTestEnv(t *testing.T) (*Dispatcher, *fib.Coordinator) {
	t.Helper()
	dom := rcu.NewDomain()
	t.Cleanup(dom.Close)
	bus := event.NewBus(dom)
	vrfs := vrf.New(dom)
	nh := nexthop.New(dom, nil)
	coord := fib.New(vrfs, nh, fal.NoopBackend{}, 16)
	ifaces := ifnet.New(dom, bus)
	deferred := deferredcfg.New(bus, func(string, deferredcfg.Command) {})

	d := NewDispatcher(dom, nil)
	RegisterCoreVerbs(d, coord, ifaces, deferred, nil)
	return d, coord
}

func TestHelpListsRegisteredVerbs(t *testing.T) {
	d, _ := newTestEnv(t)
	status, payload := d.Dispatch("help")
	if status != 0 {
		t.Fatalf("unexpected status: %d", status)
	}
	if !strings.Contains(string(payload), `"route"`) {
		t.Fatalf("expected route verb listed, got %s", payload)
	}
}

func TestEcmpShowAndSet(t *testing.T) {
	d, _ := newTestEnv(t)
	status, payload := d.Dispatch("ecmp")
	if status != 0 || string(payload) != `{"max_path":16}` {
		t.Fatalf("unexpected ecmp show: status=%d payload=%s", status, payload)
	}

	status, payload = d.Dispatch("ecmp 8")
	if status != 0 || string(payload) != `{"max_path":8}` {
		t.Fatalf("unexpected ecmp set: status=%d payload=%s", status, payload)
	}
}

func TestIncompleteReportsDeferredCounters(t *testing.T) {
	d, _ := newTestEnv(t)
	status, payload := d.Dispatch("incomplete")
	if status != 0 {
		t.Fatalf("unexpected status: %d", status)
	}
	if !strings.Contains(string(payload), "missed_add") {
		t.Fatalf("expected missed_add field, got %s", payload)
	}
}

func TestVRFListsDefaultVRF(t *testing.T) {
	d, _ := newTestEnv(t)
	status, payload := d.Dispatch("vrf")
	if status != 0 || !strings.Contains(string(payload), `"name":"default"`) {
		t.Fatalf("expected default VRF listed: status=%d payload=%s", status, payload)
	}
}

func TestPeripheralVerbReturnsNonZero(t *testing.T) {
	d, _ := newTestEnv(t)
	status, payload := d.Dispatch("mpls show")
	if status == 0 {
		t.Fatal("expected non-zero status for unimplemented verb")
	}
	if !bytes.Contains(payload, []byte("not implemented")) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestPipelineVerbWithoutGraphConfigured(t *testing.T) {
	d, _ := newTestEnv(t)
	status, payload := d.Dispatch("pipeline show ethernet-lookup 1")
	if status == 0 {
		t.Fatal("expected non-zero status when no pipeline graph is configured")
	}
	if !bytes.Contains(payload, []byte("not configured")) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestPipelineFeatureEnableAndShow(t *testing.T) {
	var mask uint32
	g := pipeline.NewGraph(pipeline.ModeDynamic, 8)
	g.Register(pipeline.NodeSpec{
		Name:   "ethernet-lookup",
		Kind:   pipeline.KindAttachPoint,
		MaskOf: func(objID int) *uint32 { return &mask },
	})
	g.Register(pipeline.NodeSpec{Name: "capture", Kind: pipeline.KindFeature, AttachPoint: "ethernet-lookup", FeatureID: 3})
	if err := g.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	d := NewDispatcher(nil, nil)
	RegisterCoreVerbs(d, fib.New(vrf.New(rcu.NewDomain()), nexthop.New(rcu.NewDomain(), nil), fal.NoopBackend{}, 16), ifnet.New(rcu.NewDomain(), nil), nil, g)

	status, payload := d.Dispatch("pipeline feature ethernet-lookup 1 3 on")
	if status != 0 || string(payload) != `{"result":"ok"}` {
		t.Fatalf("unexpected feature-enable result: status=%d payload=%s", status, payload)
	}

	status, payload = d.Dispatch("pipeline show ethernet-lookup 1")
	if status != 0 || string(payload) != `{"enabled":[3]}` {
		t.Fatalf("unexpected show result: status=%d payload=%s", status, payload)
	}
}

func TestRouteGetReturnsNoRouteWhenEmpty(t *testing.T) {
	d, _ := newTestEnv(t)
	status, payload := d.Dispatch("route get 0 10.0.0.1")
	if status != 0 || string(payload) != `{"result":"no route"}` {
		t.Fatalf("unexpected route get: status=%d payload=%s", status, payload)
	}
}

// TestResetEmptiesState exercises spec.md S6: after `reset`, a subsequent
// `show`/`route`/`vrf` query observes empty state, and `reset` is honored
// as ASYNC without requiring a trailing "&" on the command line.
func TestResetEmptiesState(t *testing.T) {
	d, coord := newTestEnv(t)

	stop := make(chan struct{})
	go d.RunControlLoop(stop)
	defer close(stop)

	addr := model.IPv4KeyFromBytes([4]byte{10, 0, 0, 0})
	if _, err := coord.Insert(vrf.DefaultID, addr, 24, vrf.TableMain, model.ScopeUniverse, 0,
		[]nexthop.Sibling{{IfIndex: 5, Gateway: model.IPv4KeyFromBytes([4]byte{10, 0, 0, 1})}}, false); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	status, payload := d.Dispatch("route get 0 10.0.0.1")
	if status != 0 || string(payload) == `{"result":"no route"}` {
		t.Fatalf("expected route to resolve before reset, got status=%d payload=%s", status, payload)
	}

	status, payload = d.Dispatch("reset")
	if status != 0 || string(payload) != `{"queued":true}` {
		t.Fatalf("expected reset to be queued without '&', got status=%d payload=%s", status, payload)
	}

	deadline := time.Now().Add(time.Second)
	for {
		_, routePayload := d.Dispatch("route get 0 10.0.0.1")
		if string(routePayload) == `{"result":"no route"}` {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reset did not empty route state in time, last payload=%s", routePayload)
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, vrfPayload := d.Dispatch("vrf")
	if !strings.Contains(string(vrfPayload), `"refcount":0`) {
		t.Fatalf("expected default VRF with zero refcount after reset, got %s", vrfPayload)
	}

	_, showPayload := d.Dispatch("show")
	if string(showPayload) != `{"fal":{"full":0,"not_needed":0,"no_resource":0,"error":0}}` {
		t.Fatalf("expected empty FAL stats after reset, got %s", showPayload)
	}
}
