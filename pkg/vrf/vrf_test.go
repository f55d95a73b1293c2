package vrf

import (
	"testing"

	"github.com/vplaned/dataplane/pkg/rcu"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dom := rcu.NewDomain()
	t.Cleanup(dom.Close)
	return New(dom)
}

func TestDefaultVRFExistsAtStartup(t *testing.T) {
	r := newTestRegistry(t)
	v, ok := r.Lookup(DefaultID)
	if !ok || v.Name != "default" {
		t.Fatalf("expected default VRF present, got %+v ok=%v", v, ok)
	}
}

func TestNonDefaultVRFIsLazilyCreated(t *testing.T) {
	r := newTestRegistry(t)
	if _, ok := r.Lookup(42); ok {
		t.Fatal("VRF 42 should not exist before first use")
	}
	_, v, _, err := r.Table(42, TableMain)
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != 42 {
		t.Fatalf("expected VRF 42, got %d", v.ID)
	}
	if _, ok := r.Lookup(42); !ok {
		t.Fatal("expected VRF 42 to now be registered")
	}
}

func TestTableCreatedFlagOnlyTrueOnce(t *testing.T) {
	r := newTestRegistry(t)
	_, _, created1, _ := r.Table(DefaultID, TableMain)
	_, _, created2, _ := r.Table(DefaultID, TableMain)
	if !created1 {
		t.Fatal("expected created=true on first Table() call")
	}
	if created2 {
		t.Fatal("expected created=false once the table already exists")
	}
}

func TestLocalTableAliasesToMain(t *testing.T) {
	r := newTestRegistry(t)
	tMain, _, _, _ := r.Table(DefaultID, TableMain)
	tLocal, _, _, _ := r.Table(DefaultID, TableLocal)
	if tMain != tLocal {
		t.Fatal("expected RT_LOCAL to alias RT_MAIN")
	}
}

func TestUnspecTableRejected(t *testing.T) {
	r := newTestRegistry(t)
	if _, _, _, err := r.Table(DefaultID, TableUnspec); err == nil {
		t.Fatal("expected RT_TABLE_UNSPEC to be rejected")
	}
}

func TestNonMainTableInNonDefaultVRFAliasesDefaultVRF(t *testing.T) {
	r := newTestRegistry(t)
	const policyTable = 100

	tblInVRF10, _, _, _ := r.Table(10, policyTable)
	tblInDefault, _, _, _ := r.Table(DefaultID, policyTable)
	if tblInVRF10 != tblInDefault {
		t.Fatal("expected non-main table in a non-default VRF to alias the default VRF's table")
	}
}

func TestNonDefaultVRFDestroyedWhenRefcountReachesZero(t *testing.T) {
	r := newTestRegistry(t)
	_, v, _, _ := r.Table(7, TableMain)
	r.AddRouteRef(v)
	if _, ok := r.Lookup(7); !ok {
		t.Fatal("expected VRF 7 present while referenced")
	}
	r.ReleaseRouteRef(v)
	if _, ok := r.Lookup(7); ok {
		t.Fatal("expected VRF 7 removed once its last route reference is released")
	}
}

func TestDefaultVRFSurvivesZeroRefcount(t *testing.T) {
	r := newTestRegistry(t)
	def, _ := r.Lookup(DefaultID)
	r.AddRouteRef(def)
	r.ReleaseRouteRef(def)
	if _, ok := r.Lookup(DefaultID); !ok {
		t.Fatal("default VRF must never be destroyed")
	}
}
