// Package event implements the fixed-size, lock-free event bus (spec.md
// §4.8 / C8 / GLOSSARY "Event bus"), grounded directly on the source
// dataplane's dp_event.c: a fixed array of subscriber slots, compare-and-set
// registration/deregistration, and a fatal panic on overflow because slot
// exhaustion reflects a build-time miscount, not a runtime condition a
// caller can recover from.
package event

import "github.com/vplaned/dataplane/pkg/rcu"

// Kind enumerates the event kinds spec.md §4.8 lists.
type Kind int

const (
	IfCreate Kind = iota
	IfCreateFinished
	IfDelete
	IfIndexSet
	IfIndexPreUnset
	IfIndexUnset
	IfRename
	IfVRFSet
	IfAddrAdd
	IfAddrDel
	IfMACAddrChange
	IfLinkChange
	IfVLANAdd
	IfVLANDel
	IfHWSwitchingChange
	VRFCreate
	VRFDelete
	ResetConfig
	Init
	Uninit
)

// Event is the fan-out payload. Only the fields relevant to Kind are
// populated; this mirrors the source's single wide event struct rather
// than a Go-style per-kind type switch, since every subscriber callback
// in spec.md §4.8 is keyed by kind already.
type Event struct {
	Kind    Kind
	IfName  string
	OldName string
	IfIndex int
	VRF     int
	Addr    string
}

// Subscriber holds the optional callbacks a registrant wants invoked.
// Nil callbacks are simply skipped for that kind.
type Subscriber struct {
	Name string // for diagnostics only

	OnIfCreate           func(Event)
	OnIfCreateFinished   func(Event)
	OnIfDelete           func(Event)
	OnIfIndexSet         func(Event)
	OnIfIndexPreUnset    func(Event)
	OnIfIndexUnset       func(Event)
	OnIfRename           func(Event)
	OnIfVRFSet           func(Event)
	OnIfAddrAdd          func(Event)
	OnIfAddrDel          func(Event)
	OnIfMACAddrChange    func(Event)
	OnIfLinkChange       func(Event)
	OnIfVLANAdd          func(Event)
	OnIfVLANDel          func(Event)
	OnIfHWSwitchingChange func(Event)
	OnVRFCreate          func(Event)
	OnVRFDelete          func(Event)
	OnResetConfig        func(Event)
	OnInit               func(Event)
	OnUninit             func(Event)
}

func (s *Subscriber) dispatch(k Kind, ev Event) {
	var fn func(Event)
	switch k {
	case IfCreate:
		fn = s.OnIfCreate
	case IfCreateFinished:
		fn = s.OnIfCreateFinished
	case IfDelete:
		fn = s.OnIfDelete
	case IfIndexSet:
		fn = s.OnIfIndexSet
	case IfIndexPreUnset:
		fn = s.OnIfIndexPreUnset
	case IfIndexUnset:
		fn = s.OnIfIndexUnset
	case IfRename:
		fn = s.OnIfRename
	case IfVRFSet:
		fn = s.OnIfVRFSet
	case IfAddrAdd:
		fn = s.OnIfAddrAdd
	case IfAddrDel:
		fn = s.OnIfAddrDel
	case IfMACAddrChange:
		fn = s.OnIfMACAddrChange
	case IfLinkChange:
		fn = s.OnIfLinkChange
	case IfVLANAdd:
		fn = s.OnIfVLANAdd
	case IfVLANDel:
		fn = s.OnIfVLANDel
	case IfHWSwitchingChange:
		fn = s.OnIfHWSwitchingChange
	case VRFCreate:
		fn = s.OnVRFCreate
	case VRFDelete:
		fn = s.OnVRFDelete
	case ResetConfig:
		fn = s.OnResetConfig
	case Init:
		fn = s.OnInit
	case Uninit:
		fn = s.OnUninit
	}
	if fn != nil {
		fn(ev)
	}
}

const maxSubscribers = 256

// Bus is the fixed-size subscriber array. Ordering among subscribers is
// unspecified, as spec.md §4.8 states.
type Bus struct {
	slots [maxSubscribers]rcu.Pointer[Subscriber]
	dom   *rcu.Domain
}

// NewBus creates an event bus backed by the given reclamation domain.
func NewBus(dom *rcu.Domain) *Bus { return &Bus{dom: dom} }

// Register finds the first empty slot via compare-and-set and installs
// sub. Registration never blocks and never retries past a full scan:
// overflow is fatal (panic), reflecting a build-time miscount per §4.8.
func (b *Bus) Register(sub *Subscriber) {
	for i := range b.slots {
		if b.slots[i].CompareAndSwap(nil, sub) {
			return
		}
	}
	panic("event: subscriber array full")
}

// Reset clears every subscriber slot, for the console `reset` verb
// (spec.md §9 "reset tears down and re-initialises the process-wide
// singletons"). Subscribers that self-register on demand (e.g.
// pkg/deferredcfg) re-register the next time they have something to track.
func (b *Bus) Reset() {
	for i := range b.slots {
		b.slots[i].Store(b.dom, nil, nil)
	}
}

// Deregister clears sub's slot via compare-and-set. No-op if sub was
// already removed or never registered.
func (b *Bus) Deregister(sub *Subscriber) {
	for i := range b.slots {
		if b.slots[i].Load() == sub {
			b.slots[i].CompareAndSwap(sub, nil)
			return
		}
	}
}

// Publish iterates the subscriber array under read-side protection,
// invoking each subscriber's matching callback.
func (b *Bus) Publish(ev Event) {
	for i := range b.slots {
		sub := b.slots[i].Load()
		if sub != nil {
			sub.dispatch(ev.Kind, ev)
		}
	}
}
