// Package nodes holds the illustrative pipeline nodes spec.md §4.7
// describes by design rather than by exact algorithm: an Ethernet-lookup
// attach point and an IPv4-forward processing node, each grounded on the
// already-built C2/C4/C5 coordinators they read from.
package nodes

import (
	"github.com/vplaned/dataplane/pkg/fib"
	"github.com/vplaned/dataplane/pkg/ifnet"
	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/nexthop"
	"github.com/vplaned/dataplane/pkg/pipeline"
)

// EthernetLookupSlot is the FeatureMask array index this node's attach
// point uses (spec.md §3 "one 16-bit mask per attach point").
const EthernetLookupSlot = 0

const (
	successorAccept pipeline.SuccessorID = iota + 1
	successorDrop
)

// NewEthernetLookupNode builds the Ethernet-lookup attach point (spec.md
// §4.7 "Ethernet-lookup node (illustrative)"). acceptNode/dropNode are the
// node names to continue traversal at on steps 5/4 respectively; features
// are registered separately against the "ethernet-lookup" attach point
// name this function fixes.
func NewEthernetLookupNode(table *ifnet.Table, acceptNode, dropNode string) pipeline.NodeSpec {
	return pipeline.NodeSpec{
		Name: "ethernet-lookup",
		Kind: pipeline.KindAttachPoint,
		MaskOf: func(objID int) *uint32 {
			ifp, ok := table.LookupByIndex(objID)
			if !ok {
				var discard uint32
				return &discard
			}
			return &ifp.FeatureMask[EthernetLookupSlot]
		},
		Handler: func(pkt *model.Packet) pipeline.SuccessorID {
			return ethernetLookup(table, pkt)
		},
		Next: map[pipeline.SuccessorID]string{
			successorAccept: acceptNode,
			successorDrop:   dropNode,
		},
	}
}

// ethernetLookup implements steps 2-5 of the illustrative algorithm; step 1
// (feature invocation) already ran in Graph.invokeAttachPoint before this
// Handler is called.
func ethernetLookup(table *ifnet.Table, pkt *model.Packet) pipeline.SuccessorID {
	ifp, ok := table.LookupByIndex(pkt.InputIfIndex)
	if !ok {
		pkt.DropReason = "no-interface"
		return successorDrop
	}

	switch pkt.L2Type {
	case model.L2Multicast:
		// Flooding to macvlans is a bridge/multicast-subsystem concern
		// outside this illustrative node's scope; tagging is enough to
		// let the next stage decide.
	case model.L2Broadcast:
	default:
		// Unicast not matching the port's own MAC would attempt macvlan
		// demux here; left to the caller's macvlan-aware variant since
		// this node has no macvlan sub-table of its own.
	}

	if pkt.VLANTag != 0 {
		if sub, ok := lookupVLANSubInterface(table, ifp.Index, pkt.VLANTag); ok {
			pkt.InputIfIndex = sub.Index
			pkt.VLANTag = 0
			return pipeline.Lookup
		}
	}

	if ifp.Flags&ifnet.FlagUp == 0 {
		pkt.DropReason = "admin-down"
		return successorDrop
	}

	return successorAccept
}

// lookupVLANSubInterface finds the VLAN sub-interface of parent carrying
// tag, by linear scan of the table (ifnet keeps no parent->VLAN index of
// its own; this node builds the lookup spec.md §4.7 step 3 needs on top of
// Table.Walk).
func lookupVLANSubInterface(table *ifnet.Table, parent int, tag uint16) (*ifnet.Interface, bool) {
	var found *ifnet.Interface
	table.Walk(func(ifp *ifnet.Interface) bool {
		if ifp.ParentIndex == parent && ifp.VLANTag == int(tag) {
			found = ifp
			return false
		}
		return true
	})
	return found, found != nil
}

// NewIPv4ForwardNode builds a processing node that resolves an IPv4
// destination through the FIB/ECMP coordinator (grounded on
// fib.Coordinator.LookupForward, which already performs the 5-tuple ECMP
// selection spec.md §4.3 describes) and sets the packet's output
// interface. dropNode is the node to continue at when no route or nexthop
// exists.
func NewIPv4ForwardNode(coord *fib.Coordinator, dropNode string) pipeline.NodeSpec {
	return pipeline.NodeSpec{
		Name: "ipv4-forward",
		Kind: pipeline.KindProc,
		Handler: func(pkt *model.Packet) pipeline.SuccessorID {
			return ipv4Forward(coord, pkt)
		},
		Next: map[pipeline.SuccessorID]string{
			successorDrop: dropNode,
		},
	}
}

func ipv4Forward(coord *fib.Coordinator, pkt *model.Packet) pipeline.SuccessorID {
	hdr, ok := parseIPv4(pkt.Payload)
	if !ok {
		pkt.DropReason = "malformed-ipv4"
		return successorDrop
	}

	tuple := nexthop.FiveTuple{
		SrcAddr: hdr.src,
		DstAddr: hdr.dst,
		Proto:   hdr.proto,
	}
	sib := coord.LookupForward(uint32(pkt.VRF), hdr.dst, tuple)
	if sib == nil {
		pkt.DropReason = "no-route"
		return successorDrop
	}

	pkt.OutputIfIndex = sib.IfIndex
	return pipeline.Finish
}

type ipv4Header struct {
	src, dst model.IPv4Key
	proto    uint8
}

// parseIPv4 reads just the fields ECMP hashing and FIB lookup need; it does
// not validate checksums or options, which belong to a full IPv4-validate
// node this illustrative forwarder assumes already ran.
func parseIPv4(payload []byte) (ipv4Header, bool) {
	if len(payload) < 20 {
		return ipv4Header{}, false
	}
	var src, dst [4]byte
	copy(src[:], payload[12:16])
	copy(dst[:], payload[16:20])
	return ipv4Header{
		src:   model.IPv4KeyFromBytes(src),
		dst:   model.IPv4KeyFromBytes(dst),
		proto: payload[9],
	}, true
}
