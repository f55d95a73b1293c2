package model

// L2PacketType classifies a packet's destination MAC as unicast, multicast,
// or broadcast (spec.md §3 "Packet context").
type L2PacketType int

const (
	L2Unicast L2PacketType = iota
	L2Multicast
	L2Broadcast
)

// Packet is the mutable per-traversal state threaded through every
// pipeline node by mutable reference (spec.md §3 "Packet context" /
// §4.7). The payload is an opaque byte buffer. No packet pool exists in
// this repository; Reset clears a Packet for reuse and keeps Payload's
// backing array.
type Packet struct {
	Payload []byte

	InputIfIndex  int
	OutputIfIndex int

	L2Type L2PacketType

	// EtherType as parsed off the Ethernet header, kept here so later
	// nodes (IPv4/IPv6 validate) do not re-parse it.
	EtherType uint16

	// VLANTag is the 802.1Q tag found on ingress, 0 if untagged.
	VLANTag uint16

	// VRF is resolved once the input interface is known.
	VRF int

	// next is the pending successor id, set by a node handler and
	// consumed by the graph walker (pkg/pipeline).
	next int

	// Dropped/consumed marks terminal traversal outcomes so the walker
	// can distinguish "finish after accept" from "finish after drop" for
	// statistics purposes, without encoding that distinction in the
	// successor-id space itself.
	DropReason string
}

// SetNext records the successor id a pipeline node handler decided on, for
// the graph walker to consume (pkg/pipeline).
func (p *Packet) SetNext(id int) { p.next = id }

// Next returns the successor id last set by SetNext.
func (p *Packet) Next() int { return p.next }

// Reset clears a Packet for reuse from a pool.
func (p *Packet) Reset() {
	p.Payload = p.Payload[:0]
	p.InputIfIndex = 0
	p.OutputIfIndex = 0
	p.L2Type = L2Unicast
	p.EtherType = 0
	p.VLANTag = 0
	p.VRF = 0
	p.next = 0
	p.DropReason = ""
}
