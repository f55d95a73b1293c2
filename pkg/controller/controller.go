// Package controller implements the controller-channel adapter (spec.md
// §6 / SPEC_FULL §4 C12): it subscribes to a Redis pub/sub channel
// carrying JSON-encoded netlink-like messages and applies them to the
// interface table (C2), FIB coordinator (C5, which embeds C3/C6), and VRF
// registry.
//
// The decode-then-apply split follows pkg/device.ConfigDBClient's own
// separation of "read the wire format" from "populate local state"
// (configdb.go's GetAll/parseEntry), adapted from a one-shot config pull
// to a streaming pub/sub decode loop since nothing in the teacher
// subscribes to a channel. Reconnect/backoff is original engineering
// grounded on spec.md's own wording (no pack repo ships an importable
// backoff helper: soypat-lneto/internal/backoff.go exists but lives in an
// internal package of an example repo, so it cannot be imported — see
// DESIGN.md).
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/vplaned/dataplane/pkg/deferredcfg"
	"github.com/vplaned/dataplane/pkg/fib"
	"github.com/vplaned/dataplane/pkg/ifnet"
	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/nexthop"
	"github.com/vplaned/dataplane/pkg/vplog"
	"github.com/vplaned/dataplane/pkg/vrf"
)

// Envelope is the wire format of one controller-channel message (spec.md
// §6): a kind tag plus a kind-specific JSON payload.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// LinkMessage carries an interface-table mutation (spec.md §4.2).
type LinkMessage struct {
	Op          string `json:"op"` // add, del, up, down, rename, set_vrf, set_mtu, set_mac
	Name        string `json:"name"`
	NewName     string `json:"new_name,omitempty"`
	Index       int    `json:"index,omitempty"`
	MTU         int    `json:"mtu,omitempty"`
	MAC         string `json:"mac,omitempty"`
	VRF         int    `json:"vrf,omitempty"`
	ParentIndex int    `json:"parent_index,omitempty"`
	VLANTag     int    `json:"vlan_tag,omitempty"`
}

// AddrMessage carries an address add/remove referenced by interface name
// (spec.md §3 "Address"). ifnet.Interface carries no address list; this
// adapter's job is solely to decide whether the
// message can be applied now or must wait for the interface to exist,
// exercising the deferred-config cache (C9) spec.md §4.9 describes for
// exactly this "stale reference" case.
type AddrMessage struct {
	Op      string `json:"op"` // add, del
	IfName  string `json:"if_name"`
	Address string `json:"address"`
}

// RouteMessage carries a FIB mutation (spec.md §4.5).
type RouteMessage struct {
	Op      string        `json:"op"` // add, del
	VRF     uint32        `json:"vrf"`
	Dst     string        `json:"dst"`
	Depth   uint8         `json:"depth"`
	TableID uint32        `json:"table_id,omitempty"`
	Scope   uint8         `json:"scope"`
	Proto   int           `json:"proto,omitempty"`
	Replace bool          `json:"replace,omitempty"`
	Paths   []SiblingMsg  `json:"paths,omitempty"`
}

// SiblingMsg is one ECMP path within a RouteMessage.
type SiblingMsg struct {
	Gateway string `json:"gateway,omitempty"`
	IfIndex int    `json:"if_index"`
}

// NeighMessage carries an ARP/neighbour-table mutation (spec.md §4.6).
type NeighMessage struct {
	Op        string `json:"op"` // insert, remove
	IfIndex   int    `json:"if_index"`
	Addr      string `json:"addr"`
	MAC       string `json:"mac,omitempty"`
	Connected bool   `json:"connected,omitempty"`
}

// VRFMessage announces or renames a VRF (spec.md §3 "VRF").
type VRFMessage struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// Dispatch applies decoded controller messages to the dataplane's
// control-side state. Each Apply call is expected to run from the single
// goroutine that drains the subscription, preserving the ordering C1's
// mutex discipline assumes.
type Dispatch struct {
	Ifaces   *ifnet.Table
	FIB      *fib.Coordinator
	Deferred *deferredcfg.Cache
}

// NewDispatch wires a Dispatch. deferred may be nil, in which case
// messages naming an interface that does not yet exist are rejected with
// an error instead of queued for replay (acceptable for tests that don't
// care about that path).
func NewDispatch(ifaces *ifnet.Table, coord *fib.Coordinator, deferred *deferredcfg.Cache) *Dispatch {
	return &Dispatch{Ifaces: ifaces, FIB: coord, Deferred: deferred}
}

// Apply decodes env's payload per its kind and applies it.
func (d *Dispatch) Apply(env Envelope) error {
	switch env.Kind {
	case "link":
		var msg LinkMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("controller: decode link: %w", err)
		}
		vplog.Debugf("nl_link", "controller: link %s %s", msg.Op, msg.Name)
		return d.applyLink(msg)
	case "addr":
		var msg AddrMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("controller: decode addr: %w", err)
		}
		vplog.Debugf("nl_addr", "controller: addr %s %s on %s", msg.Op, msg.Address, msg.IfName)
		return d.applyAddr(msg)
	case "route":
		var msg RouteMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("controller: decode route: %w", err)
		}
		vplog.Debugf("nl_route", "controller: route %s %s/%d vrf=%d", msg.Op, msg.Dst, msg.Depth, msg.VRF)
		return d.applyRoute(msg)
	case "neigh":
		var msg NeighMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("controller: decode neigh: %w", err)
		}
		vplog.Debugf("nl_neigh", "controller: neigh %s %s on if %d", msg.Op, msg.Addr, msg.IfIndex)
		return d.applyNeigh(msg)
	case "vrf":
		var msg VRFMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("controller: decode vrf: %w", err)
		}
		vplog.Debugf("nl_vrf", "controller: vrf %d %q", msg.ID, msg.Name)
		return d.applyVRF(msg)
	case "policy", "sa":
		// No ACL/IPsec SA subsystem exists in this repo's scope (see
		// DESIGN.md, dropped teacher modules); accepted and ignored so a
		// controller emitting the full §6 kind set never sees a decode
		// error for kinds this dataplane doesn't model state for.
		return nil
	default:
		return fmt.Errorf("controller: unknown message kind %q", env.Kind)
	}
}

func (d *Dispatch) applyLink(msg LinkMessage) error {
	switch msg.Op {
	case "add":
		ifp, ok := d.Ifaces.LookupByName(msg.Name)
		if !ok {
			var mac [6]byte
			if msg.MAC != "" {
				parsed, err := parseMAC(msg.MAC)
				if err != nil {
					return err
				}
				mac = parsed
			}
			var err error
			ifp, err = d.Ifaces.Allocate(msg.Name, ifnet.TypeEthernet, msg.MTU, mac)
			if err != nil {
				return fmt.Errorf("controller: link add %q: %w", msg.Name, err)
			}
		}
		if msg.Index != 0 {
			d.Ifaces.SetIndex(ifp, msg.Index)
		}
		return nil
	case "del":
		ifp, ok := d.Ifaces.LookupByName(msg.Name)
		if !ok {
			return nil
		}
		d.Ifaces.UnsetIndex(ifp)
		return nil
	case "up", "down":
		ifp, ok := d.Ifaces.LookupByName(msg.Name)
		if !ok {
			return d.deferLink(msg)
		}
		flags := ifp.Flags
		if msg.Op == "up" {
			flags |= ifnet.FlagUp
		} else {
			flags &^= ifnet.FlagUp
		}
		d.Ifaces.SetFlags(ifp, flags)
		return nil
	case "rename":
		ifp, ok := d.Ifaces.LookupByName(msg.Name)
		if !ok {
			return d.deferLink(msg)
		}
		return d.Ifaces.Rename(ifp, msg.NewName)
	case "set_vrf":
		ifp, ok := d.Ifaces.LookupByName(msg.Name)
		if !ok {
			return d.deferLink(msg)
		}
		d.Ifaces.SetVRF(ifp, msg.VRF)
		return nil
	case "set_mtu":
		ifp, ok := d.Ifaces.LookupByName(msg.Name)
		if !ok {
			return d.deferLink(msg)
		}
		return d.Ifaces.SetMTU(ifp, msg.MTU, false)
	case "set_mac":
		ifp, ok := d.Ifaces.LookupByName(msg.Name)
		if !ok {
			return d.deferLink(msg)
		}
		mac, err := parseMAC(msg.MAC)
		if err != nil {
			return err
		}
		return d.Ifaces.SetL2Address(ifp, mac)
	default:
		return fmt.Errorf("controller: unknown link op %q", msg.Op)
	}
}

// deferLink records msg for replay once an interface by this name first
// receives an index (spec.md §4.9's stale-reference handling), or returns
// an error if this Dispatch has no deferred-config cache configured.
func (d *Dispatch) deferLink(msg LinkMessage) error {
	if d.Deferred == nil {
		return fmt.Errorf("controller: link %s on unknown interface %q (no deferred-config cache configured)", msg.Op, msg.Name)
	}
	argv, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	d.Deferred.Defer(msg.Name, deferredcfg.Command{Op: deferredcfg.OpUpdate, Argv: []string{"link", string(argv)}})
	return nil
}

func (d *Dispatch) applyAddr(msg AddrMessage) error {
	ifp, ok := d.Ifaces.LookupByName(msg.IfName)
	if !ok || ifp.Pending() {
		if d.Deferred == nil {
			return fmt.Errorf("controller: addr %s on unknown interface %q (no deferred-config cache configured)", msg.Op, msg.IfName)
		}
		argv, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		op := deferredcfg.OpAdd
		if msg.Op == "del" {
			op = deferredcfg.OpDel
		}
		d.Deferred.Defer(msg.IfName, deferredcfg.Command{Op: op, Argv: []string{"addr", string(argv)}})
		return nil
	}
	// ifnet.Interface has no per-interface address list; the interface is
	// resolved and the message accepted, but there is nowhere further to
	// record it.
	return nil
}

func (d *Dispatch) applyRoute(msg RouteMessage) error {
	dst, err := parseIPv4(msg.Dst)
	if err != nil {
		return err
	}
	tableID := msg.TableID
	if tableID == 0 {
		tableID = vrf.TableMain
	}
	if msg.Op == "del" {
		return d.FIB.Delete(msg.VRF, dst, msg.Depth, tableID, model.Scope(msg.Scope))
	}

	siblings := make([]nexthop.Sibling, 0, len(msg.Paths))
	for _, p := range msg.Paths {
		var gw model.IPv4Key
		if p.Gateway != "" {
			gw, err = parseIPv4(p.Gateway)
			if err != nil {
				return err
			}
		}
		flags := nexthop.FlagGateway
		if gw == 0 {
			flags = 0
		}
		siblings = append(siblings, nexthop.Sibling{Gateway: gw, IfIndex: p.IfIndex, Flags: flags})
	}
	_, err = d.FIB.Insert(msg.VRF, dst, msg.Depth, tableID, model.Scope(msg.Scope), msg.Proto, siblings, msg.Replace)
	return err
}

func (d *Dispatch) applyNeigh(msg NeighMessage) error {
	addr, err := parseIPv4(msg.Addr)
	if err != nil {
		return err
	}
	if msg.Op == "remove" {
		d.FIB.RemoveArp(msg.IfIndex, addr)
		return nil
	}
	mac, err := parseMAC(msg.MAC)
	if err != nil {
		return err
	}
	d.FIB.InsertArp(msg.IfIndex, addr, model.MAC(mac), msg.Connected)
	return nil
}

func (d *Dispatch) applyVRF(msg VRFMessage) error {
	_, v, _, err := d.FIB.VRFs().Table(msg.ID, vrf.TableMain)
	if err != nil {
		return err
	}
	if msg.Name != "" {
		v.Name = msg.Name
	}
	return nil
}

func parseIPv4(s string) (model.IPv4Key, error) {
	var a, b, c, e int
	if _, err := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &e); err != nil {
		return 0, fmt.Errorf("controller: bad IPv4 address %q: %w", s, err)
	}
	return model.IPv4KeyFromBytes([4]byte{byte(a), byte(b), byte(c), byte(e)}), nil
}

func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	var parts [6]int
	if n, err := fmt.Sscanf(s, "%x:%x:%x:%x:%x:%x", &parts[0], &parts[1], &parts[2], &parts[3], &parts[4], &parts[5]); err != nil || n != 6 {
		return mac, fmt.Errorf("controller: bad MAC address %q", s)
	}
	for i, p := range parts {
		mac[i] = byte(p)
	}
	return mac, nil
}

// Subscription abstracts a Redis pub/sub subscription to the single
// channel Controller reads, so reconnect/backoff logic is testable
// without a real broker.
type Subscription interface {
	Messages() <-chan string
	Close() error
}

// Subscriber opens a new Subscription to channel. Implementations wrap
// *redis.Client.Subscribe (see NewRedisSubscriber).
type Subscriber func(ctx context.Context, channel string) (Subscription, error)

// Controller drives one Dispatch from a Redis pub/sub channel, retrying
// with jittered exponential backoff on a dropped subscription (spec.md
// §6 / SPEC_FULL C12).
type Controller struct {
	Channel  string
	Dispatch *Dispatch
	Subscribe Subscriber

	// MinBackoff/MaxBackoff bound the retry delay; zero values default to
	// 200ms/30s.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Run subscribes to Channel and applies messages to Dispatch until ctx is
// cancelled, reconnecting with backoff whenever the subscription drops.
func (c *Controller) Run(ctx context.Context) {
	minBackoff := c.MinBackoff
	if minBackoff <= 0 {
		minBackoff = 200 * time.Millisecond
	}
	maxBackoff := c.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		sub, err := c.Subscribe(ctx, c.Channel)
		if err != nil {
			vplog.WithField("channel", c.Channel).Warnf("controller: subscribe failed, retrying in %s: %v", backoff, err)
			if !sleepOrDone(ctx, jitter(backoff)) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = minBackoff

		c.drain(ctx, sub)
		sub.Close()
	}
}

func (c *Controller) drain(ctx context.Context, sub Subscription) {
	msgs := sub.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(payload), &env); err != nil {
				vplog.WithField("channel", c.Channel).Warnf("controller: malformed message: %v", err)
				continue
			}
			if err := c.Dispatch.Apply(env); err != nil {
				vplog.WithField("kind", env.Kind).Warnf("controller: apply failed: %v", err)
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

// jitter returns d +/- 20%, avoiding a thundering herd of reconnects
// against the same Redis instance.
func jitter(d time.Duration) time.Duration {
	delta := time.Duration(rand.Int63n(int64(d) / 5))
	if rand.Intn(2) == 0 {
		return d - delta
	}
	return d + delta
}
