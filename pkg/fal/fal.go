// Package fal implements the hardware-shadow façade (spec.md §4.11 / C11):
// a narrow interface that mirrors FIB/next-hop/interface state into an
// abstract offload backend. The SSH-backed implementation is grounded on
// the teacher's pkg/device.SSHTunnel/ExecCommand (a real device reached
// over an SSH-tunnelled management session); the Redis mirror is grounded
// on the teacher's use of go-redis for out-of-band state inspection.
package fal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/ssh"

	"github.com/vplaned/dataplane/pkg/lpm"
	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/nexthop"
	"github.com/vplaned/dataplane/pkg/vplog"
)

// Status is the façade's status code (spec.md §4.11): maps to pd-state
// via 0->FULL, "unsupported"->NOT_NEEDED, "no resource"->NO_RESOURCE,
// anything else->ERROR.
type Status int

const (
	StatusFull Status = iota
	StatusNotNeeded
	StatusNoResource
	StatusError
)

// ToNextHopState / ToLPMState translate a façade Status into the two
// packages' own PDState enums (duplicated per-package rather than shared,
// same rationale as lpm.PDState: each owning package stays a leaf with
// respect to the others).
func (s Status) ToNextHopState() nexthop.PDState {
	switch s {
	case StatusFull:
		return nexthop.PDFull
	case StatusNotNeeded:
		return nexthop.PDNotNeeded
	case StatusNoResource:
		return nexthop.PDNoResource
	default:
		return nexthop.PDError
	}
}

func (s Status) ToLPMState() lpm.PDState {
	switch s {
	case StatusFull:
		return lpm.PDFull
	case StatusNotNeeded:
		return lpm.PDNotNeeded
	case StatusNoResource:
		return lpm.PDNoResource
	default:
		return lpm.PDError
	}
}

// PortAttr is the subset of L2 port attributes the façade mirrors
// (spec.md §4.11 "l2_upd_port/l2_get_attrs").
type PortAttr struct {
	AdminUp   bool
	MTU       int
	SpeedMbps int
}

// Backend is the hardware-shadow façade (spec.md §4.11).
type Backend interface {
	NewRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32, siblings []nexthop.Sibling, groupHandle uint64) Status
	UpdRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32, siblings []nexthop.Sibling, groupHandle uint64) Status
	DelRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32) Status
	NewNextHops(siblings []nexthop.Sibling) (groupHandle uint64, siblingHandles []uint64, status Status)
	DelNextHops(groupHandle uint64, siblings []nexthop.Sibling, siblingHandles []uint64)
	UpdPort(ifIndex int, attr PortAttr)
	GetPortAttrs(ifIndex int) PortAttr
}

// NoopBackend returns NOT_NEEDED for every call (spec.md §4.11
// "Implementations that have no backend return NOT_NEEDED for every
// call so the software-only path works unchanged").
type NoopBackend struct{}

func (NoopBackend) NewRoute(uint32, model.IPv4Key, uint8, uint32, []nexthop.Sibling, uint64) Status {
	return StatusNotNeeded
}
func (NoopBackend) UpdRoute(uint32, model.IPv4Key, uint8, uint32, []nexthop.Sibling, uint64) Status {
	return StatusNotNeeded
}
func (NoopBackend) DelRoute(uint32, model.IPv4Key, uint8, uint32) Status { return StatusNotNeeded }
func (NoopBackend) NewNextHops(siblings []nexthop.Sibling) (uint64, []uint64, Status) {
	return 0, make([]uint64, len(siblings)), StatusNotNeeded
}
func (NoopBackend) DelNextHops(uint64, []nexthop.Sibling, []uint64) {}
func (NoopBackend) UpdPort(int, PortAttr)                           {}
func (NoopBackend) GetPortAttrs(int) PortAttr                       { return PortAttr{} }

// NextHopAdapter exposes a Backend as a nexthop.HWBackend, so a single
// façade instance can be handed directly to nexthop.New.
type NextHopAdapter struct{ Backend Backend }

func (a NextHopAdapter) NewNextHops(siblings []nexthop.Sibling) (uint64, []uint64, nexthop.PDState) {
	handle, sibHandles, status := a.Backend.NewNextHops(siblings)
	return handle, sibHandles, status.ToNextHopState()
}

func (a NextHopAdapter) DelNextHops(groupHandle uint64, siblings []nexthop.Sibling, handles []uint64) {
	a.Backend.DelNextHops(groupHandle, siblings, handles)
}

// SSHBackend mirrors route/next-hop/port state into a real device reached
// over SSH (grounded on pkg/device.SSHTunnel/ExecCommand): every mutation
// issues a vendor show/set command for observability, but the façade
// itself never blocks forwarding on the device's reachability — a failed
// SSH round-trip degrades to NOT_NEEDED rather than ERROR, since loss of
// the shadow device must never fail the software route.
type SSHBackend struct {
	client *ssh.Client
}

func NewSSHBackend(client *ssh.Client) *SSHBackend {
	return &SSHBackend{client: client}
}

func (b *SSHBackend) exec(cmd string) Status {
	session, err := b.client.NewSession()
	if err != nil {
		vplog.Debugf("route", "fal: ssh session failed: %v", err)
		return StatusNotNeeded
	}
	defer session.Close()
	if out, err := session.CombinedOutput(cmd); err != nil {
		vplog.Debugf("route", "fal: ssh exec %q failed: %v (%s)", cmd, err, out)
		return StatusNotNeeded
	}
	return StatusFull
}

func (b *SSHBackend) NewRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32, siblings []nexthop.Sibling, groupHandle uint64) Status {
	return b.exec(fmt.Sprintf("shadow route add vrf %d %s/%d table %d group %d", vrfID, dst, depth, tableID, groupHandle))
}

func (b *SSHBackend) UpdRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32, siblings []nexthop.Sibling, groupHandle uint64) Status {
	return b.exec(fmt.Sprintf("shadow route upd vrf %d %s/%d table %d group %d", vrfID, dst, depth, tableID, groupHandle))
}

func (b *SSHBackend) DelRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32) Status {
	return b.exec(fmt.Sprintf("shadow route del vrf %d %s/%d table %d", vrfID, dst, depth, tableID))
}

func (b *SSHBackend) NewNextHops(siblings []nexthop.Sibling) (uint64, []uint64, Status) {
	status := b.exec(fmt.Sprintf("shadow nexthop new count %d", len(siblings)))
	return 0, make([]uint64, len(siblings)), status
}

func (b *SSHBackend) DelNextHops(groupHandle uint64, siblings []nexthop.Sibling, handles []uint64) {
	b.exec(fmt.Sprintf("shadow nexthop del group %d", groupHandle))
}

func (b *SSHBackend) UpdPort(ifIndex int, attr PortAttr) {
	b.exec(fmt.Sprintf("shadow port set %d admin-up=%v mtu=%d", ifIndex, attr.AdminUp, attr.MTU))
}

func (b *SSHBackend) GetPortAttrs(ifIndex int) PortAttr { return PortAttr{} }

// RedisMirror wraps a Backend and republishes the resulting pd-state of
// every route new/upd/del to a Redis channel (next-hop and port calls
// pass through unpublished), so the state-query API (and an operator's
// `redis-cli subscribe`) can observe hardware-shadow divergence out of
// band — grounded on the teacher's go-redis usage for its own device
// state pub/sub.
type RedisMirror struct {
	Backend
	rdb     *redis.Client
	channel string
}

func NewRedisMirror(inner Backend, rdb *redis.Client, channel string) *RedisMirror {
	return &RedisMirror{Backend: inner, rdb: rdb, channel: channel}
}

type mirrorEvent struct {
	Op     string `json:"op"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

func (m *RedisMirror) publish(op string, status Status, detail string) {
	b, err := json.Marshal(mirrorEvent{Op: op, Status: status, Detail: detail})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.rdb.Publish(ctx, m.channel, b).Err(); err != nil {
		vplog.Debugf("route", "fal: redis publish failed: %v", err)
	}
}

func (m *RedisMirror) NewRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32, siblings []nexthop.Sibling, groupHandle uint64) Status {
	s := m.Backend.NewRoute(vrfID, dst, depth, tableID, siblings, groupHandle)
	m.publish("ip4_new_route", s, fmt.Sprintf("%s/%d", dst, depth))
	return s
}

func (m *RedisMirror) UpdRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32, siblings []nexthop.Sibling, groupHandle uint64) Status {
	s := m.Backend.UpdRoute(vrfID, dst, depth, tableID, siblings, groupHandle)
	m.publish("ip4_upd_route", s, fmt.Sprintf("%s/%d", dst, depth))
	return s
}

func (m *RedisMirror) DelRoute(vrfID uint32, dst model.IPv4Key, depth uint8, tableID uint32) Status {
	s := m.Backend.DelRoute(vrfID, dst, depth, tableID)
	m.publish("ip4_del_route", s, fmt.Sprintf("%s/%d", dst, depth))
	return s
}
