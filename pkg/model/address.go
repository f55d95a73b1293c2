// Package model holds the shared wire/address types used across the
// dataplane (spec.md §3): MAC addresses, IPv4 keys, and the packet
// context threaded through the pipeline.
package model

import (
	"fmt"
	"net"
)

// MAC is a 6-byte hardware address.
type MAC [6]byte

func (m MAC) String() string { return net.HardwareAddr(m[:]).String() }

// IsBroadcast reports whether m is ff:ff:ff:ff:ff:ff.
func (m MAC) IsBroadcast() bool {
	for _, b := range m {
		if b != 0xff {
			return false
		}
	}
	return true
}

// IsMulticast reports whether m's I/G bit is set (and it is not the
// broadcast address, which callers typically classify separately).
func (m MAC) IsMulticast() bool { return m[0]&0x01 != 0 }

// IPv4Key is a 32-bit IPv4 address in network byte order, used as the LPM
// trie key (spec.md §4.4).
type IPv4Key uint32

func IPv4KeyFromBytes(b [4]byte) IPv4Key {
	return IPv4Key(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func (k IPv4Key) Bytes() [4]byte {
	return [4]byte{byte(k >> 24), byte(k >> 16), byte(k >> 8), byte(k)}
}

func (k IPv4Key) String() string {
	b := k.Bytes()
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}

// Mask returns the /depth network mask as an IPv4Key-shaped bitmask.
func Mask(depth uint8) IPv4Key {
	if depth == 0 {
		return 0
	}
	if depth >= 32 {
		return 0xFFFFFFFF
	}
	return IPv4Key(^uint32(0) << (32 - depth))
}

// Network returns k masked to its /depth network prefix.
func (k IPv4Key) Network(depth uint8) IPv4Key { return k & Mask(depth) }

// Address is a family/prefix pair living on an interface's address list
// (spec.md §3 "Address").
type Address struct {
	Family      Family
	Bytes       []byte // 4 or 16 bytes
	PrefixLen   int
	Broadcast   []byte
	Scope       Scope
}

// Family distinguishes IPv4/IPv6 address families.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

func (f Family) String() string {
	if f == FamilyIPv6 {
		return "inet6"
	}
	return "inet"
}

// Scope is an ordinal priority among coexisting LPM rules at the same
// prefix (spec.md §3 "Scope"/GLOSSARY), following the kernel netlink
// convention the source follows: RT_SCOPE_UNIVERSE=0 is the widest/
// lowest-priority scope; RT_SCOPE_LINK and RT_SCOPE_HOST are narrower and
// numerically larger. "Highest active scope" in spec.md §4.4 means
// numerically largest — confirmed against S3 (scope.md §8): a UNIVERSE
// route demoted by a later LINK route at the same prefix, since
// ScopeLink(253) > ScopeUniverse(0).
type Scope uint8

const (
	ScopeUniverse Scope = 0
	ScopeSite     Scope = 200
	ScopeLink     Scope = 253
	ScopeHost     Scope = 254
	ScopeNowhere  Scope = 255 // pseudo-scope for the 0.0.0.0/0 reserved reject route
)

// MoreActive reports whether s outranks o (s would be the active rule if
// both coexist at the same prefix/depth).
func (s Scope) MoreActive(o Scope) bool { return s > o }
