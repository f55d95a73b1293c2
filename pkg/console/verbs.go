package console

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/vplaned/dataplane/pkg/deferredcfg"
	"github.com/vplaned/dataplane/pkg/fib"
	"github.com/vplaned/dataplane/pkg/ifnet"
	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/neigh"
	"github.com/vplaned/dataplane/pkg/nexthop"
	"github.com/vplaned/dataplane/pkg/pipeline"
	"github.com/vplaned/dataplane/pkg/vrf"
)

// parseIPv4 parses a dotted-quad address into the model's packed key form.
func parseIPv4(s string) (model.IPv4Key, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return 0, fmt.Errorf("not an IPv4 address: %q", s)
	}
	return model.IPv4KeyFromBytes([4]byte{ip[0], ip[1], ip[2], ip[3]}), nil
}

// RegisterCoreVerbs wires the console verbs that have a concrete
// implementation behind them (spec.md §6's command surface), bound to the
// running daemon's components. peripheralStubs registers the remainder of
// the §6 verb list with a "not implemented" handler so every verb the
// protocol lists resolves to *some* entry rather than "unknown verb".
func RegisterCoreVerbs(d *Dispatcher, coord *fib.Coordinator, ifaces *ifnet.Table, deferred *deferredcfg.Cache, graph *pipeline.Graph) {
	d.Register(&Verb{Name: "help", Version: 1, Help: "list available verbs", Handler: helpHandler(d)})

	d.Register(&Verb{Name: "ifconfig", Version: 1, Help: "show/set interface state", Handler: ifconfigHandler(ifaces)})
	d.Register(&Verb{Name: "arp", Version: 1, Help: "show/manipulate the ARP cache", Handler: arpHandler(coord)})
	d.Register(&Verb{Name: "route", Version: 1, Help: "show/manipulate IPv4 routes", Handler: routeHandler(coord)})
	d.Register(&Verb{Name: "route6", Version: 1, Help: "show/manipulate IPv6 routes (unsupported)", Handler: unsupportedHandler("route6")})
	d.Register(&Verb{Name: "vrf", Version: 1, Help: "list VRFs", Handler: vrfHandler(coord)})
	d.Register(&Verb{Name: "ecmp", Version: 1, Help: "show/set ECMP max-path", Handler: ecmpHandler(coord)})
	d.Register(&Verb{Name: "incomplete", Version: 1, Help: "show deferred-config cache counters", Handler: incompleteHandler(deferred)})
	d.Register(&Verb{Name: "fal", Version: 1, Help: "show hardware-shadow stats", Handler: falHandler(coord)})
	d.Register(&Verb{Name: "local", Version: 1, Help: "resolve a forwarding lookup", Handler: localHandler(coord)})
	d.Register(&Verb{Name: "show", Version: 1, Help: "show internal counters", Handler: showHandler(coord)})
	d.Register(&Verb{Name: "pipeline", Version: 1, Help: "show/set per-interface pipeline feature state", Handler: pipelineHandler(graph)})

	d.Register(&Verb{
		Name: "reset", Version: 1, Help: "reset dataplane configuration",
		OnControlThread: true,
		Async:           true,
		Handler:         resetHandler(coord, ifaces, deferred),
	})

	registerPeripheralStubs(d)
}

func helpHandler(d *Dispatcher) Handler {
	return func(args []string, out *bytes.Buffer) int {
		out.WriteString("{\"verbs\":[")
		first := true
		for _, v := range d.Verbs() {
			if !first {
				out.WriteString(",")
			}
			first = false
			fmt.Fprintf(out, "%q", v.Name)
		}
		out.WriteString("]}")
		return 0
	}
}

func errOut(out *bytes.Buffer, format string, args ...interface{}) int {
	fmt.Fprintf(out, `{"error":%q}`, fmt.Sprintf(format, args...))
	return -1
}

// ---- ifconfig ----

func ifconfigHandler(ifaces *ifnet.Table) Handler {
	return func(args []string, out *bytes.Buffer) int {
		if len(args) == 0 {
			var b strings.Builder
			b.WriteString("[")
			first := true
			ifaces.Walk(func(ifp *ifnet.Interface) bool {
				if !first {
					b.WriteString(",")
				}
				first = false
				fmt.Fprintf(&b, `{"name":%q,"index":%d,"mtu":%d}`, ifp.Name, ifp.Index, ifp.MTU)
				return true
			})
			b.WriteString("]")
			out.WriteString(b.String())
			return 0
		}
		ifp, ok := ifaces.LookupByName(args[0])
		if !ok {
			return errOut(out, "no such interface %q", args[0])
		}
		fmt.Fprintf(out, `{"name":%q,"index":%d,"mtu":%d,"vrf":%d}`, ifp.Name, ifp.Index, ifp.MTU, ifp.VRF)
		return 0
	}
}

// ---- arp ----

func arpHandler(coord *fib.Coordinator) Handler {
	return func(args []string, out *bytes.Buffer) int {
		if len(args) >= 1 && args[0] == "delete" {
			if len(args) != 3 {
				return errOut(out, "usage: arp delete <ifindex> <addr>")
			}
			ifIndex, err := strconv.Atoi(args[1])
			if err != nil {
				return errOut(out, "bad ifindex %q", args[1])
			}
			addr, err := parseIPv4(args[2])
			if err != nil {
				return errOut(out, "bad address %q", args[2])
			}
			coord.RemoveArp(ifIndex, addr)
			out.WriteString(`{"result":"ok"}`)
			return 0
		}

		var b strings.Builder
		b.WriteString("[")
		first := true
		coord.WalkNeighbours(func(ifIndex int, e *neigh.Entry) bool {
			if !first {
				b.WriteString(",")
			}
			first = false
			fmt.Fprintf(&b, `{"ifindex":%d,"addr":%q,"mac":%q,"state":%d}`, ifIndex, e.Addr.String(), e.MAC.String(), int(e.State))
			return true
		})
		b.WriteString("]")
		out.WriteString(b.String())
		return 0
	}
}

// ---- route ----

func routeHandler(coord *fib.Coordinator) Handler {
	return func(args []string, out *bytes.Buffer) int {
		if len(args) == 0 {
			return errOut(out, "usage: route get <vrf> <addr>")
		}
		switch args[0] {
		case "get":
			if len(args) != 3 {
				return errOut(out, "usage: route get <vrf> <addr>")
			}
			vrfID, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return errOut(out, "bad vrf %q", args[1])
			}
			addr, err := parseIPv4(args[2])
			if err != nil {
				return errOut(out, "bad address %q", args[2])
			}
			sib := coord.LookupForward(uint32(vrfID), addr, nexthop.FiveTuple{})
			if sib == nil {
				out.WriteString(`{"result":"no route"}`)
				return 0
			}
			fmt.Fprintf(out, `{"ifindex":%d,"gateway":%q}`, sib.IfIndex, sib.Gateway.String())
			return 0
		case "delete":
			if len(args) != 5 {
				return errOut(out, "usage: route delete <vrf> <addr> <depth> <scope>")
			}
			vrfID, _ := strconv.ParseUint(args[1], 10, 32)
			addr, err := parseIPv4(args[2])
			if err != nil {
				return errOut(out, "bad address %q", args[2])
			}
			depth, _ := strconv.Atoi(args[3])
			scope, _ := strconv.Atoi(args[4])
			if err := coord.Delete(uint32(vrfID), addr, uint8(depth), vrf.TableMain, model.Scope(scope)); err != nil {
				return errOut(out, "%v", err)
			}
			out.WriteString(`{"result":"ok"}`)
			return 0
		default:
			return errOut(out, "unknown route subcommand %q", args[0])
		}
	}
}

// ---- vrf ----

func vrfHandler(coord *fib.Coordinator) Handler {
	return func(args []string, out *bytes.Buffer) int {
		var b strings.Builder
		b.WriteString("[")
		first := true
		for _, v := range coord.VRFs().List() {
			if !first {
				b.WriteString(",")
			}
			first = false
			fmt.Fprintf(&b, `{"id":%d,"name":%q,"refcount":%d}`, v.ID, v.Name, v.Refcount())
		}
		b.WriteString("]")
		out.WriteString(b.String())
		return 0
	}
}

// ---- ecmp ----

func ecmpHandler(coord *fib.Coordinator) Handler {
	return func(args []string, out *bytes.Buffer) int {
		if len(args) == 0 {
			fmt.Fprintf(out, `{"max_path":%d}`, coord.ECMPMaxPath())
			return 0
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return errOut(out, "bad max-path %q", args[0])
		}
		coord.SetECMPMaxPath(n)
		fmt.Fprintf(out, `{"max_path":%d}`, n)
		return 0
	}
}

// ---- pipeline (per-interface feature state) ----

// pipelineHandler implements `pipeline show <attach-point> <ifindex>` and
// `pipeline feature <attach-point> <ifindex> <feature-id> <on|off>`,
// exposing the feat_iterate/feat_change hooks spec.md §4.7 describes.
func pipelineHandler(graph *pipeline.Graph) Handler {
	return func(args []string, out *bytes.Buffer) int {
		if graph == nil {
			return errOut(out, "pipeline: not configured")
		}
		if len(args) < 3 {
			return errOut(out, "usage: pipeline show|feature <attach-point> <ifindex> [feature-id] [on|off]")
		}
		sub, ap, ifIdxArg := args[0], args[1], args[2]
		ifIdx, err := strconv.Atoi(ifIdxArg)
		if err != nil {
			return errOut(out, "bad ifindex %q", ifIdxArg)
		}

		switch sub {
		case "show":
			out.WriteString(`{"enabled":[`)
			first := true
			cursor := 0
			for {
				id, next, ok := graph.IterateFeatures(ap, ifIdx, cursor)
				if !ok {
					break
				}
				if !first {
					out.WriteString(",")
				}
				first = false
				fmt.Fprintf(out, "%d", id)
				cursor = next
			}
			out.WriteString(`]}`)
			return 0
		case "feature":
			if len(args) < 5 {
				return errOut(out, "usage: pipeline feature <attach-point> <ifindex> <feature-id> <on|off>")
			}
			featureID, err := strconv.Atoi(args[3])
			if err != nil {
				return errOut(out, "bad feature-id %q", args[3])
			}
			enable := args[4] == "on"
			if err := graph.SetFeature(ap, ifIdx, featureID, enable); err != nil {
				return errOut(out, "%v", err)
			}
			out.WriteString(`{"result":"ok"}`)
			return 0
		default:
			return errOut(out, "pipeline: unknown sub-command %q", sub)
		}
	}
}

// ---- incomplete (deferred-config cache counters) ----

func incompleteHandler(deferred *deferredcfg.Cache) Handler {
	return func(args []string, out *bytes.Buffer) int {
		if deferred == nil {
			out.WriteString(`{"missed_add":0,"missed_update":0,"missed_del":0,"missed_replayed":0}`)
			return 0
		}
		s := deferred.Stats()
		fmt.Fprintf(out, `{"missed_add":%d,"missed_update":%d,"missed_del":%d,"missed_replayed":%d}`,
			s.MissedAdd, s.MissedUpdate, s.MissedDel, s.MissedReplayed)
		return 0
	}
}

// ---- fal (hardware-shadow stats) ----

func falHandler(coord *fib.Coordinator) Handler {
	return func(args []string, out *bytes.Buffer) int {
		s := coord.Stats
		fmt.Fprintf(out, `{"full":%d,"not_needed":%d,"no_resource":%d,"error":%d}`,
			s.Full, s.NotNeeded, s.NoResource, s.Error)
		return 0
	}
}

// ---- local / show ----

func localHandler(coord *fib.Coordinator) Handler {
	return func(args []string, out *bytes.Buffer) int {
		if len(args) != 2 {
			return errOut(out, "usage: local <vrf> <addr>")
		}
		vrfID, _ := strconv.ParseUint(args[0], 10, 32)
		addr, err := parseIPv4(args[1])
		if err != nil {
			return errOut(out, "bad address %q", args[1])
		}
		sib := coord.LookupForward(uint32(vrfID), addr, nexthop.FiveTuple{})
		if sib == nil {
			out.WriteString(`{"local":false}`)
			return 0
		}
		out.WriteString(`{"local":true}`)
		return 0
	}
}

func showHandler(coord *fib.Coordinator) Handler {
	return func(args []string, out *bytes.Buffer) int {
		s := coord.Stats
		fmt.Fprintf(out, `{"fal":{"full":%d,"not_needed":%d,"no_resource":%d,"error":%d}}`,
			s.Full, s.NotNeeded, s.NoResource, s.Error)
		return 0
	}
}

// ---- reset (control-thread only) ----

func resetHandler(coord *fib.Coordinator, ifaces *ifnet.Table, deferred *deferredcfg.Cache) Handler {
	return func(args []string, out *bytes.Buffer) int {
		ifaces.Reset()
		coord.Reset()
		if bus := ifaces.Bus(); bus != nil {
			bus.Reset()
		}
		if deferred != nil {
			deferred.Reset()
		}
		out.WriteString(`{"result":"reset acknowledged"}`)
		return 0
	}
}

func unsupportedHandler(name string) Handler {
	return func(args []string, out *bytes.Buffer) int {
		return errOut(out, "%s: not implemented", name)
	}
}

// peripheralVerbs is the remainder of spec.md §6's command surface: verbs
// this dataplane does not model any state for (no L2TP, MPLS, crypto,
// QoS, etc. subsystem exists in this repo's scope), each resolving to a
// stub rather than "unknown verb" so scripts probing the full surface get
// a consistent non-zero exit status instead of a dispatch error.
var peripheralVerbs = []string{
	"affinity", "bridge", "capture", "cpu", "debug", "hotplug",
	"ipsec", "l2tpeth", "lag", "led", "log", "memory", "mpls",
	"multicast", "nat-op", "nd6", "netstat", "npf-op",
	"poe", "portmonitor", "ptp", "qos", "ring", "session-op",
	"slowpath", "snmp", "storm-ctl", "switch", "vhost", "vhost-client",
	"vlan_mod", "vxlan",
}

func registerPeripheralStubs(d *Dispatcher) {
	for _, name := range peripheralVerbs {
		n := name
		d.Register(&Verb{Name: n, Version: 1, Help: "not implemented", Handler: unsupportedHandler(n)})
	}
}
