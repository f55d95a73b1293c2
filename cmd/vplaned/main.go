// vplaned — the dataplane daemon.
//
// Wires the concurrency substrate (C1), interface table (C2), next-hop
// pool (C3), FIB coordinator (C4/C5/C6), pipeline graph (C7), event bus
// (C8), deferred-config cache (C9), console dispatcher (C10), hardware
// shadow (C11), controller-channel adapter (C12), configuration (C13),
// and audit log (C14) into one running process, then serves the console
// socket and the control thread until signalled to stop.
//
// The startup sequence (load config, construct components bottom-up,
// install signal handling, block on the control loop) follows
// cmd/newtlab's daemon-style main.go/exec.go shape more than
// cmd/newtron's one-shot CLI invocation, since vplaned is a
// long-running process rather than a single command.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/vplaned/dataplane/pkg/audit"
	"github.com/vplaned/dataplane/pkg/config"
	"github.com/vplaned/dataplane/pkg/console"
	"github.com/vplaned/dataplane/pkg/controller"
	"github.com/vplaned/dataplane/pkg/deferredcfg"
	"github.com/vplaned/dataplane/pkg/event"
	"github.com/vplaned/dataplane/pkg/fal"
	"github.com/vplaned/dataplane/pkg/fib"
	"github.com/vplaned/dataplane/pkg/ifnet"
	"github.com/vplaned/dataplane/pkg/model"
	"github.com/vplaned/dataplane/pkg/nexthop"
	"github.com/vplaned/dataplane/pkg/pipeline"
	"github.com/vplaned/dataplane/pkg/pipeline/nodes"
	"github.com/vplaned/dataplane/pkg/rcu"
	"github.com/vplaned/dataplane/pkg/vplog"
	"github.com/vplaned/dataplane/pkg/vrf"
)

func main() {
	if err := run(); err != nil {
		vplog.Logger.Errorf("vplaned: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.ApplyDebugFlags(cfg)

	dom := rcu.NewDomain()
	defer dom.Close()

	bus := event.NewBus(dom)
	ifaces := ifnet.New(dom, bus)
	vrfs := vrf.New(dom)
	nh := nexthop.New(dom, nil)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	backend := fal.NewRedisMirror(fal.NoopBackend{}, rdb, cfg.RedisChannel+":fal")
	coord := fib.New(vrfs, nh, backend, cfg.ECMPMaxPath)

	var dispatch *controller.Dispatch
	deferred := deferredcfg.New(bus, func(ifName string, cmd deferredcfg.Command) {
		vplog.WithFields(map[string]interface{}{"if": ifName, "argv": cmd.Argv}).Info("replaying deferred command")
		if len(cmd.Argv) != 2 || dispatch == nil {
			return
		}
		env := controller.Envelope{Kind: cmd.Argv[0], Payload: json.RawMessage(cmd.Argv[1])}
		if err := dispatch.Apply(env); err != nil {
			vplog.WithField("if", ifName).Warnf("vplaned: deferred replay failed: %v", err)
		}
	})
	dispatch = controller.NewDispatch(ifaces, coord, deferred)

	graph := buildPipeline(ifaces, coord)

	auditLogger, err := audit.NewFileLogger("/var/log/vplaned/audit.log", audit.RotationConfig{
		MaxSize:    64 * 1024 * 1024,
		MaxBackups: 4,
	})
	if err != nil {
		vplog.Logger.Warnf("vplaned: could not open audit log, auditing disabled: %v", err)
	}

	reader := dom.Register()
	d := console.NewDispatcher(dom, reader)
	if auditLogger != nil {
		d.SetAuditLogger(auditLogger)
		defer auditLogger.Close()
	}
	console.RegisterCoreVerbs(d, coord, ifaces, deferred, graph)

	ln, err := console.Listen(cfg.ConsolePath, cfg.ConsoleUID, cfg.ConsoleGID)
	if err != nil {
		return fmt.Errorf("opening console socket: %w", err)
	}
	defer ln.Close()

	stop := make(chan struct{})
	go d.RunControlLoop(stop)
	go func() {
		if err := d.Serve(ln); err != nil {
			vplog.Logger.Warnf("vplaned: console server stopped: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := &controller.Controller{
		Channel:   cfg.RedisChannel,
		Dispatch:  dispatch,
		Subscribe: controller.NewRedisSubscriber(rdb),
	}
	go ctrl.Run(ctx)

	vplog.Logger.Infof("vplaned: listening on %s, controller channel %q", cfg.ConsolePath, cfg.RedisChannel)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	vplog.Logger.Info("vplaned: shutting down")
	cancel()
	close(stop)
	return nil
}

// buildPipeline assembles the illustrative ingress graph spec.md §4.7
// describes: an Ethernet-lookup attach point feeding an IPv4-forward
// node, with a terminal drop node for both.
func buildPipeline(ifaces *ifnet.Table, coord *fib.Coordinator) *pipeline.Graph {
	g := pipeline.NewGraph(pipeline.ModeDynamic, 64)

	g.Register(pipeline.NodeSpec{
		Name: "drop",
		Kind: pipeline.KindProc,
		Handler: func(pkt *model.Packet) pipeline.SuccessorID {
			return pipeline.Finish
		},
	})
	g.Register(nodes.NewEthernetLookupNode(ifaces, "ipv4-forward", "drop"))
	g.Register(nodes.NewIPv4ForwardNode(coord, "drop"))

	if err := g.Build(); err != nil {
		vplog.Logger.Fatalf("vplaned: pipeline graph build failed: %v", err)
	}
	return g
}
