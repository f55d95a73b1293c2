// Package console implements the command dispatcher (spec.md §4.10 / C10):
// a Unix-domain socket server with a versioned verb table, console-thread
// vs control-thread routing, and the two-frame {"OK"|"ERROR"} + payload
// response protocol spec.md §6 specifies.
//
// The verb-table shape (name/version/handler/help) is grounded on
// cmd/newtron's noun-verb dispatch table (cmd_verbs.go's RunE-per-verb
// registration, reimplemented as a runtime map instead of a cobra command
// tree since console verbs are dispatched from a socket line, not argv);
// the console/control-thread handoff is original engineering against
// spec.md §4.10/§5, since the teacher has no analogous split (cmd/newtron
// talks to a remote device directly, with no on-process control thread to
// hand work to).
package console

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vplaned/dataplane/pkg/audit"
	"github.com/vplaned/dataplane/pkg/rcu"
	"github.com/vplaned/dataplane/pkg/vplog"
)

// Handler executes one verb invocation, writing its payload to out and
// returning a process-style exit status (0 == success, non-zero == error,
// per spec.md §6 "Exit status is 0 for success, non-zero for any error").
type Handler func(args []string, out *bytes.Buffer) int

// Verb is one entry in the dispatcher's versioned verb table.
type Verb struct {
	Name            string
	Version         int
	Help            string
	OnControlThread bool // must run on the single control thread (e.g. "reset")
	Async           bool // always dispatched fire-and-forget, regardless of a trailing "&" (spec.md §6's "reset")
	Handler         Handler
}

type controlJob struct {
	verb   *Verb
	args   []string
	respCh chan jobResult // nil for an ASYNC (fire-and-forget) command
}

type jobResult struct {
	status int
	output []byte
}

// Dispatcher owns the verb table and the console<->control-thread handoff
// queue (spec.md §4.10's "in-process pair of sockets", modelled here as a
// buffered channel since both ends live in the same process).
type Dispatcher struct {
	mu    sync.RWMutex
	verbs map[string]*Verb

	controlCh chan controlJob

	// reader, if non-nil, is marked offline/online around a synchronous
	// control-thread round trip, per spec.md §4.10's "forwarding thread
	// marks itself offline across the send/receive to prevent reclamation
	// stall" (the console thread is the one thread this applies to here).
	reader *rcu.Reader
	dom    *rcu.Domain

	// audit, if non-nil, is written once per control-thread command after
	// it executes (spec.md §4.14 / C14). Verbs that run on the console
	// thread are not audited, including the ones that change state there
	// (route delete, arp delete, ecmp <n>, pipeline feature).
	audit audit.Logger
}

// SetAuditLogger installs the audit log every control-thread command is
// recorded to after it executes. Passing nil (the default) disables
// auditing, e.g. in tests that don't care about the log.
func (d *Dispatcher) SetAuditLogger(l audit.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audit = l
}

// NewDispatcher creates an empty dispatcher. dom/reader may be nil if the
// process has no reclamation domain to mark offline around blocking
// round-trips (e.g. in tests).
func NewDispatcher(dom *rcu.Domain, reader *rcu.Reader) *Dispatcher {
	return &Dispatcher{
		verbs:     make(map[string]*Verb),
		controlCh: make(chan controlJob, 64),
		dom:       dom,
		reader:    reader,
	}
}

// Register adds verb to the table. Re-registering the same name replaces
// the previous entry (later registration wins), matching how the teacher's
// cobra command tree lets a later AddCommand shadow an earlier one.
func (d *Dispatcher) Register(v *Verb) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verbs[v.Name] = v
}

func (d *Dispatcher) lookup(name string) (*Verb, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.verbs[name]
	return v, ok
}

// Verbs returns the registered verbs, in no guaranteed order — for the
// `help` verb.
func (d *Dispatcher) Verbs() []*Verb {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Verb, 0, len(d.verbs))
	for _, v := range d.verbs {
		out = append(out, v)
	}
	return out
}

// RunControlLoop drains control-thread jobs until stop is closed. It must
// run on the process's single control thread (spec.md §5's "one
// single-threaded control loop").
func (d *Dispatcher) RunControlLoop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case job := <-d.controlCh:
			start := time.Now()
			var buf bytes.Buffer
			status := job.verb.Handler(job.args, &buf)
			d.recordAudit(job.verb.Name, job.args, status, buf.Bytes(), time.Since(start))
			if job.respCh != nil {
				job.respCh <- jobResult{status: status, output: buf.Bytes()}
			}
		}
	}
}

// recordAudit logs one control-thread command invocation as an
// Event{Verb, Args, Result, Actor, Timestamp} after execution.
func (d *Dispatcher) recordAudit(verb string, args []string, status int, output []byte, duration time.Duration) {
	d.mu.RLock()
	logger := d.audit
	d.mu.RUnlock()
	if logger == nil {
		return
	}

	ev := audit.NewEvent(verb, args, "console").
		WithResult(string(output)).
		WithDuration(duration)
	if status == 0 {
		ev = ev.WithSuccess()
	} else {
		ev = ev.WithError(fmt.Errorf("exit status %d", status))
	}
	if err := logger.Log(ev); err != nil {
		vplog.WithField("verb", verb).Warnf("console: audit log write failed: %v", err)
	}
}

// splitLine tokenizes a command line on whitespace and reports whether an
// ASYNC flag ("&", trailing) was present.
func splitLine(line string) (argv []string, async bool) {
	argv = strings.Fields(line)
	if len(argv) > 0 && argv[len(argv)-1] == "&" {
		return argv[:len(argv)-1], true
	}
	return argv, false
}

// Dispatch executes one command line, routing it to the console thread or
// the control thread per the verb's OnControlThread flag, and returns the
// status and payload the two-frame protocol sends back.
func (d *Dispatcher) Dispatch(line string) (status int, payload []byte) {
	argv, async := splitLine(line)
	if len(argv) == 0 {
		return -1, []byte(`{"error":"empty command"}`)
	}

	verb, ok := d.lookup(argv[0])
	if !ok {
		return -1, []byte(fmt.Sprintf(`{"error":"unknown verb %q"}`, argv[0]))
	}
	args := argv[1:]

	if !verb.OnControlThread {
		var buf bytes.Buffer
		status := verb.Handler(args, &buf)
		return status, buf.Bytes()
	}

	job := controlJob{verb: verb, args: args}
	if async || verb.Async {
		job.respCh = nil
		select {
		case d.controlCh <- job:
		default:
			return -1, []byte(`{"error":"control queue full"}`)
		}
		return 0, []byte(`{"queued":true}`)
	}

	job.respCh = make(chan jobResult, 1)
	if d.reader != nil {
		d.reader.Offline()
	}
	d.controlCh <- job
	res := <-job.respCh
	if d.reader != nil && d.dom != nil {
		d.reader.Online(d.dom)
	}
	return res.status, res.output
}

// Listen opens the console's Unix-domain socket at path, applying the
// spec.md §6 "chmod 0770 + chown to a configured group" access rule. An
// existing stale socket file at path is removed first.
func Listen(path string, uid, gid int) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("console: removing stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("console: listen: %w", err)
	}
	if err := os.Chmod(path, 0o770); err != nil {
		ln.Close()
		return nil, fmt.Errorf("console: chmod: %w", err)
	}
	if err := os.Chown(path, uid, gid); err != nil {
		ln.Close()
		return nil, fmt.Errorf("console: chown: %w", err)
	}
	return ln, nil
}

// Serve accepts connections on ln until it is closed, handling each on its
// own goroutine.
func (d *Dispatcher) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go d.serveConn(conn)
	}
}

// serveConn handles exactly one command line per connection, per spec.md
// §6's request/response framing (one line in, two frames out).
func (d *Dispatcher) serveConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	line := scanner.Text()

	status, payload := d.Dispatch(line)

	w := bufio.NewWriter(conn)
	if status == 0 {
		fmt.Fprintln(w, "OK")
	} else {
		fmt.Fprintln(w, "ERROR")
	}
	w.Write(payload)
	w.WriteString("\n")
	if err := w.Flush(); err != nil {
		vplog.Debugf("route", "console: write response failed: %v", err)
	}
}
