// vplanectl — console client for vplaned
//
// Connects to the daemon's Unix-domain console socket (pkg/console),
// sends one command line, and prints the JSON response. The noun-group
// style (one subcommand per verb, a raw passthrough for everything else)
// follows cmd/newtron's CLI pattern, adapted from a device-spec-driven
// CLI to a single-socket line-protocol client.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vplaned/dataplane/pkg/cli"
)

// App holds CLI state shared across all commands.
type App struct {
	socketPath string
	jsonOutput bool
	timeout    time.Duration
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "vplanectl",
	Short:         "Console client for vplaned",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `vplanectl talks to a running vplaned over its console socket.

  vplanectl route get 0 10.0.0.1
  vplanectl vrf
  vplanectl pipeline show ethernet-lookup 1
  vplanectl raw "arp delete 5 10.0.0.1"`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.socketPath, "socket", "S", "/var/run/vplaned/console.sock", "console socket path")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "print raw JSON instead of a table")
	rootCmd.PersistentFlags().DurationVar(&app.timeout, "timeout", 5*time.Second, "dial/round-trip timeout")

	rootCmd.AddCommand(
		helpCmd, rawCmd,
		routeCmd, route6Cmd, vrfCmd, ecmpCmd, incompleteCmd,
		arpCmd, ifconfigCmd, falCmd, localCmd, showCmd, pipelineCmd,
		resetCmd, versionCmd,
	)
}

// send dials the console socket, writes line, and returns (ok, payload).
func send(line string) (bool, []byte, error) {
	conn, err := net.DialTimeout("unix", app.socketPath, app.timeout)
	if err != nil {
		return false, nil, fmt.Errorf("dial %s: %w", app.socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(app.timeout))

	if _, err := fmt.Fprintln(conn, line); err != nil {
		return false, nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return false, nil, fmt.Errorf("no status line from daemon: %w", scanner.Err())
	}
	status := scanner.Text()
	var payload []byte
	if scanner.Scan() {
		payload = scanner.Bytes()
	}
	return status == "OK", payload, nil
}

// run sends argv joined as one command line and prints the result,
// returning a non-nil error (causing a non-zero exit) on failure or a
// daemon-reported error.
func run(argv ...string) error {
	line := strings.Join(argv, " ")
	ok, payload, err := send(line)
	if err != nil {
		return err
	}
	if app.jsonOutput || !renderTable(argv, payload) {
		printPayload(payload)
	}
	if !ok {
		return fmt.Errorf("%s: command failed", argv[0])
	}
	return nil
}

// renderTable prints payload as a cli.Table for the verbs whose response
// shape is naturally columnar, reporting whether it did so. Verbs whose
// payload doesn't decode into the expected shape (error responses, the
// "no route"/"ok" result forms) fall back to printPayload.
func renderTable(argv []string, payload []byte) bool {
	if len(argv) == 0 {
		return false
	}
	switch argv[0] {
	case "route":
		return renderRouteTable(argv, payload)
	case "incomplete":
		return renderIncompleteTable(payload)
	case "show":
		return renderShowTable(payload)
	}
	return false
}

func countCell(n int) string {
	if n > 0 {
		return cli.Red(strconv.Itoa(n))
	}
	return cli.Green(strconv.Itoa(n))
}

func renderRouteTable(argv []string, payload []byte) bool {
	if len(argv) < 2 || argv[1] != "get" {
		return false
	}
	var v struct {
		IfIndex *int    `json:"ifindex"`
		Gateway *string `json:"gateway"`
	}
	if err := json.Unmarshal(payload, &v); err != nil || v.IfIndex == nil || v.Gateway == nil {
		return false
	}
	t := cli.NewTable("IFINDEX", "GATEWAY")
	t.Row(strconv.Itoa(*v.IfIndex), *v.Gateway)
	t.Flush()
	return true
}

func renderIncompleteTable(payload []byte) bool {
	var v struct {
		MissedAdd      int `json:"missed_add"`
		MissedUpdate   int `json:"missed_update"`
		MissedDel      int `json:"missed_del"`
		MissedReplayed int `json:"missed_replayed"`
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return false
	}
	t := cli.NewTable("MISSED_ADD", "MISSED_UPDATE", "MISSED_DEL", "MISSED_REPLAYED")
	t.Row(countCell(v.MissedAdd), countCell(v.MissedUpdate), countCell(v.MissedDel), strconv.Itoa(v.MissedReplayed))
	t.Flush()
	return true
}

func renderShowTable(payload []byte) bool {
	var v struct {
		FAL struct {
			Full       int `json:"full"`
			NotNeeded  int `json:"not_needed"`
			NoResource int `json:"no_resource"`
			Error      int `json:"error"`
		} `json:"fal"`
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return false
	}
	t := cli.NewTable("FULL", "NOT_NEEDED", "NO_RESOURCE", "ERROR")
	t.Row(strconv.Itoa(v.FAL.Full), strconv.Itoa(v.FAL.NotNeeded), countCell(v.FAL.NoResource), countCell(v.FAL.Error))
	t.Flush()
	return true
}

func printPayload(payload []byte) {
	if app.jsonOutput || len(payload) == 0 {
		fmt.Println(string(payload))
		return
	}
	var pretty interface{}
	if err := json.Unmarshal(payload, &pretty); err != nil {
		fmt.Println(string(payload))
		return
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(string(payload))
		return
	}
	fmt.Println(string(out))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("vplanectl dev build")
		return nil
	},
}

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "List verbs the daemon has registered",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("help")
	},
}

var rawCmd = &cobra.Command{
	Use:   "raw <command line>",
	Short: "Send an arbitrary console command line verbatim",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args...)
	},
}

var routeCmd = &cobra.Command{
	Use:   "route [get <vrf> <addr> | delete <vrf> <addr> <depth> <scope>]",
	Short: "Show or manipulate IPv4 routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(append([]string{"route"}, args...)...)
	},
}

var route6Cmd = &cobra.Command{
	Use:   "route6",
	Short: "IPv6 routes (unsupported)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(append([]string{"route6"}, args...)...)
	},
}

var vrfCmd = &cobra.Command{
	Use:   "vrf",
	Short: "List VRFs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("vrf")
	},
}

var ecmpCmd = &cobra.Command{
	Use:   "ecmp [max-path]",
	Short: "Show or set the ECMP max-path limit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(append([]string{"ecmp"}, args...)...)
	},
}

var incompleteCmd = &cobra.Command{
	Use:   "incomplete",
	Short: "Show deferred-config cache counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("incomplete")
	},
}

var arpCmd = &cobra.Command{
	Use:   "arp [delete <ifindex> <addr>]",
	Short: "Show or manipulate the ARP cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(append([]string{"arp"}, args...)...)
	},
}

var ifconfigCmd = &cobra.Command{
	Use:   "ifconfig [name]",
	Short: "Show interface state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(append([]string{"ifconfig"}, args...)...)
	},
}

var falCmd = &cobra.Command{
	Use:   "fal",
	Short: "Show hardware-shadow stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("fal")
	},
}

var localCmd = &cobra.Command{
	Use:   "local <vrf> <addr>",
	Short: "Resolve a forwarding lookup",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(append([]string{"local"}, args...)...)
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show internal counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("show")
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline show|feature <attach-point> <ifindex> [feature-id] [on|off]",
	Short: "Show or set per-interface pipeline feature state",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(append([]string{"pipeline"}, args...)...)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset dataplane configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("reset")
	},
}
