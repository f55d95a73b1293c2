// Package vplog provides the dataplane's process-wide logger.
package vplog

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance.
var Logger = logrus.New()

// debugMask gates Debug-level lines per named subsystem (spec.md §6's
// 32-flag debug bitmask). Bit i corresponds to DebugFlagNames[i].
var debugMask uint32

// DebugFlagNames is the fixed 32-name debug bitmask table.
var DebugFlagNames = [32]string{
	"init", "link", "arp", "bridge",
	"nl_link", "nl_addr", "nl_route", "nl_neigh", "nl_vrf",
	"route", "qos", "npf", "crypto", "dpi", "ptp",
	"debug16", "debug17", "debug18", "debug19", "debug20",
	"debug21", "debug22", "debug23", "debug24", "debug25",
	"debug26", "debug27", "debug28", "debug29", "debug30",
	"debug31", "debug32",
}

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logging level.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination.
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat enables JSON log format.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger with a field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns a logger with multiple fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithComponent returns a logger tagged with a dataplane component name.
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// SetDebugFlags resolves a list of debug-bitmask names into the active
// mask. Unknown names are ignored (logged at Warn by the caller, via
// pkg/config, which knows the source of the list).
func SetDebugFlags(names []string) (unknown []string) {
	var mask uint32
	for _, n := range names {
		found := false
		for i, known := range DebugFlagNames {
			if known == n {
				mask |= 1 << uint(i)
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, n)
		}
	}
	atomic.StoreUint32(&debugMask, mask)
	return unknown
}

// DebugEnabled reports whether the named debug flag is set.
func DebugEnabled(name string) bool {
	mask := atomic.LoadUint32(&debugMask)
	for i, known := range DebugFlagNames {
		if known == name {
			return mask&(1<<uint(i)) != 0
		}
	}
	return false
}

// Debugf logs at Debug level only if the named flag is enabled.
func Debugf(flag, format string, args ...interface{}) {
	if DebugEnabled(flag) {
		Logger.WithField("debug", flag).Debugf(format, args...)
	}
}
