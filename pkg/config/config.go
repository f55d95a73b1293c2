// Package config implements the daemon's startup configuration (SPEC_FULL
// §C13): a YAML file loaded the same way the teacher's pkg/settings loads
// its JSON settings file (default path under the user's home directory,
// LoadFrom for an explicit path, missing file is not an error), with
// environment variable overrides applied after the file loads.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vplaned/dataplane/pkg/vplog"
)

// Config is the daemon's full startup configuration (SPEC_FULL §C13).
type Config struct {
	ConsolePath     string   `yaml:"console_path"`
	ConsoleUID      int      `yaml:"console_uid"`
	ConsoleGID      int      `yaml:"console_gid"`
	RedisAddr       string   `yaml:"redis_addr"`
	RedisChannel    string   `yaml:"redis_channel"`
	ForwardingCores int      `yaml:"forwarding_cores"`
	DebugFlags      []string `yaml:"debug_flags"`
	ECMPMaxPath     int      `yaml:"ecmp_max_path"`
	NextHopPoolSize int      `yaml:"next_hop_pool_size"`
}

// Defaults mirror the values the original dataplane ships with: a single
// console socket under /var/run, the default Redis port, one forwarding
// core if unconfigured, and the vyatta-dataplane ECMP default of 4 paths.
func Defaults() *Config {
	return &Config{
		ConsolePath:     "/var/run/vplaned/console.sock",
		ConsoleUID:      0,
		ConsoleGID:      0,
		RedisAddr:       "127.0.0.1:6379",
		RedisChannel:    "vplaned:events",
		ForwardingCores: 1,
		ECMPMaxPath:     4,
		NextHopPoolSize: 1 << 16,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/vplaned/config.yaml"
	}
	return filepath.Join(home, ".vplaned", "config.yaml")
}

// Load reads configuration from the default location, then applies
// VPLANED_* environment overrides.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads configuration from an explicit path. A missing file is
// not an error — Defaults() is returned instead, same as the teacher's
// settings.LoadFrom treats a missing settings file.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies VPLANED_* environment variables on top of the
// loaded file, following the same file-then-env-override shape the
// teacher applies for its own NEWTRON_* variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VPLANED_CONSOLE_PATH"); v != "" {
		cfg.ConsolePath = v
	}
	if v := os.Getenv("VPLANED_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("VPLANED_REDIS_CHANNEL"); v != "" {
		cfg.RedisChannel = v
	}
	if v := os.Getenv("VPLANED_FORWARDING_CORES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ForwardingCores = n
		}
	}
	if v := os.Getenv("VPLANED_ECMP_MAX_PATH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ECMPMaxPath = n
		}
	}
	if v := os.Getenv("VPLANED_DEBUG_FLAGS"); v != "" {
		cfg.DebugFlags = strings.Split(v, ",")
	}
}

// ApplyDebugFlags resolves the configured debug flag names into vplog's
// active mask, warning about any name it does not recognise.
func ApplyDebugFlags(cfg *Config) {
	unknown := vplog.SetDebugFlags(cfg.DebugFlags)
	for _, name := range unknown {
		vplog.WithField("flag", name).Warn("config: unknown debug flag name")
	}
}
