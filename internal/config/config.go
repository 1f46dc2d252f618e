// Package config loads emulator configuration layered, in increasing
// priority: built-in defaults, an optional TOML file, environment
// variables prefixed PIC16SIM_, and (applied by the caller) explicit
// command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the emulator's runtime configuration.
type Config struct {
	BridgeDir     string `toml:"bridge_dir"`
	InboundFile   string `toml:"inbound_file"`
	OutboundFile  string `toml:"outbound_file"`
	FramePeriodMS int    `toml:"frame_period_ms"`
}

// Default returns the built-in defaults: the bridge directory is the
// working directory, file names match the reference front-end, and
// the frame period is the slow interactive rate used before XTAL is
// configured.
func Default() Config {
	return Config{
		BridgeDir:     ".",
		InboundFile:   "gui_change.dat",
		OutboundFile:  "gui_set.dat",
		FramePeriodMS: 100,
	}
}

// Load builds a Config starting from Default, layering in tomlPath (if
// non-empty and present) and then any PIC16SIM_* environment
// variables that are set. A missing tomlPath is not an error; an
// unreadable or malformed one is.
func Load(tomlPath string) (Config, error) {
	cfg := Default()

	if tomlPath != "" {
		if _, err := os.Stat(tomlPath); err == nil {
			if _, err := toml.DecodeFile(tomlPath, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: %s: %w", tomlPath, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: %s: %w", tomlPath, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("PIC16SIM_BRIDGE_DIR"); ok {
		cfg.BridgeDir = v
	}
	if v, ok := os.LookupEnv("PIC16SIM_INBOUND_FILE"); ok {
		cfg.InboundFile = v
	}
	if v, ok := os.LookupEnv("PIC16SIM_OUTBOUND_FILE"); ok {
		cfg.OutboundFile = v
	}
	if v, ok := os.LookupEnv("PIC16SIM_FRAME_PERIOD_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FramePeriodMS = n
		}
	}
}
