// Package config loads host-process tuning for the Plugin Host Supervisor
// and Audio Engine binaries: tick rate, the control-socket path prefix, and
// plugin search roots. A .env file overlays the process environment for
// local development (github.com/joho/godotenv); the merged result is
// validated with github.com/go-playground/validator/v10 before any binary
// trusts it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the tuning shared by cmd/pluginhost and cmd/enginesmoke.
// Per-binary flags (pkg/config doesn't know about -pipe/-plugin-path;
// those are pflag-parsed in each main and override the matching field here)
// layer on top of what Load returns.
type Config struct {
	// SocketPrefix is prepended to the control-socket and audio-transport
	// filesystem paths a Song's slots are addressed under.
	SocketPrefix string `validate:"required"`

	// PluginPaths is the ordered list of directories the manifest Registry
	// scans for loadable *.so plugin libraries.
	PluginPaths []string `validate:"required,min=1,dive,required"`

	// TickInterval is the window-message pump interval (~60 Hz). It is
	// loaded and validated here but not read by pluginhost.Supervisor, which
	// pumps on its own fixed 1/60 s ticker.
	TickInterval time.Duration `validate:"required,gt=0"`

	// UnderrunWarnEvery is the block cadence of buffer-underrun warnings. It
	// is loaded and validated here but not read by the Engine, which logs
	// the warning when its processed-block count is a multiple of 256.
	UnderrunWarnEvery uint64 `validate:"gte=1"`
}

// Default returns the tuning used when no environment overrides are present.
func Default() Config {
	return Config{
		SocketPrefix:      "/tmp/ticktrack",
		PluginPaths:       []string{"/usr/lib/ticktrack/plugins"},
		TickInterval:      time.Second / 60,
		UnderrunWarnEvery: 256,
	}
}

// Load overlays dotenvPath (if it exists; a missing file is not an error)
// onto the process environment, fills a Config from the TICKTRACK_* keys
// over Default()'s values, and validates the result.
func Load(dotenvPath string) (Config, error) {
	if _, err := os.Stat(dotenvPath); err == nil {
		if err := godotenv.Load(dotenvPath); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", dotenvPath, err)
		}
	}

	cfg := Default()
	if v := os.Getenv("TICKTRACK_SOCKET_PREFIX"); v != "" {
		cfg.SocketPrefix = v
	}
	if v := os.Getenv("TICKTRACK_PLUGIN_PATHS"); v != "" {
		cfg.PluginPaths = strings.Split(v, string(os.PathListSeparator))
	}
	if v := os.Getenv("TICKTRACK_TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: TICKTRACK_TICK_INTERVAL_MS: %w", err)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("TICKTRACK_UNDERRUN_WARN_EVERY"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: TICKTRACK_UNDERRUN_WARN_EVERY: %w", err)
		}
		cfg.UnderrunWarnEvery = n
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}
