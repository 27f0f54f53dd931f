// Command pluginhost is the Plugin Host Supervisor subprocess: one per
// Song, dialing back into the Audio Engine's control socket and serving
// plugin load/unload/GUI/state requests from it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/ticktrack/core/pkg/config"
	"github.com/ticktrack/core/pkg/control"
	"github.com/ticktrack/core/pkg/manifest"
	"github.com/ticktrack/core/pkg/nativeplugin"
	"github.com/ticktrack/core/pkg/pluginhost"
)

var (
	pipe        = pflag.String("pipe", "", "control socket path to dial (required, handed down by the Engine)")
	pluginPath  = pflag.StringSlice("plugin-path", nil, "directories to scan for plugin .so files (repeatable, overrides TICKTRACK_PLUGIN_PATHS)")
	dotenv      = pflag.String("dotenv", ".env", "optional .env overlay for TICKTRACK_* tuning")
	noGUI       = pflag.Bool("no-gui", false, "disable the X11 window host (headless: plugin GUIs stay unopened)")
)

func main() {
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "pluginhost"})

	cfg, err := config.Load(*dotenv)
	if err != nil {
		logger.Fatal("config", "err", err)
	}
	if len(*pluginPath) > 0 {
		cfg.PluginPaths = *pluginPath
	}
	if *pipe == "" {
		logger.Fatal("missing required -pipe flag")
	}

	conn, err := control.Dial(*pipe)
	if err != nil {
		logger.Fatal("dial control socket", "path", *pipe, "err", err)
	}
	defer conn.Close()

	registry := manifest.NewRegistry(cfg.PluginPaths...)
	if err := registry.Scan(); err != nil {
		logger.Warn("initial plugin scan encountered errors", "err", err)
	}

	var windows nativeplugin.WindowHost
	if !*noGUI {
		host, err := nativeplugin.NewX11WindowHost()
		if err != nil {
			logger.Warn("X11 window host unavailable, plugin GUIs disabled", "err", err)
		} else {
			windows = host
			defer host.Close()
		}
	}

	supervisor := pluginhost.New(pluginhost.Config{
		Conn:     conn,
		Logger:   logger.With("component", "supervisor"),
		Windows:  windows,
		Registry: registry,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := supervisor.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("serve", "err", err)
	}
}
