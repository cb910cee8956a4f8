// Command triangle opens a window and draws a red triangle on a green background through a
// GPU render surface embedded in the native view. Features are selected at build time with
// the oxy_drawrect, oxy_novsync, oxy_vsynctimer, oxy_eagerredraw and oxy_twoviews tags.
package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
)

var configPath = flag.String("config", "", "TOML settings file")

func init() {
	// the windowing system must be driven from the main thread
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return 1
	}
	level, err := cfg.LogLevel()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return 1
	}
	var levelVar slog.LevelVar
	levelVar.Set(level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar}))
	common.SetLogger(logger)

	if *configPath != "" {
		// only the log level applies to a running host; window and GPU settings take a restart
		w, err := config.Watch(*configPath, func(next config.Config) {
			if lvl, err := next.LogLevel(); err == nil {
				levelVar.Set(lvl)
			}
		})
		if err != nil {
			logger.Warn("config changes will not be picked up", "err", err)
		} else {
			defer w.Close()
		}
	}

	eng := engine.NewEngine(engine.WithConfig(cfg))
	if err := eng.Run(); err != nil {
		logger.Error("triangle exited", "err", err)
		return 1
	}
	return 0
}
