package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/browser"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/config"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/logging"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/mcpserver"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/replay"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/testgen"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/tools"
)

// Version information - set via ldflags during build
var (
	version = "1.0.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to YAML config file")
		transport    = flag.String("transport", "", "serving transport: stdio or http")
		httpAddr     = flag.String("addr", "", "listen address for http transport")
		logLevel     = flag.String("log-level", "", "log level: debug, info, warn, error")
		sessionsDir  = flag.String("sessions-dir", "", "directory for saved session files")
		maxInstances = flag.Int("max-instances", 0, "maximum concurrent browser instances")
		headless     = flag.Bool("headless", true, "run browsers headless")
		noRecording  = flag.Bool("no-recording", false, "disable session recording")
		showVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("concurrent-browser-mcp %s (%s)\n", version, commit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, transport, httpAddr, logLevel, sessionsDir, maxInstances, headless, noRecording)

	level, err := logging.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg *config.Config, transport, httpAddr, logLevel, sessionsDir *string, maxInstances *int, headless, noRecording *bool) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["transport"] {
		cfg.Server.Transport = *transport
	}
	if set["addr"] {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if set["log-level"] {
		cfg.Server.LogLevel = *logLevel
	}
	if set["sessions-dir"] {
		cfg.Recording.SessionsDir = *sessionsDir
	}
	if set["max-instances"] {
		cfg.Pool.MaxInstances = *maxInstances
	}
	if set["headless"] {
		cfg.Browser.Headless = *headless
	}
	if set["no-recording"] {
		cfg.Recording.Enabled = !*noRecording
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewStore(session.Options{
		Enabled:             cfg.Recording.Enabled,
		AutoSave:            cfg.Recording.AutoSave,
		CaptureFullPageData: cfg.Recording.CaptureFullPageData,
		Dir:                 cfg.Recording.SessionsDir,
		Logger:              logger,
	})

	manager := browser.NewManager(browser.ManagerConfig{
		MaxInstances:    cfg.Pool.MaxInstances,
		InstanceTimeout: cfg.Pool.InstanceTimeout,
		CleanupInterval: cfg.Pool.CleanupInterval,
		DefaultHeadless: cfg.Browser.Headless,
		DefaultViewport: session.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		DefaultUserAgent: cfg.Browser.UserAgent,
		DefaultProxy:     cfg.Browser.Proxy,
	}, logger)
	defer manager.Close()

	registry := tools.NewRegistry(store)
	tools.RegisterBrowserTools(registry, manager, store)

	replayer := replay.NewEngine(manager, registry, manager, logger)
	generator := testgen.NewGenerator(store)

	replayDefaults := replay.Options{
		StopOnError: cfg.Replay.StopOnError,
		Delay:       cfg.Replay.Delay,
	}
	srv := mcpserver.New(version, registry, store, replayer, generator, replayDefaults, logger)

	switch cfg.Server.Transport {
	case "http":
		return srv.ServeHTTP(ctx, cfg.Server.HTTPAddr)
	default:
		return srv.ServeStdio(ctx)
	}
}
