// Package main is the entry point for the nuclide debugger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/keystorm/internal/app"
	"github.com/dshills/keystorm/internal/config"
	"github.com/dshills/keystorm/internal/integration"
	"github.com/dshills/keystorm/internal/integration/debug"
	"github.com/dshills/keystorm/internal/integration/debug/adapters"
	"github.com/dshills/keystorm/internal/repl"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cliOptions holds the flags parsed from the command line, layered
// over whatever the config system loads from disk.
type cliOptions struct {
	configPath string
	logLevel   string

	adapterType string
	request     string
	stopOnEntry bool

	program string
	args    []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger := app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(opts.logLevel),
		Output: os.Stderr,
		Prefix: "nuclide",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		return 1
	}
	defer cfg.Close()

	application := app.New(app.Options{Logger: logger})

	adapter, err := buildAdapter(cfg, opts)
	if err != nil {
		logger.Error("failed to configure adapter: %v", err)
		return 1
	}

	eventBus := integration.NewEventBus()
	eventLog := logger.WithComponent("events")
	eventBus.Subscribe("debug.*", func(data map[string]any) {
		eventLog.Debug("%v", data)
	})

	wd, _ := os.Getwd()
	mgr, err := integration.NewManager(
		integration.WithWorkspaceRoot(wd),
		integration.WithEventBus(eventBus),
		integration.WithShutdownTimeout(5*time.Second),
	)
	if err != nil {
		logger.Error("failed to start integration manager: %v", err)
		return 1
	}
	defer mgr.Close()

	consoleCfg := cfg.Console()
	console := repl.NewConsole(os.Stdin, os.Stdout, consoleCfg.Prompt)
	registry := debug.NewCommandRegistry()
	repl.RegisterAll(registry, console)

	d := debug.NewDebugger(console, registry)
	application.SetDebugger(d)

	if err := d.Launch(ctx, adapter); err != nil {
		logger.Error("failed to launch adapter: %v", err)
		// Fatal adapter failure during launch preserves the legacy
		// behavior spec.md §9 documents: terminate with status 0.
		return 0
	}

	// Adopt the subprocess the engine just spawned so the integration
	// manager's supervisor signals and reaps it on shutdown regardless
	// of whether the DAP disconnect request the engine sends is honored.
	if cmd := d.AdapterCmd(); cmd != nil {
		if _, err := mgr.Supervisor().Adopt("dap-adapter", cmd); err != nil {
			logger.Error("failed to supervise adapter process: %v", err)
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	dispatcher := repl.NewCommandDispatcher(console, registry, d, application)
	go func() {
		_ = application.Run(ctx)
	}()

	err = dispatcher.Run(ctx)

	shutdownErr := application.Shutdown(5 * time.Second)
	if shutdownErr != nil {
		logger.Error("shutdown: %v", shutdownErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig loads the layered TOML configuration described in
// SPEC_FULL.md §6: NUCLIDE_* environment variables over config.toml in
// the -config directory over the user's ~/.config/nuclide/settings.toml.
func loadConfig(ctx context.Context, opts cliOptions) (*config.ConfigSystem, error) {
	var sysOpts []config.SystemOption
	if opts.configPath != "" {
		sysOpts = append(sysOpts, config.WithSystemProjectConfigDir(opts.configPath))
	}
	return config.NewConfigSystem(ctx, sysOpts...)
}

// buildAdapter constructs the adapters.Adapter to launch from CLI
// flags layered over the loaded configuration's defaults.
func buildAdapter(cfg *config.ConfigSystem, opts cliOptions) (adapters.Adapter, error) {
	defaults := cfg.Adapter()

	adapterType := opts.adapterType
	if adapterType == "" {
		adapterType = defaults.Type
	}
	request := opts.request
	if request == "" {
		request = defaults.Request
	}

	registry := adapters.NewRegistry()
	return registry.Create(adapters.Config{
		Type:        adapters.AdapterType(adapterType),
		Request:     request,
		Program:     opts.program,
		Args:        opts.args,
		StopOnEntry: opts.stopOnEntry || defaults.StopOnEntry,
	})
}

func parseFlags() cliOptions {
	var opts cliOptions
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Project configuration directory (reads config.toml)")
	flag.StringVar(&opts.configPath, "c", "", "Project configuration directory (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.adapterType, "adapter", "", "Debug adapter type (delve, nodejs, python)")
	flag.StringVar(&opts.request, "request", "", "Session request mode (launch, attach)")
	flag.BoolVar(&opts.stopOnEntry, "stop-on-entry", false, "Stop at the program entry point")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "nuclide - interactive command-line DAP debugger\n\n")
		fmt.Fprintf(os.Stderr, "Usage: nuclide [options] <program> [program args...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  nuclide ./myprogram                  Launch and debug a Go binary via delve\n")
		fmt.Fprintf(os.Stderr, "  nuclide -adapter python app.py       Launch a Python program under debugpy\n")
		fmt.Fprintf(os.Stderr, "  nuclide -stop-on-entry ./myprogram   Stop at program entry\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("nuclide %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.logLevel {
	case "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	rest := flag.Args()
	if len(rest) > 0 {
		opts.program = rest[0]
		opts.args = rest[1:]
	}

	return opts
}
