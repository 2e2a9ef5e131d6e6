package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/restd/internal/logger"
	"github.com/marmos91/restd/internal/protocol/command"
	"github.com/marmos91/restd/pkg/config"
	"github.com/marmos91/restd/pkg/server"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const usage = `restd - JSON position server

Usage:
  restd <command> [flags]

Commands:
  start     Start the server
  init      Write a default configuration file
  version   Print the version

Run 'restd <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = runStart(os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "version":
		fmt.Printf("restd %s\n", version)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to write the config file (default: "+config.GetDefaultConfigPath()+")")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("restd %s starting", version)
	logConfig(cfg)

	metricsResult := config.InitializeMetrics(cfg)

	store, err := config.CreatePositionStore(ctx, &cfg.Store, metricsResult.StoreMetrics)
	if err != nil {
		return fmt.Errorf("failed to create position store: %w", err)
	}

	srv := server.New(store)
	if metricsResult.Server != nil {
		srv.SetMetricsServer(metricsResult.Server)
	}

	adapters, err := config.CreateAdapters(cfg, command.NewDispatcher(store), metricsResult.RESTMetrics)
	if err != nil {
		_ = store.Close()
		return err
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func logConfig(cfg *config.Config) {
	rc := cfg.Adapters.REST

	logger.Info("Server configuration:")
	logger.Info("  Listen: %s:%d", rc.ListenAddress, rc.ListenPort)
	logger.Info("  Workers: %d", rc.WorkerCount)
	if rc.MaxConnections > 0 {
		logger.Info("  Max connections: %d", rc.MaxConnections)
	} else {
		logger.Info("  Max connections: unlimited")
	}
	if rc.AcceptRate > 0 {
		logger.Info("  Accept rate: %d/s (burst %d)", rc.AcceptRate, rc.AcceptBurst)
	}
	logger.Info("  Poll timeout: %v", rc.PollTimeout)
	logger.Info("  Write timeout: %v", rc.WriteTimeout)
	logger.Info("  Shutdown timeout: %v", cfg.Server.ShutdownTimeout)
	logger.Info("  Store: %s", cfg.Store.Type)
	if cfg.Server.Metrics.Enabled {
		logger.Info("  Metrics: %s:%d", cfg.Server.Metrics.Address, cfg.Server.Metrics.Port)
	} else {
		logger.Info("  Metrics: disabled")
	}
}
