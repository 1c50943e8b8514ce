package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brettbedarf/daapfs/adapters"
	"github.com/brettbedarf/daapfs/config"
	"github.com/brettbedarf/daapfs/discovery"
	"github.com/brettbedarf/daapfs/internal/metrics"
	"github.com/brettbedarf/daapfs/internal/util"
	"github.com/brettbedarf/daapfs/server"
	"github.com/spf13/pflag"
)

func main() {
	// Parse command line arguments
	var (
		configPath  string
		verbose     int
		umount      bool
		noBrowse    bool
		metricsAddr string
		staticHosts []string
	)
	flags := pflag.NewFlagSet("daapfs", pflag.ExitOnError)
	flags.StringVarP(&configPath, "config", "c", "", "Path to a yaml, json or toml config file")
	flags.IntVarP(&verbose, "verbose", "v", 3, "Log verbosity level between 1 (error) and 5 (trace)")
	flags.BoolVarP(&umount, "umount", "u", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	flags.BoolVar(&noBrowse, "no-browse", false, "Only use static hosts; do not browse the network")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address, i.e. :9090")
	flags.StringArrayVar(&staticHosts, "static-host", nil, "Catalog host known ahead of time as name=address (repeatable)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: daapfs [flags] <mountpoint>\n\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:]) // ExitOnError

	// Initialize logger
	cfg, err := loadConfig(flags, configPath, verbose, metricsAddr, staticHosts)
	if err != nil {
		util.InitializeLogger(config.DefaultLogLvl)
		logger := util.GetLogger("main")
		logger.Fatal().Err(err).Str("config", configPath).Msg("Invalid configuration")
	}
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	mnt := flags.Arg(0)
	logger.Info().Str("config", configPath).Str("mnt", mnt).Strs("views", cfg.Views).Msg("daapfs initializing")
	// Check if mount point is provided
	if mnt == "" {
		logger.Fatal().Msg("Mount point not specified; it must be passed as the argument")
	}
	// Try unmount if requested
	if umount { // send cli command
		cmd := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		cmd.Run() // nolint:errcheck
	}

	// Register all built-in catalogs
	registry := adapters.NewRegistry()
	adapters.RegisterBuiltins(registry)
	dialer, err := registry.NewDialer(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("catalog", cfg.CatalogType).Msg("Failed to create catalog dialer")
	}

	static, err := discovery.NewStatic(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid static host")
	}
	resolver := discovery.Chain{static}
	if !noBrowse {
		resolver = append(resolver, discovery.NewZeroconfResolver(cfg, nil))
	}

	fs, err := server.New(cfg, resolver, dialer)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build filesystem")
	}

	// Serve
	if err := fs.Serve(mnt); err != nil {
		logger.Fatal().Err(err).Msg("Failed to mount filesystem")
	}
	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metrics.Handler(),
		}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics server listening")
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server error")
			}
		}()
	}

	// Start discovery
	ctx, cancel := context.WithCancel(context.Background())
	var discovering sync.WaitGroup
	discovering.Go(func() { static.Run(ctx, fs.Listener(), cfg.BrowseInterval) })
	if !noBrowse {
		browser := discovery.NewBrowser(cfg, fs.Listener(), nil)
		discovering.Go(func() { browser.Run(ctx) })
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for termination signal
	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	cancel()
	discovering.Wait()
	fs.Shutdown()

	if metricsServer != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := metricsServer.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to stop metrics server")
		}
		scancel()
	}

	// Unmount the filesystem
	if err := fs.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
	} else {
		logger.Info().Msg("Filesystem unmounted successfully")
	}
}

// loadConfig layers the config file, if any, and then explicitly set flags
// over the defaults
func loadConfig(flags *pflag.FlagSet, path string, verbose int, metricsAddr string, staticHosts []string) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if path != "" {
		override, err := config.LoadConfigOverrideFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(override)
	}

	var override config.ConfigOverride
	if flags.Changed("verbose") {
		override.LogLvl = &verbose
	}
	if flags.Changed("metrics-addr") {
		override.MetricsAddr = &metricsAddr
	}
	for _, spec := range staticHosts {
		name, addr, ok := strings.Cut(spec, "=")
		if !ok || name == "" || addr == "" {
			return nil, fmt.Errorf("static host %q: want name=address", spec)
		}
		override.StaticHosts = append(override.StaticHosts, config.StaticHost{Name: name, Address: addr})
	}
	cfg.Merge(&override)
	return cfg, nil
}
