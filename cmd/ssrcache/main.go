// Command ssrcache serves server-rendered pages through an in-memory render
// cache, with an admin API for warming, purging and invalidation.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonwraymond/rendercache/config"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/secret"
	"github.com/jonwraymond/rendercache/server"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ssrcache %s\n", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ssrcache: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ResolveSecrets(ctx, secret.NewDefaultResolver(cfg.Admin.SecretDir)); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ocfg := cfg.ObserverConfig(version)
	ocfg.Metrics.Registerer = registry
	obs, err := observe.NewObserver(ctx, ocfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()

	srv, err := server.New(cfg, server.Options{Observer: obs, Registry: registry})
	if err != nil {
		return err
	}
	defer srv.Close()

	if !server.NewAuthenticator(cfg.Admin).Configured() {
		logger.Warn(ctx, "no admin credential configured, admin API will answer 403",
			observe.F("env", config.EnvAdminKey))
	}

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, logger)
		if err != nil {
			return err
		}
		watcher.OnChange(srv.Apply)
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	logger.Info(ctx, "starting ssrcache",
		observe.F("version", version),
		observe.F("addr", cfg.Server.Addr),
		observe.F("upstream", cfg.Render.Upstream),
		observe.F("max_entries", cfg.Cache.MaxEntries),
		observe.F("max_bytes", cfg.Cache.MaxBytes))

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info(context.Background(), "ssrcache stopped")
	return nil
}
