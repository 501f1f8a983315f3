// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omnidao/bridge"
	"github.com/omnidao/bridge/config"
	"github.com/omnidao/bridge/controller"
	"github.com/omnidao/bridge/governance"
	"github.com/omnidao/bridge/guard"
	"github.com/omnidao/bridge/tree"
)

var version = "v0.0.0-dev"

func main() {
	cfg := buildConfig()

	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevelOrDefault())
	logger, err := logCfg.Build()
	if err != nil {
		log.Fatalf("error building logger: %s", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("initializing bridge node",
		zap.String("version", version),
		zap.Uint32("sourceEID", cfg.SourceEID),
		zap.Uint32("destinationEID", cfg.DestinationEID),
	)

	registry := prometheus.NewRegistry()

	mem, err := tree.NewMemory(cfg.TreeDepth)
	if err != nil {
		logger.Fatal("failed to create tree", zap.Error(err))
	}

	ctrl, err := controller.New(
		logger.Named("controller"),
		registry,
		mem,
		cfg.ControllerConfig(),
	)
	if err != nil {
		logger.Fatal("failed to create controller", zap.Error(err))
	}

	// The in-process transport stands in for the external messaging
	// channel; the endpoint adapter slots in here when one is wired up.
	transport := bridge.NewMemoryTransport(cfg.SourceEID, cfg.PeerAddr(), 100, 1)
	transport.Register(cfg.DestinationEID, ctrl)

	dao := governance.New(
		logger.Named("dao"),
		transport,
		guard.New(cfg.SendLimit, cfg.SendWindow),
		cfg.DestinationEID,
		cfg.PeerAddr(),
		cfg.PeerAddr(),
		governance.WithVotingPeriod(cfg.VotingPeriod),
		governance.WithQuorumPercent(cfg.QuorumPercent),
	)
	logger.Info("governance initialized", zap.Int("members", dao.MemberCount()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errGroup, ctx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to run metrics server: %w", err)
		}
		return nil
	})

	logger.Info("initialization complete")
	if err := errGroup.Wait(); err != nil {
		logger.Fatal("exited with error", zap.Error(err))
	}
}

// buildConfig parses the flags and builds the config. Errors here call
// log.Fatalf since they happen before the logger exists.
func buildConfig() config.Config {
	fs := config.BuildFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		config.DisplayUsageText()
		log.Fatalf("Failed to parse flags: %s", err)
	}

	displayVersion, err := fs.GetBool(config.VersionKey)
	if err != nil {
		log.Fatalf("error reading %s flag: %s", config.VersionKey, err)
	}
	if displayVersion {
		fmt.Printf("%s\n", version)
		os.Exit(0)
	}

	help, err := fs.GetBool(config.HelpKey)
	if err != nil {
		log.Fatalf("error reading %s flag value: %s", config.HelpKey, err)
	}
	if help {
		config.DisplayUsageText()
		os.Exit(0)
	}

	v, err := config.BuildViper(fs)
	if err != nil {
		log.Fatalf("couldn't configure flags: %s", err)
	}

	cfg, err := config.NewConfig(v)
	if err != nil {
		log.Fatalf("couldn't build config: %s", err)
	}
	return cfg
}
