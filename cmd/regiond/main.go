// Package main provides regiond - the inbound change processor daemon
// for a regional leg of the multi-region sync engine.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	gosync "sync"
	"syscall"
	"time"

	"github.com/regiond/regiond/internal/config"
	"github.com/regiond/regiond/internal/httpapi"
	"github.com/regiond/regiond/internal/storage"
	"github.com/regiond/regiond/internal/sync"
	"github.com/regiond/regiond/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		apiAddr     = flag.String("api", "0.0.0.0:8080", "Observability API address")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		overlayPath = flag.String("policy-overlay", "", "Optional policy overlay YAML file, overrides POLICY_OVERLAY_PATH")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("regiond %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *overlayPath != "" {
		cfg.PolicyOverlayPath = *overlayPath
	}

	log.Info("config loaded", "region", cfg.Region, "node_env", cfg.NodeEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize sink storage", "error", err)
	}
	defer store.Close()
	log.Info("sink storage initialized", "host", cfg.DBHost, "db", cfg.DBName)

	overlay, err := config.LoadPolicyOverlay(cfg.PolicyOverlayPath)
	if err != nil {
		log.Fatal("failed to load policy overlay", "error", err)
	}
	if len(overlay.ExtraTables) > 0 {
		log.Info("policy overlay loaded", "extra_tables", overlay.ExtraTables)
	}

	metrics := sync.NewMetrics()
	sink := sync.NewSink(store, metrics, sync.Region(cfg.Region))

	apiServer := httpapi.NewServer(metrics)
	if err := apiServer.Start(*apiAddr); err != nil {
		log.Fatal("failed to start observability server", "error", err)
	}

	sink.OnRecord(func(e sync.SyncEvent) {
		apiServer.WSHub().Broadcast(httpapi.EventSyncApplied, e)
	})

	var brokers []string
	if cfg.KafkaBroker != "" {
		brokers = strings.Split(cfg.KafkaBroker, ",")
	}

	consumer := sync.NewConsumer(sync.ConsumerConfig{
		Brokers:  brokers,
		ClientID: cfg.ClientID,
		GroupID:  cfg.GroupID,
	}, sink, sync.Region(cfg.Region))

	var consumerWG gosync.WaitGroup

	busAvailable := false
	if len(brokers) == 0 {
		log.Warn("KAFKA_BROKER not set, starting without sync")
	} else if err := consumer.Dial(ctx); err != nil {
		// Bus unreachability at startup is not fatal; the service
		// continues operating without sync, per spec.md §6.
		log.Warn("bus unreachable at startup, continuing without sync", "error", err)
	} else {
		busAvailable = true
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			consumer.Run(ctx)
		}()
		log.Info("consumer loop started", "topics", sync.Topics)
	}

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Info("status", "region", cfg.Region, "bus_connected", busAvailable)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down...")

	// Cancel first so Run's blocking PollFetches returns and the
	// in-flight message finishes handling before the bus client closes
	// underneath it, per spec.md §5's bounded 30s shutdown window.
	cancel()

	done := make(chan struct{})
	go func() {
		consumerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn("consumer loop did not exit within the shutdown window")
	}

	consumer.Close()

	if err := apiServer.Stop(); err != nil {
		log.Error("error stopping observability server", "error", err)
	}

	log.Info("goodbye!")
}
