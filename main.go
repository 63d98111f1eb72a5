package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/serroba/docpatch/internal/acl"
	"github.com/serroba/docpatch/internal/api"
	"github.com/serroba/docpatch/internal/collab"
	"github.com/serroba/docpatch/internal/config"
	"github.com/serroba/docpatch/internal/storage"
	"github.com/serroba/docpatch/internal/ws"
)

func main() {
	opts, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	if opts.GenerateConfig {
		if opts.ConfigPath == "" {
			log.Fatal("-generate-config needs -config")
		}

		if err := config.SaveDefaultConfig(opts.ConfigPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}

		log.Printf("Default configuration written to %s", opts.ConfigPath)

		return
	}

	cfg := opts.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize stores
	store := storage.NewMemoryStore()
	permStore := acl.NewMemoryStore()
	policy := storage.NewSnapshotPolicy(cfg.SnapshotThreshold)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := ws.NewHub()

	manager := collab.NewManager(collab.ManagerConfig{
		Store:          store,
		PermStore:      permStore,
		Hub:            hub,
		SnapshotPolicy: policy,
		Metrics:        collab.NewMetrics(registry),
	})

	serverCfg := api.ServerConfig{
		Manager:        manager,
		Store:          store,
		PermStore:      permStore,
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.MetricsEnabled {
		serverCfg.Gatherer = registry
	}

	if opts.ConfigPath != "" {
		watchConfig(ctx, opts.ConfigPath, policy)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(serverCfg).Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on %s", cfg.Addr)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	if err := manager.CloseAll(); err != nil {
		log.Printf("Failed to snapshot open documents: %v", err)
	}

	log.Println("Server stopped")
}

// watchConfig applies snapshot threshold changes from the config file while
// the server runs.
func watchConfig(ctx context.Context, path string, policy *storage.SnapshotPolicy) {
	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
		if cfg.SnapshotThreshold != policy.Threshold() {
			log.Printf("Snapshot threshold changed from %d to %d", policy.Threshold(), cfg.SnapshotThreshold)
			policy.SetThreshold(cfg.SnapshotThreshold)
		}
	})
	if err != nil {
		log.Printf("Config watching disabled: %v", err)

		return
	}

	go watcher.Run(ctx)
}
