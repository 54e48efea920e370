package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/classify"
	"github.com/Inovico-app/inovy-sub006/internal/config"
	"github.com/Inovico-app/inovy-sub006/internal/detect"
	"github.com/Inovico-app/inovy-sub006/internal/events"
	"github.com/Inovico-app/inovy-sub006/internal/guardrails"
	"github.com/Inovico-app/inovy-sub006/internal/logger"
	"github.com/Inovico-app/inovy-sub006/internal/server"
	"github.com/Inovico-app/inovy-sub006/internal/store"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// policyStore is the storage surface the engines need, satisfied by the
// Postgres store, the cached store and the in-memory store.
type policyStore interface {
	guardrails.PolicyStore
	classify.PolicyStore
	Close() error
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("Guardian %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Guardian",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Build the policy store
	policies, err := buildStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize policy store", zap.Error(err))
	}
	defer policies.Close()

	// Build the engines
	detector := detect.New(log.WithComponent("detect"))

	var classifierStore classify.PolicyStore
	if cfg.Classification.UsePolicyStore {
		classifierStore = policies
	}
	classifier := classify.NewEngine(detector, classifierStore, log.WithComponent("classify"))

	guards := guardrails.NewEngine(policies, detector, log.WithComponent("guardrails"))
	if cfg.Guardrails.Hallucination.Enabled {
		checker := guardrails.NewOpenAIHallucinationChecker(
			cfg.Guardrails.Hallucination.APIKey,
			cfg.Guardrails.Hallucination.BaseURL,
			cfg.Guardrails.Hallucination.Model,
			log.WithComponent("hallucination"),
		)
		guards.SetHallucinationChecker(checker, cfg.Guardrails.Hallucination.Timeout)
	}

	hub := events.NewHub(&events.HubConfig{
		BroadcastViolations: cfg.Events.BroadcastViolations,
		BroadcastDetections: cfg.Events.BroadcastDetections,
		BroadcastSystem:     cfg.Events.BroadcastSystem,
	}, log.WithComponent("events").Logger)

	srv := server.New(cfg, log, detector, classifier, guards, hub)

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// buildStore assembles the policy store: Postgres when enabled, optionally
// fronted by the Redis cache, or the in-memory store for local development.
func buildStore(cfg *config.Config, log *logger.Logger) (policyStore, error) {
	if !cfg.Store.Enabled {
		log.Warn("Policy store disabled, using in-memory store (development only)")
		return store.NewMemoryStore(), nil
	}

	pg, err := store.New(&store.Config{
		DatabaseURL:     cfg.Store.DatabaseURL,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
	}, log.WithComponent("store").Logger)
	if err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled {
		return pg, nil
	}

	cached, err := store.NewCachedStore(pg, &store.CacheConfig{
		RedisURL:       cfg.Cache.RedisURL,
		MaxConnections: cfg.Cache.MaxConnections,
		MinIdleConns:   cfg.Cache.MinIdleConns,
		DefaultTTL:     cfg.Cache.DefaultTTL,
		KeyPrefix:      cfg.Cache.KeyPrefix,
	}, log.WithComponent("cache").Logger)
	if err != nil {
		// A dead cache should not keep the pipeline down.
		log.Warn("Policy cache unavailable, continuing without it", zap.Error(err))
		return pg, nil
	}
	return cached, nil
}
