// Sentinel - Submission risk scoring for the Student Book of World Records.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bookofrecords/sentinel/internal/activity"
	"github.com/bookofrecords/sentinel/internal/api"
	"github.com/bookofrecords/sentinel/internal/bus"
	"github.com/bookofrecords/sentinel/internal/cache"
	"github.com/bookofrecords/sentinel/internal/domain"
	"github.com/bookofrecords/sentinel/internal/engine"
	"github.com/bookofrecords/sentinel/internal/moderation"
	"github.com/bookofrecords/sentinel/internal/repository"
	"github.com/bookofrecords/sentinel/internal/rules"
	"github.com/bookofrecords/sentinel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SENTINEL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting sentinel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("SENTINEL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"moderation_model", cfg.Moderation.Model,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize the moderation client. A missing API key is a
	// configuration error, not a degraded mode.
	moderator, err := moderation.New(cfg.Moderation)
	if err != nil {
		slog.Error("failed to initialize moderation client", "error", err)
		os.Exit(1)
	}
	cachedModerator := moderation.NewCached(moderator, cacheImpl, time.Duration(cfg.Moderation.VerdictTTLSecs)*time.Second)
	slog.Info("moderation client initialized", "model", cfg.Moderation.Model)

	// Initialize Activity Service
	activitySvc := activity.NewService(repo)
	slog.Info("activity service initialized")

	// Initialize Rule Engine for custom checks
	ruleEngine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}

	// Load checks from database (no hardcoded defaults - configure via API)
	if err := loadChecksFromDatabase(ctx, repo, ruleEngine); err != nil {
		slog.Error("failed to load checks", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "checks_count", ruleEngine.ChecksCount())

	// Initialize Risk Assessment Engine
	riskEngine, err := engine.New(activitySvc, cachedModerator, ruleEngine)
	if err != nil {
		slog.Error("failed to initialize risk engine", "error", err)
		os.Exit(1)
	}
	slog.Info("risk engine initialized")

	// Initialize async Worker (Pro tier)
	asyncAssess := cfg.Tier == domain.TierPro || os.Getenv("SENTINEL_ASYNC_WORKER") == "true"
	var asyncWorker *worker.Worker
	if asyncAssess {
		asyncWorker = worker.NewWorker(busImpl, repo, riskEngine)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
			asyncAssess = false
		} else {
			slog.Info("async worker started")
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, riskEngine, ruleEngine, asyncAssess)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("sentinel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("sentinel shutdown complete")
}

// applyEnvOverrides layers environment settings over the tier defaults.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("SENTINEL_MODERATION_API_KEY"); v != "" {
		cfg.Moderation.APIKey = v
	}
	if v := os.Getenv("SENTINEL_MODERATION_BASE_URL"); v != "" {
		cfg.Moderation.BaseURL = v
	}
	if v := os.Getenv("SENTINEL_MODERATION_MODEL"); v != "" {
		cfg.Moderation.Model = v
	}
	if v := os.Getenv("SENTINEL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SENTINEL_RATE_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = limit
		}
	}
	if v := os.Getenv("SENTINEL_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("SENTINEL_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("SENTINEL_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SENTINEL_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
}

// loadChecksFromDatabase loads enabled custom checks into the engine.
// All checks must be configured via POST /api/v1/checks - no hardcoded defaults.
func loadChecksFromDatabase(ctx context.Context, repo domain.Repository, ruleEngine *rules.Engine) error {
	dbChecks, err := repo.ListCheckConfigs(ctx)
	if err != nil {
		slog.Warn("failed to list checks from database", "error", err)
		return nil // Start with empty checks - they can be added via API
	}

	if len(dbChecks) > 0 {
		slog.Info("loading checks from database", "count", len(dbChecks))
		return ruleEngine.LoadChecks(dbChecks)
	}

	slog.Info("no checks in database - configure via POST /api/v1/checks")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  SENTINEL - Submission Risk Scoring")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST  /api/v1/assess                      - Score a submission (stateless)")
	fmt.Println("    POST  /api/v1/submissions                 - Create and assess a submission")
	fmt.Println("    GET   /api/v1/submissions/{id}            - Get submission by ID")
	fmt.Println("    GET   /api/v1/submissions/{id}/assessment - Get a submission's assessment")
	fmt.Println("    PATCH /api/v1/submissions/{id}/status     - Update submission status")
	fmt.Println("    GET   /api/v1/assessments/{id}            - Get assessment by ID")
	fmt.Println("    GET   /api/v1/checks                      - List custom checks")
	fmt.Println("    POST  /api/v1/checks                      - Create a custom check")
	fmt.Println("    POST  /api/v1/checks/reload               - Hot-reload checks from database")
	fmt.Println("    GET   /health                             - Health check")
	fmt.Println()
}
