// interviewd server — capability-token gated interview API, tamper-evident
// anti-cheat chain verification, AI proxying, and per-session streaming.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/firstround/interviewd/pkg/ai"
	"github.com/firstround/interviewd/pkg/anticheat"
	"github.com/firstround/interviewd/pkg/api"
	"github.com/firstround/interviewd/pkg/cleanup"
	"github.com/firstround/interviewd/pkg/codeeval"
	"github.com/firstround/interviewd/pkg/config"
	"github.com/firstround/interviewd/pkg/database"
	"github.com/firstround/interviewd/pkg/events"
	"github.com/firstround/interviewd/pkg/media"
	"github.com/firstround/interviewd/pkg/policy"
	"github.com/firstround/interviewd/pkg/session"
	"github.com/firstround/interviewd/pkg/store"
	"github.com/firstround/interviewd/pkg/token"
	"github.com/firstround/interviewd/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	envFile := flag.String("env-file", getEnv("ENV_FILE", ".env"), "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envFile, "error", err)
	}

	ctx := context.Background()

	// 1. Configuration and policy
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	pol := policy.Default()
	if cfg.PolicyFile != "" {
		pol, err = policy.Load(cfg.PolicyFile)
		if err != nil {
			slog.Error("Failed to load anti-cheat policy", "path", cfg.PolicyFile, "error", err)
			os.Exit(1)
		}
		slog.Info("Loaded anti-cheat policy", "path", cfg.PolicyFile)
	}

	// 2. Persistence
	var st store.Store
	var dbClient *database.Client
	if cfg.Storage.Backend == "postgres" {
		dbConfig, err := database.LoadConfigFromEnv()
		if err != nil {
			slog.Error("Failed to load database config", "error", err)
			os.Exit(1)
		}
		dbClient, err = database.NewClient(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				slog.Error("Error closing database client", "error", err)
			}
		}()
		st = store.NewPostgres(dbClient.DB())
		slog.Info("Connected to PostgreSQL database")
	} else {
		st = store.NewMemory()
		slog.Warn("Using the in-memory store; sessions will not survive a restart")
	}

	// 3. Streaming bus
	bus := events.NewBus()
	pub := events.NewPublisher(bus)

	// 4. Token authority
	auth, err := token.NewAuthority([]byte(cfg.Auth.Secret), cfg.Auth.Issuer, cfg.Auth.TTLs)
	if err != nil {
		slog.Error("Failed to initialize token authority", "error", err)
		os.Exit(1)
	}

	// 5. AI provider behind the proxy
	var provider ai.Provider
	switch cfg.AI.Provider {
	case "openai":
		p, err := ai.NewOpenAIProvider(cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			slog.Error("Failed to initialize OpenAI provider", "error", err)
			os.Exit(1)
		}
		provider = p
		slog.Info("OpenAI provider initialized", "model", cfg.AI.Model)
	case "gemini":
		p, err := ai.NewGeminiProvider(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			slog.Error("Failed to initialize Gemini provider", "error", err)
			os.Exit(1)
		}
		provider = p
		slog.Info("Gemini provider initialized", "model", cfg.AI.Model)
	default:
		slog.Info("Running on the deterministic fallback provider")
	}
	proxy := ai.NewProxy(provider, cfg.AI.Timeout)

	// 6. Anti-cheat engine and session manager
	engine := anticheat.NewEngine(st, pol, pub)
	defer engine.Stop()
	sessions := session.NewManager(st, pub, auth, proxy, engine, pol)

	// 7. Media store and code evaluator
	blobs, err := media.NewDiskStore(cfg.Storage.UploadDir)
	if err != nil {
		slog.Error("Failed to initialize upload store", "dir", cfg.Storage.UploadDir, "error", err)
		os.Exit(1)
	}
	evaluator := codeeval.NewEvaluator(&codeeval.PythonRunner{})

	// 8. Retention sweeper
	sweeper := cleanup.NewService(cleanup.Config{
		RetentionDays: cfg.Retention.Days,
		Interval:      cfg.Retention.Interval,
	}, st, bus, blobs)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// 9. HTTP server (non-blocking)
	httpServer := api.NewServer(cfg, sessions, st, auth, bus, evaluator, blobs, dbClient)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("interviewd started",
		"version", version.Full(),
		"store", cfg.Storage.Backend,
		"ai_provider", cfg.AI.Provider,
		"retention_days", cfg.Retention.Days)

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
}
