// Command dppverifier runs the Decision-Proof Protocol verification
// service: the read-only introspection HTTP API and the WebSocket
// connection adapter (C9) that drives one four-stage verification per
// accepted connection.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/dpp-verifier/pkg/api"
	"github.com/codeready-toolchain/dpp-verifier/pkg/challenge"
	"github.com/codeready-toolchain/dpp-verifier/pkg/config"
	"github.com/codeready-toolchain/dpp-verifier/pkg/pool"
	"github.com/codeready-toolchain/dpp-verifier/pkg/ratelimit"
	"github.com/codeready-toolchain/dpp-verifier/pkg/reaper"
	"github.com/codeready-toolchain/dpp-verifier/pkg/store"
	"github.com/codeready-toolchain/dpp-verifier/pkg/token"
	"github.com/codeready-toolchain/dpp-verifier/pkg/transport"
	"github.com/codeready-toolchain/dpp-verifier/pkg/verifier"
	"github.com/codeready-toolchain/dpp-verifier/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	addr := flag.String("addr", getEnv("HTTP_ADDR", ":8080"), "HTTP/WebSocket listen address")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	slog.Info("starting dpp-verifier", "version", version.Full(), "config_dir", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.NewPostgres(ctx, store.PostgresConfig{
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("error closing session store", "error", err)
		}
	}()

	signer := token.NewSigner(cfg.Token.Secret, cfg.Token.TokenTTL)

	oracle := newOracle(cfg)

	orch := verifier.NewOrchestrator(st, oracle, signer, verifier.Config{
		PoWDifficulty: cfg.PoW.Difficulty,
		PoWTimeout:    cfg.PoW.Timeout,
		Stage2: verifier.Stage2Config{
			Rounds:       cfg.Decision.Rounds,
			RoundTimeout: cfg.Decision.RoundTimeout,
			CVThreshold:  cfg.Decision.CVThreshold,
			MinAccuracy:  cfg.Decision.MinAccuracy,
			UseMock:      cfg.UseMockChallenges,
		},
		Stage3: verifier.Stage3Config{
			Timeout:   cfg.EnvAttestation.Timeout,
			MinChecks: cfg.EnvAttestation.MinChecks,
		},
		Stage4: verifier.Stage4Config{
			MinHistorySessions: cfg.Consistency.MinHistorySessions,
			Stage1CVThreshold:  cfg.Consistency.Stage1CVThreshold,
			MinStage1Samples:   cfg.Consistency.MinStage1Samples,
			HourStdThreshold:   cfg.Consistency.HourStdThreshold,
			MinHourStdSessions: cfg.Consistency.MinHourStdSessions,
		},
	})

	p := pool.New(cfg.Pool.MaxConcurrent)

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            cfg.RateLimit.Window,
	})
	go evictIdleLimiterEntries(ctx, limiter)

	r := reaper.New(st, reaper.Config{Interval: cfg.Reaper.Interval, Threshold: cfg.Reaper.Threshold})
	r.Start(ctx)
	defer r.Stop()

	server := api.NewServer(st, signer, p, limiter, cfg.UseMockChallenges)
	server.Echo().GET("/ws", transport.Handler(orch, p, 5*time.Second))

	slog.Info("listening", "addr", *addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}

// newOracle selects the challenge oracle (C2): mock mode
// whenever no API key is configured for the oracle's environment variable.
func newOracle(cfg *config.Config) challenge.Oracle {
	if cfg.UseMockChallenges {
		return challenge.NewStatic()
	}

	apiKey := os.Getenv(cfg.Oracle.APIKeyEnv)
	httpClient := &http.Client{Timeout: cfg.Oracle.Timeout}
	return challenge.NewRemote(httpClient, cfg.Oracle.BaseURL, apiKey, cfg.Oracle.Model)
}

func evictIdleLimiterEntries(ctx context.Context, l *ratelimit.Limiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.EvictIdle(10 * time.Minute)
		}
	}
}
