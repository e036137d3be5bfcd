// Command server starts the AI Doc Companion HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/ai/gemini"
	httpserver "github.com/fairyhunter13/ai-doc-companion/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/observability"
	redisstore "github.com/fairyhunter13/ai-doc-companion/internal/adapter/storage/redis"
	"github.com/fairyhunter13/ai-doc-companion/internal/app"
	"github.com/fairyhunter13/ai-doc-companion/internal/config"
	"github.com/fairyhunter13/ai-doc-companion/internal/service/keypool"
	"github.com/fairyhunter13/ai-doc-companion/internal/service/usagestats"
	"github.com/fairyhunter13/ai-doc-companion/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Credential pool and usage counters shared by every upstream call.
	keys := keypool.New(cfg.GeminiAPIKeys())
	if keys.Size() == 0 {
		slog.Warn("no Gemini API keys configured; completion calls will fail until keys are set")
	} else {
		slog.Info("credential pool ready", slog.Int("keys", keys.Size()))
	}
	stats := usagestats.New()

	aiClient := gemini.New(cfg, keys, stats)

	// Storage
	store, err := redisstore.New(cfg.RedisURL)
	if err != nil {
		slog.Error("redis connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	// Prompt templates, with optional YAML overrides.
	promptCfg, err := config.LoadPromptConfig(cfg.PromptConfigPath)
	if err != nil {
		slog.Error("failed to load prompt config", slog.Any("error", err))
		os.Exit(1)
	}
	prompts := usecase.NewPrompts(promptCfg)

	// Usecases
	summarizeSvc := usecase.NewSummarizeService(aiClient, prompts, cfg.TokenLimit)
	rewriteSvc := usecase.NewRewriteService(aiClient, prompts, cfg.TokenLimit)
	askSvc := usecase.NewAskService(aiClient, prompts)
	librarySvc := usecase.NewLibraryService(store)

	srv := httpserver.NewServer(cfg, summarizeSvc, rewriteSvc, askSvc, librarySvc, keys, stats, store.Ping)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
