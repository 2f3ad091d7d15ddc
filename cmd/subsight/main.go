// Subsight server - captures on-screen text, translates it, and serves the
// subtitle feed over HTTP and WebSocket
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subsight/subsight/internal/capture"
	"github.com/subsight/subsight/internal/config"
	"github.com/subsight/subsight/internal/hotkey"
	"github.com/subsight/subsight/internal/ocr"
	"github.com/subsight/subsight/internal/orchestrator"
	"github.com/subsight/subsight/internal/server"
	"github.com/subsight/subsight/internal/stability"
	"github.com/subsight/subsight/internal/subtitle"
	"github.com/subsight/subsight/internal/translate"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()
	cfgStore := config.NewStore(cfg)

	capturer := capture.New()
	defer capturer.Close()

	engine := buildEngine(cfg)
	counters := translate.NewSessionCounters()
	cache := translate.NewCache()
	subs := subtitle.NewStore(cfg.HistoryLimit, cfg.MaxLines, cfg.DisplayDuration(), 16)
	keys := hotkey.NewSource(orchestrator.KeyEventBuffer)

	chain := translate.NewChain(buildProviders(cfg, counters, subs))
	slog.Info("translation chain ready", "providers", chain.Providers())

	stab := stability.New(stability.Config{
		DebounceWindow:     cfg.DebounceWindow(),
		EmptyExpiryCount:   cfg.EmptyExpiryCount,
		MaxDisplayDuration: cfg.DisplayDuration(),
		ImmediateCommit:    cfg.ImmediateCommit,
	})

	mgr := orchestrator.New(cfgStore, capturer, engine, chain, cache, stab, subs, keys)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr.Start(ctx)
	srv := server.New(ctx, mgr, cfgStore, cache, counters, subs, keys)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("subsight server starting", "http", cfg.HTTPAddr, "ocr", cfg.OCREngine)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	mgr.Stop()
	slog.Info("shutdown complete")
}

func buildEngine(cfg config.Config) ocr.Engine {
	switch cfg.OCREngine {
	case "vision":
		return ocr.NewVision(cfg.VisionBaseURL, cfg.VisionAPIKey, cfg.VisionModel)
	default:
		return ocr.NewTesseract(cfg.TesseractPath, cfg.TesseractLangs)
	}
}

func buildProviders(cfg config.Config, counters *translate.SessionCounters, history translate.ContextSource) []translate.Provider {
	var providers []translate.Provider
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "openai":
			providers = append(providers, translate.NewOpenAI(translate.OpenAIConfig{
				APIKey:       cfg.OpenAIAPIKey,
				BaseURL:      cfg.OpenAIBaseURL,
				Model:        cfg.OpenAIModel,
				MaxRequests:  cfg.OpenAIMaxRequests,
				ContextLines: cfg.OpenAIContextLines,
			}, counters, history))
		case "deepl":
			providers = append(providers, translate.NewDeepL(cfg.DeepLAPIKey, cfg.DeepLBaseURL, counters))
		case "google":
			providers = append(providers, translate.NewGoogle(cfg.GoogleBaseURL, counters))
		default:
			slog.Warn("unknown translation provider, skipping", "provider", name)
		}
	}
	return providers
}
