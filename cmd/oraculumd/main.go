package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	httpadapter "github.com/antinea2359/app-tarot/internal/adapters/http"
	"github.com/antinea2359/app-tarot/internal/adapters/llm/gemini"
	"github.com/antinea2359/app-tarot/internal/adapters/web"
	"github.com/antinea2359/app-tarot/internal/app"
	"github.com/antinea2359/app-tarot/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; every draw will fail until it is configured")
	}

	oracle, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
		HTTPClient: &http.Client{Timeout: cfg.LLMTimeout},
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}

	// Sessions run their calls on a context that survives the triggering
	// request but not the process.
	sessions := app.NewRegistry(ctx, oracle, logger, cfg.SessionCapacity, cfg.SessionTTL)
	defer sessions.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(logger))

	handler := httpadapter.NewHandler(sessions, cfg.SessionTTL, web.NewRenderer(), cfg.PublicURL, logger)
	handler.Register(e)

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "text_model", cfg.TextModel, "image_model", cfg.ImageModel)
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
