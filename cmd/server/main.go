package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quote-assistant-backend/internal/assistant"
	"quote-assistant-backend/internal/config"
	"quote-assistant-backend/internal/database"
	"quote-assistant-backend/internal/handlers"
	"quote-assistant-backend/internal/metrics"
	"quote-assistant-backend/internal/middleware"
	"quote-assistant-backend/internal/repository"
	"quote-assistant-backend/internal/router"
	"quote-assistant-backend/internal/services"
	"quote-assistant-backend/internal/worker"
	"quote-assistant-backend/pkg/logging"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting quote assistant backend", "env", cfg.Env)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// ──── Step 2: Select Assistant Variant ────
	catalog, err := assistant.Load(cfg.AssistantsFile)
	if err != nil {
		return fmt.Errorf("load assistant catalog: %w", err)
	}
	variant, err := catalog.Select(cfg.AssistantVariant)
	if err != nil {
		return err
	}
	logger.Info("assistant selected", "variant", variant.Name, "model", variant.Model)

	// ──── Step 3: Connect Redis (optional) ────
	var notifier *services.RulesNotifier
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		notifier = services.NewRulesNotifier(redisClient)
		logger.Info("redis connected; rules updates will be broadcast")
	}

	// ──── Step 4: Load Rules ────
	promptRepo := repository.NewPromptRepo(cfg.RulesFile)
	// A nil *RulesNotifier must not reach the service as a non-nil interface.
	var publisher services.RulesPublisher
	if notifier != nil {
		publisher = notifier
	}
	rulesService, err := services.NewRulesService(ctx, promptRepo, variant.DefaultRules, publisher, logger, m)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	logger.Info("rules loaded", "path", promptRepo.Path(), "bytes", len(rulesService.Current()))

	if notifier != nil {
		listener := worker.NewRulesListener(notifier, rulesService, logger, m)
		if err := listener.Start(ctx); err != nil {
			return fmt.Errorf("start rules listener: %w", err)
		}
		defer listener.Stop()
	}

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, variant.Model, cfg.GeminiConcurrentReqs, logger, m)
	if err != nil {
		return err
	}
	defer geminiService.Close()

	// ──── Step 6: Start HTTP Server ────
	var jwtAuth *middleware.JWTAuth
	if cfg.RulesJWTSecret != "" {
		jwtAuth = middleware.NewJWTAuth(cfg.RulesJWTSecret)
	}

	// Rules write rate limiter (10 req/min per IP)
	rulesLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer rulesLimiter.Stop()

	chatHandler := handlers.NewChatHandler(geminiService, rulesService, services.BuildOptions{
		AttachRulesToImages: variant.AttachRulesToImages,
	}, logger)
	rulesHandler := handlers.NewRulesHandler(rulesService, logger)

	r := router.New(router.Options{
		Prefix:       cfg.APIPrefix,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RulesLimiter: rulesLimiter,
	}, jwtAuth, chatHandler, rulesHandler, m, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server ready",
			"addr", fmt.Sprintf("http://localhost:%s%s", cfg.Port, cfg.APIPrefix),
			"gemini_configured", geminiService.Configured(),
			"rules_auth", jwtAuth != nil,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
