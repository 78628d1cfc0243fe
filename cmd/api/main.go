package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"review-insights-go/internal/api"
	"review-insights-go/internal/appstore"
	"review-insights-go/internal/cache"
	"review-insights-go/internal/config"
	"review-insights-go/internal/extractor"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/pipeline"
	"review-insights-go/internal/processor"
	"review-insights-go/internal/storage"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	log.WithField("service", "review-insights-go").Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	c, err := cache.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open cache")
	}
	log.WithField("cache_backend", cfg.CacheBackend).WithField("data_dir", cfg.DataDir).Info("storage ready")

	classifier := extractor.New(extractor.Options{
		GatewayURL:   cfg.LLMGatewayURL,
		APIKey:       cfg.LLMAPIKey,
		Model:        cfg.LLMModel,
		HTTPTimeout:  cfg.HTTPTimeout,
		MaxRetryTime: cfg.MaxRetryTime,
		Mock:         cfg.UseMockLLM,
	})
	if cfg.LLMGatewayURL == "" && !cfg.UseMockLLM {
		log.Warn("LLM_GATEWAY_URL not set; classification will fail until configured or USE_MOCK_LLM=true")
	}
	fetcher := appstore.New(appstore.Options{
		BaseURL:      cfg.AppStoreBaseURL,
		Country:      cfg.AppStoreCountry,
		HTTPTimeout:  cfg.HTTPTimeout,
		MaxRetryTime: cfg.MaxRetryTime,
		MaxPages:     cfg.MaxPages,
	})

	server := api.New(api.Deps{
		Store:     store,
		Fetcher:   fetcher,
		Analyzer:  processor.New(classifier, c, cfg.Workers),
		Engine:    pipeline.New(c),
		FetchDays: cfg.FetchDays,
		Context:   ctx,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}
