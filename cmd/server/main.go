package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfsense/backend/config"
	httpDelivery "github.com/shelfsense/backend/internal/delivery/http"
	"github.com/shelfsense/backend/internal/domain"
	"github.com/shelfsense/backend/internal/infrastructure/cache"
	"github.com/shelfsense/backend/internal/infrastructure/generation"
	"github.com/shelfsense/backend/internal/infrastructure/logging"
	"github.com/shelfsense/backend/internal/infrastructure/metrics"
	"github.com/shelfsense/backend/internal/infrastructure/storage"
	"github.com/shelfsense/backend/internal/infrastructure/taxonomy"
	"github.com/shelfsense/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Server.Environment)
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("starting ShelfSense backend v1.0.0")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	// A missing taxonomy file is not fatal; ranking falls back to the
	// categories callers pass in and assembly checks against those.
	categories, err := taxonomy.LoadFile(cfg.Taxonomy.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn().Str("path", cfg.Taxonomy.Path).Msg("taxonomy file not found, continuing with an empty taxonomy")
		categories = domain.NewTaxonomy(nil)
	case err != nil:
		return fmt.Errorf("load taxonomy: %w", err)
	default:
		logger.Info().Str("path", cfg.Taxonomy.Path).Int("categories", categories.Len()).Msg("taxonomy loaded")
	}

	// Initialize infrastructure dependencies
	recorder := metrics.NewRecorder()
	indexes := cache.NewLRU[string, *usecase.BM25Index](cfg.Prefilter.CacheSize)

	store, err := storage.NewFileStore(cfg.Storage.ProductsDir)
	if err != nil {
		return fmt.Errorf("open product store: %w", err)
	}

	var generator domain.StructuredGenerator
	if cfg.Generation.APIKey != "" {
		client := generation.NewClient(generation.Config{
			APIKey:            cfg.Generation.APIKey,
			BaseURL:           cfg.Generation.BaseURL,
			Model:             cfg.Generation.Model,
			Timeout:           cfg.Generation.Timeout,
			RequestsPerSecond: cfg.Generation.RequestsPerSecond,
			MaxAttempts:       cfg.Generation.MaxAttempts,
		}, logger)
		client.SetDebug(cfg.Generation.Debug)
		generator = client
		logger.Info().Str("base_url", cfg.Generation.BaseURL).Str("model", cfg.Generation.Model).Msg("generation service configured")
	} else {
		logger.Warn().Msg("generation api key not set, product assembly will return 503")
	}

	// Initialize usecase layer
	catalog := usecase.NewCatalogService(
		usecase.NewPrefilter(categories, indexes, recorder, logger),
		usecase.NewAssembler(generator, categories, recorder, logger),
		usecase.NewIdentityResolver(usecase.IdentityConfig{
			MatchThreshold:          cfg.Identity.MatchThreshold,
			TitleBrandMinSimilarity: cfg.Identity.TitleBrandMinSimilarity,
			UPCWeight:               cfg.Identity.UPCWeight,
			TitleBrandWeight:        cfg.Identity.TitleBrandWeight,
			Workers:                 cfg.Identity.Workers,
		}, recorder, logger),
		store,
		recorder,
		logger,
		usecase.CatalogServiceConfig{TopK: cfg.Prefilter.TopK},
	)

	// Setup router
	handler := httpDelivery.NewHandler(catalog, logger)
	router := httpDelivery.SetupRouter(cfg, handler, recorder, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
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

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
