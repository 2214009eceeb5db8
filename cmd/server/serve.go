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

	"github.com/spf13/cobra"

	"github.com/cohortscope/server/internal/api"
	"github.com/cohortscope/server/internal/cache"
	"github.com/cohortscope/server/internal/config"
	"github.com/cohortscope/server/internal/contraststore"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/logging"
	"github.com/cohortscope/server/internal/metrics"
	"github.com/cohortscope/server/internal/render"
	"github.com/cohortscope/server/internal/service"
)

func newServeCommand(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Override the configured listen port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	logger.Info("starting server",
		logging.String("title", cfg.Server.Title),
		logging.Int("port", cfg.Server.Port),
	)

	m := metrics.New()

	// Initialize cache manager (shared by payloads and charts)
	cacheManager, err := cache.NewManager(cache.Config{
		ChartCacheSizeMB: cfg.Cache.ChartSizeMB,
		ChartTTL:         cfg.Cache.ChartTTL(),
		QueryCacheSize:   cfg.Cache.QueryCacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheManager.Close()

	renderer := render.NewChartRenderer(render.Config{
		Width:           cfg.Render.Width,
		Height:          cfg.Render.Height,
		DefaultColormap: cfg.Render.DefaultColormap,
	})

	seeder := generate.NewSeeder(cfg.Generator.Seed)
	if cfg.Generator.Seed != 0 {
		logger.Info("deterministic seed sequence", logging.Uint64("seed", cfg.Generator.Seed))
	}

	dashboard := service.NewDashboardService(cacheManager, m)
	charts := service.NewChartService(service.ChartServiceConfig{
		Dashboard: dashboard,
		Renderer:  renderer,
		Cache:     cacheManager,
		Metrics:   m,
	})

	sessions, err := api.NewSessionRegistry(cfg.Cache.SessionCapacity, seeder, m)
	if err != nil {
		return err
	}

	// Contrast jobs persist in SQLite so results outlive a restart.
	store, err := contraststore.NewStore(cfg.Contrast.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open contrast store: %w", err)
	}
	contrast := service.NewContrastService(store)
	jobManager := api.NewJobManager(api.JobManagerConfig{
		MaxConcurrent: cfg.Contrast.MaxConcurrent,
		Retention:     cfg.Contrast.Retention(),
		CleanupPeriod: time.Hour,
		Logger:        logger,
		Metrics:       m,
	}, store)
	jobManager.Executor = contrast.ExecuteJob
	jobManager.Start()
	defer jobManager.Stop()
	logger.Info("contrast job manager ready",
		logging.Int("max_concurrent", cfg.Contrast.MaxConcurrent),
		logging.Int("retention_days", cfg.Contrast.RetentionDays),
		logging.String("sqlite", cfg.Contrast.SQLitePath),
	)

	router := api.NewRouter(api.RouterConfig{
		Title:             cfg.Server.Title,
		CORSOrigins:       cfg.Server.CORSOrigins,
		Sessions:          sessions,
		Dashboard:         dashboard,
		Charts:            charts,
		JobManager:        jobManager,
		Seeder:            seeder,
		Metrics:           m,
		DefaultReplicates: cfg.Contrast.Replicates,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", logging.String("addr", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", logging.Err(err))
	}

	logger.Info("server stopped")
	return nil
}
