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

	"github.com/gin-gonic/gin"

	"github.com/dnv-opensource/WindFarmer-automation/internal/api"
	"github.com/dnv-opensource/WindFarmer-automation/internal/api/handlers"
	"github.com/dnv-opensource/WindFarmer-automation/internal/atmos"
	"github.com/dnv-opensource/WindFarmer-automation/internal/batch"
	"github.com/dnv-opensource/WindFarmer-automation/internal/config"
	"github.com/dnv-opensource/WindFarmer-automation/internal/logging"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
	"github.com/dnv-opensource/WindFarmer-automation/internal/windfarmer"
)

func main() {
	configPath := flag.String("config", os.Getenv("WINDFARMER_CONFIG"), "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := logging.NewConsoleHandler(os.Stdout, logging.LevelFromString(&cfg.Log.Level), false)
	slog.SetDefault(slog.New(console))

	st, err := store.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	logger := slog.New(logging.NewMultiHandler(console, logging.NewEventHandler(st, slog.LevelWarn)))
	slog.SetDefault(logger)
	st.SetLogger(logger.With(slog.String("module", "store")))
	if err := st.PurgeEvents(ctx, cfg.Database.KeepEvents); err != nil {
		logger.Warn("could not purge old events", slog.Any("error", err))
	}

	calcs, err := calculations(ctx, cfg, st, logger)
	if err != nil {
		return err
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Store:        st,
		Calculations: calcs,
		PresetsFile:  cfg.Atmosphere.PresetsFile,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("starting API server", slog.String("addr", cfg.Server.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if calcs != nil {
		calcs.Wait()
	}
	return nil
}

// calculations returns nil when no access key is available; the server then only offers
// offline breakdowns and the ledger.
func calculations(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*handlers.CalculationHandler, error) {
	key, err := cfg.AccessKey()
	if err != nil {
		logger.Warn("calculations disabled", slog.Any("error", err))
		return nil, nil
	}
	client, err := windfarmer.New(windfarmer.Options{
		BaseURL:          cfg.API.BaseURL,
		AccessKey:        key,
		Logger:           logger,
		Poll:             cfg.Polling.ToPolicy(),
		SyncTurbineLimit: cfg.API.SyncTurbineLimit,
		HTTPClient:       windfarmer.NewHTTPClient(cfg.API.Timeout),
		Cache:            windfarmer.NewResultCache(cfg.API.CacheTTL),
	})
	if err != nil {
		return nil, err
	}

	opts := batch.Options{
		Models:       cfg.Models.ToSelection(),
		Concurrency:  cfg.Batch.Concurrency,
		Retries:      cfg.Polling.Retries,
		RetryBackoff: cfg.Polling.RetryBackoff,
		Logger:       logger,
	}
	if cfg.Atmosphere.Enabled() {
		presets, err := atmos.LoadPresets(cfg.Atmosphere.PresetsFile)
		if err != nil {
			return nil, err
		}
		opts.Atmosphere = &batch.Atmosphere{Source: cfg.Atmosphere.Source(), Presets: presets}
	}
	return handlers.NewCalculationHandler(ctx, client, st, opts, logger), nil
}
