package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chrolicious/hoolgg-roster/internal/config"
	"github.com/chrolicious/hoolgg-roster/internal/logging"
	"github.com/chrolicious/hoolgg-roster/internal/metrics"
	"github.com/chrolicious/hoolgg-roster/internal/observability"
	"github.com/chrolicious/hoolgg-roster/internal/provider"
	"github.com/chrolicious/hoolgg-roster/internal/roster"
	"github.com/chrolicious/hoolgg-roster/internal/storage"
)

// app holds the components every command shares.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   *storage.FileStore
	service *roster.Service
}

// newApp loads configuration, applies the persistent flag overrides and wires
// the store, provider client and service.
func newApp() (*app, error) {
	if output != "json" && output != "text" {
		return nil, fmt.Errorf("unknown output format %q (expected json or text)", output)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataFile != "" {
		cfg.DataFile = dataFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Verbose: verbose})
	if err != nil {
		return nil, err
	}

	path, err := storage.ResolvePath(cfg.DataFile, cfg.DataDir)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	store := storage.NewFileStore(path, storage.WithLogger(logger), storage.WithMetrics(m))
	client := provider.NewHTTPClient(provider.Options{
		APIBaseURL:     cfg.APIBaseURL,
		TokenURL:       cfg.TokenURL,
		RequestTimeout: cfg.ProviderTimeout,
		TokenTimeout:   cfg.TokenTimeout,
		Logger:         logger,
	})
	service := roster.NewService(store,
		roster.WithProvider(client),
		roster.WithSharedCredentials(cfg.SharedClientID, cfg.SharedClientSecret),
		roster.WithLogger(logger),
		roster.WithMetrics(m),
	)

	logger.Debug("roster document", zap.String("path", path))
	return &app{cfg: cfg, logger: logger, metrics: m, store: store, service: service}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// textOutput returns a Printer for cmd when text output was requested.
func textOutput(cmd *cobra.Command) (*observability.Printer, bool) {
	if output != "text" {
		return nil, false
	}
	return observability.NewPrinter(cmd.OutOrStdout()), true
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
