package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chrolicious/hoolgg-roster/internal/config"
	"github.com/chrolicious/hoolgg-roster/internal/server"
	"github.com/chrolicious/hoolgg-roster/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the roster document and sync operations over REST.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides ROSTER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if servePort != 0 {
		a.cfg.Port = servePort
	}

	limits, err := ratelimit.LoadConfig()
	if err != nil {
		return err
	}

	var jwtConfig *config.JWTConfig
	if a.cfg.AuthEnabled() {
		if jwtConfig, err = a.cfg.JWT(); err != nil {
			return err
		}
	}

	// Validate the document before accepting traffic.
	if _, err := a.store.Load(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load roster document: %w", err)
	}

	srv := server.New(a.service, server.Options{
		Addr:        a.cfg.Addr(),
		CORSOrigins: a.cfg.CORSOrigins,
		RateLimit:   limits,
		JWT:         jwtConfig,
		Logger:      a.logger,
		Metrics:     a.metrics,
	})
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting server",
		zap.String("addr", a.cfg.Addr()),
		zap.String("data_file", a.store.Path()),
		zap.Bool("auth", jwtConfig != nil),
		zap.Bool("rate_limit", limits.Enabled))
	return srv.ListenAndServe(ctx)
}
