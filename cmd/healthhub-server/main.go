package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/healthhub/api/internal/config"
	"github.com/healthhub/api/internal/domain/order"
	"github.com/healthhub/api/internal/domain/product"
	"github.com/healthhub/api/internal/domain/profile"
)

func main() {
	// Prices and totals render as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	rootCmd := &cobra.Command{
		Use:   "healthhub-server",
		Short: "HealthHub API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ordersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Order maintenance tasks",
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep-orphans",
		Short: "Delete pending orders that never received their line items",
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runSweep(cmd.Context(), olderThan, dryRun)
		},
	}
	sweepCmd.Flags().Duration("older-than", 15*time.Minute, "only orders created at least this long ago")
	sweepCmd.Flags().Bool("dry-run", false, "list orphans without deleting them")
	cmd.AddCommand(sweepCmd)

	return cmd
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	deps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise dependencies")
	}
	defer deps.Close()

	e := newServer(cfg, logger, deps)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Str("auth", cfg.ResolvedAuthMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runSweep(ctx context.Context, olderThan time.Duration, dryRun bool) error {
	logger := newLogger(os.Getenv("ENV"))
	ctx = logger.WithContext(ctx)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("sweep-orphans needs STORE_DRIVER=%s", config.StoreDriverPostgres)
	}

	client, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	profiles := profile.NewService(profile.NewProfileRepo(client.db))
	products := product.NewService(product.NewProductRepo(client.db))
	svc := order.NewService(client.db, products, profiles)

	ids, err := svc.SweepOrphans(ctx, olderThan, dryRun)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	logger.Info().Int("count", len(ids)).Bool("dry_run", dryRun).Dur("older_than", olderThan).Msg("orphan sweep finished")
	return nil
}
