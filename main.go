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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/chatstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatstream/internal/auth"
	"github.com/xiaot623/gogo/chatstream/internal/config"
	"github.com/xiaot623/gogo/chatstream/internal/logger"
	"github.com/xiaot623/gogo/chatstream/internal/observability"
	"github.com/xiaot623/gogo/chatstream/internal/policy"
	"github.com/xiaot623/gogo/chatstream/internal/repository"
	"github.com/xiaot623/gogo/chatstream/internal/service"
	server "github.com/xiaot623/gogo/chatstream/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "chatstream",
		Short:         "Streaming chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  runMigrate,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("database", cfg.DatabaseURL).
		Bool("remote_llm", cfg.RemoteEnabled()).
		Str("default_model", cfg.DefaultModel).
		Msg("starting chatstream")
	if cfg.UsesDefaultJWTSecret() {
		log.Warn().Msg("JWT_SECRET is not set; access tokens are signed with the built-in default key")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(cfg.TracingEnabled, "chatstream", os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer store.Close()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, cfg.AllowedModels)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL())
	provider := auth.NewProvider(tokens, cfg.CookieName)
	metrics := observability.NewMetrics()
	sources := llm.NewSources(cfg, logger.Component(log, "llm"))

	svc := service.New(store, sources, cfg, policyEngine, tokens, metrics, logger.Component(log, "service"))
	e := server.NewServer(svc, provider, metrics, cfg.CookieSecure, logger.Component(log, "http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.Info().Str("addr", addr).Msg("API started")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down chatstream")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("chatstream stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := repository.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := repository.Migrate(cmd.Context(), db)
	if err != nil {
		return err
	}
	logApplied(log, applied)
	return nil
}

func logApplied(log zerolog.Logger, applied []int64) {
	if len(applied) == 0 {
		log.Info().Msg("schema is up to date")
		return
	}
	log.Info().Ints64("versions", applied).Msg("migrations applied")
}
