// Command dad runs the agent orchestrator daemon: it owns the
// database, the training context, and the admission-controlled bridge
// to the agent CLI. The chat transport attaches through the
// orchestrator API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	internal "github.com/jeffsuperpower/dad/dad"
	"github.com/jeffsuperpower/dad/dad/agent"
	"github.com/jeffsuperpower/dad/dad/agent/adapters"
	"github.com/jeffsuperpower/dad/dad/config"
	"github.com/jeffsuperpower/dad/dad/db"
	"github.com/jeffsuperpower/dad/dad/store"
	"github.com/jeffsuperpower/dad/dad/training"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "dad",
		Short: "Always-on agent orchestrator for chat threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logger.Info().Msg("starting dad")

	if err := os.MkdirAll(cfg.Agent.WorkspaceDir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace dir: %w", err)
	}

	database, err := db.ConnectToDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.Migrate(database); err != nil {
		return err
	}
	logger.Info().Str("path", cfg.Database.Path).Msg("database ready")

	trainingStore, err := training.NewStore(cfg.Training.Dir, logger)
	if err != nil {
		return err
	}
	if err := trainingStore.Watch(); err != nil {
		logger.Warn().Err(err).Msg("training watcher unavailable, context reloads on restart only")
	}
	defer trainingStore.Close()

	invoker := agent.NewCLIInvoker(agent.InvokerConfig{
		Binary:       cfg.Agent.Binary,
		Model:        cfg.Agent.Model,
		MaxTurns:     cfg.Agent.MaxTurns,
		WorkspaceDir: cfg.Agent.WorkspaceDir,
	}, logger)

	orchestrator := agent.NewOrchestrator(
		internal.MaxConcurrentInvocations,
		"slack",
		store.NewConversations(database),
		store.NewRelationships(database),
		invoker,
		trainingStore,
		adapters.NewZerologTracer(logger),
		logger,
	)
	defer orchestrator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthServer := newHealthServer(cfg.Health.Port, orchestrator)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server failed")
		}
	}()
	logger.Info().Int("port", cfg.Health.Port).Msg("dad is online")

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return healthServer.Shutdown(shutdownCtx)
}

func newLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

func newHealthServer(port int, orchestrator *agent.Orchestrator) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":             "ok",
			"active_invocations": orchestrator.ActiveInvocations(),
		})
	})
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
