package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/polyrisk/polyrisk-api/aireport"
	"github.com/polyrisk/polyrisk-api/analysis"
	"github.com/polyrisk/polyrisk-api/config"
	"github.com/polyrisk/polyrisk-api/data"
	"github.com/polyrisk/polyrisk-api/handlers"
	"github.com/polyrisk/polyrisk-api/health"
	"github.com/polyrisk/polyrisk-api/interactions"
	"github.com/polyrisk/polyrisk-api/interfaces"
	"github.com/polyrisk/polyrisk-api/logging"
	"github.com/polyrisk/polyrisk-api/risk"
	"github.com/polyrisk/polyrisk-api/scheduler"
	"github.com/polyrisk/polyrisk-api/server"
	"github.com/polyrisk/polyrisk-api/store"
	"github.com/polyrisk/polyrisk-api/validation"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "polyrisk",
		Short:        "Polypharmacy risk scoring API and interaction dataset tools",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(buildDatasetCmd())
	rootCmd.AddCommand(convertStitchCmd())
	rootCmd.AddCommand(polypharmacyDatasetCmd())
	rootCmd.AddCommand(verifyTwosidesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv reads .env when present; a missing file is not an error.
func loadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to read .env file", "error", err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the risk scoring API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Configuration error", "error", err)
		return err
	}

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            "logs",
		Env:            cfg.Env.String(),
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer logging.Close()

	ctx := context.Background()

	debugSQL := cfg.Env == config.EnvDevelopment && strings.EqualFold(cfg.LogLevel, "debug")
	repo, err := store.Open(ctx, cfg.DatabasePath, debugSQL)
	if err != nil {
		logging.Error("Failed to open database", "path", cfg.DatabasePath, "error", err)
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logging.Error("Failed to close database", "error", err)
		}
	}()

	generator, err := aireport.NewCachedGenerator(
		aireport.NewBreakerGenerator(
			aireport.NewGeminiClient(aireport.ClientConfig{
				BaseURL: cfg.AIAPIURL,
				APIKey:  cfg.AIAPIKey,
				Model:   cfg.AIModel,
				Timeout: cfg.AITimeout(),
			}),
			aireport.BreakerSettings{},
		),
		cfg.AICacheSize,
	)
	if err != nil {
		logging.Error("Failed to create report cache", "error", err)
		return err
	}

	analyzer := analysis.NewService(repo, risk.NewScorer(), generator, cfg.AITimeout())

	var dataStore interfaces.DataStore
	var sched *scheduler.Scheduler
	if cfg.PipelineConfig != "" {
		opts, err := config.LoadPipeline(cfg.PipelineConfig)
		if err != nil {
			logging.Error("Failed to load pipeline config", "path", cfg.PipelineConfig, "error", err)
			return err
		}

		container := data.NewDataContainer()
		container.SetServerStartTime(time.Now())
		dataStore = container

		sched = scheduler.NewScheduler(container, interactions.NewBuilder(opts), cfg.DatasetRefreshAt)
		go func() {
			if err := sched.Start(); err != nil {
				logging.Error("Interaction dataset unavailable until the next scheduled build", "error", err)
			}
		}()
		defer sched.Stop()
	} else {
		logging.Info("No pipeline config set, interaction dataset disabled")
	}

	healthChecker := health.NewHealthChecker(dataStore, repo, cfg.DatasetRefreshAt)
	handler := handlers.NewHTTPHandler(dataStore, validation.NewDataValidator(), repo, analyzer, healthChecker)
	srv := server.NewServer(cfg, handler)

	serverErr := make(chan error, 1)
	go func() {
		logging.Info("Starting server", "address", cfg.Address, "port", cfg.Port, "env", cfg.Env.String())
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed to start", "error", err)
			return err
		}
		return nil
	case sig := <-quit:
		logging.Info("Shutting down server...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		return err
	}

	logging.Info("Server shutdown complete")
	return nil
}
