// Package main provides the entry point for the competition server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fop-engine/internal/config"
	"github.com/yourusername/fop-engine/internal/display"
	"github.com/yourusername/fop-engine/internal/health"
	"github.com/yourusername/fop-engine/internal/logger"
	"github.com/yourusername/fop-engine/internal/metrics"
	"github.com/yourusername/fop-engine/internal/platform"
	"github.com/yourusername/fop-engine/internal/publish"
	"github.com/yourusername/fop-engine/internal/repository"
	"github.com/yourusername/fop-engine/internal/results"
	"github.com/yourusername/fop-engine/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	dumpPath   string
	cfg        *config.Config
	appLog     *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&dumpPath, "dump-on-exit", "", "Write the athletes to this fixtures file on shutdown (memory driver)")
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "fop-server",
	Short: "Run the fields of play of a weightlifting competition",
	Long: `Runs one field of play per configured platform, the display WebSocket
server, the scheduled global ranking refresh and the optional scoreboard relay.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		return loadConfig(cmd.Context())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fop-server %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateEnvironment(cfg); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	appLog = logger.New(logger.Options{Level: cfg.App.LogLevel, Format: cfg.App.LogFormat})
	return nil
}

func serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"competition": cfg.Competition.Name,
		"platforms":   len(cfg.Platforms),
		"version":     Version,
	}).Info("Competition server starting")

	metrics.InitRegistry()

	store, err := repository.Open(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer store.Close()
	appLog.WithField("driver", cfg.Database.Driver).Info("Athlete store opened")

	comp, err := cfg.CompetitionModel()
	if err != nil {
		return err
	}

	cache := results.NewRankingCache(cfg.RankingsCacheTTL())
	aggregator := results.NewAggregator(comp.RankingSettings(), store.Athletes, cache, cfg.Rankings.TopN, appLog)

	orch, err := platform.New(platform.Config{
		Competition:    comp,
		Platforms:      cfg.Platforms,
		Repositories:   store.Repositories,
		Aggregator:     aggregator,
		AllowedOrigins: cfg.Display.AllowedOrigins,
		Logger:         appLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create platforms: %w", err)
	}

	// Health server first so that probes answer while platforms load
	var pinger health.DatabasePinger
	if store.DB != nil {
		pinger = store.DB
	}
	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Health.Port,
		Logger:      appLog,
		DB:          pinger,
		Platforms:   orch,
	})
	if cfg.Health.Enabled {
		if err := healthServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx)
	}

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start platforms: %w", err)
	}

	var displayServer *display.Server
	if cfg.Display.Enabled {
		displayServer = display.NewServer(cfg.Display.Port, appLog)
		for _, h := range orch.Hubs() {
			if err := displayServer.Register(h); err != nil {
				return err
			}
		}
		if err := displayServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start display server: %w", err)
		}
	}

	if cfg.Publish.Enabled {
		publisher := publish.New(cfg.Publish, cfg.PublishTimeout(), appLog)
		for _, p := range orch.Platforms() {
			publisher.Attach(p.FOP)
		}
		go func() {
			if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLog.WithError(err).Error("Scoreboard publisher stopped")
			}
		}()
		appLog.WithField("url", cfg.Publish.URL).Info("Scoreboard publishing enabled")
	}

	sched := scheduler.NewScheduler(appLog)
	if cfg.Rankings.RefreshCron != "" {
		if err := sched.ScheduleRankingRefresh(cfg.Rankings.RefreshCron, aggregator); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		appLog.WithField("next_run", sched.NextRun().Format(time.RFC3339)).Info("Ranking refresh scheduled")
	}

	healthServer.SetReady(true)
	for _, st := range orch.Statuses() {
		appLog.WithFields(logrus.Fields{
			"platform": st.Name,
			"slug":     st.Slug,
			"group":    st.Group,
			"state":    st.State,
		}).Info("Platform ready")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Warn("Scheduler did not stop cleanly")
	}
	if displayServer != nil {
		if err := displayServer.Shutdown(); err != nil {
			appLog.WithError(err).Error("Display server shutdown failed")
		}
	}
	if err := orch.Stop(); err != nil {
		appLog.WithError(err).Error("Error during platform shutdown")
	}
	cancel()

	if dumpPath != "" && store.Memory != nil {
		if err := dump(store.Memory, dumpPath); err != nil {
			appLog.WithError(err).Error("Failed to write athletes")
		} else {
			appLog.WithField("path", dumpPath).Info("Athletes written")
		}
	}

	appLog.Info("Competition server shut down")
	return nil
}

func startMetricsServer(ctx context.Context) {
	path := cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func dump(store *repository.MemoryStore, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.Dump(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
