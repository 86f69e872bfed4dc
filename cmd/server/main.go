package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beaconlabs/beacon/internal/cache"
	"github.com/beaconlabs/beacon/internal/config"
	"github.com/beaconlabs/beacon/internal/models"
	"github.com/beaconlabs/beacon/internal/server"
	"github.com/beaconlabs/beacon/internal/service"
	"github.com/beaconlabs/beacon/pkg/logger"
)

var (
	configPath string
	version    = "0.1.0"
	gitCommit  = "unknown"
	buildTime  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Beacon - Autonomous multi-tenant brand agent",
	Long:  `Beacon syncs social mentions per brand, reasons over market signals with an LLM, and proposes marketing actions for human review.`,
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Beacon %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one full social sync across all brands and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, cfg *config.Config, appLogger *zap.Logger, registry *service.RegistryService, social *service.SocialService, decisions *service.DecisionService) error {
			brands, source := registry.ListActiveBrands(ctx)
			eligible := make([]models.Brand, 0, len(brands))
			for _, brand := range brands {
				if registry.AutomationEnabled(ctx, brand.ID) {
					eligible = append(eligible, brand)
				}
			}
			appLogger.Info("Manual sync",
				zap.Int("tenants", len(eligible)),
				zap.String("source", string(source)))
			social.SyncAll(ctx, eligible)
			return nil
		})
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the most recent decisions and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, cfg *config.Config, appLogger *zap.Logger, registry *service.RegistryService, social *service.SocialService, decisions *service.DecisionService) error {
			return decisions.Backup(ctx, cfg.Agent.BackupLimit)
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete decisions past the retention window and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, cfg *config.Config, appLogger *zap.Logger, registry *service.RegistryService, social *service.SocialService, decisions *service.DecisionService) error {
			cutoff := time.Now().AddDate(0, 0, -cfg.Agent.RetentionDays)
			pruned, err := decisions.Prune(ctx, cutoff)
			if err != nil {
				return err
			}
			appLogger.Info("Pruned decisions", zap.Int64("count", pruned))
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run <tenant>",
	Short: "Run the agent pipeline for one tenant and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, appLogger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer appLogger.Sync()

		registry := service.NewRegistryService(db, appLogger)
		scraper := service.NewScrapeClient(&cfg.Scraper, appLogger)
		social := service.NewSocialService(
			scraper,
			service.NewGormSocialStore(db),
			cache.NewDB(db),
			appLogger,
			config.Duration(cfg.Agent.CacheTTL, 6*time.Hour),
			cfg.Scraper.MaxItems,
			config.Duration(cfg.Agent.SyncDelay, 2*time.Second),
		)
		llm := service.NewOpenAIClient(&cfg.LLM, appLogger)
		brain := service.NewBrain(llm, appLogger)
		decisions := service.NewDecisionService(db, appLogger)
		market := service.NewTrendsClient(&cfg.Trends, appLogger)
		orchestrator := service.NewOrchestrator(&cfg.Agent, appLogger, registry, social, brain, decisions, market, nil)

		outcome, err := orchestrator.TriggerRun(context.Background(), args[0])
		if err != nil {
			return err
		}
		if outcome.Skipped {
			appLogger.Info("Run skipped", zap.String("tenant_id", outcome.TenantID), zap.String("reason", outcome.Reason))
			return nil
		}
		appLogger.Info("Run completed",
			zap.String("tenant_id", outcome.TenantID),
			zap.Int("decisions", len(outcome.Decisions)))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	rootCmd.AddCommand(versionCmd, syncCmd, backupCmd, pruneCmd, runCmd)
}

func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cfg, appLogger, db, nil
}

func withServices(fn func(ctx context.Context, cfg *config.Config, appLogger *zap.Logger, registry *service.RegistryService, social *service.SocialService, decisions *service.DecisionService) error) error {
	cfg, appLogger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	registry := service.NewRegistryService(db, appLogger)
	scraper := service.NewScrapeClient(&cfg.Scraper, appLogger)
	social := service.NewSocialService(
		scraper,
		service.NewGormSocialStore(db),
		cache.NewDB(db),
		appLogger,
		config.Duration(cfg.Agent.CacheTTL, 6*time.Hour),
		cfg.Scraper.MaxItems,
		config.Duration(cfg.Agent.SyncDelay, 2*time.Second),
	)
	decisions := service.NewDecisionService(db, appLogger)

	return fn(context.Background(), cfg, appLogger, registry, social, decisions)
}

func runServer(*cobra.Command, []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Beacon server", zap.String("version", version))

	// Create server
	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case <-ctx.Done():
		appLogger.Info("Server context cancelled")
	}

	// Graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
