package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/cmd/cli/commands"
	"github.com/jakechorley/race-roster/internal/config"
	"github.com/jakechorley/race-roster/pkg/clients/sheetsclient"
	"github.com/jakechorley/race-roster/pkg/core/services"
	"github.com/jakechorley/race-roster/pkg/db"
	"github.com/jakechorley/race-roster/pkg/events"
	"github.com/jakechorley/race-roster/pkg/metrics"
	"github.com/jakechorley/race-roster/pkg/postgres"
	"github.com/jakechorley/race-roster/pkg/racelock"
	"github.com/jakechorley/race-roster/pkg/roster"
	"github.com/jakechorley/race-roster/pkg/sqlite"
	"github.com/jakechorley/race-roster/pkg/utils/logging"
)

const defaultLockTTL = 10 * time.Second

var (
	env     string
	actor   string
	verbose bool
	logDir  string

	app     = &commands.AppContext{}
	closers []func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "race-roster",
		Short: "Race Roster CLI - Allocate medical volunteers to race slots",
		Long: `A CLI tool for registering medical volunteers for race duty slots,
managing waitlists and promotions, and publishing race rosters.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVarP(&actor, "actor", "a", "", "Member ID to act as")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "logs", "Directory for log files")

	rootCmd.AddCommand(commands.CreateRaceCmd(app))
	rootCmd.AddCommand(commands.ListRacesCmd(app))
	rootCmd.AddCommand(commands.ShowRaceCmd(app))
	rootCmd.AddCommand(commands.RegisterCmd(app))
	rootCmd.AddCommand(commands.WithdrawCmd(app))
	rootCmd.AddCommand(commands.PromoteCmd(app))
	rootCmd.AddCommand(commands.SetRoleTagCmd(app))
	rootCmd.AddCommand(commands.AddSlotCmd(app))
	rootCmd.AddCommand(commands.RemoveSlotCmd(app))
	rootCmd.AddCommand(commands.SetStatusCmd(app))
	rootCmd.AddCommand(commands.ListMembersCmd(app))
	rootCmd.AddCommand(commands.AuditLogCmd(app))
	rootCmd.AddCommand(commands.PublishRaceCmd(app))
	rootCmd.AddCommand(commands.ActorCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		shutdown()
		os.Exit(1)
	}
}

// initApp sets up logger, config, storage, locking, publishing and the roster
func initApp() error {
	var err error
	app.Ctx = context.Background()
	app.Actor = actor

	app.Logger, err = logging.InitLogger(env, logging.Options{Dir: logDir, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	app.Catalog, err = app.Cfg.Catalog()
	if err != nil {
		return fmt.Errorf("failed to build race templates: %w", err)
	}
	app.Logger.Debug("Race templates loaded", zap.Strings("race_types", app.Catalog.Names()))

	app.Database, err = openDatabase(app.Ctx, app.Cfg.Storage, app.Logger)
	if err != nil {
		return err
	}

	locker, err := newLocker(app.Ctx, app.Cfg, app.Logger)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(app.Cfg, app.Logger)
	if err != nil {
		return err
	}

	if err := initRoster(); err != nil {
		return err
	}

	app.Metrics = metrics.New()
	app.Service = services.NewRaceService(app.Database, app.Logger,
		services.WithAudit(app.Database),
		services.WithLocker(locker),
		services.WithPublisher(publisher),
		services.WithMetrics(app.Metrics),
		services.WithMaxAttempts(app.Cfg.MaxSaveAttempts),
	)

	app.Logger.Info("Application initialized", zap.String("actor", app.Actor))
	return nil
}

func openDatabase(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (db.Database, error) {
	logger.Info("Opening race store", zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.NewDB(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if err := pg.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return pg, nil
	case "sqlite":
		lite, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { lite.Close() })
		return lite, nil
	default:
		logger.Warn("Using the in-memory store; races are lost when the process exits")
		return db.NewMemoryStore(), nil
	}
}

func newLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (racelock.Locker, error) {
	if cfg.RedisURL == "" {
		return racelock.NewLocal(), nil
	}

	client, err := racelock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	closers = append(closers, func() { client.Close() })

	ttl := cfg.LockTTL
	if ttl == 0 {
		ttl = defaultLockTTL
	}
	logger.Info("Using redis race locks", zap.Duration("ttl", ttl))
	return racelock.NewRedis(client, ttl, logger), nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (services.OutcomePublisher, error) {
	if cfg.RabbitMQURL == "" {
		return events.LogPublisher{Logger: logger}, nil
	}

	publisher, err := events.NewPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() { publisher.Close() })
	logger.Info("Publishing outcomes to rabbitmq", zap.String("queue", events.OutcomeQueue))
	return publisher, nil
}

// initRoster connects the member directory and, when configured, the sheets client used for publishing
func initRoster() error {
	rc := app.Cfg.Roster
	needSheets := rc.Source == "sheets" || rc.PublishSheetID != ""

	if needSheets {
		var err error
		if rc.CredentialsFile != "" {
			app.Logger.Info("Initializing sheets client with service account")
			app.Sheets, err = sheetsclient.NewServiceAccountClient(app.Ctx, rc.CredentialsFile)
		} else {
			app.Logger.Info("Loading OAuth client configuration")
			oauthCfg, loadErr := config.LoadOAuthClientWithEnv(env)
			if loadErr != nil {
				return fmt.Errorf("failed to load OAuth client config: %w", loadErr)
			}
			app.Logger.Info("Initializing sheets client")
			app.Sheets, err = sheetsclient.NewClient(app.Ctx, oauthCfg, env, app.Logger)
		}
		if err != nil {
			return fmt.Errorf("failed to create sheets client: %w", err)
		}
		app.Logger.Debug("Sheets client initialized successfully")
	}

	if rc.Source == "sheets" {
		app.Roster = sheetsclient.NewMemberRoster(app.Sheets, rc.SheetID, rc.MembersTab)
	} else {
		app.Roster = roster.NewFile(rc.FilePath)
	}
	app.Logger.Debug("Member roster configured", zap.String("source", rc.Source))
	return nil
}

// shutdown flushes the logger and closes connections in reverse order of opening
func shutdown() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
