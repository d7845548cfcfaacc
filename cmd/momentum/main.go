package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maloquacious/momentum/internal/config"
	"github.com/maloquacious/momentum/internal/logger"
	"github.com/maloquacious/momentum/internal/server"
	"github.com/maloquacious/momentum/internal/store"
	"github.com/maloquacious/momentum/internal/store/sqlite"
	"github.com/maloquacious/semver"
	"github.com/spf13/cobra"
)

var (
	version   = semver.Version{Minor: 1, PreRelease: "alpha", Build: semver.Commit()}
	buildDate = ""
)

var (
	configPath string
	shutdownTO time.Duration
)

func main() {
	if err := execute(context.Background(), os.Args[1:]...); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "momentum",
		Short:        "Momentum - a personal productivity and habit tracking app",
		Version:      version.String(),
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().DurationVar(&shutdownTO, "shutdown-timeout", 15*time.Second, "graceful shutdown timeout")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup the database",
		Args:  cobra.NoArgs,
		RunE:  runBackup,
	}
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "momentum %s", version.String())
			if buildDate != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (built %s)", buildDate)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(runCmd, backupCmd, migrateCmd, versionCmd)
	return rootCmd
}

// loadConfig finds and loads the configuration, returning a logger built from it.
func loadConfig() (config.Config, logger.Logger, error) {
	path := config.Find(configPath, logger.Default)
	cfg, err := config.Load(path)
	if err != nil {
		logger.Default.Error("failed to load configuration from %s: %v", path, err)
		return config.Config{}, nil, err
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.New(os.Stdout, level)
	log.Info("configuration loaded from %s", path)
	return cfg, log, nil
}

// runServe bootstraps the database and serves HTTP until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("starting Momentum server %s", version.String())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(ctx, cfg.DatabaseURL(), log)
	if err != nil {
		log.Error("failed to connect to database: %v", err)
		return err
	}
	defer func() {
		log.Info("closing database")
		if err := db.Close(); err != nil {
			log.Error("error closing database: %v", err)
		}
	}()
	log.Info("database connection established")

	srv, err := server.New(server.Config{
		Addr:            cfg.Addr(),
		AppName:         cfg.Application.Name,
		ShutdownTimeout: shutdownTO,
	}, db, log)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil {
		log.Error("server error: %v", err)
		return err
	}
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	return placeholder("backup")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return placeholder("migration")
}

// placeholder reports an unimplemented database command.
func placeholder(what string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath, err := store.ResolvePath(cfg.DatabaseURL())
	if err != nil {
		return err
	}
	exists, err := store.CheckExists(dbPath)
	if err != nil {
		return err
	}
	log.Info("database %s (exists: %v)", dbPath, exists)
	log.Info("%s functionality not yet implemented", what)
	return nil
}

// execute runs the CLI with args under ctx.
func execute(ctx context.Context, args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
