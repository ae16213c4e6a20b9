package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/partition-archiver/internal/config"
	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/fgeck/partition-archiver/internal/report"
	"github.com/fgeck/partition-archiver/internal/services/runner"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the interactive partition workflow",
	Long: `Execute the interactive partition workflow:
1. Ask for the parent table (unless --table is given)
2. Select partitions to process and confirm
3. Detach and pg_dump each selected partition
4. Archive the dump files to restic (if configured)
5. Select partitions to drop and confirm
6. Send a Telegram summary (if configured)`,
	RunE: runMaintenance,
}

func init() {
	runCmd.Flags().StringVarP(&parentTable, "table", "t", "", "parent table (prompted when empty)")
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func loadConfig() (*models.AppConfig, error) {
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}

	return cfg, nil
}

func runMaintenance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ParentTable = parentTable

	log.Debug().
		Str("host", cfg.Connection.Host).
		Str("port", cfg.Connection.Port).
		Str("database", cfg.Connection.Database).
		Msg("configuration loaded")

	ctx, cancel := withSignals()
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.Connection.URL)
	if err != nil {
		log.Error().Err(err).Str("host", cfg.Connection.Host).Msg("failed to connect to database")
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	runnerSvc := runner.New(log.Logger, conn, *cfg)
	summary, err := runnerSvc.Run(ctx, *cfg)

	if len(summary.Partitions) > 0 && summary.Outcome != models.OutcomeCancelled {
		report.RenderSummary(cmd.OutOrStdout(), *summary)
	}

	if err != nil {
		if errors.Is(err, models.ErrNoPartitions) {
			log.Warn().Str("parent", summary.Parent).Msg("no partitions found, exiting")
			return err
		}
		log.Error().Err(err).Str("failed_step", summary.FailedStep).Msg("an error occurred")
		return err
	}

	log.Info().Str("outcome", string(summary.Outcome)).Msg("done")
	return nil
}
