package main

import (
	"context"
	"fmt"

	"github.com/fgeck/partition-archiver/internal/report"
	"github.com/fgeck/partition-archiver/internal/services/partition"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <parent-table>",
	Short: "List the partitions of a parent table",
	Long:  `List the current partitions of a parent table with their bounds, without changing anything.`,
	Args:  cobra.ExactArgs(1),
	RunE:  listPartitions,
}

func listPartitions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := withSignals()
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.Connection.URL)
	if err != nil {
		log.Error().Err(err).Str("host", cfg.Connection.Host).Msg("failed to connect to database")
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	partitions, err := partition.New(log.Logger, conn, cfg.Order).List(ctx, args[0])
	if err != nil {
		log.Error().Err(err).Str("parent", args[0]).Msg("failed to list partitions")
		return err
	}

	if len(partitions) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No partitions found for %s.\n", args[0])
		return nil
	}

	report.RenderPartitions(cmd.OutOrStdout(), partitions)
	return nil
}
