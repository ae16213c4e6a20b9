package main

import (
	"os"
	"strings"

	"github.com/fgeck/partition-archiver/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile  string
	parentTable string
	verbose     bool
	quiet       bool
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:   "partition-archiver",
	Short: "Detach, dump and drop PostgreSQL partitions interactively",
	Long: `partition-archiver walks an operator through retiring partitions of a
partitioned PostgreSQL table:
  - list the partitions of a parent table
  - detach the selected partitions
  - dump each one with pg_dump into <partition>.dump
  - optionally archive the dumps into a restic repository
  - optionally drop the detached tables

The connection is read from DATABASE_URL (a .env file in the working
directory is honoured).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if err := config.LoadDotEnv(); err != nil {
			log.Warn().Err(err).Msg("ignoring .env file")
		}
	},
	RunE:          runMaintenance,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "optional config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")
	rootCmd.Flags().StringVarP(&parentTable, "table", "t", "", "parent table (prompted when empty)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
}

func setupLogging() {
	// Set output format
	if jsonOutput {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
