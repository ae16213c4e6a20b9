package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate DATABASE_URL and the optional config file without connecting to the database.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Print configuration summary
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Connection:")
	fmt.Fprintf(out, "  Host: %s\n", cfg.Connection.Host)
	fmt.Fprintf(out, "  Port: %s\n", cfg.Connection.Port)
	fmt.Fprintf(out, "  Database: %s\n", cfg.Connection.Database)
	fmt.Fprintf(out, "  Username: %s\n", cfg.Connection.Username)
	fmt.Fprintf(out, "  Password: %s\n", mask(cfg.Connection.Password))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Dump:")
	fmt.Fprintf(out, "  Binary: %s\n", cfg.Dump.Binary)
	fmt.Fprintf(out, "  Output dir: %s\n", cfg.Dump.OutputDir)
	fmt.Fprintf(out, "  Compression: %s\n", cfg.Dump.Compression)
	fmt.Fprintf(out, "  Partition order: %s\n", cfg.Order)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Optional Features:")
	fmt.Fprintf(out, "  Restic archive: %v\n", cfg.Restic != nil)
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.Restic != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Restic Configuration:")
		fmt.Fprintf(out, "  Repository: %s\n", cfg.Restic.Repository)
		fmt.Fprintf(out, "  Host: %s\n", cfg.Restic.Host)
		fmt.Fprintf(out, "  Tags: %s\n", strings.Join(cfg.Restic.Tags, ", "))
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintf(out, "  Bot Token: (configured)\n")
	}

	return nil
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "(configured)"
}
