// Package postgres provides single-table pg_dump operations.
package postgres

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/rs/zerolog"
)

// DumpExtension is appended to the table name to form the dump file name.
const DumpExtension = ".dump"

// Service defines the interface for PostgreSQL dump operations.
type Service interface {
	DumpTable(ctx context.Context, conn models.ConnectionConfig, table, outputPath string) (*models.DumpResult, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// ExecuteWithEnv runs a command with additional environment variables and
// returns its combined output.
func (e *DefaultExecutor) ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(output)))
	}

	return output, nil
}

// Impl implements the PostgreSQL Service interface.
type Impl struct {
	executor CommandExecutor
	settings models.DumpSettings
	logger   zerolog.Logger
}

// New creates a new PostgreSQL dump service.
func New(logger zerolog.Logger, settings models.DumpSettings) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		settings: settings,
		logger:   logger,
	}
}

// NewWithExecutor creates a new PostgreSQL dump service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, settings models.DumpSettings, executor CommandExecutor) *Impl {
	return &Impl{
		executor: executor,
		settings: settings,
		logger:   logger,
	}
}

// DumpTable dumps a single table into a compressed custom-format archive at outputPath.
// table is passed to pg_dump -t verbatim, so callers quote it.
func (s *Impl) DumpTable(ctx context.Context, conn models.ConnectionConfig, table, outputPath string) (*models.DumpResult, error) {
	s.logger.Info().
		Str("host", conn.Host).
		Str("port", conn.Port).
		Str("database", conn.Database).
		Str("table", table).
		Str("output", outputPath).
		Msg("starting table dump")

	start := time.Now()
	result := &models.DumpResult{
		Table:      table,
		OutputPath: outputPath,
	}

	// Ensure output directory exists
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	args := BuildArgs(conn, s.settings, table, outputPath)
	env := BuildEnv(conn)

	if output, err := s.executor.ExecuteWithEnv(ctx, env, s.binary(), args...); err != nil {
		s.logger.Debug().Str("output", string(output)).Msg("pg_dump output")
		return nil, fmt.Errorf("dumping %s: %w", table, err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		result.SizeBytes = info.Size()
	}

	result.Duration = time.Since(start)

	s.logger.Info().
		Str("output", outputPath).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("table dump completed")

	return result, nil
}

func (s *Impl) binary() string {
	if s.settings.Binary == "" {
		return "pg_dump"
	}
	return s.settings.Binary
}

// BuildArgs returns the pg_dump arguments for a single-table dump.
func BuildArgs(conn models.ConnectionConfig, settings models.DumpSettings, table, outputPath string) []string {
	args := []string{
		"-h", conn.Host,
		"-p", conn.Port,
	}

	if conn.Username != "" {
		args = append(args, "-U", conn.Username)
	}

	compression := settings.Compression
	if compression == "" {
		compression = "zstd:9"
	}

	args = append(args,
		"-d", conn.Database,
		"-O",
		"-Fc",
		"-Z", compression,
		"-t", table,
		"-f", outputPath,
		"--no-password",
	)

	return args
}

// BuildEnv returns the extra environment for pg_dump. The password never
// appears in the argument list.
func BuildEnv(conn models.ConnectionConfig) []string {
	env := []string{}
	if conn.Password != "" {
		env = append(env, fmt.Sprintf("PGPASSWORD=%s", conn.Password))
	}
	return env
}

// OutputPath returns the dump file path for a partition name.
func OutputPath(dir, name string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name+DumpExtension)
}
