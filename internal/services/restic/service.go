// Package restic archives dump files into a restic repository.
package restic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for restic operations.
type Service interface {
	Init(ctx context.Context, cfg models.ResticConfig) error
	Backup(ctx context.Context, cfg models.ResticConfig, paths []string) (*models.ArchiveResult, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// ExecuteWithEnv runs a command with additional environment variables.
func (e *DefaultExecutor) ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// Impl implements the Service interface.
type Impl struct {
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates a new restic service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new restic service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

func (s *Impl) buildEnv(cfg models.ResticConfig) []string {
	env := []string{
		fmt.Sprintf("RESTIC_REPOSITORY=%s", cfg.Repository),
		fmt.Sprintf("RESTIC_PASSWORD=%s", cfg.Password),
	}

	if cfg.RestUser != "" {
		env = append(env, fmt.Sprintf("RESTIC_REST_USERNAME=%s", cfg.RestUser))
	}
	if cfg.RestPassword != "" {
		env = append(env, fmt.Sprintf("RESTIC_REST_PASSWORD=%s", cfg.RestPassword))
	}

	return env
}

// Init initializes a restic repository if it doesn't exist.
func (s *Impl) Init(ctx context.Context, cfg models.ResticConfig) error {
	s.logger.Info().Str("repository", cfg.Repository).Msg("checking if repository needs initialization")

	env := s.buildEnv(cfg)

	// An existing repository answers cat config
	if _, err := s.executor.ExecuteWithEnv(ctx, env, "restic", "cat", "config"); err == nil {
		s.logger.Debug().Msg("repository already initialized")
		return nil
	}

	s.logger.Info().Msg("initializing repository")
	output, err := s.executor.ExecuteWithEnv(ctx, env, "restic", "init")
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w, output: %s", err, string(output))
	}

	s.logger.Info().Msg("repository initialized successfully")
	return nil
}

// backupSummary is the summary part of restic backup --json output.
type backupSummary struct {
	MessageType string `json:"message_type"`
	FilesNew    int    `json:"files_new"`
	DataAdded   int64  `json:"data_added"`
	SnapshotID  string `json:"snapshot_id"`
}

// Backup stores the given dump files as one snapshot.
func (s *Impl) Backup(ctx context.Context, cfg models.ResticConfig, paths []string) (*models.ArchiveResult, error) {
	s.logger.Info().Strs("paths", paths).Msg("archiving dump files")

	start := time.Now()
	env := s.buildEnv(cfg)

	args := []string{"backup", "--json"}

	if cfg.Host != "" {
		args = append(args, "--host", cfg.Host)
	}

	for _, tag := range cfg.Tags {
		args = append(args, "--tag", tag)
	}

	args = append(args, paths...)

	output, err := s.executor.ExecuteWithEnv(ctx, env, "restic", args...)
	if err != nil {
		return nil, fmt.Errorf("backup failed: %w, output: %s", err, string(output))
	}

	// Parse the JSON output to find the summary line
	var summary backupSummary
	for _, line := range bytes.Split(output, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var msg struct {
			MessageType string `json:"message_type"`
		}
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		if msg.MessageType == "summary" {
			if err := json.Unmarshal(line, &summary); err != nil {
				s.logger.Warn().Err(err).Msg("failed to parse backup summary")
			}
			break
		}
	}

	if summary.SnapshotID == "" {
		return nil, fmt.Errorf("backup produced no snapshot, output: %s", string(output))
	}

	result := &models.ArchiveResult{
		SnapshotID: summary.SnapshotID,
		FilesNew:   summary.FilesNew,
		DataAdded:  summary.DataAdded,
		Duration:   time.Since(start),
	}

	s.logger.Info().
		Str("snapshot_id", result.SnapshotID).
		Int("files_new", result.FilesNew).
		Int64("data_added", result.DataAdded).
		Dur("duration", result.Duration).
		Msg("dump files archived")

	return result, nil
}
