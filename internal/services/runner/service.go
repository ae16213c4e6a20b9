// Package runner orchestrates the detach, dump and drop workflow.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/fgeck/partition-archiver/internal/services/partition"
	"github.com/fgeck/partition-archiver/internal/services/postgres"
	"github.com/fgeck/partition-archiver/internal/services/prompt"
	"github.com/fgeck/partition-archiver/internal/services/restic"
	"github.com/fgeck/partition-archiver/internal/services/telegram"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Prompt messages.
const (
	msgParentTable     = "Enter the name of the parent table:"
	msgSelectProcess   = "Select partitions to process:"
	msgConfirmProcess  = "Are you sure you want to process these partitions?"
	msgSelectDrop      = "Select partitions to drop:"
	msgConfirmDropTmpl = "Are you sure you want to drop %d partition(s)?"
)

// notifyTimeout bounds the summary notification, which is sent even after the
// run context was cancelled.
const notifyTimeout = 30 * time.Second

// ErrDumpPathConflict is returned when two selected partitions would be dumped
// to the same file.
var ErrDumpPathConflict = errors.New("selected partitions share a dump file")

// Service defines the interface for the maintenance runner.
type Service interface {
	Run(ctx context.Context, cfg models.AppConfig) (*models.RunSummary, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	promptSvc    prompt.Service
	partitionSvc partition.Service
	dumpSvc      postgres.Service
	resticSvc    restic.Service
	telegramSvc  telegram.Service
	logger       zerolog.Logger
}

// New creates a new runner service operating on db.
func New(logger zerolog.Logger, db partition.DB, cfg models.AppConfig) *Impl {
	return &Impl{
		promptSvc:    prompt.New(),
		partitionSvc: partition.New(logger, db, cfg.Order),
		dumpSvc:      postgres.New(logger, cfg.Dump),
		resticSvc:    restic.New(logger),
		telegramSvc:  telegram.New(logger),
		logger:       logger,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	promptSvc prompt.Service,
	partitionSvc partition.Service,
	dumpSvc postgres.Service,
	resticSvc restic.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		promptSvc:    promptSvc,
		partitionSvc: partitionSvc,
		dumpSvc:      dumpSvc,
		resticSvc:    resticSvc,
		telegramSvc:  telegramSvc,
		logger:       logger,
	}
}

// Run executes one interactive maintenance run. The returned summary is never
// nil, also when an error is returned.
//
//nolint:gocognit,gocyclo // the workflow is a fixed sequence of gated steps
func (s *Impl) Run(ctx context.Context, cfg models.AppConfig) (summary *models.RunSummary, runErr error) {
	summary = &models.RunSummary{StartTime: time.Now()}
	var failedStep string

	defer func() {
		summary.Duration = time.Since(summary.StartTime)
		if runErr != nil && summary.Outcome == "" {
			summary.Outcome = models.OutcomeFailed
			summary.FailedStep = failedStep
			summary.Error = runErr.Error()
		}
		if cfg.Telegram != nil && notifiable(summary.Outcome) {
			s.sendNotification(ctx, *cfg.Telegram, *summary)
		}
	}()

	// Step 1: parent table
	parent := cfg.ParentTable
	if parent == "" {
		failedStep = "prompt"
		var err error
		if parent, err = s.promptSvc.Input(msgParentTable); err != nil {
			return summary, err
		}
	}
	summary.Parent = parent

	// Step 2: catalog inspection
	s.logger.Info().Str("parent", parent).Msg("getting active partitions")

	failedStep = "inspect"
	partitions, err := s.partitionSvc.List(ctx, parent)
	if err != nil {
		return summary, err
	}

	if len(partitions) == 0 {
		s.logger.Warn().Str("parent", parent).Msg("no partitions found, exiting")
		summary.Outcome = models.OutcomeNoPartitions
		return summary, models.ErrNoPartitions
	}

	// Step 3: selection and confirmation
	labels := Labels(partitions)
	byLabel := lo.Invert(labels)
	options := lo.Map(partitions, func(p models.Partition, _ int) string { return labels[p] })

	failedStep = "select"
	chosen, err := s.promptSvc.MultiSelect(msgSelectProcess, options)
	if err != nil {
		return summary, err
	}

	if len(chosen) == 0 {
		s.logger.Info().Msg("no partitions selected, exiting")
		summary.Outcome = models.OutcomeNothingSelected
		return summary, nil
	}

	selected := lo.Map(chosen, func(label string, _ int) models.Partition { return byLabel[label] })
	summary.Partitions = lo.Map(chosen, func(label string, _ int) models.PartitionReport {
		return models.PartitionReport{Name: label, State: models.StatePending}
	})

	outputPaths := lo.Map(selected, func(p models.Partition, _ int) string {
		return postgres.OutputPath(cfg.Dump.OutputDir, DumpFileName(p, labels[p]))
	})
	if dups := lo.FindDuplicates(outputPaths); len(dups) > 0 {
		return summary, fmt.Errorf("%w: %s", ErrDumpPathConflict, strings.Join(dups, ", "))
	}

	proceed, err := s.promptSvc.Confirm(msgConfirmProcess)
	if err != nil {
		return summary, err
	}
	if !proceed {
		s.logger.Info().Msg("operation cancelled, exiting")
		summary.Outcome = models.OutcomeCancelled
		return summary, nil
	}

	// Step 4: detach and dump, one partition at a time
	dumpFiles := make([]string, 0, len(selected))
	for i, p := range selected {
		report := &summary.Partitions[i]

		if err := ctx.Err(); err != nil {
			failedStep = "detach"
			return summary, err
		}

		s.logger.Info().Str("partition", p.Name).Msg("processing partition")

		failedStep = "detach"
		if err := s.partitionSvc.Detach(ctx, p); err != nil {
			report.Error = err.Error()
			return summary, err
		}
		report.State = models.StateDetached
		s.logger.Info().Str("partition", p.Name).Msg("partition detached")

		failedStep = "dump"
		result, err := s.dumpSvc.DumpTable(ctx, cfg.Connection, partition.Identifier(p), outputPaths[i])
		if err != nil {
			report.Error = err.Error()
			return summary, err
		}
		report.State = models.StateDumped
		report.DumpFile = result.OutputPath
		dumpFiles = append(dumpFiles, result.OutputPath)

		s.logger.Info().
			Str("partition", p.Name).
			Str("output", result.OutputPath).
			Msg("backup created")
	}

	// Step 5: archive dump files (if configured)
	if cfg.Restic != nil {
		failedStep = "archive"
		if err := s.runArchive(ctx, *cfg.Restic, dumpFiles); err != nil {
			return summary, err
		}
		for i := range summary.Partitions {
			summary.Partitions[i].State = models.StateArchived
		}
	}

	// Step 6: drop stage
	failedStep = "drop"
	if err := s.runDrop(ctx, summary, selected, labels); err != nil {
		return summary, err
	}

	summary.Outcome = models.OutcomeCompleted
	s.logger.Info().
		Int("processed", len(selected)).
		Int("dropped", summary.CountIn(models.StateDropped)).
		Msg("all selected partitions have been processed")

	return summary, nil
}

func (s *Impl) runArchive(ctx context.Context, cfg models.ResticConfig, paths []string) error {
	if err := s.resticSvc.Init(ctx, cfg); err != nil {
		return fmt.Errorf("archive init failed: %w", err)
	}

	result, err := s.resticSvc.Backup(ctx, cfg, paths)
	if err != nil {
		return fmt.Errorf("archive failed: %w", err)
	}

	s.logger.Info().
		Str("snapshot_id", result.SnapshotID).
		Int("files", len(paths)).
		Msg("dump files archived")

	return nil
}

func (s *Impl) runDrop(ctx context.Context, summary *models.RunSummary, processed []models.Partition, labels map[models.Partition]string) error {
	byLabel := lo.SliceToMap(processed, func(p models.Partition) (string, models.Partition) {
		return labels[p], p
	})
	options := lo.Map(processed, func(p models.Partition, _ int) string { return labels[p] })

	toDrop, err := s.promptSvc.MultiSelect(msgSelectDrop, options)
	if err != nil {
		return err
	}

	if len(toDrop) == 0 {
		s.logger.Info().Msg("no partitions selected for dropping")
		return nil
	}

	confirmed, err := s.promptSvc.Confirm(fmt.Sprintf(msgConfirmDropTmpl, len(toDrop)))
	if err != nil {
		return err
	}
	if !confirmed {
		s.logger.Info().Msg("skipped dropping partitions")
		return nil
	}

	for _, label := range toDrop {
		p := byLabel[label]
		report := summary.Report(label)

		s.logger.Info().Str("partition", p.Name).Msg("dropping partition")
		if err := s.partitionSvc.Drop(ctx, p); err != nil {
			if report != nil {
				report.Error = err.Error()
			}
			return err
		}
		if report != nil {
			report.State = models.StateDropped
		}
		s.logger.Info().Str("partition", p.Name).Msg("partition dropped")
	}

	return nil
}

func (s *Impl) sendNotification(ctx context.Context, cfg models.TelegramConfig, summary models.RunSummary) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.telegramSvc.SendSummary(ctx, cfg, summary); err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
	}
}

// notifiable reports whether a run with this outcome is sent to Telegram.
func notifiable(outcome models.Outcome) bool {
	return outcome == models.OutcomeCompleted || outcome == models.OutcomeFailed
}
