// Package partition provides catalog inspection and DDL for partitioned tables.
package partition

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Service defines the interface for partition operations.
type Service interface {
	List(ctx context.Context, parent string) ([]models.Partition, error)
	Detach(ctx context.Context, p models.Partition) error
	Drop(ctx context.Context, p models.Partition) error
}

// DB is the subset of *pgx.Conn used by the service.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Impl implements the partition Service interface.
type Impl struct {
	db     DB
	order  string
	logger zerolog.Logger
}

// New creates a new partition service. order is one of models.OrderBound or
// models.OrderChronological.
func New(logger zerolog.Logger, db DB, order string) *Impl {
	return &Impl{
		db:     db,
		order:  order,
		logger: logger,
	}
}

// List returns the children of parent ordered by their rendered bound. A parent
// that does not exist or has no children yields an empty slice.
func (s *Impl) List(ctx context.Context, parent string) ([]models.Partition, error) {
	s.logger.Debug().Str("parent", parent).Msg("listing partitions")

	rows, err := s.db.Query(ctx, queryListPartitions, parent)
	if err != nil {
		return nil, fmt.Errorf("listing partitions of %s: %w", parent, err)
	}
	defer rows.Close()

	partitions := []models.Partition{}
	for rows.Next() {
		p := models.Partition{Parent: parent}
		if err := rows.Scan(&p.Schema, &p.Name, &p.ParentSchema, &p.Bound); err != nil {
			return nil, fmt.Errorf("scanning partition row: %w", err)
		}
		partitions = append(partitions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing partitions of %s: %w", parent, err)
	}

	if s.order == models.OrderChronological {
		SortChronological(partitions)
	}

	s.logger.Debug().Str("parent", parent).Int("count", len(partitions)).Msg("partitions listed")
	return partitions, nil
}

// Detach issues ALTER TABLE ... DETACH PARTITION for p.
func (s *Impl) Detach(ctx context.Context, p models.Partition) error {
	stmt := DetachStatement(p)
	s.logger.Debug().Str("sql", stmt).Msg("executing")

	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("detaching %s: %w", p.Name, err)
	}
	return nil
}

// Drop issues DROP TABLE for p.
func (s *Impl) Drop(ctx context.Context, p models.Partition) error {
	stmt := DropStatement(p)
	s.logger.Debug().Str("sql", stmt).Msg("executing")

	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("dropping %s: %w", p.Name, err)
	}
	return nil
}

// DetachStatement renders the DETACH DDL with quoted identifiers.
func DetachStatement(p models.Partition) string {
	return fmt.Sprintf("ALTER TABLE %s DETACH PARTITION %s", ParentIdentifier(p), Identifier(p))
}

// DropStatement renders the DROP DDL with quoted identifiers.
func DropStatement(p models.Partition) string {
	return fmt.Sprintf("DROP TABLE %s", Identifier(p))
}

// Identifier returns the quoted, schema-qualified name of the partition.
func Identifier(p models.Partition) string {
	if p.Schema == "" {
		return pgx.Identifier{p.Name}.Sanitize()
	}
	return pgx.Identifier{p.Schema, p.Name}.Sanitize()
}

// ParentIdentifier returns the quoted, schema-qualified name of the parent.
func ParentIdentifier(p models.Partition) string {
	if p.ParentSchema == "" {
		return pgx.Identifier{p.Parent}.Sanitize()
	}
	return pgx.Identifier{p.ParentSchema, p.Parent}.Sanitize()
}

var lowerBoundRe = regexp.MustCompile(`FROM \('([^']*)'\)`)

// boundLayouts are the text forms postgres renders for date and timestamp bounds.
var boundLayouts = []string{
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// LowerBound extracts the lower bound of a range partition as a time.
func LowerBound(bound string) (time.Time, bool) {
	m := lowerBoundRe.FindStringSubmatch(bound)
	if m == nil {
		return time.Time{}, false
	}
	for _, layout := range boundLayouts {
		if t, err := time.Parse(layout, m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortChronological orders partitions by parsed lower bound. Partitions whose
// bound cannot be parsed keep their relative order after the parsed ones.
func SortChronological(partitions []models.Partition) {
	sort.SliceStable(partitions, func(i, j int) bool {
		ti, okI := LowerBound(partitions[i].Bound)
		tj, okJ := LowerBound(partitions[j].Bound)
		switch {
		case okI && okJ:
			return ti.Before(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}
