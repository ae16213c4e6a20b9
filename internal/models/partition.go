package models

import "time"

// Partition is a child table of a partitioned parent as reported by the catalog.
type Partition struct {
	Schema       string
	Name         string
	ParentSchema string
	Parent       string
	Bound        string // rendered pg_get_expr of relpartbound
}

// PartitionState tracks how far a selected partition got through a run.
type PartitionState string

// Partition states in the order a partition moves through them.
const (
	StatePending  PartitionState = "pending"
	StateDetached PartitionState = "detached"
	StateDumped   PartitionState = "dumped"
	StateArchived PartitionState = "archived"
	StateDropped  PartitionState = "dropped"
)

// Outcome describes how a run ended.
type Outcome string

// Run outcomes.
const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeNoPartitions    Outcome = "no_partitions"
	OutcomeNothingSelected Outcome = "nothing_selected"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeFailed          Outcome = "failed"
)

// PartitionReport is the per-partition line of a run summary.
type PartitionReport struct {
	Name     string
	State    PartitionState
	DumpFile string
	Error    string
}

// RunSummary holds the result of one maintenance run.
type RunSummary struct {
	Parent     string
	Outcome    Outcome
	FailedStep string
	Error      string
	StartTime  time.Time
	Duration   time.Duration
	Partitions []PartitionReport
}

// Report returns the report entry for the named partition, or nil.
func (s *RunSummary) Report(name string) *PartitionReport {
	for i := range s.Partitions {
		if s.Partitions[i].Name == name {
			return &s.Partitions[i]
		}
	}
	return nil
}

// CountIn returns the number of partitions currently in the given state.
func (s *RunSummary) CountIn(state PartitionState) int {
	n := 0
	for _, p := range s.Partitions {
		if p.State == state {
			n++
		}
	}
	return n
}
