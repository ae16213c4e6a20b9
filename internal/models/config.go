// Package models contains the data structures used throughout partition-archiver.
package models

import "errors"

// Sentinel errors surfaced to the command layer.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is not set")
	ErrNoPartitions       = errors.New("no partitions found")
)

// Partition ordering modes.
const (
	OrderBound         = "bound"
	OrderChronological = "chronological"
)

// AppConfig holds the complete configuration for a maintenance run.
type AppConfig struct {
	Connection  ConnectionConfig
	Dump        DumpSettings
	Order       string
	ParentTable string          // pre-filled from --table, prompts when empty
	Restic      *ResticConfig   // nil if not configured
	Telegram    *TelegramConfig // nil if not configured
}

// DumpSettings controls the pg_dump invocation.
type DumpSettings struct {
	Binary      string
	OutputDir   string
	Compression string // passed to -Z, e.g. "zstd:9"
}
