package models

import "time"

// ResticConfig holds restic repository configuration used to archive dump files.
type ResticConfig struct {
	Repository   string
	Password     string
	RestUser     string // optional, for REST server auth
	RestPassword string // optional, for REST server auth
	Tags         []string
	Host         string
}

// ArchiveResult holds the result of a restic backup of dump files.
type ArchiveResult struct {
	SnapshotID string
	FilesNew   int
	DataAdded  int64
	Duration   time.Duration
}
