package models

import "time"

// ConnectionConfig is the connection descriptor derived from DATABASE_URL.
type ConnectionConfig struct {
	URL      string
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DumpResult holds the result of a single-table pg_dump.
type DumpResult struct {
	Table      string
	OutputPath string
	SizeBytes  int64
	Duration   time.Duration
}
