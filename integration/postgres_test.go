//go:build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/partition-archiver/internal/config"
	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/fgeck/partition-archiver/internal/services/partition"
	"github.com/fgeck/partition-archiver/internal/services/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSchema = `
	CREATE TABLE events (
		id         BIGINT NOT NULL,
		created_at DATE NOT NULL,
		payload    TEXT
	) PARTITION BY RANGE (created_at);

	CREATE TABLE events_2023_02 PARTITION OF events
		FOR VALUES FROM ('2023-02-01') TO ('2023-03-01');
	CREATE TABLE events_2023_01 PARTITION OF events
		FOR VALUES FROM ('2023-01-01') TO ('2023-02-01');

	INSERT INTO events VALUES (1, '2023-01-15', 'a'), (2, '2023-02-15', 'b');

	CREATE TABLE "Odd Parent" (ts DATE NOT NULL) PARTITION BY RANGE (ts);
	CREATE TABLE "Odd ""Child""" PARTITION OF "Odd Parent"
		FOR VALUES FROM ('2024-01-01') TO ('2024-02-01');
`

func setupTestDB(t *testing.T) (*pgx.Conn, models.ConnectionConfig) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(ctx) })

	_, err = conn.Exec(ctx, testSchema)
	require.NoError(t, err)

	desc, err := config.ParseConnectionURL(connStr)
	require.NoError(t, err)

	return conn, *desc
}

func tableExists(t *testing.T, conn *pgx.Conn, name string) bool {
	t.Helper()
	var exists bool
	err := conn.QueryRow(context.Background(),
		"SELECT EXISTS (SELECT 1 FROM pg_class WHERE relname = $1)", name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestPartitionLifecycle_Integration(t *testing.T) {
	conn, desc := setupTestDB(t)
	ctx := context.Background()

	svc := partition.New(testLogger(), conn, models.OrderBound)

	partitions, err := svc.List(ctx, "events")
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, "events_2023_01", partitions[0].Name)
	assert.Equal(t, "events_2023_02", partitions[1].Name)
	assert.Equal(t, "public", partitions[0].Schema)

	// Detach leaves a standalone table
	require.NoError(t, svc.Detach(ctx, partitions[0]))
	remaining, err := svc.List(ctx, "events")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.True(t, tableExists(t, conn, "events_2023_01"))

	if _, err := exec.LookPath("pg_dump"); err == nil {
		outputPath := postgres.OutputPath(t.TempDir(), partitions[0].Name)
		dumpSvc := postgres.New(testLogger(), models.DumpSettings{Binary: "pg_dump", Compression: "zstd:9"})

		result, err := dumpSvc.DumpTable(ctx, desc, partition.Identifier(partitions[0]), outputPath)
		require.NoError(t, err)
		assert.Greater(t, result.SizeBytes, int64(0))
		assert.Equal(t, "events_2023_01.dump", filepath.Base(result.OutputPath))

		_, statErr := os.Stat(outputPath)
		assert.NoError(t, statErr)
	}

	require.NoError(t, svc.Drop(ctx, partitions[0]))
	assert.False(t, tableExists(t, conn, "events_2023_01"))
	assert.True(t, tableExists(t, conn, "events_2023_02"))
}

func TestListPartitions_UnknownParent_Integration(t *testing.T) {
	conn, _ := setupTestDB(t)

	svc := partition.New(testLogger(), conn, models.OrderBound)
	partitions, err := svc.List(context.Background(), "does_not_exist")

	require.NoError(t, err)
	assert.Empty(t, partitions)
}

func TestQuotedIdentifiers_Integration(t *testing.T) {
	conn, _ := setupTestDB(t)
	ctx := context.Background()

	svc := partition.New(testLogger(), conn, models.OrderBound)

	partitions, err := svc.List(ctx, "Odd Parent")
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	assert.Equal(t, `Odd "Child"`, partitions[0].Name)

	require.NoError(t, svc.Detach(ctx, partitions[0]))
	require.NoError(t, svc.Drop(ctx, partitions[0]))
	assert.False(t, tableExists(t, conn, `Odd "Child"`))
}

func TestDumpTable_InvalidHost_Integration(t *testing.T) {
	if _, err := exec.LookPath("pg_dump"); err != nil {
		t.Skip("pg_dump not installed")
	}

	conn := models.ConnectionConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     "5432",
		Database: "testdb",
		Username: "postgres",
	}

	outputPath := filepath.Join(t.TempDir(), "events_2023_01.dump")
	svc := postgres.New(testLogger(), models.DumpSettings{Binary: "pg_dump"})

	_, err := svc.DumpTable(context.Background(), conn, "events_2023_01", outputPath)

	require.Error(t, err)
}
