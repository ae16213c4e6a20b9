package runner

import (
	"testing"

	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestLabels(t *testing.T) {
	partitions := []models.Partition{
		{Schema: "public", Name: "events_2023_01"},
		{Schema: "eu", Name: "orders_2023_01"},
		{Schema: "us", Name: "orders_2023_01"},
	}

	labels := Labels(partitions)

	assert.Equal(t, "events_2023_01", labels[partitions[0]])
	assert.Equal(t, "eu.orders_2023_01", labels[partitions[1]])
	assert.Equal(t, "us.orders_2023_01", labels[partitions[2]])
}

func TestLabels_DottedNameCollision(t *testing.T) {
	partitions := []models.Partition{
		{Schema: "public", Name: "a.b"},
		{Schema: "a", Name: "b"},
		{Schema: "c", Name: "b"},
	}

	labels := Labels(partitions)

	assert.Equal(t, `"public"."a.b"`, labels[partitions[0]])
	assert.Equal(t, `"a"."b"`, labels[partitions[1]])
	assert.Equal(t, "c.b", labels[partitions[2]])
	assert.Len(t, lo.Uniq(lo.Values(labels)), len(partitions))
}

func TestDumpFileName(t *testing.T) {
	tests := []struct {
		name      string
		partition models.Partition
		label     string
		expected  string
	}{
		{
			name:      "bare name",
			partition: models.Partition{Schema: "public", Name: "events_2023_01"},
			label:     "events_2023_01",
			expected:  "events_2023_01",
		},
		{
			name:      "qualified label",
			partition: models.Partition{Schema: "eu", Name: "events_2023_01"},
			label:     "eu.events_2023_01",
			expected:  "eu.events_2023_01",
		},
		{
			name:      "quoted identifier label",
			partition: models.Partition{Schema: "public", Name: "a.b"},
			label:     `"public"."a.b"`,
			expected:  "public.a.b",
		},
		{
			name:      "no schema",
			partition: models.Partition{Name: "events_2023_01"},
			label:     "x",
			expected:  "events_2023_01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DumpFileName(tt.partition, tt.label))
		})
	}
}
