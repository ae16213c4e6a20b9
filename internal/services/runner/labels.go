package runner

import (
	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/fgeck/partition-archiver/internal/services/partition"
	"github.com/samber/lo"
)

// Labels returns the name shown for each partition in prompts and summaries.
// A name shared by children in several schemas is shown as schema.name. If
// that still collides with another label, every colliding partition falls
// back to its quoted identifier, which is unique per catalog entry.
func Labels(partitions []models.Partition) map[models.Partition]string {
	names := lo.CountValuesBy(partitions, func(p models.Partition) string { return p.Name })

	labels := make(map[models.Partition]string, len(partitions))
	for _, p := range partitions {
		if names[p.Name] > 1 && p.Schema != "" {
			labels[p] = p.Schema + "." + p.Name
		} else {
			labels[p] = p.Name
		}
	}

	taken := lo.CountValues(lo.Values(labels))
	for p, label := range labels {
		if taken[label] > 1 {
			labels[p] = partition.Identifier(p)
		}
	}

	return labels
}

// DumpFileName is the file stem used for a partition's dump. Partitions shown
// by bare name dump to <name>; qualified ones dump to <schema>.<name>.
func DumpFileName(p models.Partition, label string) string {
	if label == p.Name || p.Schema == "" {
		return p.Name
	}
	return p.Schema + "." + p.Name
}
