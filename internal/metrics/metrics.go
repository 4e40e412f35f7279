// Package metrics holds the engine's Prometheus collectors. They register
// with the default registry and can be dumped to a node-exporter textfile at
// the end of a CLI run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chronicle"

// Result label values.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRestored = "restored"
	ResultSkipped  = "skipped"
)

var (
	MigrationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migration_runs_total",
		Help:      "Migration pipeline runs by result",
	}, []string{"result"})

	MigrationStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "migration_step_duration_seconds",
		Help:      "Time spent in a single migration step",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"version"})

	RecordsValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_validated_total",
		Help:      "Records checked by the schema validator by kind and outcome",
	}, []string{"kind", "outcome"})

	ReferencesRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphaned_references_total",
		Help:      "Orphaned entity name references found during repair",
	})

	EntitiesAutoCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entities_auto_created_total",
		Help:      "Entities created to heal dangling references",
	})

	BackupOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backup_operations_total",
		Help:      "Backup operations by type and status",
	}, []string{"operation", "status"})

	NotesImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notes_imported_total",
		Help:      "Markdown notes processed by the importer by outcome",
	}, []string{"outcome"})

	Deletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entity_deletions_total",
		Help:      "Entity deletion attempts by cascade mode and result",
	}, []string{"mode", "result"})
)

// WriteTextfile writes every registered metric to path in the text exposition
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
