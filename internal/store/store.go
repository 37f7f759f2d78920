package store

import (
	"context"

	"github.com/blewis-maker/Katapult-Automation/internal/aggregate"
	"github.com/blewis-maker/Katapult-Automation/internal/model"
	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Payload is an archived job detail body together with the job it belongs to.
type Payload struct {
	Position int
	Job      katapult.Job
	Body     []byte
}

// StoredFeature is one exported feature read back from the run log.
type StoredFeature struct {
	Layer      string
	Index      int
	Geometry   []byte // EWKB, SRID 4326
	Properties map[string]any
}

// Store defines the persistence interface for the run log.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source model.RunSource, replayOf string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Per-job outcomes
	RecordJob(ctx context.Context, jr model.JobRun) error
	ListJobResults(ctx context.Context, runID string) ([]model.JobRun, error)

	// Payload archive
	ArchivePayload(ctx context.Context, runID string, position int, job katapult.Job, body []byte) error
	LoadPayloads(ctx context.Context, runID string) ([]Payload, error)

	// Exported features
	SaveFeatures(ctx context.Context, runID string, layers []aggregate.Layer) (int, error)
	LoadFeatures(ctx context.Context, runID, layer string) ([]StoredFeature, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
