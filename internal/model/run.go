// Package model holds the run log types shared by the store, the pipeline,
// and the CLI.
package model

import (
	"time"

	"github.com/blewis-maker/Katapult-Automation/internal/extract"
)

// RunStatus represents the current state of an extraction run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusExporting RunStatus = "exporting"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// RunSource says where a run read its payloads from.
type RunSource string

const (
	RunSourceAPI    RunSource = "api"
	RunSourceReplay RunSource = "replay"
)

// Run represents a single extraction run over a set of jobs.
type Run struct {
	ID        string     `json:"id"`
	Source    RunSource  `json:"source"`
	ReplayOf  string     `json:"replay_of,omitempty"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	JobsTotal     int      `json:"jobs_total"`
	JobsOK        int      `json:"jobs_ok"`
	JobsAbandoned int      `json:"jobs_abandoned"`
	Poles         int      `json:"poles"`
	Anchors       int      `json:"anchors"`
	Connections   int      `json:"connections"`
	Files         []string `json:"files,omitempty"`
	DurationMs    int64    `json:"duration_ms"`
	Error         string   `json:"error,omitempty"`
}

// JobOutcome is the result of processing one job within a run.
type JobOutcome string

const (
	JobOutcomeOK        JobOutcome = "ok"
	JobOutcomeAbandoned JobOutcome = "abandoned"
)

// JobRun records what happened to one job within a run.
type JobRun struct {
	RunID       string        `json:"run_id"`
	JobID       string        `json:"job_id"`
	JobName     string        `json:"job_name"`
	JobStatus   string        `json:"job_status"`
	Position    int           `json:"position"`
	Outcome     JobOutcome    `json:"outcome"`
	Error       string        `json:"error,omitempty"`
	Poles       int           `json:"poles"`
	Anchors     int           `json:"anchors"`
	Connections int           `json:"connections"`
	Stats       extract.Stats `json:"stats"`
	DurationMs  int64         `json:"duration_ms"`
	RecordedAt  time.Time     `json:"recorded_at"`
}
