package entities

import "time"

// Stage names a pipeline layer build.
type Stage string

const (
	StageSchema  Stage = "schema"
	StageIngest  Stage = "ingest"
	StageTrusted Stage = "trusted"
	StageRefined Stage = "refined"
)

// StageResult describes one completed stage.
type StageResult struct {
	Stage    Stage         `json:"stage"`
	Rows     int           `json:"rows"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// PipelineRun is the outcome of a full or partial run.
type PipelineRun struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Stages     []*StageResult `json:"stages"`
}

// LayerEvent announces that a layer was rebuilt.
type LayerEvent struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Stage     Stage     `json:"stage"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}
