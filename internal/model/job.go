package model

import "time"

// JobStatus represents the current state of an analysis job.
type JobStatus string

const (
	JobStatusQueued        JobStatus = "queued"
	JobStatusConverting    JobStatus = "converting"
	JobStatusExtracting    JobStatus = "extracting"
	JobStatusConsolidating JobStatus = "consolidating"
	JobStatusReporting     JobStatus = "reporting"
	JobStatusComplete      JobStatus = "complete"
	JobStatusFailed        JobStatus = "failed"
)

// DocumentRef identifies the source document of a job.
type DocumentRef struct {
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	ProjectType string `json:"project_type,omitempty"`
}

// Stem returns the base name of the document without extension, used as the
// prefix for all stage artifacts.
func (d DocumentRef) Stem() string {
	base := d.Path
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// Job represents a single analysis job for one document.
type Job struct {
	ID        string      `json:"id"`
	Document  DocumentRef `json:"document"`
	Status    JobStatus   `json:"status"`
	Result    *JobResult  `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StageStatus represents the outcome of a pipeline stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// StageResult records the outcome of one pipeline stage.
type StageResult struct {
	Name       string         `json:"name"`
	Status     StageStatus    `json:"status"`
	Duration   int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	TokenUsage TokenUsage     `json:"token_usage,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// JobResult holds the final outcome of a job.
type JobResult struct {
	Facts      int           `json:"facts"`
	Conflicts  int           `json:"conflicts"`
	Skipped    int           `json:"skipped"`
	Pages      int           `json:"pages"`
	Chunks     int           `json:"chunks"`
	Stages     []StageResult `json:"stages"`
	TotalUsage TokenUsage    `json:"total_usage"`
	Artifacts  []string      `json:"artifacts,omitempty"`
}

// TokenUsage tracks aggregate token consumption and estimated cost.
type TokenUsage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Add accumulates usage from another stage or request.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CostUSD += other.CostUSD
}
