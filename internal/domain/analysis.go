package domain

import (
	"strings"
	"time"
)

// Caps enforced on every LogAcquisitionResult regardless of source.
const (
	MaxLogChars   = 5000
	MaxErrorLines = 20
	MaxJobLinks   = 5
)

// JobReference is a display label plus a URL believed to point at one CI
// job or pipeline run. Order reflects document order; duplicate URLs are
// allowed but labels are distinct keys in the produced mapping.
type JobReference struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ProjectMetadata is derived purely from the notification subject line.
// Fields are optionally empty, never null.
type ProjectMetadata struct {
	Name        string `json:"name"`
	CommitID    string `json:"commit_id"`
	Environment string `json:"environment"`
}

// LogAcquisitionResult is the outcome of one log acquisition attempt.
// Invariant: Success == false implies Logs == "". Logs is capped at
// MaxLogChars, ErrorLines at MaxErrorLines, JobLinks at MaxJobLinks.
type LogAcquisitionResult struct {
	Success               bool           `json:"success"`
	Source                LogSource      `json:"source"`
	Logs                  string         `json:"logs"`
	ErrorLines            []string       `json:"error_lines,omitempty"`
	JobLinks              []JobReference `json:"job_links,omitempty"`
	IsMock                bool           `json:"is_mock"`
	PipelineURLAccessible bool           `json:"pipeline_url_accessible"`
	Reason                string         `json:"reason,omitempty"`
}

// ErrorClassification is the heuristic verdict over a log transcript.
type ErrorClassification struct {
	Category    Category `json:"category"`
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}

// AnalysisNarrative is the model's structured reading of a failure. When
// the provider's output cannot be parsed as JSON the raw text is kept
// under Raw instead of being discarded.
type AnalysisNarrative struct {
	Summary     string `json:"summary,omitempty"`
	RootCause   string `json:"root_cause,omitempty"`
	Remediation string `json:"remediation,omitempty"`
	Raw         string `json:"analysis,omitempty"`
}

// String renders the narrative for terminal display.
func (n AnalysisNarrative) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	var b strings.Builder
	if n.Summary != "" {
		b.WriteString("Summary: " + n.Summary + "\n")
	}
	if n.RootCause != "" {
		b.WriteString("Root cause: " + n.RootCause + "\n")
	}
	if n.Remediation != "" {
		b.WriteString("Remediation: " + n.Remediation + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// AIAnalysis is the optional LLM enrichment of a classification. Project
// records the metadata the narrative was conditioned on.
type AIAnalysis struct {
	Timestamp time.Time         `json:"timestamp"`
	Category  Category          `json:"category"`
	Analysis  AnalysisNarrative `json:"analysis"`
	Provider  string            `json:"provider"`
	Model     string            `json:"model"`
	Project   ProjectMetadata   `json:"project"`
}

// AnalysisRecord is the persisted aggregate of one pipeline run. Records
// are immutable after persistence; every analysis produces a new record.
type AnalysisRecord struct {
	ID             string               `json:"id"`
	Sender         string               `json:"sender"`
	Subject        string               `json:"subject"`
	Project        ProjectMetadata      `json:"project"`
	PipelineFailed bool                 `json:"pipeline_failed"`
	JobReferences  map[string]string    `json:"job_references,omitempty"`
	Log            LogAcquisitionResult `json:"log"`
	Classification ErrorClassification  `json:"classification"`
	AI             *AIAnalysis          `json:"ai_analysis,omitempty"`
	UsedMockData   bool                 `json:"used_mock_data"`
	CreatedAt      time.Time            `json:"created_at"`
}
