package model

import (
	"time"

	"pipemail.dev/triage/internal/domain"
)

// Analysis is one triaged pipeline-failure notification. Scalar columns
// carry what listings filter and sort on; the full record rides along as
// JSONB so nothing from the pipeline output is lost.
type Analysis struct {
	ID             string                `json:"id"`
	Sender         string                `json:"sender"`
	Subject        string                `json:"subject"`
	ProjectName    string                `json:"project_name"`
	CommitID       string                `json:"commit_id,omitempty"`
	Environment    string                `json:"environment,omitempty"`
	Category       string                `json:"category"`
	PipelineFailed bool                  `json:"pipeline_failed"`
	UsedMockData   bool                  `json:"used_mock_data"`
	AIProvider     string                `json:"ai_provider,omitempty"`
	AIModel        string                `json:"ai_model,omitempty"`
	ResultFile     string                `json:"result_file,omitempty"`
	Record         domain.AnalysisRecord `json:"record"`
	CreatedAt      time.Time             `json:"created_at"`
}

// NewAnalysis flattens a pipeline record into its row form.
func NewAnalysis(rec *domain.AnalysisRecord, resultFile string) *Analysis {
	a := &Analysis{
		ID:             rec.ID,
		Sender:         rec.Sender,
		Subject:        rec.Subject,
		ProjectName:    rec.Project.Name,
		CommitID:       rec.Project.CommitID,
		Environment:    rec.Project.Environment,
		Category:       string(rec.Classification.Category),
		PipelineFailed: rec.PipelineFailed,
		UsedMockData:   rec.UsedMockData,
		ResultFile:     resultFile,
		Record:         *rec,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.AI != nil {
		a.AIProvider = rec.AI.Provider
		a.AIModel = rec.AI.Model
	}
	return a
}
