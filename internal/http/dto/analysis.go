package dto

import (
	"time"

	"pipemail.dev/triage/common/typesense"
	"pipemail.dev/triage/internal/model"
)

// AnalysisSummary is the listing row; the full record stays behind the
// detail endpoint.
type AnalysisSummary struct {
	ID           string    `json:"id"`
	ProjectName  string    `json:"project_name"`
	Category     string    `json:"category"`
	Subject      string    `json:"subject"`
	Sender       string    `json:"sender"`
	CommitID     string    `json:"commit_id,omitempty"`
	Environment  string    `json:"environment,omitempty"`
	UsedMockData bool      `json:"used_mock_data"`
	AIProvider   string    `json:"ai_provider,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToAnalysisSummary(a model.Analysis) AnalysisSummary {
	return AnalysisSummary{
		ID:           a.ID,
		ProjectName:  a.ProjectName,
		Category:     a.Category,
		Subject:      a.Subject,
		Sender:       a.Sender,
		CommitID:     a.CommitID,
		Environment:  a.Environment,
		UsedMockData: a.UsedMockData,
		AIProvider:   a.AIProvider,
		CreatedAt:    a.CreatedAt,
	}
}

type ListAnalysesResponse struct {
	Analyses []AnalysisSummary `json:"analyses"`
	Count    int               `json:"count"`
}

type SearchHit struct {
	ID        string `json:"id"`
	Project   string `json:"project"`
	Category  string `json:"category"`
	Subject   string `json:"subject"`
	Summary   string `json:"summary"`
	CreatedAt int64  `json:"created_at"`
}

type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
	Count int         `json:"count"`
}

func ToSearchHit(h typesense.Hit) SearchHit {
	return SearchHit{
		ID:        h.ID,
		Project:   h.Project,
		Category:  h.Category,
		Subject:   h.Subject,
		Summary:   h.Summary,
		CreatedAt: h.CreatedAt,
	}
}
