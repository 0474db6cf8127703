package store

import (
	"context"
	"errors"

	"pipemail.dev/triage/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// AnalysisFilter narrows a listing. Zero values match everything; Limit
// falls back to a default when unset.
type AnalysisFilter struct {
	Project  string
	Category string
	Limit    int32
	Offset   int32
}

// AnalysisStore defines the contract for analysis data access
type AnalysisStore interface {
	Create(ctx context.Context, analysis *model.Analysis) error
	GetByID(ctx context.Context, id string) (*model.Analysis, error)
	List(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)
	Exists(ctx context.Context, id string) (bool, error)
}
