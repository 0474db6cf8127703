package search

import (
	"context"
	"fmt"

	"pipemail.dev/triage/common/typesense"
	"pipemail.dev/triage/internal/model"
)

// Indexer pushes finished analyses into the search collection. Indexing
// is best-effort; callers log failures instead of retrying the task.
type Indexer struct {
	client typesense.Client
}

func NewIndexer(client typesense.Client) *Indexer {
	return &Indexer{client: client}
}

// Setup makes sure the backing collection exists.
func (i *Indexer) Setup(ctx context.Context) error {
	return i.client.EnsureCollection(ctx)
}

func (i *Indexer) Index(ctx context.Context, analysis *model.Analysis) error {
	if err := i.client.Upsert(ctx, toDocument(analysis)); err != nil {
		return fmt.Errorf("index analysis %s: %w", analysis.ID, err)
	}
	return nil
}

// toDocument flattens the row for full-text search. The LLM narrative,
// when present, wins over the heuristic summary.
func toDocument(a *model.Analysis) typesense.Document {
	doc := typesense.Document{
		ID:         a.ID,
		Project:    a.ProjectName,
		Category:   a.Category,
		Subject:    a.Subject,
		Sender:     a.Sender,
		Summary:    a.Record.Classification.Summary,
		ErrorLines: a.Record.Log.ErrorLines,
		UsedMock:   a.UsedMockData,
		CreatedAt:  a.CreatedAt.Unix(),
	}
	if ai := a.Record.AI; ai != nil {
		if ai.Analysis.Summary != "" {
			doc.Summary = ai.Analysis.Summary
		}
		doc.RootCause = ai.Analysis.RootCause
	}
	return doc
}
