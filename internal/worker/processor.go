package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"pipemail.dev/triage/common/logger"
	"pipemail.dev/triage/internal/analyzer"
	"pipemail.dev/triage/internal/domain"
	"pipemail.dev/triage/internal/model"
	"pipemail.dev/triage/internal/pipeline"
	"pipemail.dev/triage/internal/queue"
	"pipemail.dev/triage/internal/search"
	"pipemail.dev/triage/internal/store"
)

// Processor turns one queue task into a stored analysis. A returned error
// means the task is worth retrying; permanent conditions (duplicate,
// non-failure notification, undecodable payload) are swallowed so the
// worker acks them.
type Processor struct {
	runner   Runner
	analyses store.AnalysisStore
	indexer  *search.Indexer // nil when search is not configured
}

func NewProcessor(runner Runner, analyses store.AnalysisStore, indexer *search.Indexer) *Processor {
	return &Processor{
		runner:   runner,
		analyses: analyses,
		indexer:  indexer,
	}
}

func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "triage.worker.processor",
		TaskID:    logger.Ptr(msg.TaskID),
	})

	exists, err := p.analyses.Exists(ctx, msg.TaskID)
	if err != nil {
		return fmt.Errorf("checking existing analysis: %w", err)
	}
	if exists {
		slog.InfoContext(ctx, "analysis already stored, skipping")
		return nil
	}

	var notification domain.NotificationMessage
	if err := json.Unmarshal(msg.Payload, &notification); err != nil {
		slog.ErrorContext(ctx, "undecodable task payload, dropping", "error", err)
		return nil
	}
	if notification.ID == "" {
		notification.ID = msg.TaskID
	}

	outcome, err := p.runner.Run(ctx, &notification, analyzer.AnalysisContext{})
	if err != nil {
		if errors.Is(err, pipeline.ErrNotPipelineNotification) || errors.Is(err, pipeline.ErrNotFailureNotification) {
			slog.InfoContext(ctx, "notification needs no analysis", "reason", err.Error())
			return nil
		}
		return fmt.Errorf("running pipeline: %w", err)
	}

	row := model.NewAnalysis(outcome.Record, outcome.ResultFile)
	if err := p.analyses.Create(ctx, row); err != nil {
		return fmt.Errorf("storing analysis: %w", err)
	}

	if p.indexer != nil {
		if err := p.indexer.Index(ctx, row); err != nil {
			slog.WarnContext(ctx, "search indexing failed", "error", err, "analysis_id", row.ID)
		}
	}

	slog.InfoContext(ctx, "notification analyzed",
		"analysis_id", row.ID,
		"category", row.Category,
		"used_mock", row.UsedMockData)
	return nil
}
