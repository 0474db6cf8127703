package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pipemail.dev/triage/common/id"
	"pipemail.dev/triage/internal/analyzer"
	"pipemail.dev/triage/internal/classify"
	"pipemail.dev/triage/internal/domain"
	"pipemail.dev/triage/internal/extract"
	"pipemail.dev/triage/internal/mocklog"
)

var (
	// ErrNotPipelineNotification means the message is not a CI pipeline
	// notification at all.
	ErrNotPipelineNotification = errors.New("not a pipeline notification")
	// ErrNotFailureNotification means the pipeline notification does not
	// report a failure; nothing is analyzed or recorded.
	ErrNotFailureNotification = errors.New("pipeline notification is not a failure")
)

// LogFetcher acquires a job transcript for a failed pipeline.
type LogFetcher interface {
	Acquire(ctx context.Context, pipelineURL string, refs []domain.JobReference) domain.LogAcquisitionResult
}

// Analyzer runs the optional LLM enrichment step. On success it persists
// the record itself and returns the written path.
type Analyzer interface {
	Analyze(ctx context.Context, rec *domain.AnalysisRecord, actx analyzer.AnalysisContext) (*domain.AIAnalysis, string, error)
}

// Saver persists a record when enrichment did not already do so.
type Saver interface {
	Save(ctx context.Context, rec *domain.AnalysisRecord) (string, error)
}

type Config struct {
	SenderFilter  string
	MockErrorType string
	MockEnabled   bool
}

// Pipeline is one triage run: gate on the notification predicates, extract
// links and metadata, acquire the log, classify, optionally enrich, and
// persist exactly one record.
type Pipeline struct {
	cfg      Config
	fetcher  LogFetcher
	analyzer Analyzer
	saver    Saver
}

// New builds a Pipeline. analyzer may be nil; the run then carries the
// heuristic classification only.
func New(cfg Config, fetcher LogFetcher, analyzer Analyzer, saver Saver) *Pipeline {
	return &Pipeline{cfg: cfg, fetcher: fetcher, analyzer: analyzer, saver: saver}
}

// Outcome is the result of one completed run.
type Outcome struct {
	Record     *domain.AnalysisRecord
	ResultFile string
}

// Run analyzes one notification end to end. Only confirmed failure
// notifications produce a record; everything else returns a sentinel and
// touches nothing. Degraded stages (unreachable log, exhausted providers)
// never fail the run.
func (p *Pipeline) Run(ctx context.Context, msg *domain.NotificationMessage, actx analyzer.AnalysisContext) (*Outcome, error) {
	if !classify.IsCINotification(msg, p.cfg.SenderFilter) {
		return nil, ErrNotPipelineNotification
	}
	if !classify.IsFailureNotification(msg, p.cfg.SenderFilter) {
		return nil, ErrNotFailureNotification
	}

	htmlBody := extract.HTMLContent(msg)
	pipelineURL := extract.PipelineURL(htmlBody)
	refs := extract.JobReferences(htmlBody)
	meta := extract.SubjectMetadata(msg.SubjectLine())

	slog.InfoContext(ctx, "analyzing failure notification",
		"message_id", msg.ID,
		"project", meta.Name,
		"pipeline_url", pipelineURL,
		"job_refs", len(refs),
	)

	logResult := p.fetcher.Acquire(ctx, pipelineURL, refs)
	usedMock := false
	if !logResult.Success && p.cfg.MockEnabled {
		mock, known := mocklog.Get(p.cfg.MockErrorType)
		if !known {
			slog.WarnContext(ctx, "unknown mock error type, serving default",
				"error_type", p.cfg.MockErrorType,
			)
		}
		// Keep the acquisition verdict visible on the substituted result.
		mock.Reason = logResult.Reason
		logResult = *mock
		usedMock = true
		slog.InfoContext(ctx, "substituted mock transcript", "error_type", p.cfg.MockErrorType)
	}

	// One record per message: reuse the mailbox identity so redelivered
	// work maps onto the same record.
	recID := msg.ID
	if recID == "" {
		recID = id.NewString()
	}

	rec := &domain.AnalysisRecord{
		ID:             recID,
		Sender:         msg.SenderAddress(),
		Subject:        msg.SubjectLine(),
		Project:        meta,
		PipelineFailed: true,
		JobReferences:  referenceMap(refs),
		Log:            logResult,
		Classification: classify.ClassifyError(logResult),
		UsedMockData:   usedMock,
		CreatedAt:      time.Now().UTC(),
	}

	if p.analyzer != nil {
		_, path, err := p.analyzer.Analyze(ctx, rec, actx)
		if err == nil {
			return &Outcome{Record: rec, ResultFile: path}, nil
		}
		slog.WarnContext(ctx, "llm enrichment unavailable",
			"record_id", rec.ID,
			"error", err,
		)
	}

	path, err := p.saver.Save(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}
	return &Outcome{Record: rec, ResultFile: path}, nil
}

func referenceMap(refs []domain.JobReference) map[string]string {
	if len(refs) == 0 {
		return nil
	}
	m := make(map[string]string, len(refs))
	for _, ref := range refs {
		m[ref.Label] = ref.URL
	}
	return m
}
