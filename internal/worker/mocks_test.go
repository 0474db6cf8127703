package worker_test

import (
	"context"
	"sync"

	"pipemail.dev/triage/common/typesense"
	"pipemail.dev/triage/internal/analyzer"
	"pipemail.dev/triage/internal/domain"
	"pipemail.dev/triage/internal/model"
	"pipemail.dev/triage/internal/pipeline"
	"pipemail.dev/triage/internal/queue"
	"pipemail.dev/triage/internal/store"
)

type mockConsumer struct {
	mu       sync.Mutex
	queued   []queue.Message
	acked    []string
	requeued []string
	dlq      []string
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queued) == 0 {
		return []queue.Message{}, nil
	}
	batch := m.queued
	m.queued = nil
	return batch, nil
}

func (m *mockConsumer) Ack(ctx context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(ctx context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeued = append(m.requeued, errMsg)
	return nil
}

func (m *mockConsumer) SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dlq = append(m.dlq, errMsg)
	return nil
}

func (m *mockConsumer) ackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.acked)
}

func (m *mockConsumer) requeueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requeued)
}

func (m *mockConsumer) dlqCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dlq)
}

type mockTaskProcessor struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, msg queue.Message) error
	calls int
}

func (m *mockTaskProcessor) Process(ctx context.Context, msg queue.Message) error {
	m.mu.Lock()
	m.calls++
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, msg)
	}
	return nil
}

type mockRunner struct {
	runFn func(ctx context.Context, msg *domain.NotificationMessage, actx analyzer.AnalysisContext) (*pipeline.Outcome, error)
	calls int
	got   *domain.NotificationMessage
}

func (m *mockRunner) Run(ctx context.Context, msg *domain.NotificationMessage, actx analyzer.AnalysisContext) (*pipeline.Outcome, error) {
	m.calls++
	m.got = msg
	if m.runFn != nil {
		return m.runFn(ctx, msg, actx)
	}
	return &pipeline.Outcome{
		Record: &domain.AnalysisRecord{
			ID:             msg.ID,
			Sender:         msg.SenderAddress(),
			Subject:        msg.SubjectLine(),
			Project:        domain.ProjectMetadata{Name: "orders-api"},
			PipelineFailed: true,
			Classification: domain.ErrorClassification{Category: domain.CategoryBuildError},
		},
		ResultFile: "results/ai_analysis_gitlab_20250314_093000.json",
	}, nil
}

type mockAnalyses struct {
	existsFn func(ctx context.Context, id string) (bool, error)
	createFn func(ctx context.Context, analysis *model.Analysis) error
	created  []*model.Analysis
}

func (m *mockAnalyses) Create(ctx context.Context, analysis *model.Analysis) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, analysis); err != nil {
			return err
		}
	}
	m.created = append(m.created, analysis)
	return nil
}

func (m *mockAnalyses) GetByID(ctx context.Context, id string) (*model.Analysis, error) {
	return nil, store.ErrNotFound
}

func (m *mockAnalyses) List(ctx context.Context, filter store.AnalysisFilter) ([]model.Analysis, error) {
	return nil, nil
}

func (m *mockAnalyses) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return false, nil
}

type mockIndexClient struct {
	upsertFn func(ctx context.Context, doc typesense.Document) error
	upserted []typesense.Document
}

func (m *mockIndexClient) EnsureCollection(ctx context.Context) error { return nil }

func (m *mockIndexClient) Upsert(ctx context.Context, doc typesense.Document) error {
	m.upserted = append(m.upserted, doc)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, doc)
	}
	return nil
}

func (m *mockIndexClient) Search(ctx context.Context, q typesense.SearchQuery) ([]typesense.Hit, error) {
	return nil, nil
}
