package worker_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pipemail.dev/triage/common/typesense"
	"pipemail.dev/triage/internal/analyzer"
	"pipemail.dev/triage/internal/domain"
	"pipemail.dev/triage/internal/model"
	"pipemail.dev/triage/internal/pipeline"
	"pipemail.dev/triage/internal/queue"
	"pipemail.dev/triage/internal/search"
	"pipemail.dev/triage/internal/worker"
)

func notificationTask() queue.Message {
	payload, err := json.Marshal(domain.NotificationMessage{
		ID:      "msg-9",
		Sender:  "gitlab@bank.internal",
		Subject: "orders-api Pipeline #88 failed",
	})
	Expect(err).NotTo(HaveOccurred())
	return queue.Message{
		ID:       "1-0",
		TaskID:   "msg-9",
		TaskType: queue.TaskTypeAnalyzeNotification,
		Payload:  payload,
		Attempt:  1,
	}
}

var _ = Describe("Processor", func() {
	var (
		ctx      context.Context
		runner   *mockRunner
		analyses *mockAnalyses
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = &mockRunner{}
		analyses = &mockAnalyses{}
	})

	It("skips a task whose analysis is already stored", func() {
		analyses.existsFn = func(ctx context.Context, id string) (bool, error) {
			Expect(id).To(Equal("msg-9"))
			return true, nil
		}

		err := worker.NewProcessor(runner, analyses, nil).Process(ctx, notificationTask())

		Expect(err).NotTo(HaveOccurred())
		Expect(runner.calls).To(BeZero())
		Expect(analyses.created).To(BeEmpty())
	})

	It("drops an undecodable payload instead of retrying", func() {
		task := notificationTask()
		task.Payload = []byte("not json")

		err := worker.NewProcessor(runner, analyses, nil).Process(ctx, task)

		Expect(err).NotTo(HaveOccurred())
		Expect(runner.calls).To(BeZero())
	})

	It("backfills the message identity from the task", func() {
		task := notificationTask()
		task.Payload = []byte(`{"sender":"gitlab@bank.internal","subject":"orders-api Pipeline #88 failed"}`)

		err := worker.NewProcessor(runner, analyses, nil).Process(ctx, task)

		Expect(err).NotTo(HaveOccurred())
		Expect(runner.got.ID).To(Equal("msg-9"))
	})

	It("stores the finished analysis", func() {
		err := worker.NewProcessor(runner, analyses, nil).Process(ctx, notificationTask())

		Expect(err).NotTo(HaveOccurred())
		Expect(analyses.created).To(HaveLen(1))
		row := analyses.created[0]
		Expect(row.ID).To(Equal("msg-9"))
		Expect(row.ProjectName).To(Equal("orders-api"))
		Expect(row.Category).To(Equal("build_error"))
		Expect(row.ResultFile).To(Equal("results/ai_analysis_gitlab_20250314_093000.json"))
	})

	It("indexes the stored analysis when search is configured", func() {
		client := &mockIndexClient{}
		indexer := search.NewIndexer(client)

		err := worker.NewProcessor(runner, analyses, indexer).Process(ctx, notificationTask())

		Expect(err).NotTo(HaveOccurred())
		Expect(client.upserted).To(HaveLen(1))
		Expect(client.upserted[0].ID).To(Equal("msg-9"))
	})

	It("treats indexing failures as non-fatal", func() {
		client := &mockIndexClient{
			upsertFn: func(context.Context, typesense.Document) error {
				return errors.New("typesense unavailable")
			},
		}
		indexer := search.NewIndexer(client)

		err := worker.NewProcessor(runner, analyses, indexer).Process(ctx, notificationTask())

		Expect(err).NotTo(HaveOccurred())
		Expect(analyses.created).To(HaveLen(1))
	})

	It("acks non-failure notifications without retry", func() {
		runner.runFn = func(context.Context, *domain.NotificationMessage, analyzer.AnalysisContext) (*pipeline.Outcome, error) {
			return nil, pipeline.ErrNotFailureNotification
		}

		err := worker.NewProcessor(runner, analyses, nil).Process(ctx, notificationTask())

		Expect(err).NotTo(HaveOccurred())
		Expect(analyses.created).To(BeEmpty())
	})

	It("bubbles transient pipeline failures for retry", func() {
		runner.runFn = func(context.Context, *domain.NotificationMessage, analyzer.AnalysisContext) (*pipeline.Outcome, error) {
			return nil, errors.New("results directory not writable")
		}

		err := worker.NewProcessor(runner, analyses, nil).Process(ctx, notificationTask())

		Expect(err).To(MatchError(ContainSubstring("running pipeline")))
	})

	It("bubbles store failures for retry", func() {
		analyses.createFn = func(context.Context, *model.Analysis) error {
			return errors.New("connection refused")
		}

		err := worker.NewProcessor(runner, analyses, nil).Process(ctx, notificationTask())

		Expect(err).To(MatchError(ContainSubstring("storing analysis")))
	})

	It("bubbles idempotency-check failures for retry", func() {
		analyses.existsFn = func(context.Context, string) (bool, error) {
			return false, errors.New("connection refused")
		}

		err := worker.NewProcessor(runner, analyses, nil).Process(ctx, notificationTask())

		Expect(err).To(MatchError(ContainSubstring("checking existing analysis")))
	})
})
