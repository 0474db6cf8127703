package search_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pipemail.dev/triage/common/typesense"
	"pipemail.dev/triage/internal/domain"
	"pipemail.dev/triage/internal/model"
	"pipemail.dev/triage/internal/search"
)

type mockSearchClient struct {
	upsertFn func(ctx context.Context, doc typesense.Document) error
	ensured  int
	upserted []typesense.Document
}

func (m *mockSearchClient) EnsureCollection(ctx context.Context) error {
	m.ensured++
	return nil
}

func (m *mockSearchClient) Upsert(ctx context.Context, doc typesense.Document) error {
	m.upserted = append(m.upserted, doc)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, doc)
	}
	return nil
}

func (m *mockSearchClient) Search(ctx context.Context, q typesense.SearchQuery) ([]typesense.Hit, error) {
	return nil, nil
}

func analysisRow() *model.Analysis {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return &model.Analysis{
		ID:          "msg-42",
		Sender:      "gitlab@bank.internal",
		Subject:     "orders-api Pipeline #4521 failed",
		ProjectName: "orders-api",
		Category:    "build_error",
		Record: domain.AnalysisRecord{
			ID: "msg-42",
			Log: domain.LogAcquisitionResult{
				ErrorLines: []string{"[ERROR] cannot find symbol"},
			},
			Classification: domain.ErrorClassification{
				Category: domain.CategoryBuildError,
				Summary:  "Build failed because of compilation errors.",
			},
		},
		UsedMockData: true,
		CreatedAt:    created,
	}
}

var _ = Describe("Indexer", func() {
	var (
		ctx    context.Context
		client *mockSearchClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockSearchClient{}
	})

	It("flattens a heuristic-only analysis into a document", func() {
		row := analysisRow()

		Expect(search.NewIndexer(client).Index(ctx, row)).To(Succeed())

		Expect(client.upserted).To(HaveLen(1))
		doc := client.upserted[0]
		Expect(doc.ID).To(Equal("msg-42"))
		Expect(doc.Project).To(Equal("orders-api"))
		Expect(doc.Category).To(Equal("build_error"))
		Expect(doc.Summary).To(Equal("Build failed because of compilation errors."))
		Expect(doc.RootCause).To(BeEmpty())
		Expect(doc.ErrorLines).To(ConsistOf("[ERROR] cannot find symbol"))
		Expect(doc.UsedMock).To(BeTrue())
		Expect(doc.CreatedAt).To(Equal(row.CreatedAt.Unix()))
	})

	It("prefers the narrative summary when enrichment succeeded", func() {
		row := analysisRow()
		row.Record.AI = &domain.AIAnalysis{
			Analysis: domain.AnalysisNarrative{
				Summary:   "Missing symbol after dependency bump.",
				RootCause: "PaymentClient was removed in sdk 2.0.",
			},
		}

		Expect(search.NewIndexer(client).Index(ctx, row)).To(Succeed())

		doc := client.upserted[0]
		Expect(doc.Summary).To(Equal("Missing symbol after dependency bump."))
		Expect(doc.RootCause).To(Equal("PaymentClient was removed in sdk 2.0."))
	})

	It("wraps upsert failures with the analysis identity", func() {
		client.upsertFn = func(context.Context, typesense.Document) error {
			return errors.New("connection refused")
		}

		err := search.NewIndexer(client).Index(ctx, analysisRow())

		Expect(err).To(MatchError(ContainSubstring("index analysis msg-42")))
	})

	It("delegates setup to the collection bootstrap", func() {
		Expect(search.NewIndexer(client).Setup(ctx)).To(Succeed())
		Expect(client.ensured).To(Equal(1))
	})
})
