package analyzer_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pipemail.dev/triage/common/llm"
	"pipemail.dev/triage/core/config"
	"pipemail.dev/triage/internal/analyzer"
	"pipemail.dev/triage/internal/domain"
)

type mockClient struct {
	generateFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
	provider   llm.Provider
	model      string
	calls      int
}

func (m *mockClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.calls++
	return m.generateFn(ctx, req)
}

func (m *mockClient) Model() string          { return m.model }
func (m *mockClient) Provider() llm.Provider { return m.provider }

type mockSaver struct {
	saveFn func(ctx context.Context, rec *domain.AnalysisRecord) (string, error)
	calls  int
}

func (m *mockSaver) Save(ctx context.Context, rec *domain.AnalysisRecord) (string, error) {
	m.calls++
	if m.saveFn == nil {
		return "results/analysis.json", nil
	}
	return m.saveFn(ctx, rec)
}

func record() *domain.AnalysisRecord {
	return &domain.AnalysisRecord{
		ID:             "rec-1",
		Sender:         "gitlab@example.com",
		Subject:        "orders-api Pipeline #4521 failed for uat-02 a1b2c3d",
		Project:        domain.ProjectMetadata{Name: "orders-api", CommitID: "a1b2c3d", Environment: "uat-02"},
		PipelineFailed: true,
		Log: domain.LogAcquisitionResult{
			Success:    true,
			Source:     domain.LogSourceAPI,
			Logs:       "[ERROR] cannot find symbol",
			ErrorLines: []string{"[ERROR] cannot find symbol"},
		},
		Classification: domain.ErrorClassification{
			Category: domain.CategoryBuildError,
			Summary:  "The build failed to compile.",
		},
	}
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx   context.Context
		cfg   config.LLMConfig
		saver *mockSaver
	)

	const answer = `{"summary":"Compilation failed.","root_cause":"SettlementClient was removed.","remediation":"Restore the import."}`

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.LLMConfig{
			Provider:    "auto",
			MaxTokens:   2000,
			Temperature: 0.3,
			OpenAI:      config.ProviderConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
			Anthropic:   config.ProviderConfig{APIKey: "ak-test", Model: "claude-3-5-haiku-latest"},
		}
		saver = &mockSaver{}
	})

	It("refuses a record without log content", func() {
		rec := record()
		rec.Log = domain.LogAcquisitionResult{}
		o := analyzer.New(cfg, saver, func(llm.Config) (llm.Client, error) {
			Fail("no client should be built")
			return nil, nil
		})

		_, _, err := o.Analyze(ctx, rec, analyzer.AnalysisContext{})

		Expect(err).To(MatchError(analyzer.ErrNoLogData))
		Expect(saver.calls).To(BeZero())
	})

	It("falls through the auto chain until a provider answers", func() {
		openai := &mockClient{
			provider: llm.ProviderOpenAI,
			model:    "gpt-4o-mini",
			generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
				return nil, errors.New("rate limited")
			},
		}
		anthropic := &mockClient{
			provider: llm.ProviderAnthropic,
			model:    "claude-3-5-haiku-latest",
			generateFn: func(_ context.Context, req llm.Request) (*llm.Response, error) {
				return &llm.Response{Text: answer, Model: "claude-3-5-haiku-latest"}, nil
			},
		}
		o := analyzer.New(cfg, saver, func(c llm.Config) (llm.Client, error) {
			switch c.Provider {
			case llm.ProviderOpenAI:
				return openai, nil
			case llm.ProviderAnthropic:
				return anthropic, nil
			}
			return nil, errors.New("unexpected provider")
		})

		rec := record()
		analysis, path, err := o.Analyze(ctx, rec, analyzer.AnalysisContext{})

		Expect(err).NotTo(HaveOccurred())
		Expect(openai.calls).To(Equal(1))
		Expect(anthropic.calls).To(Equal(1))
		Expect(analysis.Provider).To(Equal("anthropic"))
		Expect(analysis.Model).To(Equal("claude-3-5-haiku-latest"))
		Expect(analysis.Analysis.Summary).To(Equal("Compilation failed."))
		Expect(analysis.Category).To(Equal(domain.CategoryBuildError))
		Expect(analysis.Project).To(Equal(rec.Project))
		Expect(path).To(Equal("results/analysis.json"))
	})

	It("persists the enriched record before returning", func() {
		client := &mockClient{
			provider: llm.ProviderOpenAI,
			model:    "gpt-4o-mini",
			generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
				return &llm.Response{Text: answer}, nil
			},
		}
		saver.saveFn = func(_ context.Context, rec *domain.AnalysisRecord) (string, error) {
			Expect(rec.AI).NotTo(BeNil(), "the record must carry the narrative when persisted")
			return "results/analysis.json", nil
		}
		o := analyzer.New(cfg, saver, func(llm.Config) (llm.Client, error) { return client, nil })

		_, _, err := o.Analyze(ctx, record(), analyzer.AnalysisContext{})

		Expect(err).NotTo(HaveOccurred())
		Expect(saver.calls).To(Equal(1))
	})

	It("reports exhaustion when every provider fails", func() {
		o := analyzer.New(cfg, saver, func(c llm.Config) (llm.Client, error) {
			return &mockClient{
				provider: c.Provider,
				generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
					return nil, errors.New("unavailable")
				},
			}, nil
		})

		rec := record()
		_, _, err := o.Analyze(ctx, rec, analyzer.AnalysisContext{})

		Expect(err).To(MatchError(analyzer.ErrProvidersExhausted))
		Expect(rec.AI).To(BeNil())
		Expect(saver.calls).To(BeZero())
	})

	It("reports exhaustion when enrichment is disabled", func() {
		o := analyzer.New(cfg, saver, func(llm.Config) (llm.Client, error) {
			Fail("no client should be built")
			return nil, nil
		})

		_, _, err := o.Analyze(ctx, record(), analyzer.AnalysisContext{Provider: "none"})

		Expect(err).To(MatchError(analyzer.ErrProvidersExhausted))
	})

	It("honours a named provider with a model override", func() {
		var built []llm.Config
		o := analyzer.New(cfg, saver, func(c llm.Config) (llm.Client, error) {
			built = append(built, c)
			return &mockClient{
				provider: c.Provider,
				model:    c.Model,
				generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
					return &llm.Response{Text: answer}, nil
				},
			}, nil
		})

		analysis, _, err := o.Analyze(ctx, record(), analyzer.AnalysisContext{Provider: "openai", Model: "gpt-4o"})

		Expect(err).NotTo(HaveOccurred())
		Expect(built).To(HaveLen(1))
		Expect(built[0].Provider).To(Equal(llm.ProviderOpenAI))
		Expect(built[0].APIKey).To(Equal("sk-test"))
		Expect(built[0].Model).To(Equal("gpt-4o"))
		Expect(analysis.Model).To(Equal("gpt-4o"))
	})

	It("surfaces a persistence failure", func() {
		saver.saveFn = func(context.Context, *domain.AnalysisRecord) (string, error) {
			return "", errors.New("disk full")
		}
		o := analyzer.New(cfg, saver, func(c llm.Config) (llm.Client, error) {
			return &mockClient{
				provider: c.Provider,
				generateFn: func(context.Context, llm.Request) (*llm.Response, error) {
					return &llm.Response{Text: answer}, nil
				},
			}, nil
		})

		_, _, err := o.Analyze(ctx, record(), analyzer.AnalysisContext{})

		Expect(err).To(MatchError(ContainSubstring("persist analysis")))
	})

	Describe("prompt", func() {
		var prompt string

		capture := func(rec *domain.AnalysisRecord) {
			o := analyzer.New(cfg, saver, func(c llm.Config) (llm.Client, error) {
				return &mockClient{
					provider: c.Provider,
					generateFn: func(_ context.Context, req llm.Request) (*llm.Response, error) {
						prompt = req.Prompt
						return &llm.Response{Text: answer}, nil
					},
				}, nil
			})
			_, _, err := o.Analyze(ctx, rec, analyzer.AnalysisContext{Provider: "openai"})
			Expect(err).NotTo(HaveOccurred())
		}

		It("carries project context, classification, error lines and the schema", func() {
			capture(record())

			Expect(prompt).To(ContainSubstring("Project: orders-api"))
			Expect(prompt).To(ContainSubstring("Commit: a1b2c3d"))
			Expect(prompt).To(ContainSubstring("Environment: uat-02"))
			Expect(prompt).To(ContainSubstring("Heuristic classification: build_error"))
			Expect(prompt).To(ContainSubstring("- [ERROR] cannot find symbol"))
			Expect(prompt).To(ContainSubstring(`"root_cause"`))
		})

		It("windows an oversized log to head and tail", func() {
			rec := record()
			rec.Log.Logs = "HEAD-MARK " + strings.Repeat("a", 4000) + " TAIL-MARK"
			capture(rec)

			Expect(prompt).To(ContainSubstring("HEAD-MARK"))
			Expect(prompt).To(ContainSubstring("TAIL-MARK"))
			Expect(prompt).To(ContainSubstring("[log truncated]"))
			Expect(prompt).NotTo(ContainSubstring(strings.Repeat("a", 3500)))
		})

		It("counts error lines beyond the prompt cap", func() {
			rec := record()
			rec.Log.ErrorLines = nil
			for i := 0; i < 14; i++ {
				rec.Log.ErrorLines = append(rec.Log.ErrorLines, "[ERROR] line")
			}
			capture(rec)

			Expect(prompt).To(ContainSubstring("... and 4 more error lines"))
		})
	})
})

var _ = Describe("ParseNarrative", func() {
	It("reads a fenced json block", func() {
		text := "Here is my analysis:\n```json\n{\"summary\":\"s\",\"root_cause\":\"r\",\"remediation\":\"m\"}\n```\nHope this helps."

		n := analyzer.ParseNarrative(text)

		Expect(n.Summary).To(Equal("s"))
		Expect(n.RootCause).To(Equal("r"))
		Expect(n.Remediation).To(Equal("m"))
		Expect(n.Raw).To(BeEmpty())
	})

	It("reads an unfenced brace span inside prose", func() {
		text := `Sure! {"summary":"the tests failed","root_cause":"flaky clock","remediation":"freeze time in tests"} Let me know.`

		n := analyzer.ParseNarrative(text)

		Expect(n.Summary).To(Equal("the tests failed"))
	})

	It("reads bare json", func() {
		n := analyzer.ParseNarrative(`{"summary":"s"}`)

		Expect(n.Summary).To(Equal("s"))
	})

	It("keeps unparseable output verbatim", func() {
		n := analyzer.ParseNarrative("The build failed because of a missing symbol.")

		Expect(n.Summary).To(BeEmpty())
		Expect(n.Raw).To(Equal("The build failed because of a missing symbol."))
		Expect(n.String()).To(Equal("The build failed because of a missing symbol."))
	})

	It("treats an empty object as unparseable", func() {
		n := analyzer.ParseNarrative(`{}`)

		Expect(n.Raw).To(Equal(`{}`))
	})
})
