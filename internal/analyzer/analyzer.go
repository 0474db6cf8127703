package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pipemail.dev/triage/common/llm"
	"pipemail.dev/triage/core/config"
	"pipemail.dev/triage/internal/domain"
)

// Per-provider generation deadlines. Ollama runs locally and is given less
// headroom than the hosted providers.
const (
	openAITimeout    = 90 * time.Second
	anthropicTimeout = 90 * time.Second
	ollamaTimeout    = 60 * time.Second
)

var (
	// ErrNoLogData means the record carries nothing an LLM could read.
	ErrNoLogData = errors.New("no log content to analyze")
	// ErrProvidersExhausted means every candidate provider failed or none
	// was configured.
	ErrProvidersExhausted = errors.New("all llm providers failed")
)

// AnalysisContext selects the provider for one run. Zero values defer to
// the configured defaults; Model only applies when a single provider is
// named.
type AnalysisContext struct {
	Provider string
	Model    string
}

// Saver persists a finished analysis record and returns the written path.
type Saver interface {
	Save(ctx context.Context, rec *domain.AnalysisRecord) (string, error)
}

// ClientFactory builds a provider client. Pass nil to New for the default
// factory.
type ClientFactory func(llm.Config) (llm.Client, error)

// Orchestrator runs the LLM enrichment step: build a bounded prompt, walk
// the provider chain until one answers, parse the answer and persist the
// record before returning.
type Orchestrator struct {
	cfg       config.LLMConfig
	saver     Saver
	newClient ClientFactory
}

func New(cfg config.LLMConfig, saver Saver, factory ClientFactory) *Orchestrator {
	if factory == nil {
		factory = llm.New
	}
	return &Orchestrator{cfg: cfg, saver: saver, newClient: factory}
}

// Analyze enriches rec with an LLM narrative. On success rec.AI is set and
// the record is persisted through the Saver; the returned string is the
// written file path. The record is never persisted here when every
// provider fails.
func (o *Orchestrator) Analyze(ctx context.Context, rec *domain.AnalysisRecord, actx AnalysisContext) (*domain.AIAnalysis, string, error) {
	if rec.Log.Logs == "" && len(rec.Log.ErrorLines) == 0 {
		return nil, "", ErrNoLogData
	}

	prompt := buildPrompt(rec)

	for _, cand := range o.candidates(actx) {
		client, err := o.newClient(cand.config)
		if err != nil {
			slog.WarnContext(ctx, "llm client init failed",
				"provider", cand.config.Provider,
				"error", err,
			)
			continue
		}

		genCtx, cancel := context.WithTimeout(ctx, cand.timeout)
		resp, err := client.Generate(genCtx, llm.Request{
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: o.cfg.Temperature,
			MaxTokens:   o.cfg.MaxTokens,
		})
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "llm generation failed",
				"provider", client.Provider(),
				"model", client.Model(),
				"error", err,
			)
			continue
		}

		model := resp.Model
		if model == "" {
			model = client.Model()
		}
		analysis := &domain.AIAnalysis{
			Timestamp: time.Now().UTC(),
			Category:  rec.Classification.Category,
			Analysis:  ParseNarrative(resp.Text),
			Provider:  string(client.Provider()),
			Model:     model,
			Project:   rec.Project,
		}

		rec.AI = analysis
		path, err := o.saver.Save(ctx, rec)
		if err != nil {
			return nil, "", fmt.Errorf("persist analysis: %w", err)
		}
		return analysis, path, nil
	}

	return nil, "", ErrProvidersExhausted
}

type candidate struct {
	config  llm.Config
	timeout time.Duration
}

// candidates resolves the provider chain for one run. "auto" walks every
// configured provider in a fixed order; a named provider is attempted even
// when unconfigured so the failure surfaces in the logs.
func (o *Orchestrator) candidates(actx AnalysisContext) []candidate {
	provider := actx.Provider
	if provider == "" {
		provider = o.cfg.Provider
	}

	switch provider {
	case "none":
		return nil
	case "", "auto":
		var out []candidate
		if o.cfg.OpenAI.Enabled() {
			out = append(out, o.candidate(llm.ProviderOpenAI, ""))
		}
		if o.cfg.Anthropic.Enabled() {
			out = append(out, o.candidate(llm.ProviderAnthropic, ""))
		}
		if o.cfg.Ollama.Enabled() {
			out = append(out, o.candidate(llm.ProviderOllama, ""))
		}
		return out
	case string(llm.ProviderOpenAI):
		return []candidate{o.candidate(llm.ProviderOpenAI, actx.Model)}
	case string(llm.ProviderAnthropic):
		return []candidate{o.candidate(llm.ProviderAnthropic, actx.Model)}
	case string(llm.ProviderOllama):
		return []candidate{o.candidate(llm.ProviderOllama, actx.Model)}
	default:
		return nil
	}
}

func (o *Orchestrator) candidate(p llm.Provider, modelOverride string) candidate {
	var (
		pc      config.ProviderConfig
		timeout time.Duration
	)
	switch p {
	case llm.ProviderOpenAI:
		pc, timeout = o.cfg.OpenAI, openAITimeout
	case llm.ProviderAnthropic:
		pc, timeout = o.cfg.Anthropic, anthropicTimeout
	case llm.ProviderOllama:
		pc, timeout = o.cfg.Ollama, ollamaTimeout
	}

	model := pc.Model
	if modelOverride != "" {
		model = modelOverride
	}
	return candidate{
		config: llm.Config{
			Provider: p,
			APIKey:   pc.APIKey,
			BaseURL:  pc.BaseURL,
			Model:    model,
		},
		timeout: timeout,
	}
}
