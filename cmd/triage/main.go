package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"pipemail.dev/triage/common/id"
	"pipemail.dev/triage/common/logger"
	"pipemail.dev/triage/core/config"
	"pipemail.dev/triage/internal/analyzer"
	"pipemail.dev/triage/internal/domain"
	"pipemail.dev/triage/internal/joblog"
	"pipemail.dev/triage/internal/mocklog"
	"pipemail.dev/triage/internal/pipeline"
	"pipemail.dev/triage/internal/result"
)

// triage analyzes one CI failure notification from a message JSON file and
// writes the analysis record to the results directory. It runs the same
// pipeline as the worker, without the queue, database or search around it.
func main() {
	var (
		input        = flag.String("input", "", "path to a notification message JSON file (required)")
		provider     = flag.String("provider", "", "LLM provider: auto, openai, anthropic, ollama or none (default: configured)")
		model        = flag.String("model", "", "model override for a single named provider")
		mockCategory = flag.String("mock-category", "", "mock sample served when the log is unreachable (default: configured)")
		listMocks    = flag.Bool("list-mock-categories", false, "print the known mock categories and exit")
		resultsDir   = flag.String("results-dir", "", "directory for analysis result files (default: configured)")
		senderFilter = flag.String("sender-filter", "", "substring a CI sender address must contain (default: configured)")
	)
	flag.Parse()

	if *listMocks {
		for _, c := range mocklog.Categories() {
			fmt.Println(c)
		}
		return
	}

	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger.Setup(cfg)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "error: -input is required")
		flag.Usage()
		os.Exit(1)
	}
	if *resultsDir != "" {
		cfg.Results.Dir = *resultsDir
	}
	if *senderFilter != "" {
		cfg.Mail.SenderFilter = *senderFilter
	}
	if *mockCategory != "" {
		cfg.Mock.ErrorType = *mockCategory
	}

	if err := id.Init(3); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	msg, err := loadMessage(*input)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fetcher := newLogFetcher(ctx, cfg)
	writer := result.NewWriter(cfg.Results.Dir)
	orchestrator := analyzer.New(cfg.LLM, writer, nil)

	runner := pipeline.New(pipeline.Config{
		SenderFilter:  cfg.Mail.SenderFilter,
		MockErrorType: cfg.Mock.ErrorType,
		MockEnabled:   cfg.Mock.Enabled,
	}, fetcher, orchestrator, writer)

	outcome, err := runner.Run(ctx, msg, analyzer.AnalysisContext{
		Provider: *provider,
		Model:    *model,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrNotPipelineNotification) || errors.Is(err, pipeline.ErrNotFailureNotification) {
			fmt.Println("nothing to analyze:", err)
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	printSummary(outcome)
}

func loadMessage(path string) (*domain.NotificationMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message file: %w", err)
	}
	var msg domain.NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse message file: %w", err)
	}
	return &msg, nil
}

func newLogFetcher(ctx context.Context, cfg config.Config) *joblog.Fetcher {
	var api joblog.JobAPI
	if cfg.GitLab.Enabled() {
		client, err := joblog.NewAPIClient(cfg.GitLab.BaseURL, cfg.GitLab.Token)
		if err != nil {
			slog.WarnContext(ctx, "gitlab api client unavailable, scrape only", "error", err)
		} else {
			api = client
		}
	}
	return joblog.NewFetcher(api, joblog.NewScraper())
}

func printSummary(outcome *pipeline.Outcome) {
	rec := outcome.Record

	fmt.Println("Subject:    ", rec.Subject)
	if rec.Project.Name != "" {
		fmt.Println("Project:    ", rec.Project.Name)
	}
	if rec.Project.CommitID != "" {
		fmt.Println("Commit:     ", rec.Project.CommitID)
	}
	if rec.Project.Environment != "" {
		fmt.Println("Environment:", rec.Project.Environment)
	}
	fmt.Println("Category:   ", rec.Classification.Category)
	if rec.UsedMockData {
		fmt.Println("Note:        analyzed MOCK data, the real log was unreachable")
	}
	fmt.Println()
	fmt.Println(rec.Classification.Summary)
	if len(rec.Classification.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("Suggestions:")
		for _, s := range rec.Classification.Suggestions {
			fmt.Println("  -", s)
		}
	}
	if rec.AI != nil {
		fmt.Println()
		fmt.Printf("AI analysis (%s/%s):\n", rec.AI.Provider, rec.AI.Model)
		fmt.Println(rec.AI.Analysis.String())
	}
	fmt.Println()
	fmt.Println("Result written to", outcome.ResultFile)
}
