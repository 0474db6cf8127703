package joblog

import (
	"context"
	"fmt"
	"log/slog"

	"pipemail.dev/triage/internal/classify"
	"pipemail.dev/triage/internal/domain"
)

// The one job state that marks the job we are after. Jobs in any other
// state are kept only as a last resort.
const statusFailed = "failed"

// JobAPI is the API-side log source.
type JobAPI interface {
	Job(ctx context.Context, projectPath string, jobID int) (*JobLog, error)
	FailedJobFromPipeline(ctx context.Context, projectPath string, pipelineID int) (*JobLog, error)
}

// PageScraper is the web-side fallback log source.
type PageScraper interface {
	CheckAccess(ctx context.Context, rawURL string) (bool, string)
	Scrape(ctx context.Context, rawURL string) (*PageLog, error)
}

// Fetcher acquires a failure transcript for a notification, preferring the
// API and falling back to scraping the pipeline page. Acquire never returns
// an error; failures are encoded in the result so the pipeline can continue
// with mock data or a bare classification.
type Fetcher struct {
	api     JobAPI
	scraper PageScraper
}

// NewFetcher builds a Fetcher. api may be nil when no API credentials are
// configured; only the page path is used then.
func NewFetcher(api JobAPI, scraper PageScraper) *Fetcher {
	return &Fetcher{api: api, scraper: scraper}
}

// Acquire resolves the job log for a failed pipeline. Job references are
// tried over the API in document order and the first job found in the
// failed state wins. When none of the references pans out, the pipeline's
// own job listing is consulted, then a fetched non-failed job is used as a
// last resort. Without any API result the pipeline page is probed and
// scraped.
func (f *Fetcher) Acquire(ctx context.Context, pipelineURL string, refs []domain.JobReference) domain.LogAcquisitionResult {
	if f.api != nil {
		if res, ok := f.fromAPI(ctx, pipelineURL, refs); ok {
			return res
		}
	}
	return f.fromPage(ctx, pipelineURL, refs)
}

func (f *Fetcher) fromAPI(ctx context.Context, pipelineURL string, refs []domain.JobReference) (domain.LogAcquisitionResult, bool) {
	var fallback *JobLog

	for _, ref := range refs {
		path, jobID, ok := SplitJobURL(ref.URL)
		if !ok {
			continue
		}
		job, err := f.api.Job(ctx, path, jobID)
		if err != nil {
			slog.WarnContext(ctx, "job fetch failed", "url", ref.URL, "error", err)
			continue
		}
		if job.Status == statusFailed {
			return apiResult(job, refs), true
		}
		if fallback == nil {
			fallback = job
		}
	}

	if path, pipelineID, ok := SplitPipelineURL(pipelineURL); ok {
		job, err := f.api.FailedJobFromPipeline(ctx, path, pipelineID)
		if err != nil {
			slog.WarnContext(ctx, "pipeline job listing failed", "url", pipelineURL, "error", err)
		} else if job != nil {
			return apiResult(job, refs), true
		}
	}

	if fallback != nil {
		slog.InfoContext(ctx, "no failed job found, using fetched job",
			"job_id", fallback.ID,
			"status", fallback.Status,
		)
		return apiResult(fallback, refs), true
	}
	return domain.LogAcquisitionResult{}, false
}

func (f *Fetcher) fromPage(ctx context.Context, pipelineURL string, refs []domain.JobReference) domain.LogAcquisitionResult {
	res := domain.LogAcquisitionResult{Source: domain.LogSourceNone}

	ok, reason := f.scraper.CheckAccess(ctx, pipelineURL)
	res.PipelineURLAccessible = ok
	if !ok {
		res.Reason = reason
		return res
	}

	page, err := f.scraper.Scrape(ctx, pipelineURL)
	if err != nil {
		res.Reason = fmt.Sprintf("pipeline page scrape failed: %v", err)
		return res
	}

	res.Success = true
	res.Source = domain.LogSourceScrape
	res.Logs = page.Transcript
	res.ErrorLines = page.ErrorLines
	res.JobLinks = page.JobLinks
	if len(res.JobLinks) == 0 {
		res.JobLinks = capRefs(refs)
	}
	return res
}

func apiResult(job *JobLog, refs []domain.JobReference) domain.LogAcquisitionResult {
	return domain.LogAcquisitionResult{
		Success:    true,
		Source:     domain.LogSourceAPI,
		Logs:       capText(job.Trace, domain.MaxLogChars),
		ErrorLines: classify.ErrorLines(job.Trace),
		JobLinks:   capRefs(refs),
	}
}

func capRefs(refs []domain.JobReference) []domain.JobReference {
	if len(refs) > domain.MaxJobLinks {
		refs = refs[:domain.MaxJobLinks]
	}
	return append([]domain.JobReference(nil), refs...)
}
