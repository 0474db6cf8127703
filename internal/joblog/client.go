package joblog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const apiTimeout = 15 * time.Second

var (
	jobPathPattern      = regexp.MustCompile(`^https?://[^/]+/(.+?)/-/jobs/(\d+)`)
	pipelinePathPattern = regexp.MustCompile(`^https?://[^/]+/(.+?)/-/pipelines/(\d+)`)
)

// SplitJobURL returns the project path and job ID encoded in a job URL,
// e.g. https://gitlab.example.com/group/app/-/jobs/101 yields ("group/app", 101).
func SplitJobURL(rawURL string) (string, int, bool) {
	return splitPath(jobPathPattern, rawURL)
}

// SplitPipelineURL returns the project path and pipeline ID encoded in a
// pipeline URL.
func SplitPipelineURL(rawURL string) (string, int, bool) {
	return splitPath(pipelinePathPattern, rawURL)
}

func splitPath(pattern *regexp.Regexp, rawURL string) (string, int, bool) {
	m := pattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", 0, false
	}
	id, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], id, true
}

// JobLog is one CI job together with its trace transcript.
type JobLog struct {
	Name   string
	Status string
	Trace  string
	ID     int
}

// APIClient fetches job transcripts over the GitLab REST API.
type APIClient struct {
	client *gitlab.Client
}

func NewAPIClient(instanceURL, token string) (*APIClient, error) {
	baseURL := strings.TrimSuffix(instanceURL, "/") + "/api/v4"
	client, err := gitlab.NewClient(
		token,
		gitlab.WithBaseURL(baseURL),
		gitlab.WithHTTPClient(&http.Client{Timeout: apiTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return &APIClient{client: client}, nil
}

// Job fetches one job and its trace.
func (c *APIClient) Job(ctx context.Context, projectPath string, jobID int) (*JobLog, error) {
	job, _, err := c.client.Jobs.GetJob(projectPath, int64(jobID), gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", jobID, err)
	}

	trace, _, err := c.client.Jobs.GetTraceFile(projectPath, int64(jobID), gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get job %d trace: %w", jobID, err)
	}
	data, err := io.ReadAll(trace)
	if err != nil {
		return nil, fmt.Errorf("read job %d trace: %w", jobID, err)
	}

	return &JobLog{
		ID:     int(job.ID),
		Name:   job.Name,
		Status: job.Status,
		Trace:  string(data),
	}, nil
}

// FailedJobFromPipeline lists the pipeline's jobs and fetches the first one
// in the failed state. Returns nil when the pipeline has no failed job.
func (c *APIClient) FailedJobFromPipeline(ctx context.Context, projectPath string, pipelineID int) (*JobLog, error) {
	jobs, _, err := c.client.Jobs.ListPipelineJobs(projectPath, int64(pipelineID), &gitlab.ListJobsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list pipeline %d jobs: %w", pipelineID, err)
	}

	for _, job := range jobs {
		if job.Status != statusFailed {
			continue
		}
		return c.Job(ctx, projectPath, int(job.ID))
	}
	return nil, nil
}
