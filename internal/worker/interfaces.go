package worker

import (
	"context"

	"pipemail.dev/triage/internal/analyzer"
	"pipemail.dev/triage/internal/domain"
	"pipemail.dev/triage/internal/pipeline"
	"pipemail.dev/triage/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// TaskProcessor abstracts task handling for testability.
type TaskProcessor interface {
	Process(ctx context.Context, msg queue.Message) error
}

// Runner runs one notification through the triage pipeline.
type Runner interface {
	Run(ctx context.Context, msg *domain.NotificationMessage, actx analyzer.AnalysisContext) (*pipeline.Outcome, error)
}
