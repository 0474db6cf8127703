package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task Task) error {
	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	taskType := task.TaskType
	if taskType == "" {
		taskType = TaskTypeAnalyzeNotification
	}
	enqueued := task.EnqueuedAt
	if enqueued.IsZero() {
		enqueued = time.Now().UTC()
	}

	fields := map[string]any{
		"task_id":     task.ID,
		"task_type":   string(taskType),
		"payload":     string(task.Payload),
		"attempt":     attempt,
		"enqueued_at": enqueued.Format(time.RFC3339),
	}

	if task.TraceID != "" {
		fields["trace_id"] = task.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued notification task", "task_id", task.ID, "task_type", taskType, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
