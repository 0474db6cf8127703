package queue

import "time"

type TaskType string

const (
	TaskTypeAnalyzeNotification TaskType = "analyze_notification"
)

// Stream names shared by the producer, consumer and reclaimer.
const (
	DefaultStream    = "triage:notifications"
	DefaultGroup     = "triage-workers"
	DefaultDLQStream = "triage:notifications:dlq"
)

// Task is one unit of work handed from the ingest API to the worker.
// ID doubles as the idempotency key and equals the notification message
// ID, so redelivery and duplicate submissions collapse onto one record.
type Task struct {
	ID         string
	TaskType   TaskType
	Payload    []byte // NotificationMessage JSON
	TraceID    string
	Attempt    int
	EnqueuedAt time.Time
}
