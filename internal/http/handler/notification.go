package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"pipemail.dev/triage/common/id"
	"pipemail.dev/triage/internal/classify"
	"pipemail.dev/triage/internal/http/dto"
	"pipemail.dev/triage/internal/queue"
)

type NotificationHandler struct {
	producer     queue.Producer
	senderFilter string
	traceHeader  string
}

func NewNotificationHandler(producer queue.Producer, senderFilter, traceHeader string) *NotificationHandler {
	return &NotificationHandler{
		producer:     producer,
		senderFilter: senderFilter,
		traceHeader:  traceHeader,
	}
}

// Ingest accepts one mail message and queues it for analysis. Messages
// that are recognizably not CI notifications are rejected here so the
// queue only carries plausible work.
func (h *NotificationHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid ingest request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := req.Message()
	if !classify.IsCINotification(msg, h.senderFilter) {
		slog.InfoContext(ctx, "rejected non-pipeline notification",
			"sender", msg.SenderAddress(),
			"subject", msg.SubjectLine())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not a pipeline notification"})
		return
	}

	if msg.ID == "" {
		msg.ID = id.NewString()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode notification", "error", err, "message_id", msg.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue notification"})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}

	task := queue.Task{
		ID:       msg.ID,
		TaskType: queue.TaskTypeAnalyzeNotification,
		Payload:  payload,
		TraceID:  traceID,
	}

	if err := h.producer.Enqueue(ctx, task); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue notification", "error", err, "message_id", msg.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue notification"})
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestNotificationResponse{ID: msg.ID, Status: "queued"})
}
