package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pipemail.dev/triage/internal/http/handler"
	"pipemail.dev/triage/internal/queue"
)

var _ = Describe("NotificationHandler", func() {
	var (
		router   *gin.Engine
		producer *mockProducer
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		producer = &mockProducer{}
		h := handler.NewNotificationHandler(producer, "gitlab", "X-Trace-Id")
		router.POST("/notifications", h.Ingest)
	})

	ingest := func(body any) *httptest.ResponseRecorder {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	pipelineMessage := func() map[string]any {
		return map[string]any{
			"id":      "msg-77",
			"sender":  "gitlab@example.com",
			"subject": "orders-api Pipeline #4521 failed for uat-02 a1b2c3d",
			"payload": map[string]any{"mime_type": "multipart/alternative"},
		}
	}

	It("accepts a pipeline notification and enqueues a task", func() {
		w := ingest(pipelineMessage())

		Expect(w.Code).To(Equal(http.StatusAccepted))

		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["id"]).To(Equal("msg-77"))
		Expect(resp["status"]).To(Equal("queued"))

		Expect(producer.enqueued).To(HaveLen(1))
		task := producer.enqueued[0]
		Expect(task.ID).To(Equal("msg-77"))
		Expect(task.TaskType).To(Equal(queue.TaskTypeAnalyzeNotification))
		Expect(string(task.Payload)).To(ContainSubstring("orders-api"))
	})

	It("assigns an id when the message has none", func() {
		msg := pipelineMessage()
		msg["id"] = ""

		w := ingest(msg)

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(producer.enqueued).To(HaveLen(1))
		Expect(producer.enqueued[0].ID).NotTo(BeEmpty())
	})

	It("propagates the trace header onto the task", func() {
		raw, err := json.Marshal(pipelineMessage())
		Expect(err).NotTo(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Trace-Id", "trace-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(producer.enqueued).To(HaveLen(1))
		Expect(producer.enqueued[0].TraceID).To(Equal("trace-123"))
	})

	It("rejects a message that is not a pipeline notification", func() {
		msg := pipelineMessage()
		msg["subject"] = "Weekly newsletter"

		w := ingest(msg)

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(producer.enqueued).To(BeEmpty())
	})

	It("rejects a message from an unmatched sender", func() {
		msg := pipelineMessage()
		msg["sender"] = "newsletter@example.com"

		w := ingest(msg)

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(producer.enqueued).To(BeEmpty())
	})

	It("returns 400 on a malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewBufferString(`{`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 500 when the queue is unavailable", func() {
		producer.enqueueFn = func(_ context.Context, _ queue.Task) error {
			return errors.New("redis down")
		}

		w := ingest(pipelineMessage())

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
