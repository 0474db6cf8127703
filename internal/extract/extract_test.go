package extract_test

import (
	"encoding/base64"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pipemail.dev/triage/internal/domain"
	"pipemail.dev/triage/internal/extract"
)

func encode(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func htmlMessage(body string) *domain.NotificationMessage {
	return &domain.NotificationMessage{
		ID:      "msg-1",
		Sender:  "gitlab@example.com",
		Subject: "orders-api Pipeline #4521 failed for uat-02 a1b2c3d",
		Payload: domain.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []domain.MessagePart{
				{MimeType: "text/plain", Body: domain.MessageBody{Data: encode("plain fallback")}},
				{MimeType: "text/html", Body: domain.MessageBody{Data: encode(body)}},
			},
		},
	}
}

var _ = Describe("HTMLContent", func() {
	It("decodes the html part of a multipart message", func() {
		msg := htmlMessage("<html><body><p>Pipeline failed</p></body></html>")

		Expect(extract.HTMLContent(msg)).To(ContainSubstring("<p>Pipeline failed</p>"))
	})

	It("concatenates html parts across nested containers", func() {
		msg := &domain.NotificationMessage{
			Payload: domain.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []domain.MessagePart{
					{
						MimeType: "multipart/alternative",
						Parts: []domain.MessagePart{
							{MimeType: "text/plain", Body: domain.MessageBody{Data: encode("text")}},
							{MimeType: "text/html", Body: domain.MessageBody{Data: encode("<p>first</p>")}},
						},
					},
					{MimeType: "text/html", Body: domain.MessageBody{Data: encode("<p>second</p>")}},
				},
			},
		}

		Expect(extract.HTMLContent(msg)).To(Equal("<p>first</p><p>second</p>"))
	})

	It("returns empty for a message without html parts", func() {
		msg := &domain.NotificationMessage{
			Payload: domain.MessagePart{
				MimeType: "text/plain",
				Body:     domain.MessageBody{Data: encode("just text")},
			},
		}

		Expect(extract.HTMLContent(msg)).To(BeEmpty())
	})

	It("skips parts whose body does not decode", func() {
		msg := &domain.NotificationMessage{
			Payload: domain.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []domain.MessagePart{
					{MimeType: "text/html", Body: domain.MessageBody{Data: "!!not-base64!!"}},
					{MimeType: "text/html", Body: domain.MessageBody{Data: encode("<p>good</p>")}},
				},
			},
		}

		Expect(extract.HTMLContent(msg)).To(Equal("<p>good</p>"))
	})
})

var _ = Describe("PipelineURL", func() {
	It("prefers the anchor whose text mentions the pipeline", func() {
		body := `<html><body>
			<a href="https://gitlab.example.com/orders/api/-/pipelines/4521/failures">View details</a>
			<a href="https://gitlab.example.com/orders/api/-/pipelines/4521">Pipeline #4521</a>
		</body></html>`

		Expect(extract.PipelineURL(body)).To(Equal("https://gitlab.example.com/orders/api/-/pipelines/4521"))
	})

	It("falls back to the first candidate in document order", func() {
		body := `<html><body>
			<a href="https://gitlab.example.com/orders/api/-/pipelines/4521">View details</a>
			<a href="https://gitlab.example.com/orders/api/-/pipelines/4521/builds">See builds</a>
		</body></html>`

		Expect(extract.PipelineURL(body)).To(Equal("https://gitlab.example.com/orders/api/-/pipelines/4521"))
	})

	It("returns empty when no anchor href mentions a pipeline", func() {
		body := `<a href="https://gitlab.example.com/orders/api">project home</a>`

		Expect(extract.PipelineURL(body)).To(BeEmpty())
	})

	It("returns empty for an empty body", func() {
		Expect(extract.PipelineURL("")).To(BeEmpty())
	})
})

var _ = Describe("JobReferences", func() {
	It("collects labelled job links in document order", func() {
		body := `<html><body>
			<a href="https://gitlab.example.com/orders/api/-/jobs/101">compile</a>
			<a href="https://gitlab.example.com/orders/api/-/jobs/102">unit-tests</a>
			<a href="https://gitlab.example.com/orders/api/-/pipelines/4521">Pipeline #4521</a>
		</body></html>`

		Expect(extract.JobReferences(body)).To(Equal([]domain.JobReference{
			{Label: "compile", URL: "https://gitlab.example.com/orders/api/-/jobs/101"},
			{Label: "unit-tests", URL: "https://gitlab.example.com/orders/api/-/jobs/102"},
		}))
	})

	It("labels a blank anchor with the nearest preceding text", func() {
		body := `<html><body>
			<p>deploy step</p>
			<a href="https://gitlab.example.com/orders/api/-/jobs/103"><img src="icon.png"/></a>
		</body></html>`

		Expect(extract.JobReferences(body)).To(Equal([]domain.JobReference{
			{Label: "deploy step", URL: "https://gitlab.example.com/orders/api/-/jobs/103"},
		}))
	})

	It("falls back to the enclosing element text and then the href", func() {
		byParent := `<a href="https://gitlab.example.com/orders/api/-/jobs/104"><img src="x"/></a> broke the build`
		Expect(extract.JobReferences(byParent)).To(Equal([]domain.JobReference{
			{Label: "broke the build", URL: "https://gitlab.example.com/orders/api/-/jobs/104"},
		}))

		byHref := `<a href="https://gitlab.example.com/orders/api/-/jobs/105"></a>`
		Expect(extract.JobReferences(byHref)).To(Equal([]domain.JobReference{
			{Label: "https://gitlab.example.com/orders/api/-/jobs/105", URL: "https://gitlab.example.com/orders/api/-/jobs/105"},
		}))
	})

	It("keeps the first position but the last URL for a repeated label", func() {
		body := `<html><body>
			<a href="https://gitlab.example.com/orders/api/-/jobs/1">unit-tests</a>
			<a href="https://gitlab.example.com/orders/api/-/jobs/2">lint</a>
			<a href="https://gitlab.example.com/orders/api/-/jobs/3">unit-tests</a>
		</body></html>`

		Expect(extract.JobReferences(body)).To(Equal([]domain.JobReference{
			{Label: "unit-tests", URL: "https://gitlab.example.com/orders/api/-/jobs/3"},
			{Label: "lint", URL: "https://gitlab.example.com/orders/api/-/jobs/2"},
		}))
	})

	It("ignores urls outside the job path scheme", func() {
		body := `<html><body>
			<a href="https://gitlab.example.com/orders/api/-/merge_requests/7">MR</a>
			<a href="https://gitlab.example.com/orders/api/commit/a1b2c3d">commit</a>
		</body></html>`

		Expect(extract.JobReferences(body)).To(BeEmpty())
	})
})

var _ = Describe("SubjectMetadata", func() {
	It("parses project, environment and commit from a failure subject", func() {
		meta := extract.SubjectMetadata("orders-api  Pipeline #4521 failed for uat-02  a1b2c3d")

		Expect(meta.Name).To(Equal("orders-api"))
		Expect(meta.Environment).To(Equal("uat-02"))
		Expect(meta.CommitID).To(Equal("a1b2c3d"))
	})

	It("leaves the commit empty when the last token is not a hex sha", func() {
		meta := extract.SubjectMetadata("orders-api Pipeline #4521 failed for uat-02")

		Expect(meta.Name).To(Equal("orders-api"))
		Expect(meta.CommitID).To(BeEmpty())
	})

	It("recognises environment names without a for clause", func() {
		meta := extract.SubjectMetadata("orders-api Pipeline #4521 failed on PROD-3")

		Expect(meta.Environment).To(Equal("PROD-3"))
	})

	It("returns zero metadata for a blank subject", func() {
		Expect(extract.SubjectMetadata("   ")).To(Equal(domain.ProjectMetadata{}))
	})
})
