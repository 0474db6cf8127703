package dto

import (
	"pipemail.dev/triage/internal/domain"
)

type MessageBody struct {
	Data string `json:"data,omitempty"`
}

type MessagePart struct {
	MimeType string        `json:"mime_type"`
	Body     MessageBody   `json:"body"`
	Parts    []MessagePart `json:"parts,omitempty"`
}

type Header struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value"`
}

// IngestNotificationRequest is a fetched mail message as posted by the
// mailbox collaborator. Sender and subject may arrive either as top-level
// fields or as envelope headers, so neither is required on its own.
type IngestNotificationRequest struct {
	ID      string      `json:"id"`
	Sender  string      `json:"sender"`
	Subject string      `json:"subject"`
	Headers []Header    `json:"headers,omitempty" binding:"omitempty,dive"`
	Payload MessagePart `json:"payload" binding:"required"`
}

// Message converts the request into its domain form.
func (r IngestNotificationRequest) Message() *domain.NotificationMessage {
	msg := &domain.NotificationMessage{
		ID:      r.ID,
		Sender:  r.Sender,
		Subject: r.Subject,
		Payload: toDomainPart(r.Payload),
	}
	for _, h := range r.Headers {
		msg.Headers = append(msg.Headers, domain.Header{Name: h.Name, Value: h.Value})
	}
	return msg
}

func toDomainPart(p MessagePart) domain.MessagePart {
	part := domain.MessagePart{
		MimeType: p.MimeType,
		Body:     domain.MessageBody{Data: p.Body.Data},
	}
	for _, child := range p.Parts {
		part.Parts = append(part.Parts, toDomainPart(child))
	}
	return part
}

type IngestNotificationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
