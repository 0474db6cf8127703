package domain

import (
	"encoding/base64"
	"strings"
)

// Header is a single name/value header from the notification envelope.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageBody holds the base64url-encoded content of one MIME part.
// The mailbox collaborator emits RFC 4648 URL-safe encoding, usually
// without padding.
type MessageBody struct {
	Data string `json:"data,omitempty"`
}

// Decode returns the raw bytes of the part body. Padded and unpadded
// base64url are both accepted.
func (b MessageBody) Decode() ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(b.Data, "="))
}

// MessagePart is one node of the MIME part tree.
type MessagePart struct {
	MimeType string        `json:"mime_type"`
	Body     MessageBody   `json:"body"`
	Parts    []MessagePart `json:"parts,omitempty"`
}

// NotificationMessage is a fully fetched mail message as delivered by the
// mailbox collaborator. It is validated once at the ingestion boundary and
// treated as read-only afterwards.
type NotificationMessage struct {
	ID      string      `json:"id"`
	Sender  string      `json:"sender"`
	Subject string      `json:"subject"`
	Headers []Header    `json:"headers,omitempty"`
	Payload MessagePart `json:"payload"`
}

// Header returns the value of the first header matching name
// (case-insensitive), or "" when absent.
func (m *NotificationMessage) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// SenderAddress returns the top-level sender, falling back to the From
// header when the field is empty.
func (m *NotificationMessage) SenderAddress() string {
	if m.Sender != "" {
		return m.Sender
	}
	return m.Header("From")
}

// SubjectLine returns the top-level subject, falling back to the Subject
// header when the field is empty.
func (m *NotificationMessage) SubjectLine() string {
	if m.Subject != "" {
		return m.Subject
	}
	return m.Header("Subject")
}
