package classify

import (
	"strings"

	"pipemail.dev/triage/internal/domain"
)

// FailureKeywords flag a transcript line as error output. The last entry is
// Vietnamese for "error"; the CI mails this service watches are bilingual.
var FailureKeywords = []string{"error", "exception", "failed", "failure", "lỗi"}

// subjectFailureMarkers mark a pipeline notification subject as a failure.
var subjectFailureMarkers = []string{"failed", "failure", "error"}

// IsCINotification reports whether msg is a CI pipeline notification: the
// sender address must contain senderFilter and the subject must mention a
// pipeline. Empty sender or subject never matches.
func IsCINotification(msg *domain.NotificationMessage, senderFilter string) bool {
	sender := msg.SenderAddress()
	subject := msg.SubjectLine()
	if sender == "" || subject == "" {
		return false
	}
	if !strings.Contains(strings.ToLower(sender), strings.ToLower(senderFilter)) {
		return false
	}
	return strings.Contains(strings.ToLower(subject), "pipeline")
}

// IsFailureNotification reports whether msg announces a failed pipeline run.
func IsFailureNotification(msg *domain.NotificationMessage, senderFilter string) bool {
	if !IsCINotification(msg, senderFilter) {
		return false
	}
	subject := strings.ToLower(msg.SubjectLine())
	for _, marker := range subjectFailureMarkers {
		if strings.Contains(subject, marker) {
			return true
		}
	}
	return false
}

// ContainsFailureKeyword reports whether s mentions any failure keyword,
// case-insensitively.
func ContainsFailureKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range FailureKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ErrorLines picks the transcript lines matching a failure keyword, trimmed,
// capped at domain.MaxErrorLines.
func ErrorLines(transcript string) []string {
	var lines []string
	for _, line := range strings.Split(transcript, "\n") {
		if !ContainsFailureKeyword(line) {
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
		if len(lines) == domain.MaxErrorLines {
			break
		}
	}
	return lines
}
