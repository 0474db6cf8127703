package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"pipemail.dev/triage/common/llm"
	"pipemail.dev/triage/internal/domain"
)

const systemPrompt = "You are a CI engineer analyzing a failed pipeline. " +
	"Read the job log excerpt and answer strictly as JSON matching the given schema. " +
	"Be concrete: name the failing component and the action that fixes it."

// Prompt bounds. Logs above the ceiling are windowed to their head and
// tail so the decisive first error and the final verdict both survive.
const (
	promptLogCeiling = 3000
	promptLogWindow  = 1500
	promptErrorLines = 10
)

// narrativeResponse is the response shape requested from every provider.
type narrativeResponse struct {
	Summary     string `json:"summary" jsonschema:"required,description=One or two sentences describing what failed."`
	RootCause   string `json:"root_cause" jsonschema:"required,description=The most likely root cause of the failure."`
	Remediation string `json:"remediation" jsonschema:"required,description=The concrete next step to fix the failure."`
}

func buildPrompt(rec *domain.AnalysisRecord) string {
	var b strings.Builder

	b.WriteString("A CI pipeline failed and produced the job log below.\n")
	if rec.Project.Name != "" {
		fmt.Fprintf(&b, "Project: %s\n", rec.Project.Name)
	}
	if rec.Project.CommitID != "" {
		fmt.Fprintf(&b, "Commit: %s\n", rec.Project.CommitID)
	}
	if rec.Project.Environment != "" {
		fmt.Fprintf(&b, "Environment: %s\n", rec.Project.Environment)
	}
	fmt.Fprintf(&b, "Heuristic classification: %s\n", rec.Classification.Category)

	if rec.Log.Logs != "" {
		b.WriteString("\nJob log:\n")
		b.WriteString(logExcerpt(rec.Log.Logs))
		b.WriteString("\n")
	}

	if len(rec.Log.ErrorLines) > 0 {
		b.WriteString("\nError lines:\n")
		lines := rec.Log.ErrorLines
		extra := 0
		if len(lines) > promptErrorLines {
			extra = len(lines) - promptErrorLines
			lines = lines[:promptErrorLines]
		}
		for _, line := range lines {
			b.WriteString("- " + line + "\n")
		}
		if extra > 0 {
			fmt.Fprintf(&b, "... and %d more error lines\n", extra)
		}
	}

	schema, err := json.Marshal(llm.GenerateSchemaFrom(narrativeResponse{}))
	if err == nil {
		fmt.Fprintf(&b, "\nRespond with a single JSON object matching this schema:\n%s\n", schema)
	}
	return b.String()
}

// logExcerpt windows an oversized log to its first and last stretch.
func logExcerpt(logs string) string {
	if len(logs) <= promptLogCeiling {
		return logs
	}
	runes := []rune(logs)
	if len(runes) <= promptLogCeiling {
		return logs
	}
	head := string(runes[:promptLogWindow])
	tail := string(runes[len(runes)-promptLogWindow:])
	return head + "\n... [log truncated] ...\n" + tail
}
