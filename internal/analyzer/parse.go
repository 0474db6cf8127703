package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"

	"pipemail.dev/triage/internal/domain"
)

var (
	fencedJSONPattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	bareJSONPattern   = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseNarrative extracts the structured narrative from raw model output.
// A fenced JSON block is tried first, then the widest brace span, then the
// whole text. Output that fails every reading is kept verbatim under Raw
// rather than discarded.
func ParseNarrative(text string) domain.AnalysisNarrative {
	trimmed := strings.TrimSpace(text)

	if m := fencedJSONPattern.FindStringSubmatch(trimmed); m != nil {
		if n, ok := decodeNarrative(m[1]); ok {
			return n
		}
	}
	if span := bareJSONPattern.FindString(trimmed); span != "" {
		if n, ok := decodeNarrative(span); ok {
			return n
		}
	}
	if n, ok := decodeNarrative(trimmed); ok {
		return n
	}
	return domain.AnalysisNarrative{Raw: trimmed}
}

func decodeNarrative(s string) (domain.AnalysisNarrative, bool) {
	var resp narrativeResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &resp); err != nil {
		return domain.AnalysisNarrative{}, false
	}
	if resp.Summary == "" && resp.RootCause == "" && resp.Remediation == "" {
		return domain.AnalysisNarrative{}, false
	}
	return domain.AnalysisNarrative{
		Summary:     resp.Summary,
		RootCause:   resp.RootCause,
		Remediation: resp.Remediation,
	}, true
}
