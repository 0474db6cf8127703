package extract

import (
	"regexp"
	"strings"

	"pipemail.dev/triage/internal/domain"
)

var (
	commitPattern  = regexp.MustCompile(`^[0-9a-fA-F]{6,40}$`)
	envForPattern  = regexp.MustCompile(`\bfor\s+(\S+)`)
	envNamePattern = regexp.MustCompile(`(?i)\b(?:sit|uat|prod)-\d+\b`)
)

// SubjectMetadata parses project name, commit and target environment out of
// a notification subject line. Notifications typically read like
//
//	orders-api  Pipeline #4521 failed for uat-02  a1b2c3d
//
// The first token is the project, the last token is the commit when it looks
// like a hex SHA, and the environment follows "for" or matches a known
// environment naming scheme. Missing pieces stay empty.
func SubjectMetadata(subject string) domain.ProjectMetadata {
	var meta domain.ProjectMetadata

	fields := strings.Fields(subject)
	if len(fields) == 0 {
		return meta
	}
	meta.Name = fields[0]

	if last := fields[len(fields)-1]; commitPattern.MatchString(last) {
		meta.CommitID = last
	}

	if m := envForPattern.FindStringSubmatch(subject); m != nil {
		meta.Environment = m[1]
	} else if env := envNamePattern.FindString(subject); env != "" {
		meta.Environment = env
	}
	return meta
}
