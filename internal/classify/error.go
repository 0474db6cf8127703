package classify

import (
	"strings"

	"pipemail.dev/triage/internal/domain"
)

// rule ties a failure category to the transcript markers that select it and
// the canned remediation advice returned with it.
type rule struct {
	category    domain.Category
	markers     []string
	summary     string
	suggestions []string
}

// "build failure" is deliberately not a build marker: Maven prints that
// banner for every failed run regardless of cause.
var buildRule = rule{
	category: domain.CategoryBuildError,
	markers:  []string{"build failed", "compilation error", "compilation failure", "cannot find symbol"},
	summary:  "Compilation failed. The log reports unresolved symbols or compile errors.",
	suggestions: []string{
		"Check that all imports and dependency versions are consistent",
		"Run the build locally with the same compiler version as CI",
		"Fix the first compile error first; later errors usually cascade from it",
	},
}

var syntaxRule = rule{
	category: domain.CategorySyntaxError,
	markers:  []string{"syntax error", "';' expected", "'{' expected", "reached end of file while parsing", "unexpected token"},
	summary:  "The compiler rejected the source before type checking. A syntax error is present.",
	suggestions: []string{
		"Fix the reported syntax error before looking at anything else",
		"Check for unbalanced braces or missing semicolons near the reported line",
		"Make sure the committed file was saved completely and not truncated",
	},
}

var testRule = rule{
	category: domain.CategoryTestFailure,
	markers:  []string{"test failed", "tests failed", "there are test failures", "assertion"},
	summary:  "The build compiled but one or more tests failed.",
	suggestions: []string{
		"Run the failing test locally to reproduce the assertion",
		"Compare the expected and actual values in the failure message",
		"Check whether a recent change broke the test's fixtures or setup",
	},
}

var configRule = rule{
	category: domain.CategoryConfigError,
	markers:  []string{"configuration error", "config error", "invalid configuration", "plugin not found", "must be unique", "error resolving version"},
	summary:  "The build configuration is invalid or references unresolvable plugins.",
	suggestions: []string{
		"Validate the build configuration files for duplicate or missing entries",
		"Check the plugin and tool versions referenced by the build",
		"Confirm environment-specific settings for the target environment",
	},
}

var dependencyRule = rule{
	category: domain.CategoryDependencyError,
	markers:  []string{"could not resolve", "could not find artifact", "artifacts could not be resolved", "dependency"},
	summary:  "One or more dependencies could not be resolved from the configured registries.",
	suggestions: []string{
		"Verify the unresolved artifacts exist in the configured registries",
		"Check credentials and mirror settings for the package repository",
		"Pin or update the version of the missing dependency",
	},
}

var deploymentRule = rule{
	category: domain.CategoryDeploymentError,
	markers:  []string{"deploy", "kubernetes", "helm"},
	summary:  "The artifact built but the deployment step failed.",
	suggestions: []string{
		"Check deploy credentials and RBAC permissions for the target cluster",
		"Verify the target namespace, quotas and image pull access",
		"Review the rollout events reported by the cluster",
	},
}

var databaseRule = rule{
	category: domain.CategoryDatabaseError,
	markers:  []string{"database", "flyway", "migration", "sql"},
	summary:  "A database step failed, most likely a schema migration.",
	suggestions: []string{
		"Inspect the failed migration and the current schema version",
		"Check for objects left behind by a partially applied earlier run",
		"Verify database connectivity and credentials from CI",
	},
}

// rules is evaluated in order, first match wins. Syntax stays directly after
// build: a transcript matching both is refined into a syntax error.
var rules = []rule{buildRule, syntaxRule, testRule, configRule, dependencyRule, deploymentRule, databaseRule}

// ClassifyError pattern-matches a transcript into the failure taxonomy.
// Deterministic and side-effect free: the same result always yields the
// same classification.
func ClassifyError(result domain.LogAcquisitionResult) domain.ErrorClassification {
	haystack := strings.ToLower(result.Logs)
	if len(result.ErrorLines) > 0 {
		haystack += "\n" + strings.ToLower(strings.Join(result.ErrorLines, "\n"))
	}

	for _, r := range rules {
		if !containsAny(haystack, r.markers) {
			continue
		}
		if r.category == domain.CategoryBuildError && containsAny(haystack, syntaxRule.markers) {
			return syntaxRule.classification()
		}
		return r.classification()
	}

	if len(result.ErrorLines) > 0 {
		shown := result.ErrorLines
		if len(shown) > 3 {
			shown = shown[:3]
		}
		return domain.ErrorClassification{
			Category: domain.CategoryUnclassified,
			Summary:  "No known failure pattern matched. First error lines: " + strings.Join(shown, " | "),
			Suggestions: []string{
				"Review the surfaced error lines in the full job log",
				"Re-run the job to rule out a transient failure",
			},
		}
	}

	return domain.ErrorClassification{
		Category: domain.CategoryUnclassified,
		Summary:  "No failure pattern or error lines were found in the log.",
		Suggestions: []string{
			"Check the CI system directly for the full job log",
			"Re-run the pipeline to rule out a transient failure",
		},
	}
}

func (r rule) classification() domain.ErrorClassification {
	return domain.ErrorClassification{
		Category:    r.category,
		Summary:     r.summary,
		Suggestions: append([]string(nil), r.suggestions...),
	}
}

func containsAny(haystack string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(haystack, m) {
			return true
		}
	}
	return false
}
