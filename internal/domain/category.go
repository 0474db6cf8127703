package domain

// Category is one failure class from the closed heuristic taxonomy.
type Category string

const (
	CategoryBuildError      Category = "build_error"
	CategorySyntaxError     Category = "syntax_error"
	CategoryTestFailure     Category = "test_failure"
	CategoryConfigError     Category = "config_error"
	CategoryDependencyError Category = "dependency_error"
	CategoryDeploymentError Category = "deployment_error"
	CategoryDatabaseError   Category = "database_error"
	CategoryUnclassified    Category = "unclassified"
)

// Categories lists the concrete taxonomy values in classification order,
// unclassified last.
func Categories() []Category {
	return []Category{
		CategoryBuildError,
		CategorySyntaxError,
		CategoryTestFailure,
		CategoryConfigError,
		CategoryDependencyError,
		CategoryDeploymentError,
		CategoryDatabaseError,
		CategoryUnclassified,
	}
}

// LogSource identifies which acquisition path produced a log transcript.
type LogSource string

const (
	LogSourceAPI    LogSource = "gitlab_api"
	LogSourceScrape LogSource = "page_scrape"
	LogSourceMock   LogSource = "mock"
	LogSourceNone   LogSource = "none"
)
