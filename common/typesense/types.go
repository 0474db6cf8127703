package typesense

// Document is one indexed analysis. Field names line up with the
// collection schema; json tags drive both upsert and retrieval.
type Document struct {
	ID         string   `json:"id"`
	Project    string   `json:"project"`
	Category   string   `json:"category"`
	Subject    string   `json:"subject"`
	Sender     string   `json:"sender"`
	Summary    string   `json:"summary"`
	RootCause  string   `json:"root_cause"`
	ErrorLines []string `json:"error_lines"`
	UsedMock   bool     `json:"used_mock"`
	CreatedAt  int64    `json:"created_at"`
}

// SearchQuery is a full-text query with optional exact-match filters.
type SearchQuery struct {
	Text     string
	Project  string
	Category string
	Limit    int
}

// Hit is one search match, flattened from the raw document.
type Hit struct {
	ID        string `json:"id"`
	Project   string `json:"project"`
	Category  string `json:"category"`
	Subject   string `json:"subject"`
	Summary   string `json:"summary"`
	CreatedAt int64  `json:"created_at"`
}
