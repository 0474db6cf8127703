package typesense

import (
	"context"
	"fmt"
	"strings"
	"time"

	ts "github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"
)

const (
	connectionTimeout = 5 * time.Second
	defaultPerPage    = 10
)

type Client interface {
	// Setup operations
	EnsureCollection(ctx context.Context) error

	// Write operations (for indexing)
	Upsert(ctx context.Context, doc Document) error

	// Read operations (for the search endpoint)
	Search(ctx context.Context, q SearchQuery) ([]Hit, error)
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("typesense URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("typesense API key is required")
	}
	if c.Collection == "" {
		return fmt.Errorf("typesense collection name is required")
	}
	return nil
}

type client struct {
	ts         *ts.Client
	collection string
}

func New(cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("typesense config: %w", err)
	}

	tsClient := ts.NewClient(
		ts.WithServer(cfg.URL),
		ts.WithAPIKey(cfg.APIKey),
		ts.WithConnectionTimeout(connectionTimeout),
	)

	return &client{ts: tsClient, collection: cfg.Collection}, nil
}

// EnsureCollection creates the analyses collection when it does not exist
// yet. Safe to call on every startup.
func (c *client) EnsureCollection(ctx context.Context) error {
	if _, err := c.ts.Collection(c.collection).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: c.collection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "project", Type: "string", Facet: pointer.True()},
			{Name: "category", Type: "string", Facet: pointer.True()},
			{Name: "subject", Type: "string"},
			{Name: "sender", Type: "string"},
			{Name: "summary", Type: "string"},
			{Name: "root_cause", Type: "string"},
			{Name: "error_lines", Type: "string[]"},
			{Name: "used_mock", Type: "bool", Facet: pointer.True()},
			{Name: "created_at", Type: "int64", Sort: pointer.True()},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	if _, err := c.ts.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("create collection %s: %w", c.collection, err)
	}
	return nil
}

func (c *client) Upsert(ctx context.Context, doc Document) error {
	if _, err := c.ts.Collection(c.collection).Documents().Upsert(ctx, doc, &api.DocumentIndexParameters{}); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

func (c *client) Search(ctx context.Context, q SearchQuery) ([]Hit, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPerPage
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q.Text),
		QueryBy: pointer.String("subject,summary,root_cause,error_lines,project"),
		SortBy:  pointer.String("_text_match:desc,created_at:desc"),
		PerPage: pointer.Int(limit),
	}
	if filter := q.filterBy(); filter != "" {
		params.FilterBy = pointer.String(filter)
	}

	res, err := c.ts.Collection(c.collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q.Text, err)
	}
	if res.Hits == nil {
		return nil, nil
	}

	hits := make([]Hit, 0, len(*res.Hits))
	for _, h := range *res.Hits {
		if h.Document == nil {
			continue
		}
		doc := *h.Document
		hits = append(hits, Hit{
			ID:        str(doc, "id"),
			Project:   str(doc, "project"),
			Category:  str(doc, "category"),
			Subject:   str(doc, "subject"),
			Summary:   str(doc, "summary"),
			CreatedAt: num(doc, "created_at"),
		})
	}
	return hits, nil
}

func (q SearchQuery) filterBy() string {
	var parts []string
	if q.Project != "" {
		parts = append(parts, "project:="+q.Project)
	}
	if q.Category != "" {
		parts = append(parts, "category:="+q.Category)
	}
	return strings.Join(parts, " && ")
}

func str(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func num(doc map[string]interface{}, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}
