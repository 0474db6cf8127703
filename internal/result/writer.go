package result

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pipemail.dev/triage/internal/domain"
)

// Writer persists analysis records as pretty-printed JSON files, one file
// per run.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Save writes rec to the results directory and returns the written path.
// The filename carries the AI provider when enrichment succeeded and
// "gitlab" otherwise, so a directory listing shows at a glance which runs
// were enriched.
func (w *Writer) Save(ctx context.Context, rec *domain.AnalysisRecord) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	token := "gitlab"
	if rec.AI != nil && rec.AI.Provider != "" {
		token = rec.AI.Provider
	}
	name := fmt.Sprintf("ai_analysis_%s_%s.json", token, time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		f.Close()
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close result file: %w", err)
	}

	slog.InfoContext(ctx, "analysis result written", "path", path)
	return path, nil
}
