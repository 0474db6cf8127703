package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"pipemail.dev/triage/core/db"
	"pipemail.dev/triage/internal/model"
)

const defaultListLimit = 20

// Column order is shared by every query; scanAnalysis depends on it.
const analysisColumns = `id, sender, subject, project_name, commit_id, environment,
	category, pipeline_failed, used_mock_data, ai_provider, ai_model, result_file,
	record, created_at`

type analysisStore struct {
	db *db.DB
}

func newAnalysisStore(database *db.DB) AnalysisStore {
	return &analysisStore{db: database}
}

func (s *analysisStore) Create(ctx context.Context, analysis *model.Analysis) error {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		analysis.ID,
		analysis.Sender,
		analysis.Subject,
		analysis.ProjectName,
		analysis.CommitID,
		analysis.Environment,
		analysis.Category,
		analysis.PipelineFailed,
		analysis.UsedMockData,
		analysis.AIProvider,
		analysis.AIModel,
		analysis.ResultFile,
		analysis.Record,
		analysis.CreatedAt,
	)
	return err
}

func (s *analysisStore) GetByID(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	analysis, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return analysis, nil
}

func (s *analysisStore) List(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Project != "" {
		args = append(args, filter.Project)
		conds = append(conds, fmt.Sprintf("project_name = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + analysisColumns + ` FROM analyses`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *analysis)
	}
	return analyses, rows.Err()
}

func (s *analysisStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM analyses WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func scanAnalysis(row pgx.Row) (*model.Analysis, error) {
	var a model.Analysis
	err := row.Scan(
		&a.ID,
		&a.Sender,
		&a.Subject,
		&a.ProjectName,
		&a.CommitID,
		&a.Environment,
		&a.Category,
		&a.PipelineFailed,
		&a.UsedMockData,
		&a.AIProvider,
		&a.AIModel,
		&a.ResultFile,
		&a.Record,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
