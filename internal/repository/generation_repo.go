package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashdeck-backend/internal/models"
)

type GenerationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) *GenerationRepo {
	return &GenerationRepo{pool: pool}
}

func (r *GenerationRepo) Create(ctx context.Context, g *models.Generation) error {
	query := `INSERT INTO generations
		(user_id, model, generated_count, source_text_hash, source_text_length, generation_duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		g.UserID, g.Model, g.GeneratedCount, g.SourceTextHash, g.SourceTextLength, g.GenerationDurationMs,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
}

func (r *GenerationRepo) GetByID(ctx context.Context, id int64) (*models.Generation, error) {
	g := &models.Generation{}
	query := `SELECT id, user_id, model, generated_count, accepted_unedited_count, accepted_edited_count,
		source_text_hash, source_text_length, generation_duration_ms, created_at, updated_at
		FROM generations WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.UserID, &g.Model, &g.GeneratedCount, &g.AcceptedUneditedCount, &g.AcceptedEditedCount,
		&g.SourceTextHash, &g.SourceTextLength, &g.GenerationDurationMs, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GenerationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Generation, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM generations WHERE user_id = $1", userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, model, generated_count, accepted_unedited_count, accepted_edited_count,
		source_text_hash, source_text_length, generation_duration_ms, created_at, updated_at
		FROM generations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var generations []*models.Generation
	for rows.Next() {
		g := &models.Generation{}
		err := rows.Scan(
			&g.ID, &g.UserID, &g.Model, &g.GeneratedCount, &g.AcceptedUneditedCount, &g.AcceptedEditedCount,
			&g.SourceTextHash, &g.SourceTextLength, &g.GenerationDurationMs, &g.CreatedAt, &g.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		generations = append(generations, g)
	}
	return generations, total, nil
}

func (r *GenerationRepo) CreateErrorLog(ctx context.Context, l *models.GenerationErrorLog) error {
	query := `INSERT INTO generation_error_logs
		(user_id, model, source_text_hash, source_text_length, error_code, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		l.UserID, l.Model, l.SourceTextHash, l.SourceTextLength, l.ErrorCode, l.ErrorMessage,
	).Scan(&l.ID, &l.CreatedAt)
}
