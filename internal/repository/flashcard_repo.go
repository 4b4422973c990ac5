package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashdeck-backend/internal/models"
)

type FlashcardRepo struct {
	pool *pgxpool.Pool
}

func NewFlashcardRepo(pool *pgxpool.Pool) *FlashcardRepo {
	return &FlashcardRepo{pool: pool}
}

func (r *FlashcardRepo) Create(ctx context.Context, f *models.Flashcard) error {
	query := `INSERT INTO flashcards (user_id, front, back, source, generation_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		f.UserID, f.Front, f.Back, f.Source, f.GenerationID,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

func (r *FlashcardRepo) GetByID(ctx context.Context, id int64) (*models.Flashcard, error) {
	f := &models.Flashcard{}
	query := `SELECT id, user_id, front, back, source, generation_id, created_at, updated_at
		FROM flashcards WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.UserID, &f.Front, &f.Back, &f.Source, &f.GenerationID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *FlashcardRepo) ListByUser(ctx context.Context, userID uuid.UUID, filter models.FlashcardFilter) ([]*models.Flashcard, int, error) {
	var args []interface{}
	argIdx := 1

	where := fmt.Sprintf("WHERE user_id = $%d", argIdx)
	args = append(args, userID)
	argIdx++

	if filter.Source != "" {
		where += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, filter.Source)
		argIdx++
	}

	if filter.GenerationID != nil {
		where += fmt.Sprintf(" AND generation_id = $%d", argIdx)
		args = append(args, *filter.GenerationID)
		argIdx++
	}

	if filter.Search != "" {
		where += fmt.Sprintf(" AND (front ILIKE $%d OR back ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	// Count total
	var total int
	countQuery := "SELECT COUNT(*) FROM flashcards " + where
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	// Order
	orderBy := "created_at DESC"
	switch filter.SortBy {
	case "front":
		orderBy = "front ASC"
		if filter.SortOrder == "desc" {
			orderBy = "front DESC"
		}
	case "created_at":
		if filter.SortOrder == "asc" {
			orderBy = "created_at ASC"
		}
	}

	query := fmt.Sprintf(`SELECT id, user_id, front, back, source, generation_id, created_at, updated_at
		FROM flashcards %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		where, orderBy, argIdx, argIdx+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cards []*models.Flashcard
	for rows.Next() {
		f := &models.Flashcard{}
		err := rows.Scan(&f.ID, &f.UserID, &f.Front, &f.Back, &f.Source, &f.GenerationID, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, f)
	}
	return cards, total, nil
}

// ListAllByUser returns every card for a user, oldest first. Used by CSV export.
func (r *FlashcardRepo) ListAllByUser(ctx context.Context, userID uuid.UUID) ([]*models.Flashcard, error) {
	query := `SELECT id, user_id, front, back, source, generation_id, created_at, updated_at
		FROM flashcards WHERE user_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*models.Flashcard
	for rows.Next() {
		f := &models.Flashcard{}
		err := rows.Scan(&f.ID, &f.UserID, &f.Front, &f.Back, &f.Source, &f.GenerationID, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, err
		}
		cards = append(cards, f)
	}
	return cards, nil
}

func (r *FlashcardRepo) Update(ctx context.Context, f *models.Flashcard) error {
	query := `UPDATE flashcards SET front = $1, back = $2, source = $3, updated_at = NOW()
		WHERE id = $4 RETURNING updated_at`

	return r.pool.QueryRow(ctx, query, f.Front, f.Back, f.Source, f.ID).Scan(&f.UpdatedAt)
}

func (r *FlashcardRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM flashcards WHERE id = $1", id)
	return err
}

// CreateBatch inserts all records in one transaction and bumps the accepted
// counters on the owning generation from the records' source tags.
func (r *FlashcardRepo) CreateBatch(ctx context.Context, userID uuid.UUID, generationID int64, records []models.BatchFlashcardRecord) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	edited := 0
	for _, rec := range records {
		_, err := tx.Exec(ctx,
			`INSERT INTO flashcards (user_id, front, back, source, generation_id)
			 VALUES ($1, $2, $3, $4, $5)`,
			userID, rec.Front, rec.Back, rec.Source, generationID,
		)
		if err != nil {
			return 0, err
		}
		if rec.Source == models.SourceAIEdited {
			edited++
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE generations
		 SET accepted_unedited_count = accepted_unedited_count + $1,
		     accepted_edited_count = accepted_edited_count + $2,
		     updated_at = NOW()
		 WHERE id = $3`,
		len(records)-edited, edited, generationID,
	)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(records), nil
}
