package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"flashdeck-backend/internal/models"
)

type flashcardBatchStore interface {
	CreateBatch(ctx context.Context, userID uuid.UUID, generationID int64, records []models.BatchFlashcardRecord) (int, error)
}

type generationGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Generation, error)
}

// FlashcardService is the persistence gateway for batch commits. It backs
// both the review session's save operations and the raw batch endpoint.
type FlashcardService struct {
	flashRepo flashcardBatchStore
	genRepo   generationGetter
}

func NewFlashcardService(flashRepo flashcardBatchStore, genRepo generationGetter) *FlashcardService {
	return &FlashcardService{flashRepo: flashRepo, genRepo: genRepo}
}

// CreateFlashcardsBatch validates and persists one commit's records in a
// single transaction. saveAll only distinguishes the commit path in logs; the
// counter accounting on the generation row is driven by each record's source
// tag and is identical for both paths.
func (s *FlashcardService) CreateFlashcardsBatch(ctx context.Context, userID uuid.UUID, generationID int64, records []models.BatchFlashcardRecord, saveAll bool) (int, error) {
	if len(records) == 0 {
		return 0, &ValidationError{Fields: map[string]string{"flashcards": "At least one flashcard is required"}}
	}

	gen, err := s.genRepo.GetByID(ctx, generationID)
	if err != nil {
		return 0, &NotFoundError{Message: "Generation not found"}
	}
	if gen.UserID != userID {
		return 0, &ForbiddenError{Message: "Access denied"}
	}

	clean := make([]models.BatchFlashcardRecord, len(records))
	for i, rec := range records {
		if rec.Source != models.SourceAIFull && rec.Source != models.SourceAIEdited {
			return 0, &ValidationError{Fields: map[string]string{
				"flashcards": fmt.Sprintf("flashcards[%d].source must be %q or %q", i, models.SourceAIFull, models.SourceAIEdited),
			}}
		}
		if rec.GenerationID != generationID {
			return 0, &ValidationError{Fields: map[string]string{
				"flashcards": fmt.Sprintf("flashcards[%d].generation_id does not match the batch generation", i),
			}}
		}

		front, err := validateCardText(rec.Front, models.FrontMaxLen)
		if err != nil {
			return 0, &ValidationError{Fields: map[string]string{
				"flashcards": fmt.Sprintf("flashcards[%d].front: %v", i, err),
			}}
		}
		back, err := validateCardText(rec.Back, models.BackMaxLen)
		if err != nil {
			return 0, &ValidationError{Fields: map[string]string{
				"flashcards": fmt.Sprintf("flashcards[%d].back: %v", i, err),
			}}
		}

		rec.Front = front
		rec.Back = back
		clean[i] = rec
	}

	saved, err := s.flashRepo.CreateBatch(ctx, userID, generationID, clean)
	if err == nil && saveAll {
		log.Printf("flashcards: save-all committed %d records for generation %d", saved, generationID)
	}
	return saved, err
}

// validateCardText sanitizes and bounds one side of a card.
func validateCardText(text string, maxLen int) (string, error) {
	sanitized, err := SanitizeCardText(text)
	if err != nil {
		return "", err
	}
	if n := len([]rune(sanitized)); n > maxLen {
		return "", fmt.Errorf("must be at most %d characters (got %d)", maxLen, n)
	}
	return sanitized, nil
}
