package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"flashdeck-backend/internal/generator"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/review"
)

type generationStore interface {
	Create(ctx context.Context, g *models.Generation) error
	CreateErrorLog(ctx context.Context, l *models.GenerationErrorLog) error
}

// GenerationService validates pasted source text, invokes the external
// generator and seeds a fresh review session from the result. This is the
// only path that creates a generation; any previous session for the user is
// replaced, never merged.
type GenerationService struct {
	generator generator.Generator
	genRepo   generationStore
	sessions  *review.Manager
}

func NewGenerationService(gen generator.Generator, genRepo generationStore, sessions *review.Manager) *GenerationService {
	return &GenerationService{
		generator: gen,
		genRepo:   genRepo,
		sessions:  sessions,
	}
}

func (s *GenerationService) Generate(ctx context.Context, userID uuid.UUID, text string) (*models.Generation, []models.FlashcardProposal, error) {
	length := len([]rune(text))
	if length < models.SourceTextMinLen {
		return nil, nil, &ValidationError{Fields: map[string]string{
			"text": fmt.Sprintf("Source text must be at least %d characters (got %d)", models.SourceTextMinLen, length),
		}}
	}
	if length > models.SourceTextMaxLen {
		return nil, nil, &ValidationError{Fields: map[string]string{
			"text": fmt.Sprintf("Source text must be at most %d characters (got %d)", models.SourceTextMaxLen, length),
		}}
	}

	hash := sha256.Sum256([]byte(text))
	textHash := hex.EncodeToString(hash[:])

	start := time.Now()
	result, err := s.generator.GenerateProposals(ctx, text)
	if err != nil {
		errLog := &models.GenerationErrorLog{
			UserID:           userID,
			Model:            "unknown",
			SourceTextHash:   textHash,
			SourceTextLength: length,
			ErrorCode:        "GENERATOR_ERROR",
			ErrorMessage:     err.Error(),
		}
		if logErr := s.genRepo.CreateErrorLog(ctx, errLog); logErr != nil {
			log.Printf("✗ Failed to record generation error: %v", logErr)
		}
		return nil, nil, &UpstreamError{Message: fmt.Sprintf("Flashcard generation failed: %v", err)}
	}

	gen := &models.Generation{
		UserID:               userID,
		Model:                result.Model,
		GeneratedCount:       len(result.Proposals),
		SourceTextHash:       textHash,
		SourceTextLength:     length,
		GenerationDurationMs: time.Since(start).Milliseconds(),
	}

	if err := s.genRepo.Create(ctx, gen); err != nil {
		return nil, nil, err
	}

	s.sessions.Start(userID, gen, result.Proposals)

	return gen, result.Proposals, nil
}
