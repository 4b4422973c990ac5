// Package generator produces flashcard proposals from raw source text.
// Implementations are pure producers: they never touch persistence.
package generator

import (
	"context"

	"flashdeck-backend/internal/models"
)

// Result is one upstream generation call's output. Model is an opaque
// identifier recorded on the generation row.
type Result struct {
	Proposals []models.FlashcardProposal
	Model     string
}

type Generator interface {
	// GenerateProposals returns at least one proposal on success.
	GenerateProposals(ctx context.Context, text string) (*Result, error)
}
