package models

import (
	"time"

	"github.com/google/uuid"
)

// Source text bounds enforced before any generator call.
const (
	SourceTextMinLen = 1000
	SourceTextMaxLen = 10000
)

// Generation is the server-side record grouping all proposals from one
// generate call. Accepted counts are filled in when a batch commit lands.
type Generation struct {
	ID                    int64     `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	Model                 string    `json:"model"`
	GeneratedCount        int       `json:"generated_count"`
	AcceptedUneditedCount int       `json:"accepted_unedited_count"`
	AcceptedEditedCount   int       `json:"accepted_edited_count"`
	SourceTextHash        string    `json:"source_text_hash"`
	SourceTextLength      int       `json:"source_text_length"`
	GenerationDurationMs  int64     `json:"generation_duration_ms"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// FlashcardProposal is an AI-proposed card before review. Immutable once
// produced; review items snapshot it as their original content.
type FlashcardProposal struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type GenerateRequest struct {
	Text string `json:"text"`
}

type GenerateResponse struct {
	Generation *Generation         `json:"generation"`
	Flashcards []FlashcardProposal `json:"flashcards"`
}

// GenerationErrorLog records a failed upstream generator call.
type GenerationErrorLog struct {
	ID               int64     `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Model            string    `json:"model"`
	SourceTextHash   string    `json:"source_text_hash"`
	SourceTextLength int       `json:"source_text_length"`
	ErrorCode        string    `json:"error_code"`
	ErrorMessage     string    `json:"error_message"`
	CreatedAt        time.Time `json:"created_at"`
}
