package models

import (
	"time"

	"github.com/google/uuid"
)

// Provenance tags for a flashcard's source field.
const (
	SourceManual   = "manual"
	SourceAIFull   = "ai-full"
	SourceAIEdited = "ai-edited"
)

// Content limits enforced on create, update and batch insert.
const (
	FrontMaxLen = 200
	BackMaxLen  = 500
)

type Flashcard struct {
	ID           int64     `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	Source       string    `json:"source"`
	GenerationID *int64    `json:"generation_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateFlashcardRequest struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type UpdateFlashcardRequest struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

// BatchFlashcardRecord is one persistence record produced by a review commit.
type BatchFlashcardRecord struct {
	Front        string `json:"front"`
	Back         string `json:"back"`
	Source       string `json:"source"` // "ai-full" | "ai-edited"
	GenerationID int64  `json:"generation_id"`
}

type BatchCreateRequest struct {
	Flashcards []BatchFlashcardRecord `json:"flashcards"`
	IsSaveAll  bool                   `json:"isSaveAll"`
}

// FlashcardFilter drives the list query. Zero values mean "no constraint".
type FlashcardFilter struct {
	Source       string
	GenerationID *int64
	Search       string
	SortBy       string // "created_at" | "front"
	SortOrder    string // "asc" | "desc"
	Limit        int
	Offset       int
}
