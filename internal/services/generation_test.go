package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck-backend/internal/generator"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/review"
)

type fakeGenerationStore struct {
	created   *models.Generation
	errorLogs []*models.GenerationErrorLog
	createErr error
}

func (f *fakeGenerationStore) Create(ctx context.Context, g *models.Generation) error {
	if f.createErr != nil {
		return f.createErr
	}
	g.ID = 7
	f.created = g
	return nil
}

func (f *fakeGenerationStore) CreateErrorLog(ctx context.Context, l *models.GenerationErrorLog) error {
	f.errorLogs = append(f.errorLogs, l)
	return nil
}

type failingGenerator struct{ err error }

func (f *failingGenerator) GenerateProposals(ctx context.Context, text string) (*generator.Result, error) {
	return nil, f.err
}

type noopBatchCreator struct{}

func (noopBatchCreator) CreateFlashcardsBatch(ctx context.Context, userID uuid.UUID, generationID int64, records []models.BatchFlashcardRecord, saveAll bool) (int, error) {
	return len(records), nil
}

func validSourceText() string {
	return strings.Repeat("Go services favor explicit error handling over exceptions. ", 20)
}

func TestGenerate_RejectsTextBelowMinimum(t *testing.T) {
	store := &fakeGenerationStore{}
	svc := NewGenerationService(generator.NewMockGenerator(), store, review.NewManager(noopBatchCreator{}))

	_, _, err := svc.Generate(context.Background(), uuid.New(), strings.Repeat("a", models.SourceTextMinLen-1))

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields["text"], "at least 1000")
	assert.Contains(t, valErr.Fields["text"], "999")
	assert.Nil(t, store.created, "no generation row for invalid input")
}

func TestGenerate_RejectsTextAboveMaximum(t *testing.T) {
	store := &fakeGenerationStore{}
	svc := NewGenerationService(generator.NewMockGenerator(), store, review.NewManager(noopBatchCreator{}))

	_, _, err := svc.Generate(context.Background(), uuid.New(), strings.Repeat("a", models.SourceTextMaxLen+1))

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields["text"], "at most 10000")
}

func TestGenerate_BoundsAreMeasuredInRunes(t *testing.T) {
	store := &fakeGenerationStore{}
	sessions := review.NewManager(noopBatchCreator{})
	svc := NewGenerationService(generator.NewMockGenerator(), store, sessions)

	// 1000 multi-byte runes is exactly the minimum, despite being >1000 bytes.
	text := strings.Repeat("é", models.SourceTextMinLen)
	gen, _, err := svc.Generate(context.Background(), uuid.New(), text)

	require.NoError(t, err)
	assert.Equal(t, models.SourceTextMinLen, gen.SourceTextLength)
}

func TestGenerate_RecordsMetadataAndStartsSession(t *testing.T) {
	store := &fakeGenerationStore{}
	sessions := review.NewManager(noopBatchCreator{})
	svc := NewGenerationService(generator.NewMockGenerator(), store, sessions)
	userID := uuid.New()
	text := validSourceText()

	gen, proposals, err := svc.Generate(context.Background(), userID, text)
	require.NoError(t, err)

	require.NotNil(t, store.created)
	assert.Equal(t, userID, gen.UserID)
	assert.Equal(t, "mock-generator-v1", gen.Model)
	assert.Equal(t, len(proposals), gen.GeneratedCount)
	assert.Len(t, gen.SourceTextHash, 64, "sha-256 hex digest")
	assert.Equal(t, len([]rune(text)), gen.SourceTextLength)
	assert.Zero(t, gen.AcceptedUneditedCount)
	assert.Zero(t, gen.AcceptedEditedCount)

	session, ok := sessions.Get(userID)
	require.True(t, ok, "a review session must exist after generation")
	snap := session.Snapshot()
	require.Len(t, snap.Items, len(proposals))
	assert.Equal(t, gen.ID, snap.Generation.ID)
	for i, it := range snap.Items {
		assert.Equal(t, review.StatusPending, it.Status)
		assert.Equal(t, proposals[i].Front, it.Front)
	}
}

func TestGenerate_SameTextSameHash(t *testing.T) {
	store := &fakeGenerationStore{}
	svc := NewGenerationService(generator.NewMockGenerator(), store, review.NewManager(noopBatchCreator{}))
	text := validSourceText()

	first, _, err := svc.Generate(context.Background(), uuid.New(), text)
	require.NoError(t, err)
	second, _, err := svc.Generate(context.Background(), uuid.New(), text)
	require.NoError(t, err)

	assert.Equal(t, first.SourceTextHash, second.SourceTextHash)
}

func TestGenerate_GeneratorFailureIsLoggedAndSurfaced(t *testing.T) {
	store := &fakeGenerationStore{}
	sessions := review.NewManager(noopBatchCreator{})
	gen := &failingGenerator{err: errors.New("Gemini API error: quota exceeded")}
	svc := NewGenerationService(gen, store, sessions)
	userID := uuid.New()

	_, _, err := svc.Generate(context.Background(), userID, validSourceText())

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Message, "quota exceeded")

	require.Len(t, store.errorLogs, 1)
	logEntry := store.errorLogs[0]
	assert.Equal(t, userID, logEntry.UserID)
	assert.Equal(t, "GENERATOR_ERROR", logEntry.ErrorCode)
	assert.Contains(t, logEntry.ErrorMessage, "quota exceeded")
	assert.Len(t, logEntry.SourceTextHash, 64)

	assert.Nil(t, store.created, "no generation row on failure")
	_, ok := sessions.Get(userID)
	assert.False(t, ok, "no review session on failure")
}

func TestGenerate_NewGenerationReplacesExistingSession(t *testing.T) {
	store := &fakeGenerationStore{}
	sessions := review.NewManager(noopBatchCreator{})
	svc := NewGenerationService(generator.NewMockGenerator(), store, sessions)
	userID := uuid.New()

	_, _, err := svc.Generate(context.Background(), userID, validSourceText())
	require.NoError(t, err)
	first, _ := sessions.Get(userID)
	require.NoError(t, first.Apply(review.Accept{Index: 0}))

	_, _, err = svc.Generate(context.Background(), userID, validSourceText())
	require.NoError(t, err)

	second, ok := sessions.Get(userID)
	require.True(t, ok)
	for _, it := range second.Snapshot().Items {
		assert.Equal(t, review.StatusPending, it.Status, "replacement session must start clean")
	}
}
