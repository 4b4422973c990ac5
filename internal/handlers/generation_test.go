package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck-backend/internal/generator"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/review"
	"flashdeck-backend/internal/services"
)

type memGenerationStore struct {
	nextID int64
}

func (m *memGenerationStore) Create(ctx context.Context, g *models.Generation) error {
	m.nextID++
	g.ID = m.nextID
	return nil
}

func (m *memGenerationStore) CreateErrorLog(ctx context.Context, l *models.GenerationErrorLog) error {
	return nil
}

func newGenerationHandler(t *testing.T) (*GenerationHandler, *review.Manager) {
	t.Helper()
	sessions := review.NewManager(&stubBatchCreator{})
	svc := services.NewGenerationService(generator.NewMockGenerator(), &memGenerationStore{}, sessions)
	return NewGenerationHandler(svc, nil), sessions
}

func TestGenerate_TooShortTextIs400(t *testing.T) {
	h, sessions := newGenerationHandler(t)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	body := map[string]string{"text": strings.Repeat("a", 999)}
	h.Generate(rec, authedRequest(http.MethodPost, "/api/v1/generations", body, userID))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields["text"], "at least 1000")

	_, ok := sessions.Get(userID)
	assert.False(t, ok, "invalid input must not open a session")
}

func TestGenerate_TooLongTextIs400(t *testing.T) {
	h, _ := newGenerationHandler(t)

	rec := httptest.NewRecorder()
	body := map[string]string{"text": strings.Repeat("a", 10001)}
	h.Generate(rec, authedRequest(http.MethodPost, "/api/v1/generations", body, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error.Fields["text"], "at most 10000")
}

func TestGenerate_ValidTextIs201AndOpensSession(t *testing.T) {
	h, sessions := newGenerationHandler(t)
	userID := uuid.New()
	text := strings.Repeat("Flashcards reinforce recall through spaced repetition. ", 20)

	rec := httptest.NewRecorder()
	h.Generate(rec, authedRequest(http.MethodPost, "/api/v1/generations", map[string]string{"text": text}, userID))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.GenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Generation)
	assert.Equal(t, "mock-generator-v1", resp.Generation.Model)
	assert.Equal(t, len(resp.Flashcards), resp.Generation.GeneratedCount)
	assert.NotEmpty(t, resp.Flashcards)

	session, ok := sessions.Get(userID)
	require.True(t, ok)
	assert.Len(t, session.Snapshot().Items, len(resp.Flashcards))
}

func TestGenerate_InvalidJSONBodyIs400(t *testing.T) {
	h, _ := newGenerationHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error.Code)
}
