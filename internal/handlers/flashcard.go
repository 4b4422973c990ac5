package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/repository"
	"flashdeck-backend/internal/services"
)

type FlashcardHandler struct {
	flashRepo    *repository.FlashcardRepo
	flashService *services.FlashcardService
}

func NewFlashcardHandler(flashRepo *repository.FlashcardRepo, flashService *services.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{flashRepo: flashRepo, flashService: flashService}
}

func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	q := r.URL.Query()

	filter := models.FlashcardFilter{
		Source:    q.Get("source"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort"),
		SortOrder: q.Get("order"),
	}

	if filter.Source != "" &&
		filter.Source != models.SourceManual &&
		filter.Source != models.SourceAIFull &&
		filter.Source != models.SourceAIEdited {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "source must be manual, ai-full or ai-edited", r))
		return
	}

	if genIDStr := q.Get("generation_id"); genIDStr != "" {
		genID, err := strconv.ParseInt(genIDStr, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid generation_id", r))
			return
		}
		filter.GenerationID = &genID
	}

	filter.Limit, filter.Offset = pageParams(q, 100)

	cards, total, err := h.flashRepo.ListByUser(r.Context(), userID, filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch flashcards", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"flashcards": cards,
		"total":      total,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

// Create adds a manually authored card. Manual cards never carry a
// generation reference.
func (h *FlashcardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	front, back, ok := h.validateCardContent(w, r, req.Front, req.Back)
	if !ok {
		return
	}

	card := &models.Flashcard{
		UserID: middleware.GetUserID(r.Context()),
		Front:  front,
		Back:   back,
		Source: models.SourceManual,
	}

	if err := h.flashRepo.Create(r.Context(), card); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create flashcard", r))
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

func (h *FlashcardHandler) Get(w http.ResponseWriter, r *http.Request) {
	card, ok := h.ownedCard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Update edits a card's content. Editing an unedited AI card retags it
// ai-edited; manual cards stay manual.
func (h *FlashcardHandler) Update(w http.ResponseWriter, r *http.Request) {
	card, ok := h.ownedCard(w, r)
	if !ok {
		return
	}

	var req models.UpdateFlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	front := card.Front
	back := card.Back
	if req.Front != nil {
		front = *req.Front
	}
	if req.Back != nil {
		back = *req.Back
	}

	front, back, okContent := h.validateCardContent(w, r, front, back)
	if !okContent {
		return
	}

	changed := front != card.Front || back != card.Back
	card.Front = front
	card.Back = back
	if changed && card.Source == models.SourceAIFull {
		card.Source = models.SourceAIEdited
	}

	if err := h.flashRepo.Update(r.Context(), card); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update flashcard", r))
		return
	}

	writeJSON(w, http.StatusOK, card)
}

func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	card, ok := h.ownedCard(w, r)
	if !ok {
		return
	}

	if err := h.flashRepo.Delete(r.Context(), card.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete flashcard", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Flashcard deleted"})
}

// BatchCreate is the raw persistence-gateway endpoint used by review commits.
func (h *FlashcardHandler) BatchCreate(w http.ResponseWriter, r *http.Request) {
	var req models.BatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if len(req.Flashcards) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "At least one flashcard is required", r))
		return
	}

	generationID := req.Flashcards[0].GenerationID
	userID := middleware.GetUserID(r.Context())

	saved, err := h.flashService.CreateFlashcardsBatch(r.Context(), userID, generationID, req.Flashcards, req.IsSaveAll)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"saved":   saved,
		"message": fmt.Sprintf("Saved %d flashcards", saved),
	})
}

// ExportCSV streams every card the user owns as a CSV download.
func (h *FlashcardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cards, err := h.flashRepo.ListAllByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch flashcards", r))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="flashcards.csv"`)

	if err := writeCardsCSV(w, cards); err != nil {
		// Headers are already sent; all we can do is record the abort.
		log.Printf("✗ CSV export aborted: %v", err)
	}
}

func writeCardsCSV(w io.Writer, cards []*models.Flashcard) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"front", "back", "source", "generation_id", "created_at"})
	for _, c := range cards {
		genID := ""
		if c.GenerationID != nil {
			genID = strconv.FormatInt(*c.GenerationID, 10)
		}
		cw.Write([]string{c.Front, c.Back, c.Source, genID, c.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	cw.Flush()
	return cw.Error()
}

func (h *FlashcardHandler) ownedCard(w http.ResponseWriter, r *http.Request) (*models.Flashcard, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid flashcard ID", r))
		return nil, false
	}

	card, err := h.flashRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Flashcard not found", r))
		return nil, false
	}

	userID := middleware.GetUserID(r.Context())
	if card.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return card, true
}

func (h *FlashcardHandler) validateCardContent(w http.ResponseWriter, r *http.Request, front, back string) (string, string, bool) {
	cleanFront, err := services.SanitizeCardText(front)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Front is required", r))
		return "", "", false
	}
	cleanBack, err := services.SanitizeCardText(back)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Back is required", r))
		return "", "", false
	}

	if n := len([]rune(cleanFront)); n > models.FrontMaxLen {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR",
			fmt.Sprintf("Front must be at most %d characters (got %d)", models.FrontMaxLen, n), r))
		return "", "", false
	}
	if n := len([]rune(cleanBack)); n > models.BackMaxLen {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR",
			fmt.Sprintf("Back must be at most %d characters (got %d)", models.BackMaxLen, n), r))
		return "", "", false
	}

	return cleanFront, cleanBack, true
}
