package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/repository"
	"flashdeck-backend/internal/services"
)

type GenerationHandler struct {
	genService *services.GenerationService
	genRepo    *repository.GenerationRepo
}

func NewGenerationHandler(genService *services.GenerationService, genRepo *repository.GenerationRepo) *GenerationHandler {
	return &GenerationHandler{genService: genService, genRepo: genRepo}
}

// Generate validates the pasted text, calls the AI generator and opens a new
// review session. The previous session, if any, is discarded.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	gen, proposals, err := h.genService.Generate(r.Context(), userID, req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.GenerateResponse{
		Generation: gen,
		Flashcards: proposals,
	})
}

func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, offset := pageParams(r.URL.Query(), 50)

	generations, total, err := h.genRepo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch generations", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generations": generations,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid generation ID", r))
		return
	}

	gen, err := h.genRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Generation not found", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if gen.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, gen)
}
