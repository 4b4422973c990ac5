package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/review"
)

type ReviewHandler struct {
	sessions *review.Manager
}

func NewReviewHandler(sessions *review.Manager) *ReviewHandler {
	return &ReviewHandler{sessions: sessions}
}

type reviewIndexRequest struct {
	Index int `json:"index"`
}

type reviewEditRequest struct {
	Index int    `json:"index"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (h *ReviewHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.applyIndexed(w, r, func(index int) review.Transition { return review.Accept{Index: index} })
}

func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.applyIndexed(w, r, func(index int) review.Transition { return review.Reject{Index: index} })
}

func (h *ReviewHandler) Select(w http.ResponseWriter, r *http.Request) {
	h.applyIndexed(w, r, func(index int) review.Transition { return review.Select{Index: index} })
}

func (h *ReviewHandler) Edit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req reviewEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Front == "" || req.Back == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Front and back are required", r))
		return
	}

	if err := session.Apply(review.Edit{Index: req.Index, Front: req.Front, Back: req.Back}); err != nil {
		h.handleReviewError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (h *ReviewHandler) SaveSelected(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	saved, err := session.SaveSelected(r.Context())
	if err != nil {
		h.handleReviewError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"saved": saved,
		"state": session.Snapshot(),
	})
}

func (h *ReviewHandler) SaveAll(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	saved, err := session.SaveAll(r.Context())
	if err != nil {
		h.handleReviewError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"saved": saved,
		"state": session.Snapshot(),
	})
}

func (h *ReviewHandler) applyIndexed(w http.ResponseWriter, r *http.Request, build func(int) review.Transition) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req reviewIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := session.Apply(build(req.Index)); err != nil {
		h.handleReviewError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (h *ReviewHandler) session(w http.ResponseWriter, r *http.Request) (*review.Session, bool) {
	userID := middleware.GetUserID(r.Context())
	session, ok := h.sessions.Get(userID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No active review session. Generate flashcards first.", r))
		return nil, false
	}
	return session, true
}

func (h *ReviewHandler) handleReviewError(w http.ResponseWriter, r *http.Request, err error) {
	var indexErr *review.IndexError
	var unreviewedErr *review.UnreviewedError

	switch {
	case errors.As(err, &indexErr):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", indexErr.Error(), r))
	case errors.As(err, &unreviewedErr):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", unreviewedErr.Error(), r))
	case errors.Is(err, review.ErrNoActiveGeneration),
		errors.Is(err, review.ErrNoAcceptedItems),
		errors.Is(err, review.ErrNoItems):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
	case errors.Is(err, review.ErrCommitInFlight):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", err.Error(), r))
	default:
		handleServiceError(w, r, err)
	}
}
