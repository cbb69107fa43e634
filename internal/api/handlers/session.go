package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/expertd/internal/inference"
	"github.com/Harshitk-cp/expertd/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type startSessionRequest struct {
	KnowledgeBase string `json:"knowledge_base"`
}

// answerRequest uses a pointer so a missing response is not read as 0,
// which is a meaningful "don't know".
type answerRequest struct {
	EvidenceID string `json:"evidence_id,omitempty"`
	Response   *int   `json:"response"`
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.KnowledgeBase == "" {
		writeError(w, http.StatusBadRequest, "knowledge_base is required")
		return
	}

	sess, err := h.svc.Start(r.Context(), req.KnowledgeBase)
	if err != nil {
		writeSessionError(w, err, "failed to start session")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeSessionError(w, err, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Response == nil {
		writeError(w, http.StatusBadRequest, "response is required")
		return
	}

	sess, err := h.svc.Answer(r.Context(), id, req.EvidenceID, *req.Response)
	if err != nil {
		writeSessionError(w, err, "failed to apply answer")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.Undo(r.Context(), id)
	if err != nil {
		writeSessionError(w, err, "failed to undo answer")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeSessionError(w, err, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func writeSessionError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrKnowledgeBaseNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, inference.ErrInvalidAnswer),
		errors.Is(err, inference.ErrUnknownEvidence):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionFinished),
		errors.Is(err, service.ErrSessionConflict),
		errors.Is(err, service.ErrNothingToUndo),
		errors.Is(err, service.ErrNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidKnowledgeBase),
		errors.Is(err, inference.ErrUndefinedPosterior):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
