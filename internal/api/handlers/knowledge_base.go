package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/Harshitk-cp/expertd/internal/service"
	"github.com/go-chi/chi/v5"
)

type KnowledgeBaseHandler struct {
	svc *service.KnowledgeBaseService
}

func NewKnowledgeBaseHandler(svc *service.KnowledgeBaseService) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{svc: svc}
}

type listKnowledgeBasesResponse struct {
	KnowledgeBases []domain.KnowledgeBaseSummary `json:"knowledge_bases"`
}

func (h *KnowledgeBaseHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list knowledge bases")
		return
	}
	if list == nil {
		list = []domain.KnowledgeBaseSummary{}
	}
	writeJSON(w, http.StatusOK, listKnowledgeBasesResponse{KnowledgeBases: list})
}

// Import accepts the kdb JSON document with a top-level "name".
func (h *KnowledgeBaseHandler) Import(w http.ResponseWriter, r *http.Request) {
	var kb domain.KnowledgeBase
	if err := json.NewDecoder(r.Body).Decode(&kb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Import(r.Context(), &kb); err != nil {
		if errors.Is(err, service.ErrInvalidKnowledgeBase) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to import knowledge base")
		return
	}

	writeJSON(w, http.StatusCreated, kb.Summary())
}

func (h *KnowledgeBaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	kb, err := h.svc.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, service.ErrKnowledgeBaseNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get knowledge base")
		return
	}
	writeJSON(w, http.StatusOK, kb)
}

func (h *KnowledgeBaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		if errors.Is(err, service.ErrKnowledgeBaseNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete knowledge base")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
