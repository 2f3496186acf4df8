package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	category := core.Category{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      req.Name,
		Kind:      core.Kind(req.Kind),
		ColorHex:  req.ColorHex,
		Icon:      req.Icon,
		CreatedAt: time.Now().UTC(),
	}
	if err := category.Validate(); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.repo.CreateCategory(r.Context(), category); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, "category created", toCategoryResponse(category))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, ownerID string) {
	categories, err := s.repo.ListCategories(r.Context(), ownerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	respondData(w, http.StatusOK, "categories", out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	category, err := s.repo.GetCategory(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "category", toCategoryResponse(category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	category, err := s.repo.GetCategory(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	category.Name = req.Name
	category.Kind = core.Kind(req.Kind)
	category.ColorHex = req.ColorHex
	category.Icon = req.Icon
	if err := category.Validate(); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.repo.UpdateCategory(r.Context(), category); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "category updated", toCategoryResponse(category))
}

// handleDeleteCategory removes a category. Entries and templates pointing at
// it become uncategorized; its budgets are removed with it.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := s.repo.DeleteCategory(r.Context(), ownerID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "category deleted", nil)
}
