package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	budget, err := s.budgets.Create(r.Context(), core.Budget{
		OwnerID:    ownerID,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, "budget created", toBudgetResponse(budget))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, ownerID string) {
	budgets, err := s.budgets.List(r.Context(), ownerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	respondData(w, http.StatusOK, "budgets", out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	budget, err := s.budgets.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "budget", toBudgetResponse(budget))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	budget, err := s.budgets.Update(r.Context(), core.Budget{
		ID:         r.PathValue("id"),
		OwnerID:    ownerID,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "budget updated", toBudgetResponse(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := s.budgets.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "budget deleted", nil)
}
