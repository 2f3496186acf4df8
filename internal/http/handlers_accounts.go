package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	account := core.Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      req.Name,
		Type:      core.AccountType(req.Type),
		Balance:   req.Balance,
		CreatedAt: time.Now().UTC(),
	}
	if err := account.Validate(); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.repo.CreateAccount(r.Context(), account); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, "account created", toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, ownerID string) {
	accounts, err := s.repo.ListAccounts(r.Context(), ownerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	respondData(w, http.StatusOK, "accounts", out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request, ownerID string) {
	account, err := s.repo.GetAccount(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "account", toAccountResponse(account))
}

// handleUpdateAccount renames or retypes an account. The balance is derived
// state and cannot be set through this endpoint.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	account, err := s.repo.GetAccount(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	account.Name = req.Name
	account.Type = core.AccountType(req.Type)
	if err := account.Validate(); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.repo.UpdateAccount(r.Context(), account); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "account updated", toAccountResponse(account))
}

// handleDeleteAccount goes through the ledger service rather than straight
// to storage: the cascade takes the account's entries with it, and budgets
// those entries consumed have to be recomputed in the same transaction.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := s.ledger.DeleteAccount(r.Context(), ownerID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "account deleted", nil)
}
