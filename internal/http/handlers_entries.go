package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req entryRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	entry, err := s.ledger.Create(r.Context(), core.Entry{
		OwnerID:    ownerID,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Kind:       core.Kind(req.Kind),
		Amount:     req.Amount,
		Note:       req.Note,
		Date:       req.Date,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, "transaction created", toEntryResponse(entry))
}

// handleListEntries filters by account, category and inclusive date range,
// all optional query parameters.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request, ownerID string) {
	filter := storage.EntryFilter{
		OwnerID:    ownerID,
		AccountID:  r.URL.Query().Get("account_id"),
		CategoryID: r.URL.Query().Get("category_id"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		d, err := core.ParseDate(from)
		if err != nil {
			respondBadRequest(w, "invalid 'from' date: use YYYY-MM-DD")
			return
		}
		filter.From = d
	}
	if to := r.URL.Query().Get("to"); to != "" {
		d, err := core.ParseDate(to)
		if err != nil {
			respondBadRequest(w, "invalid 'to' date: use YYYY-MM-DD")
			return
		}
		filter.To = d
	}

	entries, err := s.ledger.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "transactions", toEntryResponses(entries))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request, ownerID string) {
	entry, err := s.ledger.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "transaction", toEntryResponse(entry))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req entryRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	entry, err := s.ledger.Update(r.Context(), core.Entry{
		ID:         r.PathValue("id"),
		OwnerID:    ownerID,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Kind:       core.Kind(req.Kind),
		Amount:     req.Amount,
		Note:       req.Note,
		Date:       req.Date,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "transaction updated", toEntryResponse(entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := s.ledger.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "transaction deleted", nil)
}
