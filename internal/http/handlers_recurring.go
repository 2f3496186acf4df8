package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req templateRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	tmpl := core.Template{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Kind:       core.Kind(req.Kind),
		Amount:     req.Amount,
		Note:       req.Note,
		Frequency:  core.Frequency(req.Frequency),
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tmpl.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.checkTemplateReferences(r, tmpl); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.repo.CreateTemplate(r.Context(), tmpl); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, "recurring template created", toTemplateResponse(tmpl))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request, ownerID string) {
	templates, err := s.repo.ListTemplates(r.Context(), ownerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResponse(t))
	}
	respondData(w, http.StatusOK, "recurring templates", out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request, ownerID string) {
	tmpl, err := s.repo.GetTemplate(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "recurring template", toTemplateResponse(tmpl))
}

// handleUpdateTemplate rewrites the template blueprint. The materialization
// watermark is scheduler state and survives the update untouched.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req templateRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	tmpl, err := s.repo.GetTemplate(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	tmpl.AccountID = req.AccountID
	tmpl.CategoryID = req.CategoryID
	tmpl.Kind = core.Kind(req.Kind)
	tmpl.Amount = req.Amount
	tmpl.Note = req.Note
	tmpl.Frequency = core.Frequency(req.Frequency)
	tmpl.StartDate = req.StartDate
	tmpl.EndDate = req.EndDate
	if err := tmpl.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.checkTemplateReferences(r, tmpl); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.repo.UpdateTemplate(r.Context(), tmpl); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "recurring template updated", toTemplateResponse(tmpl))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := s.repo.DeleteTemplate(r.Context(), ownerID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "recurring template deleted", nil)
}

// handleSweep runs one materialization pass. The body is optional; as_of
// defaults to today and dry_run to false.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	req := sweepRequest{AsOf: core.Today()}
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.AsOf.IsZero() {
		req.AsOf = core.Today()
	}

	report, err := s.scheduler.Sweep(r.Context(), req.AsOf, req.DryRun)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "sweep complete", report)
}

func (s *Server) checkTemplateReferences(r *http.Request, tmpl core.Template) error {
	if _, err := s.repo.GetAccount(r.Context(), tmpl.OwnerID, tmpl.AccountID); err != nil {
		return fmt.Errorf("account %s: %w", tmpl.AccountID, err)
	}
	if tmpl.CategoryID != "" {
		if _, err := s.repo.GetCategory(r.Context(), tmpl.OwnerID, tmpl.CategoryID); err != nil {
			return fmt.Errorf("category %s: %w", tmpl.CategoryID, err)
		}
	}
	return nil
}
