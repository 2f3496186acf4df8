package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

// generatedNote marks entries materialized from a recurring template.
const generatedNote = "(auto-generated from recurring template)"

// SweepStatus is the per-template outcome of one sweep.
type SweepStatus string

const (
	StatusProcessed    SweepStatus = "processed"
	StatusWouldProcess SweepStatus = "would_process"
	StatusSkipped      SweepStatus = "skipped"
	StatusFailed       SweepStatus = "failed"
)

// SweepResult reports what happened to one template.
type SweepResult struct {
	TemplateID string      `json:"template_id"`
	OwnerID    string      `json:"owner_id"`
	Status     SweepStatus `json:"status"`
	Reason     string      `json:"reason,omitempty"`
	EntryID    string      `json:"entry_id,omitempty"`
}

// SweepReport is the outcome of one full sweep.
type SweepReport struct {
	AsOf      core.Date     `json:"as_of"`
	DryRun    bool          `json:"dry_run"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Results   []SweepResult `json:"results"`
}

// Scheduler materializes due recurring templates into ledger entries. Each
// materialization goes through the ledger service's create path, so the
// coordinator maintains balances and budgets for generated entries exactly
// as it does for user-created ones; the template watermark advances in the
// same transaction as the entry insert.
type Scheduler struct {
	repo   *storage.SQLiteRepository
	ledger *LedgerService

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewScheduler creates a Scheduler.
func NewScheduler(repo *storage.SQLiteRepository, ledger *LedgerService) *Scheduler {
	return &Scheduler{
		repo:     repo,
		ledger:   ledger,
		inFlight: make(map[string]struct{}),
	}
}

// ShouldProcess decides whether a template is due at asOf. A never-processed
// template is due once asOf reaches its start date; afterwards the next
// occurrence is the watermark plus the frequency's fixed-length interval
// (1, 7, 30 or 365 days — monthly and yearly are approximations, not
// calendar arithmetic).
func ShouldProcess(t core.Template, asOf core.Date) bool {
	if t.LastProcessed.IsZero() {
		return asOf.OnOrAfter(t.StartDate)
	}
	nextDue := t.LastProcessed.AddDays(t.Frequency.IntervalDays())
	return asOf.OnOrAfter(nextDue)
}

// Sweep materializes every due template once. dryRun computes the same
// due-set decisions without writing entries or watermarks. One template's
// failure is reported in its result row and does not abort the sweep; its
// watermark stays put, so the occurrence is retried on the next sweep.
func (s *Scheduler) Sweep(ctx context.Context, asOf core.Date, dryRun bool) (SweepReport, error) {
	report := SweepReport{AsOf: asOf, DryRun: dryRun}

	templates, err := s.repo.ListActiveTemplates(ctx, asOf)
	if err != nil {
		return report, err
	}

	slog.InfoContext(ctx, "Sweeping recurring templates",
		"as_of", asOf.String(),
		"dry_run", dryRun,
		"candidates", len(templates))

	for _, tmpl := range templates {
		result := s.sweepOne(ctx, tmpl, asOf, dryRun)
		report.Results = append(report.Results, result)
		switch result.Status {
		case StatusProcessed, StatusWouldProcess:
			report.Processed++
		case StatusSkipped:
			report.Skipped++
		case StatusFailed:
			report.Failed++
		}
	}

	slog.InfoContext(ctx, "Recurring sweep complete",
		"as_of", asOf.String(),
		"dry_run", dryRun,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

func (s *Scheduler) sweepOne(ctx context.Context, tmpl core.Template, asOf core.Date, dryRun bool) SweepResult {
	result := SweepResult{TemplateID: tmpl.ID, OwnerID: tmpl.OwnerID}

	// A template still being materialized by an overlapping sweep is
	// skipped, never processed twice.
	if !s.claim(tmpl.ID) {
		result.Status = StatusSkipped
		result.Reason = "materialization already in flight"
		return result
	}
	defer s.release(tmpl.ID)

	if !ShouldProcess(tmpl, asOf) {
		result.Status = StatusSkipped
		if tmpl.LastProcessed.IsZero() {
			result.Reason = "not due: starts " + tmpl.StartDate.String()
		} else {
			result.Reason = "not due: next occurrence " +
				tmpl.LastProcessed.AddDays(tmpl.Frequency.IntervalDays()).String()
		}
		return result
	}

	if dryRun {
		result.Status = StatusWouldProcess
		return result
	}

	entry := s.buildEntry(tmpl, asOf)
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if err := s.ledger.ApplyCreate(ctx, q, entry); err != nil {
			return err
		}
		return q.SetTemplateLastProcessed(ctx, tmpl.ID, asOf)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to materialize recurring template",
			"template_id", tmpl.ID,
			"as_of", asOf.String(),
			"error", err)
		result.Status = StatusFailed
		result.Reason = err.Error()
		return result
	}

	s.ledger.emit(ctx, amqp.EventEntryCreated, entry)

	slog.InfoContext(ctx, "Materialized recurring template",
		"template_id", tmpl.ID,
		"entry_id", entry.ID,
		"amount_cents", entry.Amount.Cents,
		"frequency", string(tmpl.Frequency))
	result.Status = StatusProcessed
	result.EntryID = entry.ID
	return result
}

// buildEntry constructs the concrete ledger entry for one due occurrence,
// effective at asOf and carrying the generated-entry marker in its note.
func (s *Scheduler) buildEntry(tmpl core.Template, asOf core.Date) core.Entry {
	note := strings.TrimSpace(tmpl.Note + " " + generatedNote)
	return core.Entry{
		ID:         uuid.NewString(),
		OwnerID:    tmpl.OwnerID,
		AccountID:  tmpl.AccountID,
		CategoryID: tmpl.CategoryID,
		Kind:       tmpl.Kind,
		Amount:     tmpl.Amount,
		Note:       note,
		Date:       asOf,
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *Scheduler) claim(templateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[templateID]; busy {
		return false
	}
	s.inFlight[templateID] = struct{}{}
	return true
}

func (s *Scheduler) release(templateID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, templateID)
}
