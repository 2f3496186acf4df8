package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

// LedgerService is the CRUD boundary for ledger entries. Every successful
// mutation runs the entry write and the coordinator's aggregate updates in
// one transaction, then publishes the committed mutation for read-side
// consumers. A coordinator failure rolls the ledger write back with it;
// there is no path that commits an entry while leaving an aggregate stale.
type LedgerService struct {
	repo   *storage.SQLiteRepository
	coord  *Coordinator
	events *amqp.Client
}

// NewLedgerService creates the service. events may be nil; mutations then
// commit without publishing.
func NewLedgerService(repo *storage.SQLiteRepository, coord *Coordinator, events *amqp.Client) *LedgerService {
	return &LedgerService{
		repo:   repo,
		coord:  coord,
		events: events,
	}
}

// Create validates and persists a new entry. ID and CreatedAt are assigned
// here; the caller provides owner, account, optional category, kind, amount,
// note and date.
func (s *LedgerService) Create(ctx context.Context, entry core.Entry) (core.Entry, error) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	if err := entry.Validate(); err != nil {
		return core.Entry{}, err
	}

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		return s.ApplyCreate(ctx, q, entry)
	})
	if err != nil {
		return core.Entry{}, err
	}

	s.emit(ctx, amqp.EventEntryCreated, entry)
	return entry, nil
}

// ApplyCreate performs the in-transaction part of a create: referential
// checks, the ledger insert, and the coordinator pass. Exposed so the
// scheduler can materialize template occurrences through the same path
// while adding its watermark update to the same transaction.
func (s *LedgerService) ApplyCreate(ctx context.Context, q *storage.Queries, entry core.Entry) error {
	if err := s.checkReferences(ctx, q, entry); err != nil {
		return err
	}
	if err := q.InsertEntry(ctx, entry); err != nil {
		return err
	}
	return s.coord.OnCreate(ctx, q, entry)
}

// Update rewrites an existing entry's mutable fields. The stored entry is
// read inside the transaction and handed to the coordinator together with
// the new state, so the revert/apply pass sees a consistent (old, new) pair
// with no shared scratch state between read and write.
func (s *LedgerService) Update(ctx context.Context, updated core.Entry) (core.Entry, error) {
	if err := updated.Validate(); err != nil {
		return core.Entry{}, err
	}

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		oldEntry, err := q.GetEntry(ctx, updated.OwnerID, updated.ID)
		if err != nil {
			return err
		}
		updated.CreatedAt = oldEntry.CreatedAt
		if err := s.checkReferences(ctx, q, updated); err != nil {
			return err
		}
		if err := q.UpdateEntry(ctx, updated); err != nil {
			return err
		}
		return s.coord.OnUpdate(ctx, q, oldEntry, updated)
	})
	if err != nil {
		return core.Entry{}, err
	}

	s.emit(ctx, amqp.EventEntryUpdated, updated)
	return updated, nil
}

// Delete removes an entry and reverts its aggregate effects in the same
// transaction. A failed revert keeps the entry: delete follows the same
// atomic-failure policy as create and update.
func (s *LedgerService) Delete(ctx context.Context, ownerID, id string) error {
	var deleted core.Entry
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		entry, err := q.GetEntry(ctx, ownerID, id)
		if err != nil {
			return err
		}
		deleted = entry
		if err := q.DeleteEntry(ctx, ownerID, id); err != nil {
			return err
		}
		return s.coord.OnDelete(ctx, q, entry)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, amqp.EventEntryDeleted, deleted)
	return nil
}

// DeleteAccount removes an account together with its cascaded entries and
// templates, then brings every budget those entries were counted in back in
// step with the shrunken ledger. The doomed entries are captured before the
// delete so the coordinator knows which budget windows to recompute after
// the cascade has fired; all of it runs in one transaction.
func (s *LedgerService) DeleteAccount(ctx context.Context, ownerID, id string) error {
	return s.repo.InTx(ctx, func(q *storage.Queries) error {
		removed, err := q.ListEntries(ctx, storage.EntryFilter{OwnerID: ownerID, AccountID: id})
		if err != nil {
			return err
		}
		if err := q.DeleteAccount(ctx, ownerID, id); err != nil {
			return err
		}
		return s.coord.OnAccountDelete(ctx, q, removed)
	})
}

// Get fetches one entry.
func (s *LedgerService) Get(ctx context.Context, ownerID, id string) (core.Entry, error) {
	return s.repo.GetEntry(ctx, ownerID, id)
}

// List returns entries matching the filter.
func (s *LedgerService) List(ctx context.Context, filter storage.EntryFilter) ([]core.Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

// checkReferences verifies the entry's account and category exist for the
// same owner. Owner-scoped lookups make a cross-owner reference land here
// as not-found, which rejects it without revealing other owners' ids.
func (s *LedgerService) checkReferences(ctx context.Context, q *storage.Queries, entry core.Entry) error {
	if _, err := q.GetAccount(ctx, entry.OwnerID, entry.AccountID); err != nil {
		return fmt.Errorf("account %s: %w", entry.AccountID, err)
	}
	if entry.CategoryID != "" {
		if _, err := q.GetCategory(ctx, entry.OwnerID, entry.CategoryID); err != nil {
			return fmt.Errorf("category %s: %w", entry.CategoryID, err)
		}
	}
	return nil
}

// emit publishes a committed mutation. Publishing is best-effort: the
// transaction is already committed, so a broker failure is logged rather
// than surfaced as a mutation failure.
func (s *LedgerService) emit(ctx context.Context, event string, entry core.Entry) {
	if s.events == nil {
		return
	}
	msg := amqp.NewEntryEventMessage(event, entry.ID, entry.OwnerID, entry.AccountID,
		entry.CategoryID, string(entry.Kind), entry.Amount.Cents, entry.Date.String())
	if err := s.events.PublishEntryEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", event,
			"entry_id", entry.ID,
			"error", err)
	}
}
