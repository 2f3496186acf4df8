// Package services carries the business logic: the consistency coordinator
// that keeps account balances and budget windows in step with the ledger,
// the ledger CRUD boundary, and the recurring-template scheduler.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Coordinator reacts to ledger mutations and updates exactly the aggregates
// they affect: the owning account's balance and every budget whose category
// and window match. Every method must be called inside the same transaction
// as the ledger write itself; an error from any of them is the caller's cue
// to roll the whole mutation back.
//
// Balances are maintained by signed delta; budgets are always recomputed
// from a full window query. The asymmetry is deliberate: an edit to one
// entry can change which budgets match in ways an incremental counter
// cannot track safely, while an account's balance is only ever touched by
// its own entries.
type Coordinator struct{}

// NewCoordinator creates a Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// OnCreate applies a freshly inserted entry: its signed amount lands on the
// account balance, and any budget covering a categorized expense is
// recomputed.
func (c *Coordinator) OnCreate(ctx context.Context, q *storage.Queries, entry core.Entry) error {
	if err := c.adjustBalance(ctx, q, entry.AccountID, entry.SignedCents()); err != nil {
		return err
	}
	return c.recomputeBudgetsFor(ctx, q, entry)
}

// OnUpdate treats the mutation as revert-old-then-apply-new rather than a
// delta, because the update may move the entry to a different account,
// category, kind, amount or date all at once. Budgets matching the old
// coordinates and budgets matching the new ones are both recomputed; the
// two sets may be disjoint, overlapping or identical, and recomputing from
// the source query makes the overlap harmless.
func (c *Coordinator) OnUpdate(ctx context.Context, q *storage.Queries, oldEntry, newEntry core.Entry) error {
	if err := c.adjustBalance(ctx, q, oldEntry.AccountID, -oldEntry.SignedCents()); err != nil {
		return err
	}
	if err := c.adjustBalance(ctx, q, newEntry.AccountID, newEntry.SignedCents()); err != nil {
		return err
	}
	if err := c.recomputeBudgetsFor(ctx, q, oldEntry); err != nil {
		return err
	}
	return c.recomputeBudgetsFor(ctx, q, newEntry)
}

// OnDelete reverts the entry's balance effect and recomputes any budget the
// entry had been counting toward.
func (c *Coordinator) OnDelete(ctx context.Context, q *storage.Queries, entry core.Entry) error {
	if err := c.adjustBalance(ctx, q, entry.AccountID, -entry.SignedCents()); err != nil {
		return err
	}
	return c.recomputeBudgetsFor(ctx, q, entry)
}

// OnAccountDelete reconciles budgets after an account and its entries are
// removed. There is no balance work: the account row, and with it the
// aggregate, is already gone. Each removed categorized expense still has to
// be subtracted from the budgets it was counted in, which the full-window
// recompute does by re-summing the remaining ledger. Overlapping entries
// recompute the same budget more than once; the recompute is idempotent, so
// the repetition only costs a query.
func (c *Coordinator) OnAccountDelete(ctx context.Context, q *storage.Queries, removed []core.Entry) error {
	for _, entry := range removed {
		if err := c.recomputeBudgetsFor(ctx, q, entry); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeBudget re-derives one budget's consumed total from the ledger
// and stores it. Also used by the budget CRUD boundary so a freshly created
// or re-windowed budget starts consistent instead of at zero.
func (c *Coordinator) RecomputeBudget(ctx context.Context, q *storage.Queries, budget core.Budget) error {
	total, err := q.SumExpenseCents(ctx, budget.OwnerID, budget.CategoryID, budget.StartDate, budget.EndDate)
	if err != nil {
		return fmt.Errorf("%w: resum budget %s: %v", core.ErrConsistency, budget.ID, err)
	}
	if err := q.SetBudgetCurrentExpense(ctx, budget.ID, total); err != nil {
		return fmt.Errorf("%w: store budget %s: %v", core.ErrConsistency, budget.ID, err)
	}
	if total != budget.CurrentExpense.Cents {
		slog.DebugContext(ctx, "Budget window recomputed",
			"budget_id", budget.ID,
			"category_id", budget.CategoryID,
			"previous_cents", budget.CurrentExpense.Cents,
			"current_cents", total)
	}
	return nil
}

// recomputeBudgetsFor recomputes every budget the entry's coordinates
// touch. Only categorized expenses consume budgets; income and
// uncategorized entries have no budget effect.
func (c *Coordinator) recomputeBudgetsFor(ctx context.Context, q *storage.Queries, entry core.Entry) error {
	if entry.Kind != core.Expense || entry.CategoryID == "" {
		return nil
	}
	budgets, err := q.ListBudgetsCovering(ctx, entry.OwnerID, entry.CategoryID, entry.Date)
	if err != nil {
		return fmt.Errorf("%w: find budgets for category %s: %v",
			core.ErrConsistency, entry.CategoryID, err)
	}
	for _, budget := range budgets {
		if err := c.RecomputeBudget(ctx, q, budget); err != nil {
			return err
		}
	}
	return nil
}

// adjustBalance applies a signed delta to an account balance. A missing
// account is a consistency failure, not a not-found: the ledger row we are
// processing claims the account exists.
func (c *Coordinator) adjustBalance(ctx context.Context, q *storage.Queries, accountID string, deltaCents int64) error {
	if deltaCents == 0 {
		return nil
	}
	if err := q.AdjustAccountBalance(ctx, accountID, deltaCents); err != nil {
		return fmt.Errorf("%w: adjust account %s by %d cents: %v",
			core.ErrConsistency, accountID, deltaCents, err)
	}
	return nil
}
