package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

// BudgetService is the CRUD boundary for budgets. Creating or re-windowing
// a budget runs the coordinator's recompute in the same transaction, so a
// budget's stored consumed total matches its window query from the first
// moment it is visible.
type BudgetService struct {
	repo  *storage.SQLiteRepository
	coord *Coordinator
}

// NewBudgetService creates the service.
func NewBudgetService(repo *storage.SQLiteRepository, coord *Coordinator) *BudgetService {
	return &BudgetService{repo: repo, coord: coord}
}

// Create validates and persists a new budget, then recomputes its consumed
// total from the ledger inside the same transaction.
func (s *BudgetService) Create(ctx context.Context, budget core.Budget) (core.Budget, error) {
	budget.ID = uuid.NewString()
	budget.CreatedAt = time.Now().UTC()
	budget.CurrentExpense = core.Money{}
	if err := budget.Validate(); err != nil {
		return core.Budget{}, err
	}

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetCategory(ctx, budget.OwnerID, budget.CategoryID); err != nil {
			return fmt.Errorf("category %s: %w", budget.CategoryID, err)
		}
		if err := q.CreateBudget(ctx, budget); err != nil {
			return err
		}
		return s.coord.RecomputeBudget(ctx, q, budget)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return s.repo.GetBudget(ctx, budget.OwnerID, budget.ID)
}

// Update rewrites the budget's ceiling, category or window, and recomputes
// the consumed total against the new coordinates.
func (s *BudgetService) Update(ctx context.Context, updated core.Budget) (core.Budget, error) {
	if err := updated.Validate(); err != nil {
		return core.Budget{}, err
	}

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetBudget(ctx, updated.OwnerID, updated.ID)
		if err != nil {
			return err
		}
		updated.CreatedAt = current.CreatedAt
		if _, err := q.GetCategory(ctx, updated.OwnerID, updated.CategoryID); err != nil {
			return fmt.Errorf("category %s: %w", updated.CategoryID, err)
		}
		if err := q.UpdateBudget(ctx, updated); err != nil {
			return err
		}
		return s.coord.RecomputeBudget(ctx, q, updated)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return s.repo.GetBudget(ctx, updated.OwnerID, updated.ID)
}

// Delete removes a budget. No aggregate work: a budget is a derived view,
// deleting it affects nothing else.
func (s *BudgetService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.DeleteBudget(ctx, ownerID, id)
}

// Get fetches one budget.
func (s *BudgetService) Get(ctx context.Context, ownerID, id string) (core.Budget, error) {
	return s.repo.GetBudget(ctx, ownerID, id)
}

// List returns the owner's budgets.
func (s *BudgetService) List(ctx context.Context, ownerID string) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, ownerID)
}
