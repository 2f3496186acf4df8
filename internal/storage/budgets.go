package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// CreateBudget inserts a new budget row. CurrentExpense is written as given;
// the coordinator recomputes it immediately after within the same
// transaction so the stored value never drifts from the window query.
func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	const query = `
		INSERT INTO budgets (id, owner_id, category_id, amount_cents,
			current_expense_cents, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, query,
		b.ID, b.OwnerID, b.CategoryID, b.Amount.Cents, b.CurrentExpense.Cents,
		b.StartDate.String(), b.EndDate.String(), b.CreatedAt.UTC())
	if err != nil {
		return translateErr(fmt.Errorf("create budget: %w", err))
	}
	return nil
}

// GetBudget fetches one budget scoped to its owner.
func (q *Queries) GetBudget(ctx context.Context, ownerID, id string) (core.Budget, error) {
	const query = budgetColumns + ` WHERE id = ? AND owner_id = ?`
	b, err := scanBudgetRow(q.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	return b, err
}

// ListBudgets returns every budget for the owner, newest window first.
func (q *Queries) ListBudgets(ctx context.Context, ownerID string) ([]core.Budget, error) {
	const query = budgetColumns + ` WHERE owner_id = ? ORDER BY start_date DESC, id`
	return q.queryBudgets(ctx, query, ownerID)
}

// ListBudgetsCovering returns every budget for the owner and category whose
// inclusive window contains the given date. This is the fan-out query the
// coordinator uses: overlapping windows on the same category all match.
func (q *Queries) ListBudgetsCovering(ctx context.Context, ownerID, categoryID string, date core.Date) ([]core.Budget, error) {
	const query = budgetColumns + `
		WHERE owner_id = ? AND category_id = ? AND start_date <= ? AND end_date >= ?`
	return q.queryBudgets(ctx, query, ownerID, categoryID, date.String(), date.String())
}

// UpdateBudget changes the client-writable fields. CurrentExpense is
// excluded here; SetBudgetCurrentExpense is the coordinator's write path.
func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	const query = `
		UPDATE budgets SET category_id = ?, amount_cents = ?, start_date = ?, end_date = ?
		WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query,
		b.CategoryID, b.Amount.Cents, b.StartDate.String(), b.EndDate.String(), b.ID, b.OwnerID)
	if err != nil {
		return translateErr(fmt.Errorf("update budget: %w", err))
	}
	return requireRow(res)
}

// SetBudgetCurrentExpense writes a freshly recomputed consumed total.
func (q *Queries) SetBudgetCurrentExpense(ctx context.Context, id string, cents int64) error {
	const query = `UPDATE budgets SET current_expense_cents = ? WHERE id = ?`
	res, err := q.db.ExecContext(ctx, query, cents, id)
	if err != nil {
		return translateErr(fmt.Errorf("set budget current expense: %w", err))
	}
	return requireRow(res)
}

// DeleteBudget removes the budget.
func (q *Queries) DeleteBudget(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM budgets WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return translateErr(fmt.Errorf("delete budget: %w", err))
	}
	return requireRow(res)
}

const budgetColumns = `
	SELECT id, owner_id, category_id, amount_cents, current_expense_cents,
		start_date, end_date, created_at
	FROM budgets`

func (q *Queries) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(fmt.Errorf("query budgets: %w", err))
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudgetRow(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, translateErr(rows.Err())
}

func scanBudgetRow(row rowScanner) (core.Budget, error) {
	var (
		b                core.Budget
		amountCents      int64
		expenseCents     int64
		startStr, endStr string
		created          time.Time
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &b.CategoryID, &amountCents, &expenseCents,
		&startStr, &endStr, &created); err != nil {
		return core.Budget{}, translateErr(err)
	}
	start, err := core.ParseDate(startStr)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s: bad start date %q", b.ID, startStr)
	}
	end, err := core.ParseDate(endStr)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s: bad end date %q", b.ID, endStr)
	}
	b.Amount = core.Money{Cents: amountCents}
	b.CurrentExpense = core.Money{Cents: expenseCents}
	b.StartDate = start
	b.EndDate = end
	b.CreatedAt = created
	return b, nil
}
