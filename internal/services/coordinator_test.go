package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

type testEnv struct {
	repo    *storage.SQLiteRepository
	coord   *Coordinator
	ledger  *LedgerService
	budgets *BudgetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	coord := NewCoordinator()
	return &testEnv{
		repo:    repo,
		coord:   coord,
		ledger:  NewLedgerService(repo, coord, nil),
		budgets: NewBudgetService(repo, coord),
	}
}

func (env *testEnv) account(t *testing.T, ownerID string, balanceCents int64) core.Account {
	t.Helper()
	a := core.Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      "Checking",
		Type:      core.AccountCurrent,
		Balance:   core.Money{Cents: balanceCents},
		CreatedAt: time.Now().UTC(),
	}
	if err := env.repo.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func (env *testEnv) category(t *testing.T, ownerID, name string) core.Category {
	t.Helper()
	c := core.Category{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Kind:      core.Expense,
		ColorHex:  "#000000",
		Icon:      "category",
		CreatedAt: time.Now().UTC(),
	}
	if err := env.repo.CreateCategory(context.Background(), c); err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func (env *testEnv) budget(t *testing.T, ownerID, categoryID string, amountCents int64, start, end core.Date) core.Budget {
	t.Helper()
	b, err := env.budgets.Create(context.Background(), core.Budget{
		OwnerID:    ownerID,
		CategoryID: categoryID,
		Amount:     core.Money{Cents: amountCents},
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	return b
}

func (env *testEnv) balanceCents(t *testing.T, ownerID, accountID string) int64 {
	t.Helper()
	a, err := env.repo.GetAccount(context.Background(), ownerID, accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance.Cents
}

func (env *testEnv) consumedCents(t *testing.T, ownerID, budgetID string) int64 {
	t.Helper()
	b, err := env.repo.GetBudget(context.Background(), ownerID, budgetID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	return b.CurrentExpense.Cents
}

// The walkthrough from the design scenarios: create an expense against a
// budgeted category, grow it, move it to another category, delete it. The
// account balance and both budget windows must track every step.
func TestLedgerMutationsKeepAggregatesConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "owner-1"
	day := core.NewDate(2024, 3, 15)
	window := func() (core.Date, core.Date) { return core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31) }

	acc := env.account(t, owner, 100000) // 1000.00
	groceries := env.category(t, owner, "Groceries")
	fun := env.category(t, owner, "Entertainment")
	start, end := window()
	groceriesBudget := env.budget(t, owner, groceries.ID, 50000, start, end)
	funBudget := env.budget(t, owner, fun.ID, 30000, start, end)

	// Create: 50.00 expense hits balance and the groceries budget
	entry, err := env.ledger.Create(ctx, core.Entry{
		OwnerID:    owner,
		AccountID:  acc.ID,
		CategoryID: groceries.ID,
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 5000},
		Note:       "weekly shop",
		Date:       day,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if got := env.balanceCents(t, owner, acc.ID); got != 95000 {
		t.Errorf("balance after create = %d, want 95000", got)
	}
	if got := env.consumedCents(t, owner, groceriesBudget.ID); got != 5000 {
		t.Errorf("groceries consumed after create = %d, want 5000", got)
	}

	// Update amount 50.00 -> 80.00, same account/category/date
	entry.Amount = core.Money{Cents: 8000}
	if entry, err = env.ledger.Update(ctx, entry); err != nil {
		t.Fatalf("update amount: %v", err)
	}
	if got := env.balanceCents(t, owner, acc.ID); got != 92000 {
		t.Errorf("balance after amount update = %d, want 92000", got)
	}
	if got := env.consumedCents(t, owner, groceriesBudget.ID); got != 8000 {
		t.Errorf("groceries consumed after amount update = %d, want 8000", got)
	}

	// Recategorize Groceries -> Entertainment: both budgets recomputed,
	// balance untouched
	entry.CategoryID = fun.ID
	if entry, err = env.ledger.Update(ctx, entry); err != nil {
		t.Fatalf("update category: %v", err)
	}
	if got := env.consumedCents(t, owner, groceriesBudget.ID); got != 0 {
		t.Errorf("groceries consumed after recategorize = %d, want 0", got)
	}
	if got := env.consumedCents(t, owner, funBudget.ID); got != 8000 {
		t.Errorf("entertainment consumed after recategorize = %d, want 8000", got)
	}
	if got := env.balanceCents(t, owner, acc.ID); got != 92000 {
		t.Errorf("balance after recategorize = %d, want 92000 (unchanged)", got)
	}

	// Delete: everything reverts
	if err := env.ledger.Delete(ctx, owner, entry.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if got := env.balanceCents(t, owner, acc.ID); got != 100000 {
		t.Errorf("balance after delete = %d, want 100000", got)
	}
	if got := env.consumedCents(t, owner, funBudget.ID); got != 0 {
		t.Errorf("entertainment consumed after delete = %d, want 0", got)
	}
}

// Deleting an account cascades its entries away; the budgets those expenses
// were counted in must be recomputed from what is left of the ledger, not
// left holding totals for rows that no longer exist.
func TestAccountDeleteReconcilesBudgets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "owner-1"

	doomed := env.account(t, owner, 100000)
	surviving := env.account(t, owner, 100000)
	cat := env.category(t, owner, "Groceries")
	budget := env.budget(t, owner, cat.ID, 50000, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))

	entry, err := env.ledger.Create(ctx, core.Entry{
		OwnerID:    owner,
		AccountID:  doomed.ID,
		CategoryID: cat.ID,
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 5000},
		Date:       core.NewDate(2024, 3, 15),
	})
	if err != nil {
		t.Fatalf("create entry on doomed account: %v", err)
	}
	if _, err := env.ledger.Create(ctx, core.Entry{
		OwnerID:    owner,
		AccountID:  surviving.ID,
		CategoryID: cat.ID,
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 3000},
		Date:       core.NewDate(2024, 3, 20),
	}); err != nil {
		t.Fatalf("create entry on surviving account: %v", err)
	}
	if got := env.consumedCents(t, owner, budget.ID); got != 8000 {
		t.Fatalf("consumed before account delete = %d, want 8000", got)
	}

	if err := env.ledger.DeleteAccount(ctx, owner, doomed.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, err := env.repo.GetEntry(ctx, owner, entry.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cascaded entry lookup error = %v, want ErrNotFound", err)
	}
	// Only the surviving account's 30.00 is still in the window
	if got := env.consumedCents(t, owner, budget.ID); got != 3000 {
		t.Errorf("consumed after account delete = %d, want 3000", got)
	}
	if got := env.balanceCents(t, owner, surviving.ID); got != 97000 {
		t.Errorf("surviving balance after delete = %d, want 97000 (untouched)", got)
	}

	// Deleting an unknown or already-deleted account stays a not-found
	if err := env.ledger.DeleteAccount(ctx, owner, doomed.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestUpdateMovesEntryAcrossAccounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "owner-1"

	first := env.account(t, owner, 50000)
	second := env.account(t, owner, 20000)

	entry, err := env.ledger.Create(ctx, core.Entry{
		OwnerID:   owner,
		AccountID: first.ID,
		Kind:      core.Expense,
		Amount:    core.Money{Cents: 10000},
		Date:      core.NewDate(2024, 3, 10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := env.balanceCents(t, owner, first.ID); got != 40000 {
		t.Fatalf("first balance = %d, want 40000", got)
	}

	// Move the expense to the second account and flip it to income
	entry.AccountID = second.ID
	entry.Kind = core.Income
	if _, err := env.ledger.Update(ctx, entry); err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := env.balanceCents(t, owner, first.ID); got != 50000 {
		t.Errorf("first balance after move = %d, want 50000 (restored)", got)
	}
	if got := env.balanceCents(t, owner, second.ID); got != 30000 {
		t.Errorf("second balance after move = %d, want 30000 (+100.00 income)", got)
	}
}

func TestUpdateMovesEntryAcrossBudgetWindowBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "owner-1"

	acc := env.account(t, owner, 0)
	cat := env.category(t, owner, "Groceries")
	march := env.budget(t, owner, cat.ID, 50000, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
	april := env.budget(t, owner, cat.ID, 50000, core.NewDate(2024, 4, 1), core.NewDate(2024, 4, 30))

	entry, err := env.ledger.Create(ctx, core.Entry{
		OwnerID:    owner,
		AccountID:  acc.ID,
		CategoryID: cat.ID,
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 2500},
		Date:       core.NewDate(2024, 3, 31),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := env.consumedCents(t, owner, march.ID); got != 2500 {
		t.Fatalf("march consumed = %d, want 2500", got)
	}

	// Nudge the date over the window boundary
	entry.Date = core.NewDate(2024, 4, 1)
	if _, err := env.ledger.Update(ctx, entry); err != nil {
		t.Fatalf("update date: %v", err)
	}

	if got := env.consumedCents(t, owner, march.ID); got != 0 {
		t.Errorf("march consumed after move = %d, want 0", got)
	}
	if got := env.consumedCents(t, owner, april.ID); got != 2500 {
		t.Errorf("april consumed after move = %d, want 2500", got)
	}
}

func TestOverlappingBudgetsAllRecomputed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "owner-1"

	acc := env.account(t, owner, 0)
	cat := env.category(t, owner, "Groceries")
	march := env.budget(t, owner, cat.ID, 50000, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
	q1 := env.budget(t, owner, cat.ID, 150000, core.NewDate(2024, 1, 1), core.NewDate(2024, 3, 31))

	if _, err := env.ledger.Create(ctx, core.Entry{
		OwnerID:    owner,
		AccountID:  acc.ID,
		CategoryID: cat.ID,
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 4200},
		Date:       core.NewDate(2024, 3, 15),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := env.consumedCents(t, owner, march.ID); got != 4200 {
		t.Errorf("march consumed = %d, want 4200", got)
	}
	if got := env.consumedCents(t, owner, q1.ID); got != 4200 {
		t.Errorf("q1 consumed = %d, want 4200", got)
	}
}

func TestBudgetCreatedAfterEntriesStartsConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "owner-1"

	acc := env.account(t, owner, 0)
	cat := env.category(t, owner, "Groceries")

	if _, err := env.ledger.Create(ctx, core.Entry{
		OwnerID:    owner,
		AccountID:  acc.ID,
		CategoryID: cat.ID,
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 9900},
		Date:       core.NewDate(2024, 3, 5),
	}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	// The budget arrives after the spending it covers
	b := env.budget(t, owner, cat.ID, 50000, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
	if b.CurrentExpense.Cents != 9900 {
		t.Errorf("fresh budget consumed = %d, want 9900", b.CurrentExpense.Cents)
	}
}

func TestMutationRollsBackAsAUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := "owner-1"

	acc := env.account(t, owner, 100000)
	cat := env.category(t, owner, "Groceries")
	budget := env.budget(t, owner, cat.ID, 50000, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))

	entry := core.Entry{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		AccountID:  acc.ID,
		CategoryID: cat.ID,
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 5000},
		Date:       core.NewDate(2024, 3, 15),
		CreatedAt:  time.Now().UTC(),
	}

	// The create path succeeds, then the transaction fails afterwards: the
	// ledger write, the balance delta and the budget recompute must all
	// vanish together.
	injected := errors.New("injected failure after aggregate updates")
	err := env.repo.InTx(ctx, func(q *storage.Queries) error {
		if err := env.ledger.ApplyCreate(ctx, q, entry); err != nil {
			t.Fatalf("apply create inside tx: %v", err)
		}
		return injected
	})
	if !errors.Is(err, injected) {
		t.Fatalf("InTx error = %v, want injected failure", err)
	}

	if _, err := env.repo.GetEntry(ctx, owner, entry.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("entry after rollback error = %v, want ErrNotFound", err)
	}
	if got := env.balanceCents(t, owner, acc.ID); got != 100000 {
		t.Errorf("balance after rollback = %d, want 100000", got)
	}
	if got := env.consumedCents(t, owner, budget.ID); got != 0 {
		t.Errorf("budget consumed after rollback = %d, want 0", got)
	}
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.account(t, "owner-1", 0)

	// Unknown account
	_, err := env.ledger.Create(ctx, core.Entry{
		OwnerID:   "owner-1",
		AccountID: uuid.NewString(),
		Kind:      core.Expense,
		Amount:    core.Money{Cents: 100},
		Date:      core.NewDate(2024, 3, 1),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown account error = %v, want ErrNotFound", err)
	}

	// Another owner's account is invisible, so the reference is rejected
	_, err = env.ledger.Create(ctx, core.Entry{
		OwnerID:   "owner-2",
		AccountID: acc.ID,
		Kind:      core.Expense,
		Amount:    core.Money{Cents: 100},
		Date:      core.NewDate(2024, 3, 1),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner account error = %v, want ErrNotFound", err)
	}

	// Rejected before any side effect: no entries exist for either owner
	for _, ownerID := range []string{"owner-1", "owner-2"} {
		entries, err := env.ledger.List(ctx, storage.EntryFilter{OwnerID: ownerID})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("owner %s has %d entries after rejected creates, want 0", ownerID, len(entries))
		}
	}
}
