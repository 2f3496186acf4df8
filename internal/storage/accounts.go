package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// CreateAccount inserts a new account row.
func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	const query = `
		INSERT INTO accounts (id, owner_id, name, type, balance_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, query,
		a.ID, a.OwnerID, a.Name, string(a.Type), a.Balance.Cents, a.CreatedAt.UTC())
	if err != nil {
		return translateErr(fmt.Errorf("create account: %w", err))
	}
	return nil
}

// GetAccount fetches one account scoped to its owner.
func (q *Queries) GetAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	const query = `
		SELECT id, owner_id, name, type, balance_cents, created_at
		FROM accounts WHERE id = ? AND owner_id = ?`
	return scanAccount(q.db.QueryRowContext(ctx, query, id, ownerID))
}

// ListAccounts returns every account for the owner, oldest first.
func (q *Queries) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	const query = `
		SELECT id, owner_id, name, type, balance_cents, created_at
		FROM accounts WHERE owner_id = ? ORDER BY created_at, id`
	rows, err := q.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, translateErr(fmt.Errorf("list accounts: %w", err))
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, translateErr(rows.Err())
}

// UpdateAccount changes the client-writable fields. Balance is deliberately
// excluded: only the coordinator writes it, via AdjustAccountBalance.
func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	const query = `UPDATE accounts SET name = ?, type = ? WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query, a.Name, string(a.Type), a.ID, a.OwnerID)
	if err != nil {
		return translateErr(fmt.Errorf("update account: %w", err))
	}
	return requireRow(res)
}

// DeleteAccount removes the account; its entries and templates cascade away
// with it.
func (q *Queries) DeleteAccount(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM accounts WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return translateErr(fmt.Errorf("delete account: %w", err))
	}
	return requireRow(res)
}

// AdjustAccountBalance applies a signed delta to the stored balance. The
// update is a single statement so the read-modify-write happens inside the
// database, never in application memory.
func (q *Queries) AdjustAccountBalance(ctx context.Context, accountID string, deltaCents int64) error {
	const query = `UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`
	res, err := q.db.ExecContext(ctx, query, deltaCents, accountID)
	if err != nil {
		return translateErr(fmt.Errorf("adjust balance: %w", err))
	}
	return requireRow(res)
}

// requireRow converts a zero-row update or delete into core.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr(err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row) (core.Account, error) {
	a, err := scanAccountRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	return a, err
}

func scanAccountRow(row rowScanner) (core.Account, error) {
	var (
		a       core.Account
		accType string
		cents   int64
		created time.Time
	)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &accType, &cents, &created); err != nil {
		return core.Account{}, translateErr(err)
	}
	a.Type = core.AccountType(accType)
	a.Balance = core.Money{Cents: cents}
	a.CreatedAt = created
	return a, nil
}
