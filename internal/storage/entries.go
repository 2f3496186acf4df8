package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// EntryFilter narrows ListEntries. OwnerID is required; everything else is
// optional. From/To bound the effective date inclusively.
type EntryFilter struct {
	OwnerID    string
	AccountID  string
	CategoryID string
	From       core.Date
	To         core.Date
}

// InsertEntry writes a new ledger entry row.
func (q *Queries) InsertEntry(ctx context.Context, e core.Entry) error {
	const query = `
		INSERT INTO entries (id, owner_id, account_id, category_id, kind,
			amount_cents, note, entry_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, query,
		e.ID, e.OwnerID, e.AccountID, nullable(e.CategoryID), string(e.Kind),
		e.Amount.Cents, e.Note, e.Date.String(), e.CreatedAt.UTC())
	if err != nil {
		return translateErr(fmt.Errorf("insert entry: %w", err))
	}
	return nil
}

// GetEntry fetches one entry scoped to its owner.
func (q *Queries) GetEntry(ctx context.Context, ownerID, id string) (core.Entry, error) {
	const query = entryColumns + ` WHERE id = ? AND owner_id = ?`
	e, err := scanEntryRow(q.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	return e, err
}

// ListEntries returns entries matching the filter, most recent date first.
func (q *Queries) ListEntries(ctx context.Context, f EntryFilter) ([]core.Entry, error) {
	var (
		conds = []string{"owner_id = ?"}
		args  = []any{f.OwnerID}
	)
	if f.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		conds = append(conds, "entry_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		conds = append(conds, "entry_date <= ?")
		args = append(args, f.To.String())
	}

	query := entryColumns + " WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY entry_date DESC, created_at DESC"
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(fmt.Errorf("list entries: %w", err))
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, translateErr(rows.Err())
}

// UpdateEntry rewrites every mutable field of the entry. Identity and
// creation time never change.
func (q *Queries) UpdateEntry(ctx context.Context, e core.Entry) error {
	const query = `
		UPDATE entries SET account_id = ?, category_id = ?, kind = ?,
			amount_cents = ?, note = ?, entry_date = ?
		WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query,
		e.AccountID, nullable(e.CategoryID), string(e.Kind),
		e.Amount.Cents, e.Note, e.Date.String(), e.ID, e.OwnerID)
	if err != nil {
		return translateErr(fmt.Errorf("update entry: %w", err))
	}
	return requireRow(res)
}

// DeleteEntry removes the entry row.
func (q *Queries) DeleteEntry(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM entries WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return translateErr(fmt.Errorf("delete entry: %w", err))
	}
	return requireRow(res)
}

// SumExpenseCents re-aggregates the expense total for one owner and category
// over an inclusive date window. This is the budget recompute source query.
func (q *Queries) SumExpenseCents(ctx context.Context, ownerID, categoryID string, from, to core.Date) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM entries
		WHERE owner_id = ? AND category_id = ? AND kind = 'expense'
			AND entry_date >= ? AND entry_date <= ?`
	var total int64
	err := q.db.QueryRowContext(ctx, query,
		ownerID, categoryID, from.String(), to.String()).Scan(&total)
	if err != nil {
		return 0, translateErr(fmt.Errorf("sum expenses: %w", err))
	}
	return total, nil
}

const entryColumns = `
	SELECT id, owner_id, account_id, category_id, kind, amount_cents, note,
		entry_date, created_at
	FROM entries`

func scanEntryRow(row rowScanner) (core.Entry, error) {
	var (
		e        core.Entry
		category sql.NullString
		kind     string
		cents    int64
		dateStr  string
		created  time.Time
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.AccountID, &category, &kind,
		&cents, &e.Note, &dateStr, &created); err != nil {
		return core.Entry{}, translateErr(err)
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %s: bad date %q", e.ID, dateStr)
	}
	e.CategoryID = category.String
	e.Kind = core.Kind(kind)
	e.Amount = core.Money{Cents: cents}
	e.Date = date
	e.CreatedAt = created
	return e, nil
}

// nullable maps an empty id to NULL so foreign keys stay meaningful.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
