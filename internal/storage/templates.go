package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// CreateTemplate inserts a new recurring template row.
func (q *Queries) CreateTemplate(ctx context.Context, t core.Template) error {
	const query = `
		INSERT INTO recurring_templates (id, owner_id, account_id, category_id,
			kind, amount_cents, note, frequency, start_date, end_date,
			last_processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, query,
		t.ID, t.OwnerID, t.AccountID, nullable(t.CategoryID), string(t.Kind),
		t.Amount.Cents, t.Note, string(t.Frequency), t.StartDate.String(),
		nullableDate(t.EndDate), nullableDate(t.LastProcessed), t.CreatedAt.UTC())
	if err != nil {
		return translateErr(fmt.Errorf("create template: %w", err))
	}
	return nil
}

// GetTemplate fetches one template scoped to its owner.
func (q *Queries) GetTemplate(ctx context.Context, ownerID, id string) (core.Template, error) {
	const query = templateColumns + ` WHERE id = ? AND owner_id = ?`
	t, err := scanTemplateRow(q.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Template{}, core.ErrNotFound
	}
	return t, err
}

// ListTemplates returns every template for the owner.
func (q *Queries) ListTemplates(ctx context.Context, ownerID string) ([]core.Template, error) {
	const query = templateColumns + ` WHERE owner_id = ? ORDER BY created_at, id`
	return q.queryTemplates(ctx, query, ownerID)
}

// ListActiveTemplates returns every template, across owners, whose lifetime
// covers asOf: started on or before it and not yet ended. This is the
// scheduler's candidate set.
func (q *Queries) ListActiveTemplates(ctx context.Context, asOf core.Date) ([]core.Template, error) {
	const query = templateColumns + `
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY created_at, id`
	return q.queryTemplates(ctx, query, asOf.String(), asOf.String())
}

// UpdateTemplate rewrites the owner-editable fields. The watermark is
// excluded: only the scheduler advances it, via SetTemplateLastProcessed.
func (q *Queries) UpdateTemplate(ctx context.Context, t core.Template) error {
	const query = `
		UPDATE recurring_templates SET account_id = ?, category_id = ?, kind = ?,
			amount_cents = ?, note = ?, frequency = ?, start_date = ?, end_date = ?
		WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query,
		t.AccountID, nullable(t.CategoryID), string(t.Kind), t.Amount.Cents,
		t.Note, string(t.Frequency), t.StartDate.String(), nullableDate(t.EndDate),
		t.ID, t.OwnerID)
	if err != nil {
		return translateErr(fmt.Errorf("update template: %w", err))
	}
	return requireRow(res)
}

// DeleteTemplate removes the template.
func (q *Queries) DeleteTemplate(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM recurring_templates WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return translateErr(fmt.Errorf("delete template: %w", err))
	}
	return requireRow(res)
}

// SetTemplateLastProcessed advances the materialization watermark. The guard
// keeps it monotonic: a stale writer racing a newer sweep affects zero rows
// and gets core.ErrConflict instead of rewinding the watermark.
func (q *Queries) SetTemplateLastProcessed(ctx context.Context, id string, processed core.Date) error {
	const query = `
		UPDATE recurring_templates SET last_processed = ?
		WHERE id = ? AND (last_processed IS NULL OR last_processed < ?)`
	res, err := q.db.ExecContext(ctx, query, processed.String(), id, processed.String())
	if err != nil {
		return translateErr(fmt.Errorf("set last processed: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: watermark for template %s already at or past %s",
			core.ErrConflict, id, processed)
	}
	return nil
}

const templateColumns = `
	SELECT id, owner_id, account_id, category_id, kind, amount_cents, note,
		frequency, start_date, end_date, last_processed, created_at
	FROM recurring_templates`

func (q *Queries) queryTemplates(ctx context.Context, query string, args ...any) ([]core.Template, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(fmt.Errorf("query templates: %w", err))
	}
	defer rows.Close()

	var templates []core.Template
	for rows.Next() {
		t, err := scanTemplateRow(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, translateErr(rows.Err())
}

func scanTemplateRow(row rowScanner) (core.Template, error) {
	var (
		t            core.Template
		category     sql.NullString
		kind, freq   string
		cents        int64
		startStr     string
		endStr       sql.NullString
		processedStr sql.NullString
		created      time.Time
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.AccountID, &category, &kind,
		&cents, &t.Note, &freq, &startStr, &endStr, &processedStr, &created); err != nil {
		return core.Template{}, translateErr(err)
	}
	start, err := core.ParseDate(startStr)
	if err != nil {
		return core.Template{}, fmt.Errorf("template %s: bad start date %q", t.ID, startStr)
	}
	t.CategoryID = category.String
	t.Kind = core.Kind(kind)
	t.Amount = core.Money{Cents: cents}
	t.Frequency = core.Frequency(freq)
	t.StartDate = start
	t.CreatedAt = created
	if t.EndDate, err = parseNullDate(endStr); err != nil {
		return core.Template{}, fmt.Errorf("template %s: bad end date %q", t.ID, endStr.String)
	}
	if t.LastProcessed, err = parseNullDate(processedStr); err != nil {
		return core.Template{}, fmt.Errorf("template %s: bad last processed %q", t.ID, processedStr.String)
	}
	return t, nil
}

func nullableDate(d core.Date) sql.NullString {
	return sql.NullString{String: d.String(), Valid: !d.IsZero()}
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}
