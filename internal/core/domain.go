package core

import (
	"strings"
	"time"
)

// Kind classifies a ledger entry as money in or money out.
type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Validate rejects anything but the two known kinds.
func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// AccountType mirrors the account types exposed by the API.
type AccountType string

const (
	AccountSavings AccountType = "savings"
	AccountCurrent AccountType = "current"
	AccountCredit  AccountType = "credit"
	AccountCash    AccountType = "cash"
	AccountOther   AccountType = "other"
)

// Validate rejects unknown account types.
func (t AccountType) Validate() error {
	switch t {
	case AccountSavings, AccountCurrent, AccountCredit, AccountCash, AccountOther:
		return nil
	default:
		return fieldError("invalid account type")
	}
}

// Frequency is the recurrence period of a template.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// IntervalDays returns the fixed-length interval between occurrences.
// Monthly and yearly are 30- and 365-day approximations, not calendar
// aware; a monthly template anchored on the 31st will drift.
func (f Frequency) IntervalDays() int {
	switch f {
	case Daily:
		return 1
	case Weekly:
		return 7
	case Monthly:
		return 30
	case Yearly:
		return 365
	default:
		return 0
	}
}

// Validate rejects unknown frequencies.
func (f Frequency) Validate() error {
	if f.IntervalDays() == 0 {
		return ErrInvalidFrequency
	}
	return nil
}

type (
	// Entry is one recorded income or expense transaction. Identity (ID) is
	// immutable; every other field may change on update, including the
	// account and category it points at.
	Entry struct {
		ID         string
		OwnerID    string
		AccountID  string
		CategoryID string // empty means uncategorized
		Kind       Kind
		Amount     Money
		Note       string
		Date       Date
		CreatedAt  time.Time
	}

	// Account carries the derived balance. Only the coordinator writes
	// Balance; everything else treats it as read-only.
	Account struct {
		ID        string
		OwnerID   string
		Name      string
		Type      AccountType
		Balance   Money
		CreatedAt time.Time
	}

	// Category labels entries and anchors budgets. Deleting a category
	// nulls the reference on entries and templates and removes its budgets.
	Category struct {
		ID        string
		OwnerID   string
		Name      string
		Kind      Kind
		ColorHex  string
		Icon      string
		CreatedAt time.Time
	}

	// Budget is a spending ceiling for one category over an inclusive date
	// window. CurrentExpense is a materialized view of the window query and
	// only the coordinator writes it.
	Budget struct {
		ID             string
		OwnerID        string
		CategoryID     string
		Amount         Money
		CurrentExpense Money
		StartDate      Date
		EndDate        Date
		CreatedAt      time.Time
	}

	// Template is a recurring entry blueprint. LastProcessed is the
	// materialization watermark; only the scheduler advances it.
	Template struct {
		ID            string
		OwnerID       string
		AccountID     string
		CategoryID    string // empty means uncategorized
		Kind          Kind
		Amount        Money
		Note          string
		Frequency     Frequency
		StartDate     Date
		EndDate       Date // zero means open-ended
		LastProcessed Date // zero means never materialized
		CreatedAt     time.Time
	}
)

// SignedCents is the entry's effect on its account balance: positive for
// income, negative for expense.
func (e Entry) SignedCents() int64 {
	if e.Kind == Income {
		return e.Amount.Cents
	}
	return -e.Amount.Cents
}

// Validate checks field shapes only. Referential checks (account and
// category existence and ownership) happen at the CRUD boundary.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" || strings.TrimSpace(e.AccountID) == "" {
		return fieldError("owner and account are required")
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Note) > 500 {
		return fieldError("note too long (max 500 characters)")
	}
	return nil
}

// Validate checks the account's own fields.
func (a Account) Validate() error {
	if strings.TrimSpace(a.OwnerID) == "" {
		return fieldError("owner is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return fieldError("name too long (max 100 characters)")
	}
	return a.Type.Validate()
}

// Validate checks the category's own fields.
func (c Category) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return fieldError("owner is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return fieldError("name too long (max 100 characters)")
	}
	return c.Kind.Validate()
}

// Remaining is the derived headroom: ceiling minus consumed. Never stored.
func (b Budget) Remaining() Money {
	return b.Amount.Sub(b.CurrentExpense)
}

// Validate checks the budget's own fields, including window ordering.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.OwnerID) == "" || strings.TrimSpace(b.CategoryID) == "" {
		return fieldError("owner and category are required")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if err := b.EndDate.Validate(); err != nil {
		return err
	}
	if !b.EndDate.OnOrAfter(b.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// Validate checks the template's own fields.
func (t Template) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" || strings.TrimSpace(t.AccountID) == "" {
		return fieldError("owner and account are required")
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Frequency.Validate(); err != nil {
		return err
	}
	if err := t.StartDate.Validate(); err != nil {
		return err
	}
	if !t.EndDate.IsZero() && !t.EndDate.OnOrAfter(t.StartDate) {
		return ErrEndBeforeStart
	}
	if len(t.Note) > 500 {
		return fieldError("note too long (max 500 characters)")
	}
	return nil
}
