package http

import (
	"time"

	"fintrack/internal/core"
)

// Request and response shapes for the JSON API. Money renders as a decimal
// string ("12.34") and dates as YYYY-MM-DD via the core types' marshallers.

type accountRequest struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Balance core.Money `json:"balance"`
}

type accountResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Balance   core.Money `json:"balance"`
	CreatedAt time.Time  `json:"created_at"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
}

type categoryRequest struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	ColorHex string `json:"color_hex"`
	Icon     string `json:"icon"`
}

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	ColorHex  string    `json:"color_hex,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      string(c.Kind),
		ColorHex:  c.ColorHex,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt,
	}
}

type entryRequest struct {
	AccountID  string     `json:"account_id"`
	CategoryID string     `json:"category_id"`
	Kind       string     `json:"kind"`
	Amount     core.Money `json:"amount"`
	Note       string     `json:"note"`
	Date       core.Date  `json:"date"`
}

type entryResponse struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	CategoryID string     `json:"category_id,omitempty"`
	Kind       string     `json:"kind"`
	Amount     core.Money `json:"amount"`
	Note       string     `json:"note,omitempty"`
	Date       core.Date  `json:"date"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		AccountID:  e.AccountID,
		CategoryID: e.CategoryID,
		Kind:       string(e.Kind),
		Amount:     e.Amount,
		Note:       e.Note,
		Date:       e.Date,
		CreatedAt:  e.CreatedAt,
	}
}

func toEntryResponses(entries []core.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

type budgetRequest struct {
	CategoryID string     `json:"category_id"`
	Amount     core.Money `json:"amount"`
	StartDate  core.Date  `json:"start_date"`
	EndDate    core.Date  `json:"end_date"`
}

type budgetResponse struct {
	ID             string     `json:"id"`
	CategoryID     string     `json:"category_id"`
	Amount         core.Money `json:"amount"`
	CurrentExpense core.Money `json:"current_expense"`
	Remaining      core.Money `json:"remaining"`
	StartDate      core.Date  `json:"start_date"`
	EndDate        core.Date  `json:"end_date"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:             b.ID,
		CategoryID:     b.CategoryID,
		Amount:         b.Amount,
		CurrentExpense: b.CurrentExpense,
		Remaining:      b.Remaining(),
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
		CreatedAt:      b.CreatedAt,
	}
}

type templateRequest struct {
	AccountID  string     `json:"account_id"`
	CategoryID string     `json:"category_id"`
	Kind       string     `json:"kind"`
	Amount     core.Money `json:"amount"`
	Note       string     `json:"note"`
	Frequency  string     `json:"frequency"`
	StartDate  core.Date  `json:"start_date"`
	EndDate    core.Date  `json:"end_date"`
}

type templateResponse struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"account_id"`
	CategoryID    string     `json:"category_id,omitempty"`
	Kind          string     `json:"kind"`
	Amount        core.Money `json:"amount"`
	Note          string     `json:"note,omitempty"`
	Frequency     string     `json:"frequency"`
	StartDate     core.Date  `json:"start_date"`
	EndDate       core.Date  `json:"end_date,omitempty"`
	LastProcessed core.Date  `json:"last_processed,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toTemplateResponse(t core.Template) templateResponse {
	return templateResponse{
		ID:            t.ID,
		AccountID:     t.AccountID,
		CategoryID:    t.CategoryID,
		Kind:          string(t.Kind),
		Amount:        t.Amount,
		Note:          t.Note,
		Frequency:     string(t.Frequency),
		StartDate:     t.StartDate,
		EndDate:       t.EndDate,
		LastProcessed: t.LastProcessed,
		CreatedAt:     t.CreatedAt,
	}
}

type sweepRequest struct {
	AsOf   core.Date `json:"as_of"`
	DryRun bool      `json:"dry_run"`
}
