package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/expense/split"
	"github.com/fkhayef/splitledger/internal/money"
)

// Split is the resolved obligation of one participant for one expense.
// Splits belong to the expense that produced them and never change.
type Split struct {
	UserID     int64            `json:"user_id"`
	Amount     money.Money      `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Shares     *int64           `json:"shares,omitempty"`
}

// Expense is one immutable revision of a shared expense.
//
// Edits append a new Expense whose ReplacesID names the revision it
// supersedes; deletes append a Void revision without splits.
type Expense struct {
	ID          int64           `json:"id"`
	Ref         uuid.UUID       `json:"ref"`
	GroupID     *int64          `json:"group_id,omitempty"`
	PaidBy      int64           `json:"paid_by"`
	Description string          `json:"description"`
	Total       money.Money     `json:"total"`
	Date        time.Time       `json:"date"`
	SplitType   split.SplitType `json:"split_type"`
	Splits      []Split         `json:"splits"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	ReplacesID  *int64          `json:"replaces_id,omitempty"`
	Void        bool            `json:"void"`
	CreatedBy   int64           `json:"created_by"`
	PrevHash    string          `json:"prev_hash"`
	ContentHash string          `json:"content_hash"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Involves reports whether userID paid for or shares in the expense.
func (e *Expense) Involves(userID int64) bool {
	if e.PaidBy == userID {
		return true
	}
	for _, s := range e.Splits {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// InGroup reports whether the expense belongs to groupID.
func (e *Expense) InGroup(groupID int64) bool {
	return e.GroupID != nil && *e.GroupID == groupID
}

// Filter selects expenses from the event source.
type Filter struct {
	UserID         *int64
	GroupID        *int64
	From           *time.Time // inclusive, by expense date
	To             *time.Time // inclusive, by expense date
	Currency       string
	IncludeHistory bool // include replaced revisions and voids
	Limit          int
	Offset         int
}

type chainSplit struct {
	UserID     int64  `json:"user_id"`
	Amount     int64  `json:"amount"`
	Percentage string `json:"percentage,omitempty"`
	Shares     *int64 `json:"shares,omitempty"`
}

type chainPayload struct {
	Ref         string       `json:"ref"`
	GroupID     *int64       `json:"group_id"`
	PaidBy      int64        `json:"paid_by"`
	Description string       `json:"description"`
	Amount      int64        `json:"amount"`
	Currency    string       `json:"currency"`
	Date        string       `json:"date"`
	SplitType   string       `json:"split_type"`
	CategoryID  *int64       `json:"category_id"`
	Notes       *string      `json:"notes"`
	ReplacesID  *int64       `json:"replaces_id"`
	Void        bool         `json:"void"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   string       `json:"created_at"`
	Splits      []chainSplit `json:"splits"`
}

// ChainPayload is the content covered by the expense's hash-chain entry.
func (e *Expense) ChainPayload() any {
	splits := make([]chainSplit, len(e.Splits))
	for i, s := range e.Splits {
		cs := chainSplit{UserID: s.UserID, Amount: s.Amount.Amount, Shares: s.Shares}
		if s.Percentage != nil {
			cs.Percentage = s.Percentage.String()
		}
		splits[i] = cs
	}
	return chainPayload{
		Ref:         e.Ref.String(),
		GroupID:     e.GroupID,
		PaidBy:      e.PaidBy,
		Description: e.Description,
		Amount:      e.Total.Amount,
		Currency:    e.Total.Currency,
		Date:        e.Date.Format(time.DateOnly),
		SplitType:   string(e.SplitType),
		CategoryID:  e.CategoryID,
		Notes:       e.Notes,
		ReplacesID:  e.ReplacesID,
		Void:        e.Void,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339Nano),
		Splits:      splits,
	}
}
