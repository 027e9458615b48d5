package expense

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/expense/split"
	"github.com/fkhayef/splitledger/internal/money"
)

// ParticipantRequest is one participant of a create/revise request.
// Amounts are major-unit decimals ("12.34") in the expense currency.
type ParticipantRequest struct {
	UserID     int64            `json:"user_id"`
	Amount     *decimal.Decimal `json:"amount,omitempty" swaggertype:"string"`     // exact
	Percentage *decimal.Decimal `json:"percentage,omitempty" swaggertype:"string"` // percentage
	Shares     *int64           `json:"shares,omitempty"`                          // shares
	Adjustment *decimal.Decimal `json:"adjustment,omitempty" swaggertype:"string"` // adjustment, signed
}

// ItemRequest is one line item of an itemized expense.
type ItemRequest struct {
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string"`
	UserIDs     []int64         `json:"user_ids"`
}

// CreateExpenseRequest represents the request to create (or revise) an expense
type CreateExpenseRequest struct {
	GroupID      *int64               `json:"group_id,omitempty"`
	Description  string               `json:"description"`
	Amount       decimal.Decimal      `json:"amount" swaggertype:"string"`
	Currency     string               `json:"currency"`
	Date         string               `json:"date,omitempty"` // YYYY-MM-DD, defaults to today (UTC)
	PaidBy       int64                `json:"paid_by"`
	SplitType    string               `json:"split_type"`
	Participants []ParticipantRequest `json:"participants"`
	ReimburseeID int64                `json:"reimbursee_id,omitempty"`
	Items        []ItemRequest        `json:"items,omitempty"`
	CategoryID   *int64               `json:"category_id,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
}

// VoidExpenseRequest represents the request to void an expense
type VoidExpenseRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ToCandidate converts major-unit request amounts into a validator candidate.
func (r *CreateExpenseRequest) ToCandidate() (Candidate, error) {
	currency := strings.TrimSpace(r.Currency)
	total, err := toMinor(r.Amount, currency)
	if err != nil {
		return Candidate{}, err
	}

	minor := func(d *decimal.Decimal) (*int64, error) {
		if d == nil {
			return nil, nil
		}
		m, err := toMinor(*d, currency)
		if err != nil {
			return nil, err
		}
		return &m.Amount, nil
	}

	c := Candidate{
		Description:  r.Description,
		Total:        total,
		PaidBy:       r.PaidBy,
		SplitType:    split.SplitType(strings.ToLower(strings.TrimSpace(r.SplitType))),
		ReimburseeID: r.ReimburseeID,
		Participants: make([]split.SplitInput, len(r.Participants)),
	}
	for i, p := range r.Participants {
		in := split.SplitInput{UserID: p.UserID, Percentage: p.Percentage, Shares: p.Shares}
		if err := checkPercentage(p.Percentage); err != nil {
			return Candidate{}, err
		}
		if in.Amount, err = minor(p.Amount); err != nil {
			return Candidate{}, err
		}
		if in.Adjustment, err = minor(p.Adjustment); err != nil {
			return Candidate{}, err
		}
		c.Participants[i] = in
	}
	for _, item := range r.Items {
		amount, err := toMinor(item.Amount, currency)
		if err != nil {
			return Candidate{}, err
		}
		c.Items = append(c.Items, split.Item{Description: item.Description, Amount: amount.Amount, UserIDs: item.UserIDs})
	}
	return c, nil
}

// toMinor converts a major-unit amount. Unrecognised currencies convert at
// two decimals so the validator can report them in its own check order.
func toMinor(d decimal.Decimal, currency string) (money.Money, error) {
	if money.IsRecognized(currency) {
		return money.FromDecimal(d, currency)
	}
	if err := money.CheckExponent(d); err != nil {
		return money.Money{}, err
	}
	shifted := d.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) || shifted.Abs().GreaterThan(maxMinor) {
		return money.Money{}, apperr.Newf(apperr.CodeInvalidInput, "amount %s is not a valid amount", d.String())
	}
	return money.New(shifted.IntPart(), currency), nil
}

var maxMinor = decimal.NewFromInt(money.MaxAmount)

// maxPercentageDigits is the finest percentage accepted, 0.0001%.
const maxPercentageDigits = 4

func checkPercentage(p *decimal.Decimal) error {
	if p == nil {
		return nil
	}
	if err := money.CheckExponent(*p); err != nil {
		return err
	}
	if !p.Equal(p.Truncate(maxPercentageDigits)) {
		return apperr.Newf(apperr.CodeInvalidInput, "percentage %s has more than %d decimal places", p.String(), maxPercentageDigits)
	}
	return nil
}

// ParseDate parses the request date, defaulting to today's date in UTC.
func (r *CreateExpenseRequest) ParseDate(now time.Time) (time.Time, error) {
	if strings.TrimSpace(r.Date) == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return time.Time{}, apperr.Newf(apperr.CodeInvalidInput, "date %q must be formatted YYYY-MM-DD", r.Date)
	}
	return date, nil
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID          int64            `json:"id"`
	Ref         string           `json:"ref"`
	GroupID     *int64           `json:"group_id,omitempty"`
	PaidBy      int64            `json:"paid_by"`
	Description string           `json:"description"`
	Total       money.View       `json:"total"`
	Date        string           `json:"date"`
	SplitType   string           `json:"split_type"`
	CategoryID  *int64           `json:"category_id,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	ReplacesID  *int64           `json:"replaces_id,omitempty"`
	Void        bool             `json:"void"`
	ContentHash string           `json:"content_hash"`
	CreatedAt   string           `json:"created_at"`
	Splits      []*SplitResponse `json:"splits"`
}

// SplitResponse represents the response for a split
type SplitResponse struct {
	UserID     int64      `json:"user_id"`
	Amount     money.View `json:"amount"`
	Percentage *string    `json:"percentage,omitempty"`
	Shares     *int64     `json:"shares,omitempty"`
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	resp := &ExpenseResponse{
		ID:          e.ID,
		Ref:         e.Ref.String(),
		GroupID:     e.GroupID,
		PaidBy:      e.PaidBy,
		Description: e.Description,
		Total:       e.Total.View(),
		Date:        e.Date.Format(time.DateOnly),
		SplitType:   string(e.SplitType),
		CategoryID:  e.CategoryID,
		Notes:       e.Notes,
		ReplacesID:  e.ReplacesID,
		Void:        e.Void,
		ContentHash: e.ContentHash,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
		Splits:      SplitsToResponse(e.Splits),
	}
	return resp
}

// SplitsToResponse converts resolved splits to their DTOs
func SplitsToResponse(splits []Split) []*SplitResponse {
	out := make([]*SplitResponse, len(splits))
	for i, s := range splits {
		sr := &SplitResponse{UserID: s.UserID, Amount: s.Amount.View(), Shares: s.Shares}
		if s.Percentage != nil {
			p := s.Percentage.String()
			sr.Percentage = &p
		}
		out[i] = sr
	}
	return out
}
