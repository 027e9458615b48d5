package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/money"
)

// CreatePaymentRequest represents the request to record a payment
type CreatePaymentRequest struct {
	FromUserID int64           `json:"from_user_id"`
	ToUserID   int64           `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string"`
	Currency   string          `json:"currency"`
	Method     string          `json:"method"`
	GroupID    *int64          `json:"group_id,omitempty"`
	PaidAt     *time.Time      `json:"paid_at,omitempty" swaggertype:"string"` // RFC 3339, defaults to now
	Note       *string         `json:"note,omitempty"`
}

// ToPayment converts the request into an unsaved payment.
func (r *CreatePaymentRequest) ToPayment(now time.Time) (*Payment, error) {
	amount, err := money.FromDecimal(r.Amount, strings.TrimSpace(r.Currency))
	if err != nil {
		return nil, err
	}
	method := Method(strings.ToLower(strings.TrimSpace(r.Method)))
	if method == "" {
		method = MethodCash
	}

	paidAt := now
	if r.PaidAt != nil {
		paidAt = *r.PaidAt
	}
	if paidAt.After(now.Add(24 * time.Hour)) {
		return nil, apperr.New(apperr.CodeInvalidInput, "paid_at cannot be in the future")
	}

	var note *string
	if r.Note != nil {
		if n := strings.TrimSpace(*r.Note); n != "" {
			note = &n
		}
	}

	return &Payment{
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		Amount:     amount,
		Method:     method,
		GroupID:    r.GroupID,
		PaidAt:     paidAt.UTC().Truncate(time.Microsecond),
		Note:       note,
	}, nil
}

// PaymentResponse represents the response for a payment
type PaymentResponse struct {
	ID          int64      `json:"id"`
	Ref         string     `json:"ref"`
	FromUserID  int64      `json:"from_user_id"`
	ToUserID    int64      `json:"to_user_id"`
	Amount      money.View `json:"amount"`
	Method      Method     `json:"method"`
	GroupID     *int64     `json:"group_id,omitempty"`
	PaidAt      string     `json:"paid_at"`
	Note        *string    `json:"note,omitempty"`
	ContentHash string     `json:"content_hash,omitempty"`
	CreatedAt   string     `json:"created_at,omitempty"`
}

// ToResponse converts a Payment model to a PaymentResponse DTO
func (p *Payment) ToResponse() *PaymentResponse {
	resp := &PaymentResponse{
		ID:          p.ID,
		FromUserID:  p.FromUserID,
		ToUserID:    p.ToUserID,
		Amount:      p.Amount.View(),
		Method:      p.Method,
		GroupID:     p.GroupID,
		Note:        p.Note,
		ContentHash: p.ContentHash,
	}
	if p.ID != 0 {
		resp.Ref = p.Ref.String()
		resp.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !p.PaidAt.IsZero() {
		resp.PaidAt = p.PaidAt.UTC().Format(time.RFC3339)
	}
	return resp
}
