package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/splitledger/internal/money"
)

// Method is how the money changed hands.
type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCard         Method = "card"
	MethodMobileWallet Method = "mobile_wallet"
	MethodOther        Method = "other"
)

// Methods lists every accepted payment method.
var Methods = []Method{MethodCash, MethodBankTransfer, MethodCard, MethodMobileWallet, MethodOther}

// Valid reports whether m is one of Methods.
func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// Payment is a settlement event: FromUserID paid ToUserID outside the ledger.
// It reduces what FromUserID owes ToUserID in the payment currency.
type Payment struct {
	ID          int64       `json:"id"`
	Ref         uuid.UUID   `json:"ref"`
	FromUserID  int64       `json:"from_user_id"`
	ToUserID    int64       `json:"to_user_id"`
	Amount      money.Money `json:"amount"`
	Method      Method      `json:"method"`
	GroupID     *int64      `json:"group_id,omitempty"`
	PaidAt      time.Time   `json:"paid_at"`
	Note        *string     `json:"note,omitempty"`
	CreatedBy   int64       `json:"created_by"`
	PrevHash    string      `json:"prev_hash"`
	ContentHash string      `json:"content_hash"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Involves reports whether userID sent or received the payment.
func (p *Payment) Involves(userID int64) bool {
	return p.FromUserID == userID || p.ToUserID == userID
}

// InGroup reports whether the payment belongs to groupID.
func (p *Payment) InGroup(groupID int64) bool {
	return p.GroupID != nil && *p.GroupID == groupID
}

// Filter selects payments from the event source.
type Filter struct {
	UserID   *int64
	GroupID  *int64
	From     *time.Time // inclusive, by paid_at
	To       *time.Time // inclusive, by paid_at date
	Currency string
	Limit    int
	Offset   int
}

type chainPayload struct {
	Ref        string  `json:"ref"`
	FromUserID int64   `json:"from_user_id"`
	ToUserID   int64   `json:"to_user_id"`
	Amount     int64   `json:"amount"`
	Currency   string  `json:"currency"`
	Method     string  `json:"method"`
	GroupID    *int64  `json:"group_id"`
	PaidAt     string  `json:"paid_at"`
	Note       *string `json:"note"`
	CreatedBy  int64   `json:"created_by"`
	CreatedAt  string  `json:"created_at"`
}

// ChainPayload is the content covered by the payment's hash-chain entry.
func (p *Payment) ChainPayload() any {
	return chainPayload{
		Ref:        p.Ref.String(),
		FromUserID: p.FromUserID,
		ToUserID:   p.ToUserID,
		Amount:     p.Amount.Amount,
		Currency:   p.Amount.Currency,
		Method:     string(p.Method),
		GroupID:    p.GroupID,
		PaidAt:     p.PaidAt.UTC().Format(time.RFC3339Nano),
		Note:       p.Note,
		CreatedBy:  p.CreatedBy,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
