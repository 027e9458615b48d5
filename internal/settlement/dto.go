package settlement

import (
	"github.com/fkhayef/splitledger/internal/money"
	"github.com/fkhayef/splitledger/internal/payment"
)

// ApplyRequest represents the request to settle a group
type ApplyRequest struct {
	Currency string  `json:"currency,omitempty"`  // settle only this currency
	Method   string  `json:"method,omitempty"`    // defaults to cash
	PlanHash string  `json:"plan_hash,omitempty"` // hash from the plan the user agreed to
	Note     *string `json:"note,omitempty"`
}

// TransferResponse represents one proposed payment
type TransferResponse struct {
	FromUserID int64      `json:"from_user_id"`
	ToUserID   int64      `json:"to_user_id"`
	Amount     money.View `json:"amount"`
}

// PlanResponse represents a proposed settlement plan
type PlanResponse struct {
	GroupID   int64              `json:"group_id"`
	Currency  string             `json:"currency,omitempty"`
	Transfers []TransferResponse `json:"transfers"`
	PlanHash  string             `json:"plan_hash"`
	Settled   bool               `json:"settled"`
}

// ToResponse converts a Plan to a PlanResponse DTO
func (p *Plan) ToResponse() *PlanResponse {
	out := &PlanResponse{
		GroupID:   p.GroupID,
		Currency:  p.Currency,
		Transfers: make([]TransferResponse, len(p.Transfers)),
		PlanHash:  p.Hash,
		Settled:   len(p.Transfers) == 0,
	}
	for i, t := range p.Transfers {
		out.Transfers[i] = TransferResponse{FromUserID: t.FromUserID, ToUserID: t.ToUserID, Amount: t.Amount.View()}
	}
	return out
}

func paymentsToResponse(payments []*payment.Payment) []*payment.PaymentResponse {
	out := make([]*payment.PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = p.ToResponse()
	}
	return out
}
