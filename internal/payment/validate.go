package payment

import (
	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/money"
)

var (
	ErrInvalidUser     = apperr.New(apperr.CodeInvalidParticipantSet, "payer and payee must be positive user ids")
	ErrSelfPayment     = apperr.New(apperr.CodeInvalidParticipantSet, "payer and payee must be different users")
	ErrNonPositive     = apperr.New(apperr.CodeNegativeOrZeroAmount, "payment amount must be greater than zero")
	ErrInvalidMethod   = apperr.New(apperr.CodeInvalidInput, "payment method must be one of cash, bank_transfer, card, mobile_wallet, other")
	ErrInvalidGroupID  = apperr.New(apperr.CodeInvalidInput, "group id must be positive")
	ErrMissingPaidTime = apperr.New(apperr.CodeInvalidInput, "paid_at is required")
)

// Validate checks a payment before it is appended.
func Validate(p *Payment) error {
	if p.FromUserID <= 0 || p.ToUserID <= 0 {
		return ErrInvalidUser
	}
	if p.FromUserID == p.ToUserID {
		return ErrSelfPayment
	}
	if p.Amount.Amount <= 0 {
		return ErrNonPositive
	}
	if _, err := money.LookupCurrency(p.Amount.Currency); err != nil {
		return err
	}
	if !p.Method.Valid() {
		return ErrInvalidMethod
	}
	if p.GroupID != nil && *p.GroupID <= 0 {
		return ErrInvalidGroupID
	}
	if p.PaidAt.IsZero() {
		return ErrMissingPaidTime
	}
	return nil
}
