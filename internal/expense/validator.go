package expense

import (
	"strings"
	"unicode/utf8"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/expense/split"
	"github.com/fkhayef/splitledger/internal/money"
)

const maxDescriptionLength = 255

// Candidate is a proposed expense before it is accepted into the ledger.
type Candidate struct {
	Description  string
	Total        money.Money
	PaidBy       int64
	SplitType    split.SplitType
	Participants []split.SplitInput
	ReimburseeID int64
	Items        []split.Item
}

var (
	ErrEmptyDescription   = apperr.New(apperr.CodeInvalidInput, "description is required")
	ErrLongDescription    = apperr.New(apperr.CodeInvalidInput, "description must be at most 255 characters")
	ErrNonPositiveTotal   = apperr.New(apperr.CodeNegativeOrZeroAmount, "total amount must be greater than zero")
	ErrTooFewParticipants = apperr.New(apperr.CodeInvalidParticipantSet, "an expense needs at least two participants")
	ErrPayerNotIncluded   = apperr.New(apperr.CodeInvalidParticipantSet, "the payer must be one of the participants")
	ErrNegativeSplit      = apperr.New(apperr.CodeNegativeOrZeroAmount, "a split cannot be negative")
)

// Validator is the single gate every expense passes before it is stored.
type Validator struct {
	factory *split.Factory
}

// NewValidator creates a validator resolving splits through factory.
func NewValidator(factory *split.Factory) *Validator {
	return &Validator{factory: factory}
}

// Validate reports the first failing check for c, or nil.
func (v *Validator) Validate(c Candidate) error {
	_, err := v.Resolve(c)
	return err
}

// Resolve validates c and returns its splits. Checks run in a fixed order
// and the first failure is returned as is.
func (v *Validator) Resolve(c Candidate) ([]Split, error) {
	desc := strings.TrimSpace(c.Description)
	if desc == "" {
		return nil, ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLength {
		return nil, ErrLongDescription
	}
	if c.Total.Amount <= 0 {
		return nil, ErrNonPositiveTotal
	}
	if err := money.CheckAmount(c.Total.Amount); err != nil {
		return nil, err
	}
	if len(c.Participants) < 2 {
		return nil, ErrTooFewParticipants
	}
	payerIncluded := false
	for _, p := range c.Participants {
		if p.UserID == c.PaidBy {
			payerIncluded = true
			break
		}
	}
	if !payerIncluded {
		return nil, ErrPayerNotIncluded
	}
	if _, err := money.LookupCurrency(c.Total.Currency); err != nil {
		return nil, err
	}

	strategy, err := v.factory.Create(c.SplitType)
	if err != nil {
		return nil, err
	}
	outs, err := strategy.Calculate(split.Request{
		Total:        c.Total,
		Participants: c.Participants,
		ReimburseeID: c.ReimburseeID,
		Items:        c.Items,
	})
	if err != nil {
		return nil, err
	}

	// Re-check conservation independently of the strategy.
	var sum int64
	splits := make([]Split, len(outs))
	for i, o := range outs {
		if o.Amount.Currency != c.Total.Currency {
			return nil, apperr.CurrencyMismatch(c.Total.Currency, o.Amount.Currency)
		}
		if o.Amount.Amount < 0 {
			return nil, ErrNegativeSplit
		}
		if sum, err = money.AddMinor(sum, o.Amount.Amount); err != nil {
			return nil, err
		}
		splits[i] = Split{UserID: o.UserID, Amount: o.Amount, Percentage: o.Percentage, Shares: o.Shares}
	}
	if sum != c.Total.Amount {
		return nil, apperr.SplitMismatch(sum, c.Total.Amount, c.Total.Currency)
	}
	return splits, nil
}
