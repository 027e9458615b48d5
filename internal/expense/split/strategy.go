package split

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/money"
)

// SplitType defines the type of split strategy
type SplitType string

const (
	SplitTypeEqual         SplitType = "equal"
	SplitTypeExact         SplitType = "exact"
	SplitTypePercentage    SplitType = "percentage"
	SplitTypeShares        SplitType = "shares"
	SplitTypeAdjustment    SplitType = "adjustment"
	SplitTypeReimbursement SplitType = "reimbursement"
	SplitTypeItemized      SplitType = "itemized"
)

// SplitTypes lists every supported split type.
var SplitTypes = []SplitType{
	SplitTypeEqual,
	SplitTypeExact,
	SplitTypePercentage,
	SplitTypeShares,
	SplitTypeAdjustment,
	SplitTypeReimbursement,
	SplitTypeItemized,
}

// SplitInput represents a participant in a split with optional strategy values
type SplitInput struct {
	UserID     int64            `json:"user_id"`
	Amount     *int64           `json:"amount,omitempty"`     // EXACT, minor units
	Percentage *decimal.Decimal `json:"percentage,omitempty"` // PERCENTAGE
	Shares     *int64           `json:"shares,omitempty"`     // SHARES
	Adjustment *int64           `json:"adjustment,omitempty"` // ADJUSTMENT, signed minor units
}

// Item is one line of an itemized bill, shared equally by UserIDs.
type Item struct {
	Description string  `json:"description,omitempty"`
	Amount      int64   `json:"amount"` // minor units
	UserIDs     []int64 `json:"user_ids"`
}

// Request carries everything a strategy needs to resolve one expense.
type Request struct {
	Total        money.Money
	Participants []SplitInput
	ReimburseeID int64  // REIMBURSEMENT
	Items        []Item // ITEMIZED
}

// SplitOutput is the resolved obligation of one participant.
type SplitOutput struct {
	UserID     int64            `json:"user_id"`
	Amount     money.Money      `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Shares     *int64           `json:"shares,omitempty"`
}

// Strategy is the interface that all split strategies must implement.
// Calculate returns exactly one output per participant, in input order,
// and the outputs always sum to the request total.
type Strategy interface {
	// Calculate computes the split amounts for all participants
	Calculate(req Request) ([]SplitOutput, error)

	// Type returns the type identifier for this strategy
	Type() SplitType

	// Validate checks if the inputs are valid for this strategy
	Validate(req Request) error
}

// Factory creates split strategies based on the requested type
type Factory struct {
	strategies map[SplitType]Strategy
}

// NewSplitStrategyFactory creates a new factory instance
func NewSplitStrategyFactory() *Factory {
	return &Factory{
		strategies: map[SplitType]Strategy{
			SplitTypeEqual:         &EqualStrategy{},
			SplitTypeExact:         &ExactStrategy{},
			SplitTypePercentage:    &PercentageStrategy{},
			SplitTypeShares:        &SharesStrategy{},
			SplitTypeAdjustment:    &AdjustmentStrategy{},
			SplitTypeReimbursement: &ReimbursementStrategy{},
			SplitTypeItemized:      &ItemizedStrategy{},
		},
	}
}

// Create returns the strategy registered for splitType.
func (f *Factory) Create(splitType SplitType) (Strategy, error) {
	s, ok := f.strategies[splitType]
	if !ok {
		return nil, apperr.Newf(apperr.CodeUnrecognizedSplitType, "unknown split type: %s", splitType)
	}
	return s, nil
}

// Register adds or replaces the strategy for s.Type().
func (f *Factory) Register(s Strategy) {
	f.strategies[s.Type()] = s
}

var (
	ErrTooFewParticipants   = apperr.New(apperr.CodeInvalidParticipantSet, "at least two participants are required")
	ErrDuplicateParticipant = apperr.New(apperr.CodeInvalidParticipantSet, "participants must be unique")
	ErrInvalidUserID        = apperr.New(apperr.CodeInvalidParticipantSet, "participant user ids must be positive")
	ErrNonPositiveTotal     = apperr.New(apperr.CodeNegativeOrZeroAmount, "total amount must be greater than zero")
	ErrNegativeAmount       = apperr.New(apperr.CodeNegativeOrZeroAmount, "amounts cannot be negative")
	ErrMissingExactAmount   = apperr.New(apperr.CodeInvalidInput, "exact amount required for all participants")
	ErrMissingPercentage    = apperr.New(apperr.CodeInvalidInput, "percentage value required for all participants")
	ErrPercentageOutOfRange = apperr.New(apperr.CodeInvalidInput, "percentage must be between 0 and 100")
	ErrInvalidPercentages   = apperr.New(apperr.CodeSplitMismatch, "percentages must sum to 100%")
	ErrMissingShares        = apperr.New(apperr.CodeInvalidInput, "share count required for all participants")
	ErrNonPositiveShares    = apperr.New(apperr.CodeNegativeOrZeroAmount, "share counts must be positive")
	ErrNegativeAdjusted     = apperr.New(apperr.CodeNegativeOrZeroAmount, "adjusted share cannot be negative")
	ErrUnknownReimbursee    = apperr.New(apperr.CodeInvalidParticipantSet, "reimbursee must be one of the participants")
	ErrNoItems              = apperr.New(apperr.CodeInvalidInput, "at least one item is required")
	ErrEmptyItem            = apperr.New(apperr.CodeInvalidParticipantSet, "every item must be shared by at least one participant")
	ErrNonPositiveItem      = apperr.New(apperr.CodeNegativeOrZeroAmount, "item amounts must be greater than zero")
)

// validateCommon checks the rules every strategy shares: a positive total
// and a participant set of at least two unique users.
func validateCommon(req Request) error {
	if req.Total.Amount <= 0 {
		return ErrNonPositiveTotal
	}
	if err := money.CheckAmount(req.Total.Amount); err != nil {
		return err
	}
	if len(req.Participants) < 2 {
		return ErrTooFewParticipants
	}
	seen := make(map[int64]struct{}, len(req.Participants))
	for _, p := range req.Participants {
		if p.UserID <= 0 {
			return ErrInvalidUserID
		}
		if _, dup := seen[p.UserID]; dup {
			return ErrDuplicateParticipant
		}
		seen[p.UserID] = struct{}{}
	}
	return nil
}

// indexOf maps each participant to its position in the request.
func indexOf(participants []SplitInput) map[int64]int {
	idx := make(map[int64]int, len(participants))
	for i, p := range participants {
		idx[p.UserID] = i
	}
	return idx
}

// outputs pairs participants with allocated amounts.
func outputs(participants []SplitInput, amounts []money.Money) []SplitOutput {
	out := make([]SplitOutput, len(participants))
	for i, p := range participants {
		out[i] = SplitOutput{UserID: p.UserID, Amount: amounts[i]}
	}
	return out
}
