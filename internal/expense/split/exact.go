package split

import (
	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/money"
)

// =============================================================================
// EXACT SPLIT STRATEGY
// Each participant owes a specific exact amount (must sum to total)
// =============================================================================

// ExactStrategy implements the Strategy interface for exact amount splits
type ExactStrategy struct{}

// Type returns the split type identifier
func (s *ExactStrategy) Type() SplitType {
	return SplitTypeExact
}

// Validate checks if the inputs are valid for an exact split
func (s *ExactStrategy) Validate(req Request) error {
	if err := validateCommon(req); err != nil {
		return err
	}

	// Check that all participants have amounts and they sum to total
	var totalExact int64
	for _, p := range req.Participants {
		if p.Amount == nil {
			return ErrMissingExactAmount
		}
		if *p.Amount < 0 {
			return ErrNegativeAmount
		}
		var err error
		if totalExact, err = money.AddMinor(totalExact, *p.Amount); err != nil {
			return err
		}
	}

	// Minor units: no tolerance
	if totalExact != req.Total.Amount {
		return apperr.SplitMismatch(totalExact, req.Total.Amount, req.Total.Currency)
	}

	return nil
}

// Calculate returns the exact amounts specified for each participant
func (s *ExactStrategy) Calculate(req Request) ([]SplitOutput, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	out := make([]SplitOutput, len(req.Participants))
	for i, p := range req.Participants {
		out[i] = SplitOutput{
			UserID: p.UserID,
			Amount: money.New(*p.Amount, req.Total.Currency),
		}
	}
	return out, nil
}
