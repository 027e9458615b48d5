package split

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/money"
)

// =============================================================================
// PERCENTAGE SPLIT STRATEGY
// Divides the expense based on specified percentages for each participant
// =============================================================================

var (
	hundred           = decimal.NewFromInt(100)
	percentageEpsilon = decimal.RequireFromString("0.01")
)

// PercentageStrategy implements the Strategy interface for percentage-based splits
type PercentageStrategy struct{}

// Type returns the split type identifier
func (s *PercentageStrategy) Type() SplitType {
	return SplitTypePercentage
}

// Validate checks if the inputs are valid for a percentage split
func (s *PercentageStrategy) Validate(req Request) error {
	if err := validateCommon(req); err != nil {
		return err
	}

	// Check that all participants have percentages and they sum to 100
	totalPercentage := decimal.Zero
	for _, p := range req.Participants {
		if p.Percentage == nil {
			return ErrMissingPercentage
		}
		if err := money.CheckExponent(*p.Percentage); err != nil {
			return err
		}
		if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
			return ErrPercentageOutOfRange
		}
		totalPercentage = totalPercentage.Add(*p.Percentage)
	}

	// 99.99 to 100.01 is accepted
	if totalPercentage.Sub(hundred).Abs().GreaterThan(percentageEpsilon) {
		return apperr.WithMetadata(apperr.CodeSplitMismatch, ErrInvalidPercentages.Message, map[string]string{
			"expected": hundred.String(),
			"actual":   totalPercentage.String(),
		})
	}

	return nil
}

// Calculate apportions the total using the percentages as allocation weights,
// so rounding never leaks a cent.
func (s *PercentageStrategy) Calculate(req Request) ([]SplitOutput, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	weights := make([]decimal.Decimal, len(req.Participants))
	for i, p := range req.Participants {
		weights[i] = *p.Percentage
	}
	amounts, err := money.Allocate(req.Total, weights)
	if err != nil {
		return nil, err
	}

	out := outputs(req.Participants, amounts)
	for i, p := range req.Participants {
		pct := *p.Percentage
		out[i].Percentage = &pct
	}
	return out, nil
}
