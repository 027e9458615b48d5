package split

import (
	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/money"
)

// =============================================================================
// ADJUSTMENT SPLIT STRATEGY
// Equal baseline, then per-participant signed corrections that net to zero
// =============================================================================

// AdjustmentStrategy implements the Strategy interface for adjusted equal splits
type AdjustmentStrategy struct{}

// Type returns the split type identifier
func (s *AdjustmentStrategy) Type() SplitType {
	return SplitTypeAdjustment
}

// Validate checks that the deltas cancel out and no adjusted share goes negative
func (s *AdjustmentStrategy) Validate(req Request) error {
	_, err := s.resolve(req)
	return err
}

// Calculate returns baseline + delta for every participant
func (s *AdjustmentStrategy) Calculate(req Request) ([]SplitOutput, error) {
	amounts, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	return outputs(req.Participants, amounts), nil
}

func (s *AdjustmentStrategy) resolve(req Request) ([]money.Money, error) {
	if err := validateCommon(req); err != nil {
		return nil, err
	}

	var deltaSum int64
	for _, p := range req.Participants {
		if p.Adjustment == nil {
			continue
		}
		var err error
		if deltaSum, err = money.AddMinor(deltaSum, *p.Adjustment); err != nil {
			return nil, err
		}
	}
	if deltaSum != 0 {
		return nil, apperr.WithMetadata(apperr.CodeSplitMismatch, "adjustments must sum to zero", map[string]string{
			"expected": "0",
			"actual":   money.New(deltaSum, req.Total.Currency).Decimal().String(),
		})
	}

	baseline, err := money.AllocateEven(req.Total, len(req.Participants))
	if err != nil {
		return nil, err
	}
	for i, p := range req.Participants {
		if p.Adjustment == nil {
			continue
		}
		if baseline[i].Amount, err = money.AddMinor(baseline[i].Amount, *p.Adjustment); err != nil {
			return nil, err
		}
		if baseline[i].Amount < 0 {
			return nil, ErrNegativeAdjusted
		}
	}
	return baseline, nil
}
