package split

import "github.com/fkhayef/splitledger/internal/money"

// =============================================================================
// SHARES SPLIT STRATEGY
// Divides the expense in proportion to whole share counts (e.g. nights stayed)
// =============================================================================

// SharesStrategy implements the Strategy interface for share-weighted splits
type SharesStrategy struct{}

// Type returns the split type identifier
func (s *SharesStrategy) Type() SplitType {
	return SplitTypeShares
}

// Validate checks that every participant has a positive share count
func (s *SharesStrategy) Validate(req Request) error {
	if err := validateCommon(req); err != nil {
		return err
	}
	for _, p := range req.Participants {
		if p.Shares == nil {
			return ErrMissingShares
		}
		if *p.Shares <= 0 {
			return ErrNonPositiveShares
		}
	}
	return nil
}

// Calculate allocates the total with the share counts as weights
func (s *SharesStrategy) Calculate(req Request) ([]SplitOutput, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	weights := make([]int64, len(req.Participants))
	for i, p := range req.Participants {
		weights[i] = *p.Shares
	}
	amounts, err := money.AllocateInts(req.Total, weights)
	if err != nil {
		return nil, err
	}

	out := outputs(req.Participants, amounts)
	for i := range out {
		shares := weights[i]
		out[i].Shares = &shares
	}
	return out, nil
}
