package split

import "github.com/fkhayef/splitledger/internal/money"

// =============================================================================
// EQUAL SPLIT STRATEGY
// Divides the expense equally among all participants
// =============================================================================

// EqualStrategy implements the Strategy interface for equal splits
type EqualStrategy struct{}

// Type returns the split type identifier
func (s *EqualStrategy) Type() SplitType {
	return SplitTypeEqual
}

// Validate checks if the inputs are valid for an equal split
func (s *EqualStrategy) Validate(req Request) error {
	return validateCommon(req)
}

// Calculate divides the total evenly; leftover cents go to the earliest participants
func (s *EqualStrategy) Calculate(req Request) ([]SplitOutput, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	amounts, err := money.AllocateEven(req.Total, len(req.Participants))
	if err != nil {
		return nil, err
	}
	return outputs(req.Participants, amounts), nil
}
