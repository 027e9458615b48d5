package split

import "github.com/fkhayef/splitledger/internal/money"

// =============================================================================
// REIMBURSEMENT SPLIT STRATEGY
// One participant owes the whole amount back; everyone else owes nothing
// =============================================================================

// ReimbursementStrategy implements the Strategy interface for full reimbursements
type ReimbursementStrategy struct{}

// Type returns the split type identifier
func (s *ReimbursementStrategy) Type() SplitType {
	return SplitTypeReimbursement
}

// Validate checks that the reimbursee is one of the participants
func (s *ReimbursementStrategy) Validate(req Request) error {
	if err := validateCommon(req); err != nil {
		return err
	}
	if _, ok := indexOf(req.Participants)[req.ReimburseeID]; !ok {
		return ErrUnknownReimbursee
	}
	return nil
}

// Calculate assigns the total to the reimbursee and zero to the rest
func (s *ReimbursementStrategy) Calculate(req Request) ([]SplitOutput, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	amounts := make([]money.Money, len(req.Participants))
	for i, p := range req.Participants {
		amounts[i] = money.Zero(req.Total.Currency)
		if p.UserID == req.ReimburseeID {
			amounts[i] = req.Total
		}
	}
	return outputs(req.Participants, amounts), nil
}
