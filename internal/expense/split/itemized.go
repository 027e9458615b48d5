package split

import (
	"sort"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/money"
)

// =============================================================================
// ITEMIZED SPLIT STRATEGY
// Each line item is shared equally by the participants who had it
// =============================================================================

// ItemizedStrategy implements the Strategy interface for itemized bills
type ItemizedStrategy struct{}

// Type returns the split type identifier
func (s *ItemizedStrategy) Type() SplitType {
	return SplitTypeItemized
}

// Validate checks the items against the participant set and the total
func (s *ItemizedStrategy) Validate(req Request) error {
	if err := validateCommon(req); err != nil {
		return err
	}
	if len(req.Items) == 0 {
		return ErrNoItems
	}

	idx := indexOf(req.Participants)
	var itemsTotal int64
	for _, item := range req.Items {
		if item.Amount <= 0 {
			return ErrNonPositiveItem
		}
		if len(item.UserIDs) == 0 {
			return ErrEmptyItem
		}
		seen := make(map[int64]struct{}, len(item.UserIDs))
		for _, id := range item.UserIDs {
			if _, ok := idx[id]; !ok {
				return apperr.Newf(apperr.CodeInvalidParticipantSet, "item %q is shared by user %d who is not a participant", item.Description, id)
			}
			if _, dup := seen[id]; dup {
				return apperr.Newf(apperr.CodeInvalidParticipantSet, "item %q lists user %d more than once", item.Description, id)
			}
			seen[id] = struct{}{}
		}
		var err error
		if itemsTotal, err = money.AddMinor(itemsTotal, item.Amount); err != nil {
			return err
		}
	}

	if itemsTotal != req.Total.Amount {
		return apperr.SplitMismatch(itemsTotal, req.Total.Amount, req.Total.Currency)
	}
	return nil
}

// Calculate sums each participant's equal portion of every item they share
func (s *ItemizedStrategy) Calculate(req Request) ([]SplitOutput, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	idx := indexOf(req.Participants)
	totals := make([]money.Money, len(req.Participants))
	for i := range totals {
		totals[i] = money.Zero(req.Total.Currency)
	}

	for _, item := range req.Items {
		// Order the subset by participant position so leftover cents are deterministic.
		positions := make([]int, len(item.UserIDs))
		for i, id := range item.UserIDs {
			positions[i] = idx[id]
		}
		sort.Ints(positions)

		portions, err := money.AllocateEven(money.New(item.Amount, req.Total.Currency), len(positions))
		if err != nil {
			return nil, err
		}
		for i, pos := range positions {
			totals[pos].Amount += portions[i].Amount
		}
	}

	return outputs(req.Participants, totals), nil
}
