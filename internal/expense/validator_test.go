package expense

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/expense/split"
	"github.com/fkhayef/splitledger/internal/money"
)

func i64(v int64) *int64 { return &v }

func participants(ids ...int64) []split.SplitInput {
	out := make([]split.SplitInput, len(ids))
	for i, id := range ids {
		out[i] = split.SplitInput{UserID: id}
	}
	return out
}

func validCandidate() Candidate {
	return Candidate{
		Description:  "Dinner",
		Total:        money.New(1000, "USD"),
		PaidBy:       1,
		SplitType:    split.SplitTypeEqual,
		Participants: participants(1, 2, 3),
	}
}

func TestValidatorResolvesEqualSplit(t *testing.T) {
	t.Parallel()

	v := NewValidator(split.NewSplitStrategyFactory())
	splits, err := v.Resolve(validCandidate())
	require.NoError(t, err)
	require.Len(t, splits, 3)

	var sum int64
	for i, s := range splits {
		assert.Equal(t, int64(i+1), s.UserID)
		assert.Equal(t, "USD", s.Amount.Currency)
		sum += s.Amount.Amount
	}
	assert.Equal(t, int64(1000), sum)
	assert.Equal(t, int64(334), splits[0].Amount.Amount)
}

func TestValidatorCheckOrder(t *testing.T) {
	t.Parallel()

	v := NewValidator(split.NewSplitStrategyFactory())
	tests := []struct {
		name   string
		mutate func(c *Candidate)
		want   error
		code   apperr.Code
	}{
		{
			name: "empty description wins over everything",
			mutate: func(c *Candidate) {
				c.Description = "   "
				c.Total = money.New(0, "usd")
				c.Participants = nil
			},
			want: ErrEmptyDescription,
			code: apperr.CodeInvalidInput,
		},
		{
			name:   "long description",
			mutate: func(c *Candidate) { c.Description = strings.Repeat("é", 256) },
			want:   ErrLongDescription,
			code:   apperr.CodeInvalidInput,
		},
		{
			name: "non-positive total before participants",
			mutate: func(c *Candidate) {
				c.Total = money.New(-5, "USD")
				c.Participants = participants(1)
			},
			want: ErrNonPositiveTotal,
			code: apperr.CodeNegativeOrZeroAmount,
		},
		{
			name:   "single participant",
			mutate: func(c *Candidate) { c.Participants = participants(1) },
			want:   ErrTooFewParticipants,
			code:   apperr.CodeInvalidParticipantSet,
		},
		{
			name: "payer not included before currency",
			mutate: func(c *Candidate) {
				c.PaidBy = 9
				c.Total = money.New(1000, "usd")
			},
			want: ErrPayerNotIncluded,
			code: apperr.CodeInvalidParticipantSet,
		},
		{
			name:   "unrecognized currency",
			mutate: func(c *Candidate) { c.Total = money.New(1000, "XXQ") },
			code:   apperr.CodeUnrecognizedCurrency,
		},
		{
			name:   "unknown split type",
			mutate: func(c *Candidate) { c.SplitType = "lottery" },
			code:   apperr.CodeUnrecognizedSplitType,
		},
		{
			name:   "duplicate participant from strategy",
			mutate: func(c *Candidate) { c.Participants = participants(1, 2, 2) },
			code:   apperr.CodeInvalidParticipantSet,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validCandidate()
			tt.mutate(&c)

			err := v.Validate(c)
			require.Error(t, err)
			if tt.want != nil {
				assert.Same(t, tt.want, err)
			}
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestValidatorPropagatesStrategyError(t *testing.T) {
	t.Parallel()

	v := NewValidator(split.NewSplitStrategyFactory())
	c := validCandidate()
	c.Total = money.New(999, "USD")
	c.SplitType = split.SplitTypeExact
	c.Participants = []split.SplitInput{
		{UserID: 1, Amount: i64(500)},
		{UserID: 2, Amount: i64(300)},
		{UserID: 3, Amount: i64(200)},
	}

	err := v.Validate(c)
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeSplitMismatch, appErr.Code)
	assert.Equal(t, "1000", appErr.Metadata["expected"])
	assert.Equal(t, "999", appErr.Metadata["actual"])
	assert.Equal(t, "1", appErr.Metadata["delta"])
}

// leakyStrategy drops one minor unit, which the validator must catch.
type leakyStrategy struct{ *split.EqualStrategy }

func (s leakyStrategy) Calculate(req split.Request) ([]split.SplitOutput, error) {
	outs, err := s.EqualStrategy.Calculate(req)
	if err != nil {
		return nil, err
	}
	outs[0].Amount.Amount--
	return outs, nil
}

// foreignStrategy answers in the wrong currency.
type foreignStrategy struct{ *split.EqualStrategy }

func (s foreignStrategy) Calculate(req split.Request) ([]split.SplitOutput, error) {
	outs, err := s.EqualStrategy.Calculate(req)
	if err != nil {
		return nil, err
	}
	outs[1].Amount.Currency = "EUR"
	return outs, nil
}

func TestValidatorRechecksStrategyOutput(t *testing.T) {
	t.Parallel()

	leaky := split.NewSplitStrategyFactory()
	leaky.Register(leakyStrategy{&split.EqualStrategy{}})
	err := NewValidator(leaky).Validate(validCandidate())
	assert.ErrorIs(t, err, apperr.ErrSplitMismatch)

	foreign := split.NewSplitStrategyFactory()
	foreign.Register(foreignStrategy{&split.EqualStrategy{}})
	err = NewValidator(foreign).Validate(validCandidate())
	assert.ErrorIs(t, err, apperr.ErrCurrencyMismatch)
}

// wrappingStrategy returns splits whose true sum is 2^64 + total.
type wrappingStrategy struct{ *split.EqualStrategy }

func (s wrappingStrategy) Calculate(req split.Request) ([]split.SplitOutput, error) {
	outs := make([]split.SplitOutput, len(req.Participants))
	for i, p := range req.Participants {
		outs[i] = split.SplitOutput{UserID: p.UserID, Amount: money.New(0, req.Total.Currency)}
	}
	outs[0].Amount.Amount = math.MaxInt64
	outs[1].Amount.Amount = math.MaxInt64
	outs[2].Amount.Amount = req.Total.Amount + 2
	return outs, nil
}

// negativeStrategy shifts value from one participant to another past zero.
type negativeStrategy struct{ *split.EqualStrategy }

func (s negativeStrategy) Calculate(req split.Request) ([]split.SplitOutput, error) {
	outs, err := s.EqualStrategy.Calculate(req)
	if err != nil {
		return nil, err
	}
	outs[0].Amount.Amount += 1000
	outs[1].Amount.Amount -= 1000
	return outs, nil
}

func TestValidatorRejectsWrappedSums(t *testing.T) {
	t.Parallel()

	c := validCandidate()
	c.SplitType = split.SplitTypeExact
	c.Participants = []split.SplitInput{
		{UserID: 1, Amount: i64(math.MaxInt64)},
		{UserID: 2, Amount: i64(math.MaxInt64)},
		{UserID: 3, Amount: i64(1002)},
	}
	_, err := NewValidator(split.NewSplitStrategyFactory()).Resolve(c)
	assert.ErrorIs(t, err, money.ErrOverflow)

	wrapping := split.NewSplitStrategyFactory()
	wrapping.Register(wrappingStrategy{&split.EqualStrategy{}})
	_, err = NewValidator(wrapping).Resolve(validCandidate())
	assert.ErrorIs(t, err, money.ErrOverflow)

	negative := split.NewSplitStrategyFactory()
	negative.Register(negativeStrategy{&split.EqualStrategy{}})
	_, err = NewValidator(negative).Resolve(validCandidate())
	assert.ErrorIs(t, err, ErrNegativeSplit)

	huge := validCandidate()
	huge.Total = money.New(money.MaxAmount+1, "USD")
	_, err = NewValidator(split.NewSplitStrategyFactory()).Resolve(huge)
	assert.ErrorIs(t, err, money.ErrAmountOutOfRange)
}
