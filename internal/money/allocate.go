package money

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/apperr"
)

// Allocate splits total into len(weights) parts proportional to weights using
// the largest-remainder method. The parts always sum exactly to total: each
// part gets the floor of its exact share, and the leftover minor units go one
// each to the parts with the largest fractional remainder, ties to the lower
// index. A negative total is allocated by magnitude and negated.
func Allocate(total Money, weights []decimal.Decimal) ([]Money, error) {
	if len(weights) == 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "at least one weight is required")
	}

	// Bring every weight to a common integer scale so the arithmetic is exact.
	minExp := int32(0)
	for _, w := range weights {
		if err := CheckExponent(w); err != nil {
			return nil, err
		}
		if w.IsNegative() {
			return nil, apperr.New(apperr.CodeInvalidInput, "weights cannot be negative")
		}
		if w.Exponent() < minExp {
			minExp = w.Exponent()
		}
	}
	ints := make([]*big.Int, len(weights))
	sum := new(big.Int)
	for i, w := range weights {
		ints[i] = w.Shift(-minExp).BigInt()
		sum.Add(sum, ints[i])
	}
	if sum.Sign() == 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "weights must not all be zero")
	}

	if err := CheckAmount(total.Amount); err != nil {
		return nil, err
	}
	amount := total.Amount
	negative := amount < 0
	if negative {
		amount = -amount
	}
	t := big.NewInt(amount)

	parts := make([]int64, len(weights))
	rems := make([]*big.Int, len(weights))
	var allocated int64
	for i := range ints {
		q, r := new(big.Int).QuoRem(new(big.Int).Mul(t, ints[i]), sum, new(big.Int))
		parts[i] = q.Int64()
		rems[i] = r
		allocated += parts[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rems[order[a]].Cmp(rems[order[b]]) > 0
	})
	for k := int64(0); k < amount-allocated; k++ {
		parts[order[k]]++
	}

	out := make([]Money, len(parts))
	for i, p := range parts {
		if negative {
			p = -p
		}
		out[i] = Money{Amount: p, Currency: total.Currency}
	}
	return out, nil
}

// AllocateEven splits total into n parts that differ by at most one minor unit.
func AllocateEven(total Money, n int) ([]Money, error) {
	if n <= 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "at least one part is required")
	}
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return Allocate(total, weights)
}

// AllocateInts is Allocate with integer weights.
func AllocateInts(total Money, weights []int64) ([]Money, error) {
	ws := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		ws[i] = decimal.NewFromInt(w)
	}
	return Allocate(total, ws)
}
