package money

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/apperr"
)

// MaxAmount is the largest magnitude, in minor units, a single amount may
// take (10^15, ten trillion dollars in cents).
const MaxAmount int64 = 1_000_000_000_000_000

// MaxExponent bounds the decimal exponent of any amount, percentage or
// weight accepted as input. Comparing or adding decimals rescales them to a
// common exponent, which costs 10^|exponent|.
const MaxExponent = 20

var (
	ErrAmountOutOfRange = apperr.Newf(apperr.CodeInvalidInput, "amounts must be at most %d minor units in magnitude", MaxAmount)
	ErrOverflow         = apperr.New(apperr.CodeInvalidInput, "amounts overflow when added")
	ErrExponentRange    = apperr.Newf(apperr.CodeInvalidInput, "decimal values must have an exponent within ±%d", MaxExponent)
)

// CheckExponent rejects d when its exponent is outside ±MaxExponent. It does
// no arithmetic on d, so it is safe to call on untrusted input.
func CheckExponent(d decimal.Decimal) error {
	if e := d.Exponent(); e < -MaxExponent || e > MaxExponent {
		return ErrExponentRange
	}
	return nil
}

// CheckAmount rejects minor-unit amounts beyond ±MaxAmount.
func CheckAmount(minor int64) error {
	if minor > MaxAmount || minor < -MaxAmount {
		return ErrAmountOutOfRange
	}
	return nil
}

// AddMinor returns a + b, or ErrOverflow when the sum does not fit an int64.
func AddMinor(a, b int64) (int64, error) {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		return 0, ErrOverflow
	}
	return s, nil
}
