// Package money implements a fixed-point, currency-tagged amount type.
// Every amount in the ledger is an integer count of minor units; arithmetic
// between two amounts requires the same currency and never converts.
package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitledger/internal/apperr"
)

// Money is an amount of minor units (cents for USD) in a single currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New returns minor units of the given currency.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns the zero amount in currency.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

// Parse converts a major-unit decimal string ("12.34") into Money.
func Parse(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, apperr.Newf(apperr.CodeInvalidInput, "amount %q is not a decimal number", value)
	}
	return FromDecimal(d, currency)
}

// FromDecimal converts a major-unit decimal into Money. Values with more
// fractional digits than the currency allows are rejected, not rounded.
func FromDecimal(d decimal.Decimal, currency string) (Money, error) {
	cur, err := LookupCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if err := CheckExponent(d); err != nil {
		return Money{}, err
	}
	shifted := d.Shift(int32(cur.Scale))
	if !shifted.Equal(shifted.Truncate(0)) {
		return Money{}, apperr.Newf(apperr.CodeInvalidInput, "amount %s has more than %d decimal places for %s", d.String(), cur.Scale, cur.Code)
	}
	minor := shifted.BigInt()
	if !minor.IsInt64() || CheckAmount(minor.Int64()) != nil {
		return Money{}, apperr.Newf(apperr.CodeInvalidInput, "amount %s is out of range", d.String())
	}
	return Money{Amount: minor.Int64(), Currency: cur.Code}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -int32(scaleOf(m.Currency)))
}

// String formats the amount as "12.34 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(int32(scaleOf(m.Currency))), m.Currency)
}

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	sum, err := AddMinor(m.Amount, o.Amount)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub returns m - o.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	if o.Amount == math.MinInt64 {
		return Money{}, ErrOverflow
	}
	diff, err := AddMinor(m.Amount, -o.Amount)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Abs returns |m|.
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Neg()
	}
	return m
}

// IsZero reports whether m is below one minor unit in magnitude.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Sign returns -1, 0 or +1.
func (m Money) Sign() int {
	switch {
	case m.Amount < 0:
		return -1
	case m.Amount > 0:
		return 1
	}
	return 0
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < o.Amount:
		return -1, nil
	case m.Amount > o.Amount:
		return 1, nil
	}
	return 0, nil
}

// Sum adds amounts that must all be in currency. An empty list sums to zero.
func Sum(currency string, amounts ...Money) (Money, error) {
	total := Zero(currency)
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

func (m Money) sameCurrency(o Money) error {
	if m.Currency != o.Currency {
		return apperr.CurrencyMismatch(m.Currency, o.Currency)
	}
	return nil
}

func scaleOf(code string) int {
	if cur, err := LookupCurrency(code); err == nil {
		return cur.Scale
	}
	return 2
}

// View is the wire form of an amount: exact minor units plus the major-unit
// decimal string. Symbols and localisation are left to the client.
type View struct {
	Minor    int64  `json:"minor"`
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// View returns the wire form of m.
func (m Money) View() View {
	return View{
		Minor:    m.Amount,
		Value:    m.Decimal().StringFixed(int32(scaleOf(m.Currency))),
		Currency: m.Currency,
	}
}
