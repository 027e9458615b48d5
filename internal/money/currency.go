package money

import (
	"golang.org/x/text/currency"

	"github.com/fkhayef/splitledger/internal/apperr"
)

// Currency describes an ISO 4217 currency as far as the ledger cares.
type Currency struct {
	Code  string `json:"code"`
	Scale int    `json:"scale"` // number of minor-unit digits, e.g. 2 for USD, 0 for JPY
}

// LookupCurrency validates code as a recognized 3-letter ISO 4217 code and
// returns its minor-unit scale.
func LookupCurrency(code string) (Currency, error) {
	if !isUpperAlpha3(code) {
		return Currency{}, apperr.Newf(apperr.CodeUnrecognizedCurrency, "currency %q must be a 3-letter upper-case ISO 4217 code", code)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, apperr.Newf(apperr.CodeUnrecognizedCurrency, "currency %q is not a recognized ISO 4217 code", code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return Currency{Code: unit.String(), Scale: scale}, nil
}

// IsRecognized reports whether code is a recognized ISO 4217 code.
func IsRecognized(code string) bool {
	_, err := LookupCurrency(code)
	return err == nil
}

func isUpperAlpha3(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
