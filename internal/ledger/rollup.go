package ledger

import (
	"sort"

	"github.com/fkhayef/splitledger/internal/money"
)

// CurrencySummary is the viewpoint's position in one currency.
type CurrencySummary struct {
	Currency string      `json:"currency"`
	Owed     money.Money `json:"owed"` // sum of positive balances
	Owe      money.Money `json:"owe"`  // sum of negative balances, as a positive amount
	Net      money.Money `json:"net"`

	HighestOwed  *Balance `json:"highest_owed,omitempty"`
	HighestOwing *Balance `json:"highest_owing,omitempty"`
}

// Summarize rolls balances up per currency, ordered by currency code.
// Amounts in different currencies are never compared, so the highest
// entries are picked within each currency.
func Summarize(balances []Balance) []CurrencySummary {
	byCurrency := make(map[string]*CurrencySummary)
	var codes []string

	for i := range balances {
		b := balances[i]
		s, ok := byCurrency[b.Currency]
		if !ok {
			s = &CurrencySummary{
				Currency: b.Currency,
				Owed:     money.Zero(b.Currency),
				Owe:      money.Zero(b.Currency),
				Net:      money.Zero(b.Currency),
			}
			byCurrency[b.Currency] = s
			codes = append(codes, b.Currency)
		}

		s.Net.Amount += b.Amount.Amount
		switch b.Amount.Sign() {
		case 1:
			s.Owed.Amount += b.Amount.Amount
			if higher(b, s.HighestOwed) {
				s.HighestOwed = &b
			}
		case -1:
			s.Owe.Amount -= b.Amount.Amount
			if higher(b, s.HighestOwing) {
				s.HighestOwing = &b
			}
		}
	}

	sort.Strings(codes)
	out := make([]CurrencySummary, len(codes))
	for i, c := range codes {
		out[i] = *byCurrency[c]
	}
	return out
}

// higher reports whether b beats cur: larger magnitude wins, then the
// lower counterpart id.
func higher(b Balance, cur *Balance) bool {
	if cur == nil {
		return true
	}
	mb, mc := b.Amount.Abs().Amount, cur.Amount.Abs().Amount
	if mb != mc {
		return mb > mc
	}
	return b.CounterpartUserID < cur.CounterpartUserID
}

// GroupBalance is the viewpoint's net position inside one group.
type GroupBalance struct {
	GroupID  int64       `json:"group_id"`
	Currency string      `json:"currency"`
	Amount   money.Money `json:"amount"`
}

// GroupRollup folds each group in ev separately and returns the viewpoint's
// net per (group, currency), ordered by group then currency. Groups the
// viewpoint never transacted in are left out.
func GroupRollup(viewpoint int64, ev Events) []GroupBalance {
	groups := make(map[int64]bool)
	for _, e := range Effective(ev.Expenses) {
		if e.GroupID != nil && e.Involves(viewpoint) {
			groups[*e.GroupID] = true
		}
	}
	for _, p := range ev.Payments {
		if p.GroupID != nil && p.Involves(viewpoint) {
			groups[*p.GroupID] = true
		}
	}

	var out []GroupBalance
	for g := range groups {
		totals := make(map[string]int64)
		for k, m := range BalancesFor(viewpoint, ForGroup(g, ev)) {
			totals[k.Currency] += m.Amount
		}
		for currency, amount := range totals {
			out = append(out, GroupBalance{GroupID: g, Currency: currency, Amount: money.New(amount, currency)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupID != out[j].GroupID {
			return out[i].GroupID < out[j].GroupID
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

// HighestGroup picks the group with the largest absolute net in currency,
// ties going to the lower group id. ok is false when no group has a
// non-zero position in that currency.
func HighestGroup(rollup []GroupBalance, currency string) (best GroupBalance, ok bool) {
	for _, g := range rollup {
		if g.Currency != currency || g.Amount.IsZero() {
			continue
		}
		m, bm := g.Amount.Abs().Amount, best.Amount.Abs().Amount
		if !ok || m > bm || (m == bm && g.GroupID < best.GroupID) {
			best, ok = g, true
		}
	}
	return best, ok
}
