// Package ledger folds expenses and payments into balances. Balances are
// never stored: every view is recomputed from the event history.
package ledger

import (
	"sort"

	"github.com/fkhayef/splitledger/internal/expense"
	"github.com/fkhayef/splitledger/internal/money"
	"github.com/fkhayef/splitledger/internal/payment"
)

// Events is a snapshot of the history to fold.
type Events struct {
	Expenses []*expense.Expense
	Payments []*payment.Payment
}

// Key identifies one balance line: a counterpart in one currency.
type Key struct {
	CounterpartUserID int64
	Currency          string
}

// Balance is one line of a balance view. A positive Amount means the
// counterpart owes the viewpoint user; zero means the pair is settled.
type Balance struct {
	CounterpartUserID int64       `json:"counterpart_user_id"`
	Currency          string      `json:"currency"`
	Amount            money.Money `json:"amount"`
}

// Effective drops void revisions and every revision that a later one
// replaces, leaving the expenses that count towards balances.
func Effective(expenses []*expense.Expense) []*expense.Expense {
	replaced := make(map[int64]bool)
	for _, e := range expenses {
		if e.ReplacesID != nil {
			replaced[*e.ReplacesID] = true
		}
	}
	out := make([]*expense.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Void || replaced[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// BalancesFor folds ev into viewpoint's balances per counterpart and currency.
//
// For an expense, every split whose user is not the payer moves that split's
// amount from the split user to the payer. A payment from A to B reduces what
// A owes B. Currencies are never combined. Pairs that net to zero stay in the
// result so callers can tell settled from never transacted.
func BalancesFor(viewpoint int64, ev Events) map[Key]money.Money {
	out := make(map[Key]money.Money)
	add := func(counterpart int64, m money.Money) {
		k := Key{CounterpartUserID: counterpart, Currency: m.Currency}
		cur, ok := out[k]
		if !ok {
			cur = money.Zero(m.Currency)
		}
		cur.Amount += m.Amount
		out[k] = cur
	}

	for _, e := range Effective(ev.Expenses) {
		for _, s := range e.Splits {
			if s.UserID == e.PaidBy || s.Amount.IsZero() {
				continue
			}
			if e.PaidBy == viewpoint {
				add(s.UserID, s.Amount)
			}
			if s.UserID == viewpoint {
				add(e.PaidBy, s.Amount.Neg())
			}
		}
	}

	for _, p := range ev.Payments {
		if p.ToUserID == viewpoint {
			add(p.FromUserID, p.Amount.Neg())
		}
		if p.FromUserID == viewpoint {
			add(p.ToUserID, p.Amount)
		}
	}
	return out
}

// ForGroup restricts ev to the events of one group.
func ForGroup(groupID int64, ev Events) Events {
	var out Events
	for _, e := range ev.Expenses {
		if e.InGroup(groupID) {
			out.Expenses = append(out.Expenses, e)
		}
	}
	for _, p := range ev.Payments {
		if p.InGroup(groupID) {
			out.Payments = append(out.Payments, p)
		}
	}
	return out
}

// Participants returns every user that appears in ev, ascending.
func Participants(ev Events) []int64 {
	seen := make(map[int64]bool)
	for _, e := range Effective(ev.Expenses) {
		seen[e.PaidBy] = true
		for _, s := range e.Splits {
			seen[s.UserID] = true
		}
	}
	for _, p := range ev.Payments {
		seen[p.FromUserID] = true
		seen[p.ToUserID] = true
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MemberNets returns each member's net position per currency: the sum of
// their balances against everyone else. Here CounterpartUserID is the member
// and a positive Amount means the others owe that member.
func MemberNets(ev Events) []Balance {
	var out []Balance
	for _, member := range Participants(ev) {
		totals := make(map[string]int64)
		for k, m := range BalancesFor(member, ev) {
			totals[k.Currency] += m.Amount
		}
		for currency, amount := range totals {
			out = append(out, Balance{
				CounterpartUserID: member,
				Currency:          currency,
				Amount:            money.New(amount, currency),
			})
		}
	}
	sortBalances(out)
	return out
}

// Balances flattens a balance map into a slice ordered by currency, then
// counterpart.
func Balances(m map[Key]money.Money) []Balance {
	out := make([]Balance, 0, len(m))
	for k, v := range m {
		out = append(out, Balance{CounterpartUserID: k.CounterpartUserID, Currency: k.Currency, Amount: v})
	}
	sortBalances(out)
	return out
}

func sortBalances(b []Balance) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Currency != b[j].Currency {
			return b[i].Currency < b[j].Currency
		}
		return b[i].CounterpartUserID < b[j].CounterpartUserID
	})
}
