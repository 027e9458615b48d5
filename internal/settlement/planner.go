// Package settlement proposes and records the payments that settle a group.
package settlement

import (
	"sort"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/ledger"
	"github.com/fkhayef/splitledger/internal/money"
	"github.com/fkhayef/splitledger/internal/payment"
)

type position struct {
	userID int64
	amount int64 // magnitude, always positive
}

// Simplify proposes payments that bring every member's net position in one
// currency to zero.
//
// Each entry of nets is a member's net position as produced by
// ledger.MemberNets: CounterpartUserID is the member and a positive Amount
// means the group owes them. Entries for the same member are summed.
// The largest creditor is repeatedly matched against the largest debtor,
// ordered by magnitude and then by user id, so the result is deterministic
// and has at most creditors+debtors-1 payments. The returned payments carry
// only the parties and the amount.
func Simplify(nets []ledger.Balance) ([]payment.Payment, error) {
	if len(nets) == 0 {
		return nil, nil
	}

	currency := nets[0].Currency
	byUser := make(map[int64]int64)
	for _, b := range nets {
		if b.Currency != currency || b.Amount.Currency != currency {
			return nil, apperr.CurrencyMismatch(currency, b.Amount.Currency)
		}
		byUser[b.CounterpartUserID] += b.Amount.Amount
	}

	var creditors, debtors []position
	var credits, debits int64
	for user, amount := range byUser {
		switch {
		case amount > 0:
			creditors = append(creditors, position{userID: user, amount: amount})
			credits += amount
		case amount < 0:
			debtors = append(debtors, position{userID: user, amount: -amount})
			debits += -amount
		}
	}
	if credits != debits {
		return nil, apperr.UnbalancedLedger(credits, debits, currency)
	}

	var out []payment.Payment
	for len(creditors) > 0 && len(debtors) > 0 {
		sortPositions(creditors)
		sortPositions(debtors)

		c, d := &creditors[0], &debtors[0]
		amount := min(c.amount, d.amount)
		out = append(out, payment.Payment{
			FromUserID: d.userID,
			ToUserID:   c.userID,
			Amount:     money.New(amount, currency),
		})
		c.amount -= amount
		d.amount -= amount

		creditors = dropSettled(creditors)
		debtors = dropSettled(debtors)
	}
	return out, nil
}

// SimplifyAll runs Simplify once per currency present in nets, in currency
// code order.
func SimplifyAll(nets []ledger.Balance) ([]payment.Payment, error) {
	byCurrency := make(map[string][]ledger.Balance)
	for _, b := range nets {
		byCurrency[b.Currency] = append(byCurrency[b.Currency], b)
	}
	codes := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	var out []payment.Payment
	for _, c := range codes {
		payments, err := Simplify(byCurrency[c])
		if err != nil {
			return nil, err
		}
		out = append(out, payments...)
	}
	return out, nil
}

func sortPositions(p []position) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].amount != p[j].amount {
			return p[i].amount > p[j].amount
		}
		return p[i].userID < p[j].userID
	})
}

func dropSettled(p []position) []position {
	out := p[:0]
	for _, x := range p {
		if x.amount != 0 {
			out = append(out, x)
		}
	}
	return out
}
