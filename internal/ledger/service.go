package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/database"
	"github.com/fkhayef/splitledger/internal/expense"
	"github.com/fkhayef/splitledger/internal/payment"
)

// ExpenseSource lists expense revisions.
type ExpenseSource interface {
	List(ctx context.Context, f expense.Filter) ([]*expense.Expense, error)
}

// PaymentSource lists payments.
type PaymentSource interface {
	List(ctx context.Context, f payment.Filter) ([]*payment.Payment, error)
}

// Scope narrows the history a balance view is computed over.
type Scope struct {
	GroupID  *int64
	From     *time.Time
	To       *time.Time
	Currency string
}

// Dashboard is the viewpoint user's overview across counterparts and groups.
type Dashboard struct {
	UserID        int64
	Currencies    []CurrencySummary
	Groups        []GroupBalance
	HighestGroups []GroupBalance // one per currency with a non-zero group position
}

// GroupView is the state of one group's ledger.
type GroupView struct {
	GroupID int64
	Members []Balance // member nets, positive when the group owes the member
	Mine    []Balance // the viewpoint's pairwise balances inside the group, if asked for
}

// Service computes balance views from the event sources. Every view reads
// expenses and payments from one snapshot.
type Service struct {
	db       *sql.DB
	expenses ExpenseSource
	payments PaymentSource
}

// NewService creates a ledger service. db may be nil when the sources do not
// need a shared snapshot, as with in-memory stores.
func NewService(db *sql.DB, expenses ExpenseSource, payments PaymentSource) *Service {
	return &Service{db: db, expenses: expenses, payments: payments}
}

// Events loads the effective history in scope, optionally restricted to
// events involving userID.
func (s *Service) Events(ctx context.Context, userID *int64, scope Scope) (Events, error) {
	var ev Events
	load := func(ctx context.Context) error {
		var err error
		ev.Expenses, err = s.expenses.List(ctx, expense.Filter{
			UserID:   userID,
			GroupID:  scope.GroupID,
			From:     scope.From,
			To:       scope.To,
			Currency: scope.Currency,
		})
		if err != nil {
			return fmt.Errorf("failed to load expenses: %w", err)
		}
		ev.Payments, err = s.payments.List(ctx, payment.Filter{
			UserID:   userID,
			GroupID:  scope.GroupID,
			From:     scope.From,
			To:       scope.To,
			Currency: scope.Currency,
		})
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		return nil
	}

	if s.db == nil {
		return ev, load(ctx)
	}
	return ev, database.ReadSnapshot(ctx, s.db, load)
}

// Balances returns viewpoint's balance against every counterpart in scope.
func (s *Service) Balances(ctx context.Context, viewpoint int64, scope Scope) ([]Balance, error) {
	ev, err := s.Events(ctx, &viewpoint, scope)
	if err != nil {
		return nil, err
	}
	return Balances(BalancesFor(viewpoint, ev)), nil
}

// Between returns viewpoint's balance against one counterpart, one entry per
// currency they share history in.
func (s *Service) Between(ctx context.Context, viewpoint, counterpart int64, scope Scope) ([]Balance, error) {
	if viewpoint == counterpart {
		return nil, apperr.New(apperr.CodeInvalidInput, "cannot compute a balance with yourself")
	}
	all, err := s.Balances(ctx, viewpoint, scope)
	if err != nil {
		return nil, err
	}
	out := make([]Balance, 0, len(all))
	for _, b := range all {
		if b.CounterpartUserID == counterpart {
			out = append(out, b)
		}
	}
	return out, nil
}

// Dashboard builds viewpoint's overview over their whole history.
func (s *Service) Dashboard(ctx context.Context, viewpoint int64) (*Dashboard, error) {
	ev, err := s.Events(ctx, &viewpoint, Scope{})
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		UserID:     viewpoint,
		Currencies: Summarize(Balances(BalancesFor(viewpoint, ev))),
		Groups:     GroupRollup(viewpoint, ev),
	}
	for _, c := range d.Currencies {
		if g, ok := HighestGroup(d.Groups, c.Currency); ok {
			d.HighestGroups = append(d.HighestGroups, g)
		}
	}
	return d, nil
}

// Group returns the member nets of one group and, when viewpoint is set,
// that user's pairwise balances inside it.
func (s *Service) Group(ctx context.Context, groupID int64, viewpoint *int64, scope Scope) (*GroupView, error) {
	if groupID <= 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "group id must be positive")
	}
	scope.GroupID = &groupID
	ev, err := s.Events(ctx, nil, scope)
	if err != nil {
		return nil, err
	}

	view := &GroupView{GroupID: groupID, Members: MemberNets(ev)}
	if viewpoint != nil {
		view.Mine = Balances(BalancesFor(*viewpoint, ev))
	}
	return view, nil
}
