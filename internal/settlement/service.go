package settlement

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/integrity"
	"github.com/fkhayef/splitledger/internal/ledger"
	"github.com/fkhayef/splitledger/internal/payment"
	"github.com/fkhayef/splitledger/pkg/logger"
)

// Common errors
var (
	ErrPlanChanged  = apperr.New(apperr.CodeConflict, "settlement plan has changed since it was fetched")
	ErrNotMember    = apperr.New(apperr.CodeForbidden, "only a group member can settle the group")
	ErrInvalidGroup = apperr.New(apperr.CodeInvalidInput, "group id must be positive")
)

// GroupLedger supplies a group's member nets.
type GroupLedger interface {
	Group(ctx context.Context, groupID int64, viewpoint *int64, scope ledger.Scope) (*ledger.GroupView, error)
}

// Recorder appends payments atomically. Exclusive runs fn with every other
// Exclusive caller and payment append held off until fn returns.
type Recorder interface {
	Record(ctx context.Context, payments ...*payment.Payment) ([]*payment.Payment, error)
	Exclusive(ctx context.Context, fn func(ctx context.Context) error) error
}

// Plan is a proposed set of transfers that settles a group.
type Plan struct {
	GroupID   int64
	Currency  string // empty when the plan covers every currency
	Transfers []payment.Payment
	Hash      string
}

// Service handles settlement business logic
type Service struct {
	groups   GroupLedger
	recorder Recorder
	now      func() time.Time
}

// NewService creates a new settlement service
func NewService(groups GroupLedger, recorder Recorder) *Service {
	return &Service{groups: groups, recorder: recorder, now: time.Now}
}

// Plan proposes the transfers that settle groupID, limited to currency when
// it is not empty.
func (s *Service) Plan(ctx context.Context, groupID int64, currency string) (*Plan, error) {
	plan, _, err := s.plan(ctx, groupID, currency)
	return plan, err
}

func (s *Service) plan(ctx context.Context, groupID int64, currency string) (*Plan, *ledger.GroupView, error) {
	if groupID <= 0 {
		return nil, nil, ErrInvalidGroup
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))

	view, err := s.groups.Group(ctx, groupID, nil, ledger.Scope{Currency: currency})
	if err != nil {
		return nil, nil, err
	}

	transfers, err := SimplifyAll(view.Members)
	if err != nil {
		logger.Logger.WithFields(logrus.Fields{
			"group_id": groupID,
			"currency": currency,
		}).WithError(err).Error("cannot plan settlement")
		return nil, nil, err
	}

	hash, err := integrity.ContentHash(transfersPayload(transfers))
	if err != nil {
		return nil, nil, err
	}
	return &Plan{GroupID: groupID, Currency: currency, Transfers: transfers, Hash: hash}, view, nil
}

// Apply records the current plan for groupID as payments entered by actorID.
// When req.PlanHash is set and the plan has changed since, nothing is
// recorded and ErrPlanChanged is returned. The plan is recomputed and
// recorded under the recorder's exclusive section, so concurrent applies of
// one plan record it once.
func (s *Service) Apply(ctx context.Context, actorID, groupID int64, req *ApplyRequest) ([]*payment.Payment, error) {
	method := payment.Method(strings.ToLower(strings.TrimSpace(req.Method)))
	if method == "" {
		method = payment.MethodCash
	}
	var note *string
	if req.Note != nil {
		if n := strings.TrimSpace(*req.Note); n != "" {
			note = &n
		}
	}

	var (
		stored []*payment.Payment
		hash   string
	)
	err := s.recorder.Exclusive(ctx, func(ctx context.Context) error {
		plan, view, err := s.plan(ctx, groupID, req.Currency)
		if err != nil {
			return err
		}
		if !isMember(view, actorID) {
			return ErrNotMember
		}
		if req.PlanHash != "" && req.PlanHash != plan.Hash {
			return ErrPlanChanged
		}
		hash = plan.Hash
		if len(plan.Transfers) == 0 {
			stored = []*payment.Payment{}
			return nil
		}

		paidAt := s.now().UTC().Truncate(time.Microsecond)
		payments := make([]*payment.Payment, len(plan.Transfers))
		for i, t := range plan.Transfers {
			p := t
			p.Method = method
			p.GroupID = &groupID
			p.PaidAt = paidAt
			p.Note = note
			p.CreatedBy = actorID
			payments[i] = &p
		}
		stored, err = s.recorder.Record(ctx, payments...)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		logger.Logger.WithFields(logrus.Fields{
			"group_id":  groupID,
			"actor_id":  actorID,
			"payments":  len(stored),
			"plan_hash": hash,
		}).Info("group settled")
	}
	return stored, nil
}

func isMember(view *ledger.GroupView, userID int64) bool {
	for _, m := range view.Members {
		if m.CounterpartUserID == userID {
			return true
		}
	}
	return false
}

type transferPayload struct {
	From     int64  `json:"from"`
	To       int64  `json:"to"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func transfersPayload(transfers []payment.Payment) []transferPayload {
	out := make([]transferPayload, len(transfers))
	for i, t := range transfers {
		out[i] = transferPayload{From: t.FromUserID, To: t.ToUserID, Amount: t.Amount.Amount, Currency: t.Amount.Currency}
	}
	return out
}
