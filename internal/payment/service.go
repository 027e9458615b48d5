package payment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/integrity"
	"github.com/fkhayef/splitledger/pkg/logger"
)

// ErrPaymentNotFound is returned when no payment has the requested id.
var ErrPaymentNotFound = apperr.New(apperr.CodeNotFound, "payment not found")

// Store is the append-only payment event source.
type Store interface {
	Append(ctx context.Context, payments ...*Payment) ([]*Payment, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	List(ctx context.Context, f Filter) ([]*Payment, error)
	Count(ctx context.Context, f Filter) (int, error)
	Chain(ctx context.Context) ([]integrity.Link, error)
	Exclusive(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service handles payment business logic
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new payment service
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create records one payment made by the request's payer.
func (s *Service) Create(ctx context.Context, actorID int64, req *CreatePaymentRequest) (*Payment, error) {
	p, err := req.ToPayment(s.now())
	if err != nil {
		return nil, err
	}
	p.CreatedBy = actorID

	stored, err := s.Record(ctx, p)
	if err != nil {
		return nil, err
	}
	return stored[0], nil
}

// Record validates and appends payments atomically. No payment is stored
// if any of them fails validation.
func (s *Service) Record(ctx context.Context, payments ...*Payment) ([]*Payment, error) {
	if len(payments) == 0 {
		return nil, nil
	}
	for _, p := range payments {
		if err := Validate(p); err != nil {
			return nil, err
		}
	}

	stored, err := s.store.Append(ctx, payments...)
	if err != nil {
		return nil, err
	}
	for _, p := range stored {
		fields := logrus.Fields{
			"payment_id": p.ID,
			"from_user":  p.FromUserID,
			"to_user":    p.ToUserID,
			"amount":     p.Amount.Amount,
			"currency":   p.Amount.Currency,
			"method":     p.Method,
		}
		if p.GroupID != nil {
			fields["group_id"] = *p.GroupID
		}
		logger.Logger.WithFields(fields).Info("payment recorded")
	}
	return stored, nil
}

// Exclusive runs fn with payment appends serialized against it. Reads and
// Records made through the ctx passed to fn commit or roll back together.
func (s *Service) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.store.Exclusive(ctx, fn)
}

// Get retrieves a payment by id.
func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// List retrieves a page of payments and the total matching f.
func (s *Service) List(ctx context.Context, f Filter, page, perPage int) ([]*Payment, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	f.Limit = perPage
	f.Offset = (page - 1) * perPage

	total, err := s.store.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	payments, err := s.store.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
