package expense

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/integrity"
	"github.com/fkhayef/splitledger/pkg/logger"
)

// Common errors
var (
	ErrExpenseNotFound = apperr.New(apperr.CodeNotFound, "expense not found")
	ErrAlreadyReplaced = apperr.New(apperr.CodeConflict, "expense has already been revised; edit the latest revision")
	ErrAlreadyVoided   = apperr.New(apperr.CodeConflict, "expense has been deleted")
	ErrNotParticipant  = apperr.New(apperr.CodeForbidden, "only a participant can change this expense")
	ErrUnknownCategory = apperr.New(apperr.CodeInvalidInput, "category does not exist")
	ErrInvalidGroupID  = apperr.New(apperr.CodeInvalidInput, "group id must be positive")
)

// Store is the append-only expense event source.
type Store interface {
	Append(ctx context.Context, e *Expense) (*Expense, error)
	GetByID(ctx context.Context, id int64) (*Expense, error)
	IsReplaced(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, f Filter) ([]*Expense, error)
	Count(ctx context.Context, f Filter) (int, error)
	Chain(ctx context.Context) ([]integrity.Link, error)
}

// Categories checks category ids against the reference catalog.
type Categories interface {
	HasCategory(id int64) bool
}

// Service handles expense business logic
type Service struct {
	store      Store
	validator  *Validator
	categories Categories
	now        func() time.Time
}

// NewService creates a new expense service with dependencies injected
func NewService(store Store, validator *Validator, categories Categories) *Service {
	return &Service{
		store:      store,
		validator:  validator,
		categories: categories,
		now:        time.Now,
	}
}

// Create validates the request, resolves its splits and appends the expense.
// Nothing is stored when any check fails.
func (s *Service) Create(ctx context.Context, actorID int64, req *CreateExpenseRequest) (*Expense, error) {
	e, err := s.build(req)
	if err != nil {
		return nil, err
	}
	e.CreatedBy = actorID

	created, err := s.store.Append(ctx, e)
	if err != nil {
		return nil, err
	}
	s.logAppend("expense appended", created)
	return created, nil
}

// Preview validates the request and returns the splits it would produce.
func (s *Service) Preview(req *CreateExpenseRequest) ([]Split, error) {
	e, err := s.build(req)
	if err != nil {
		return nil, err
	}
	return e.Splits, nil
}

// Get retrieves one revision by id.
func (s *Service) Get(ctx context.Context, id int64) (*Expense, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}
	return e, nil
}

// List retrieves a page of expenses and the total matching f.
func (s *Service) List(ctx context.Context, f Filter, page, perPage int) ([]*Expense, int, error) {
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
	expenses, err := s.store.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// Revise appends a new revision replacing expense id.
func (s *Service) Revise(ctx context.Context, actorID, id int64, req *CreateExpenseRequest) (*Expense, error) {
	current, err := s.head(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	e, err := s.build(req)
	if err != nil {
		return nil, err
	}
	e.ReplacesID = &current.ID
	e.CreatedBy = actorID

	revised, err := s.store.Append(ctx, e)
	if err != nil {
		return nil, err
	}
	s.logAppend("expense revised", revised)
	return revised, nil
}

// Void appends a void revision for expense id, removing it from balances.
func (s *Service) Void(ctx context.Context, actorID, id int64, reason string) (*Expense, error) {
	current, err := s.head(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	void := &Expense{
		GroupID:     current.GroupID,
		PaidBy:      current.PaidBy,
		Description: current.Description,
		Total:       current.Total,
		Date:        current.Date,
		SplitType:   current.SplitType,
		CategoryID:  current.CategoryID,
		Notes:       current.Notes,
		ReplacesID:  &current.ID,
		Void:        true,
		CreatedBy:   actorID,
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		void.Notes = &reason
	}

	stored, err := s.store.Append(ctx, void)
	if err != nil {
		return nil, err
	}
	s.logAppend("expense voided", stored)
	return stored, nil
}

// head loads id and checks that it can be extended by actorID.
func (s *Service) head(ctx context.Context, actorID, id int64) (*Expense, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Void {
		return nil, ErrAlreadyVoided
	}
	replaced, err := s.store.IsReplaced(ctx, id)
	if err != nil {
		return nil, err
	}
	if replaced {
		return nil, ErrAlreadyReplaced
	}
	if !current.Involves(actorID) {
		return nil, ErrNotParticipant
	}
	return current, nil
}

// build turns a request into an unsaved expense with resolved splits.
func (s *Service) build(req *CreateExpenseRequest) (*Expense, error) {
	candidate, err := req.ToCandidate()
	if err != nil {
		return nil, err
	}
	splits, err := s.validator.Resolve(candidate)
	if err != nil {
		return nil, err
	}

	if req.GroupID != nil && *req.GroupID <= 0 {
		return nil, ErrInvalidGroupID
	}
	if req.CategoryID != nil && (s.categories == nil || !s.categories.HasCategory(*req.CategoryID)) {
		return nil, ErrUnknownCategory
	}
	date, err := req.ParseDate(s.now())
	if err != nil {
		return nil, err
	}

	var notes *string
	if req.Notes != nil {
		if n := strings.TrimSpace(*req.Notes); n != "" {
			notes = &n
		}
	}

	return &Expense{
		GroupID:     req.GroupID,
		PaidBy:      candidate.PaidBy,
		Description: strings.TrimSpace(candidate.Description),
		Total:       candidate.Total,
		Date:        date,
		SplitType:   candidate.SplitType,
		Splits:      splits,
		CategoryID:  req.CategoryID,
		Notes:       notes,
	}, nil
}

func (s *Service) logAppend(msg string, e *Expense) {
	fields := logrus.Fields{
		"expense_id":   e.ID,
		"paid_by":      e.PaidBy,
		"amount":       e.Total.Amount,
		"currency":     e.Total.Currency,
		"split_type":   e.SplitType,
		"content_hash": e.ContentHash,
	}
	if e.GroupID != nil {
		fields["group_id"] = *e.GroupID
	}
	if e.ReplacesID != nil {
		fields["replaces_id"] = *e.ReplacesID
	}
	logger.Logger.WithFields(fields).Info(msg)
}
