package expense

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/expense/split"
	"github.com/fkhayef/splitledger/internal/integrity"
)

// memStore is an in-memory Store with the same chaining rules as Repository.
type memStore struct {
	mu       sync.Mutex
	rows     []*Expense
	replaced map[int64]bool
	appends  int
}

func newMemStore() *memStore {
	return &memStore{replaced: map[int64]bool{}}
}

func (m *memStore) Append(_ context.Context, e *Expense) (*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ReplacesID != nil && m.replaced[*e.ReplacesID] {
		return nil, apperr.New(apperr.CodeConflict, "expense has already been revised")
	}
	out := *e
	out.ID = int64(len(m.rows) + 1)
	out.Ref = uuid.New()
	out.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out.PrevHash = integrity.GenesisHash
	if n := len(m.rows); n > 0 {
		out.PrevHash = m.rows[n-1].ContentHash
	}
	var err error
	if out.ContentHash, err = integrity.ChainHash(out.ChainPayload(), out.PrevHash); err != nil {
		return nil, err
	}
	if out.ReplacesID != nil {
		m.replaced[*out.ReplacesID] = true
	}
	m.rows = append(m.rows, &out)
	m.appends++
	cp := out
	return &cp, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.rows) {
		return nil, nil
	}
	cp := *m.rows[id-1]
	return &cp, nil
}

func (m *memStore) IsReplaced(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaced[id], nil
}

func (m *memStore) matching(f Filter) []*Expense {
	var out []*Expense
	for _, e := range m.rows {
		if !f.IncludeHistory && (e.Void || m.replaced[e.ID]) {
			continue
		}
		if f.UserID != nil && !e.Involves(*f.UserID) {
			continue
		}
		if f.GroupID != nil && !e.InGroup(*f.GroupID) {
			continue
		}
		if f.From != nil && e.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Date.After(*f.To) {
			continue
		}
		if f.Currency != "" && e.Total.Currency != f.Currency {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) List(_ context.Context, f Filter) ([]*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.matching(f)
	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:min(len(out), f.Offset+f.Limit)]
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context, f Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(f)), nil
}

func (m *memStore) Chain(_ context.Context) ([]integrity.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := make([]integrity.Link, len(m.rows))
	for i, e := range m.rows {
		links[i] = integrity.Link{ID: e.ID, Payload: e.ChainPayload(), PrevHash: e.PrevHash, Hash: e.ContentHash}
	}
	return links, nil
}

type categorySet map[int64]bool

func (c categorySet) HasCategory(id int64) bool { return c[id] }

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	svc := NewService(store, NewValidator(split.NewSplitStrategyFactory()), categorySet{1: true, 2: true})
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 22, 0, 0, 0, time.UTC) }
	return svc, store
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func dinnerRequest() *CreateExpenseRequest {
	return &CreateExpenseRequest{
		Description:  "  Dinner  ",
		Amount:       decimal.RequireFromString("30.00"),
		Currency:     "USD",
		PaidBy:       1,
		SplitType:    "equal",
		Participants: []ParticipantRequest{{UserID: 1}, {UserID: 2}, {UserID: 3}},
	}
}

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	svc, store := newTestService()
	req := dinnerRequest()
	req.CategoryID = i64(2)

	e, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, "Dinner", e.Description)
	assert.Equal(t, int64(3000), e.Total.Amount)
	assert.Equal(t, "2026-03-15", e.Date.Format(time.DateOnly))
	assert.Equal(t, int64(1), e.CreatedBy)
	assert.NotEmpty(t, e.ContentHash)
	require.Len(t, e.Splits, 3)
	for _, s := range e.Splits {
		assert.Equal(t, int64(1000), s.Amount.Amount)
	}
	assert.Equal(t, 1, store.appends)
}

func TestServiceCreateFailsClosed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(r *CreateExpenseRequest)
		code   apperr.Code
	}{
		{"excess precision", func(r *CreateExpenseRequest) { r.Amount = decimal.RequireFromString("30.001") }, apperr.CodeInvalidInput},
		{"bad currency", func(r *CreateExpenseRequest) { r.Currency = "DOLLARS" }, apperr.CodeUnrecognizedCurrency},
		{"unknown category", func(r *CreateExpenseRequest) { r.CategoryID = i64(77) }, apperr.CodeInvalidInput},
		{"bad group", func(r *CreateExpenseRequest) { r.GroupID = i64(0) }, apperr.CodeInvalidInput},
		{"bad date", func(r *CreateExpenseRequest) { r.Date = "15/03/2026" }, apperr.CodeInvalidInput},
		{"zero total", func(r *CreateExpenseRequest) { r.Amount = decimal.Zero }, apperr.CodeNegativeOrZeroAmount},
		{"exact mismatch", func(r *CreateExpenseRequest) {
			r.SplitType = "exact"
			r.Participants = []ParticipantRequest{
				{UserID: 1, Amount: dec("10")},
				{UserID: 2, Amount: dec("10")},
				{UserID: 3, Amount: dec("9.99")},
			}
		}, apperr.CodeSplitMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, store := newTestService()
			req := dinnerRequest()
			tt.mutate(req)

			_, err := svc.Create(context.Background(), 1, req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
			assert.Zero(t, store.appends)
		})
	}
}

func TestServicePreviewDoesNotStore(t *testing.T) {
	t.Parallel()

	svc, store := newTestService()
	req := dinnerRequest()
	req.SplitType = "percentage"
	req.Participants = []ParticipantRequest{
		{UserID: 1, Percentage: dec("50")},
		{UserID: 2, Percentage: dec("25")},
		{UserID: 3, Percentage: dec("25")},
	}

	splits, err := svc.Preview(req)
	require.NoError(t, err)
	require.Len(t, splits, 3)
	assert.Equal(t, int64(1500), splits[0].Amount.Amount)
	assert.Zero(t, store.appends)
}

func TestServiceReviseAndVoid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, store := newTestService()
	original, err := svc.Create(ctx, 1, dinnerRequest())
	require.NoError(t, err)

	edit := dinnerRequest()
	edit.Amount = decimal.RequireFromString("45")
	revised, err := svc.Revise(ctx, 2, original.ID, edit)
	require.NoError(t, err)
	require.NotNil(t, revised.ReplacesID)
	assert.Equal(t, original.ID, *revised.ReplacesID)
	assert.Equal(t, original.ContentHash, revised.PrevHash)

	// Only the head of a revision chain can be extended.
	_, err = svc.Revise(ctx, 1, original.ID, edit)
	assert.ErrorIs(t, err, ErrAlreadyReplaced)
	_, err = svc.Void(ctx, 1, original.ID, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Outsiders cannot touch it.
	_, err = svc.Void(ctx, 99, revised.ID, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	void, err := svc.Void(ctx, 3, revised.ID, "duplicate")
	require.NoError(t, err)
	assert.True(t, void.Void)
	assert.Empty(t, void.Splits)
	require.NotNil(t, void.Notes)
	assert.Equal(t, "duplicate", *void.Notes)

	_, err = svc.Revise(ctx, 1, void.ID, edit)
	assert.ErrorIs(t, err, ErrAlreadyVoided)

	visible, total, err := svc.List(ctx, Filter{}, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, visible)

	history, total, err := svc.List(ctx, Filter{IncludeHistory: true}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, history, 3)

	links, err := store.Chain(ctx)
	require.NoError(t, err)
	assert.NoError(t, integrity.Verify(links))
}

func TestServiceGetNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceListPaginates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newTestService()
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, 1, dinnerRequest())
		require.NoError(t, err)
	}

	page, total, err := svc.List(ctx, Filter{UserID: i64(2)}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].ID)

	none, total, err := svc.List(ctx, Filter{UserID: i64(8)}, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}
