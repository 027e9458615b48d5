package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/internal/expense"
	"github.com/fkhayef/splitledger/internal/ledger"
	"github.com/fkhayef/splitledger/internal/payment"
	"github.com/fkhayef/splitledger/pkg/middleware"
)

// memLedger is a single-group ledger that also records payments into itself.
type memLedger struct {
	mu   sync.Mutex
	excl sync.Mutex
	ev   ledger.Events
}

func (m *memLedger) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	m.excl.Lock()
	defer m.excl.Unlock()
	return fn(ctx)
}

// gatedLedger holds every Group call, after it has read its view, until a
// second caller meets it or the wait times out. Two applies planning outside
// the exclusive section would both act on the same pre-settlement view.
type gatedLedger struct {
	*memLedger
	gate chan struct{}
}

func (g *gatedLedger) Group(ctx context.Context, groupID int64, viewpoint *int64, scope ledger.Scope) (*ledger.GroupView, error) {
	view, err := g.memLedger.Group(ctx, groupID, viewpoint, scope)
	select {
	case g.gate <- struct{}{}:
	case <-g.gate:
	case <-time.After(100 * time.Millisecond):
	}
	return view, err
}

func (m *memLedger) Group(_ context.Context, groupID int64, _ *int64, scope ledger.Scope) (*ledger.GroupView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := ledger.ForGroup(groupID, m.ev)
	if scope.Currency != "" {
		var filtered ledger.Events
		for _, e := range ev.Expenses {
			if e.Total.Currency == scope.Currency {
				filtered.Expenses = append(filtered.Expenses, e)
			}
		}
		for _, p := range ev.Payments {
			if p.Amount.Currency == scope.Currency {
				filtered.Payments = append(filtered.Payments, p)
			}
		}
		ev = filtered
	}
	return &ledger.GroupView{GroupID: groupID, Members: ledger.MemberNets(ev)}, nil
}

func (m *memLedger) Record(_ context.Context, payments ...*payment.Payment) ([]*payment.Payment, error) {
	for _, p := range payments {
		if err := payment.Validate(p); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range payments {
		p.ID = int64(len(m.ev.Payments) + 1)
		m.ev.Payments = append(m.ev.Payments, p)
	}
	return payments, nil
}

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func newTestService() (*Service, *memLedger) {
	store := &memLedger{ev: ledger.Events{Expenses: []*expense.Expense{
		groupExpense(1, 5, 1, "USD", map[int64]int64{3: 2500, 4: 500}),
		groupExpense(2, 5, 2, "USD", map[int64]int64{4: 1000}),
		groupExpense(3, 5, 3, "EUR", map[int64]int64{1: 800, 3: 800}),
		groupExpense(4, 6, 7, "USD", map[int64]int64{8: 100}),
	}}}
	svc := NewService(store, store)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func TestPlanAndApply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService()

	plan, err := svc.Plan(ctx, 5, "")
	require.NoError(t, err)
	require.Len(t, plan.Transfers, 4)
	assert.Equal(t, "EUR", plan.Transfers[0].Amount.Currency)
	assert.NotEmpty(t, plan.Hash)

	usd, err := svc.Plan(ctx, 5, "usd")
	require.NoError(t, err)
	assert.Len(t, usd.Transfers, 3)
	assert.NotEqual(t, plan.Hash, usd.Hash)

	_, err = svc.Apply(ctx, 7, 5, &ApplyRequest{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Apply(ctx, 1, 5, &ApplyRequest{PlanHash: "stale"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Apply(ctx, 1, 5, &ApplyRequest{Method: "iou"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, store.ev.Payments)

	note := " end of trip "
	stored, err := svc.Apply(ctx, 1, 5, &ApplyRequest{PlanHash: plan.Hash, Method: "bank_transfer", Note: &note})
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for _, p := range stored {
		assert.Equal(t, payment.MethodBankTransfer, p.Method)
		require.NotNil(t, p.GroupID)
		assert.Equal(t, int64(5), *p.GroupID)
		assert.Equal(t, int64(1), p.CreatedBy)
		assert.Equal(t, fixedNow, p.PaidAt)
		assert.Equal(t, "end of trip", *p.Note)
	}

	after, err := svc.Plan(ctx, 5, "")
	require.NoError(t, err)
	assert.Empty(t, after.Transfers)

	_, err = svc.Apply(ctx, 1, 5, &ApplyRequest{PlanHash: plan.Hash})
	assert.ErrorIs(t, err, apperr.ErrConflict, "replaying an applied plan")

	again, err := svc.Apply(ctx, 1, 5, &ApplyRequest{})
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = svc.Plan(ctx, 0, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestConcurrentAppliesRecordPlanOnce(t *testing.T) {
	t.Parallel()

	for _, withHash := range []bool{true, false} {
		ctx := context.Background()
		svc, store := newTestService()
		plan, err := svc.Plan(ctx, 5, "USD")
		require.NoError(t, err)
		require.Len(t, plan.Transfers, 3)

		svc.groups = &gatedLedger{memLedger: store, gate: make(chan struct{})}
		req := &ApplyRequest{Currency: "USD"}
		if withHash {
			req.PlanHash = plan.Hash
		}

		var (
			wg      sync.WaitGroup
			results [2][]*payment.Payment
			errs    [2]error
		)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = svc.Apply(ctx, 1, 5, req)
			}()
		}
		wg.Wait()

		recorded := 0
		for i := range results {
			if withHash && errs[i] != nil {
				assert.ErrorIs(t, errs[i], ErrPlanChanged)
				continue
			}
			require.NoError(t, errs[i])
			recorded += len(results[i])
		}
		assert.Equal(t, 3, recorded, "hash supplied: %v", withHash)
		assert.Len(t, store.ev.Payments, 3)

		after, err := svc.Plan(ctx, 5, "USD")
		require.NoError(t, err)
		assert.Empty(t, after.Transfers)
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.UserMiddleware)
	r.Get("/groups/{id}/settlement-plan", h.GetPlan)
	r.Post("/groups/{id}/settle", h.Settle)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/5/settlement-plan?currency=USD", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data PlanResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Transfers, 3)
	assert.Equal(t, "25.00", body.Data.Transfers[0].Amount.Value)
	assert.False(t, body.Data.Settled)

	settle := func(user, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/groups/5/settle", bytes.NewBufferString(payload))
		if user != "" {
			req.Header.Set(middleware.UserHeader, user)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, settle("", "").Code)
	assert.Equal(t, http.StatusForbidden, settle("8", "").Code)
	assert.Equal(t, http.StatusConflict, settle("3", `{"plan_hash": "nope"}`).Code)

	rec = settle("3", `{"currency": "USD", "plan_hash": "`+body.Data.PlanHash+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data []payment.PaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.Data, 3)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/5/settlement-plan?currency=USD", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Settled)
}
