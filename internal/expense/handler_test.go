package expense

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitledger/pkg/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"meta"`
}

const maxTestBody = 64 << 10

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService()
	r := chi.NewRouter()
	r.Use(chimw.RequestSize(maxTestBody))
	r.Use(middleware.UserMiddleware)
	r.Mount("/expenses", NewHandler(svc).Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, path string, userID int64, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if userID > 0 {
		req.Header.Set(middleware.UserHeader, strconv.FormatInt(userID, 10))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

const dinnerJSON = `{
	"description": "Dinner",
	"amount": "30.00",
	"currency": "USD",
	"paid_by": 1,
	"split_type": "shares",
	"participants": [
		{"user_id": 1, "shares": 2},
		{"user_id": 2, "shares": 1}
	]
}`

func TestHandlerCreateAndGet(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	status, env := do(t, h, http.MethodPost, "/expenses/", 1, dinnerJSON)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)

	var created ExpenseResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "30.00", created.Total.Value)
	require.Len(t, created.Splits, 2)
	assert.Equal(t, int64(2000), created.Splits[0].Amount.Minor)
	assert.Equal(t, "10.00", created.Splits[1].Amount.Value)

	status, env = do(t, h, http.MethodGet, "/expenses/"+strconv.FormatInt(created.ID, 10), 0, "")
	require.Equal(t, http.StatusOK, status)
	var got ExpenseResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ContentHash, got.ContentHash)
}

func TestHandlerErrors(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	status, env := do(t, h, http.MethodPost, "/expenses/", 0, dinnerJSON)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	status, env = do(t, h, http.MethodPost, "/expenses/", 1, `{"description":`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = do(t, h, http.MethodPost, "/expenses/", 1, `{
		"description": "Taxi", "amount": "9.99", "currency": "USD", "paid_by": 1, "split_type": "exact",
		"participants": [{"user_id": 1, "amount": "5"}, {"user_id": 2, "amount": "5"}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SPLIT_MISMATCH", env.Error.Code)
	assert.Equal(t, "1000", env.Error.Details["expected"])
	assert.Equal(t, "999", env.Error.Details["actual"])

	status, env = do(t, h, http.MethodPost, "/expenses/", 1, `{
		"description": "Taxi", "amount": "10", "currency": "USD", "paid_by": 1, "split_type": "coin_flip",
		"participants": [{"user_id": 1}, {"user_id": 2}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "UNRECOGNIZED_SPLIT_TYPE", env.Error.Code)

	status, env = do(t, h, http.MethodGet, "/expenses/404", 0, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, _ = do(t, h, http.MethodGet, "/expenses/abc", 0, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, h, http.MethodGet, "/expenses/?from=yesterday", 0, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandlerPreview(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	status, env := do(t, h, http.MethodPost, "/expenses/preview", 0, dinnerJSON)
	require.Equal(t, http.StatusOK, status)
	var splits []SplitResponse
	require.NoError(t, json.Unmarshal(env.Data, &splits))
	require.Len(t, splits, 2)

	status, env = do(t, h, http.MethodGet, "/expenses/", 0, "")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.Zero(t, env.Meta.Total)
}

func TestHandlerReviseVoidLifecycle(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	_, env := do(t, h, http.MethodPost, "/expenses/", 1, dinnerJSON)
	var created ExpenseResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	path := "/expenses/" + strconv.FormatInt(created.ID, 10)

	status, env := do(t, h, http.MethodPut, path, 2, dinnerJSON)
	require.Equal(t, http.StatusOK, status)
	var revised ExpenseResponse
	require.NoError(t, json.Unmarshal(env.Data, &revised))
	require.NotNil(t, revised.ReplacesID)

	status, env = do(t, h, http.MethodPut, path, 2, dinnerJSON)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	revisedPath := "/expenses/" + strconv.FormatInt(revised.ID, 10)
	status, env = do(t, h, http.MethodDelete, revisedPath, 5, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, env = do(t, h, http.MethodDelete, revisedPath, 1, `{"reason":"typo"}`)
	require.Equal(t, http.StatusOK, status)
	var void ExpenseResponse
	require.NoError(t, json.Unmarshal(env.Data, &void))
	assert.True(t, void.Void)

	status, env = do(t, h, http.MethodGet, "/expenses/?include_history=true&per_page=2", 0, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)
}

func TestHandlerRejectsHostileAmounts(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	request := func(participants string) string {
		return `{"description": "Dinner", "amount": "10.00", "currency": "USD", "paid_by": 1,
			"split_type": "` + participants + `}`
	}

	status, env := do(t, h, http.MethodPost, "/expenses/", 1, request(
		`percentage", "participants": [{"user_id": 1, "percentage": "100"}, {"user_id": 2, "percentage": "1e-400000000"}]`))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	status, env = do(t, h, http.MethodPost, "/expenses/", 1, request(
		`percentage", "participants": [{"user_id": 1, "percentage": "99.99999"}, {"user_id": 2, "percentage": "0.00001"}]`))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	status, env = do(t, h, http.MethodPost, "/expenses/", 1, request(
		`exact", "participants": [{"user_id": 1, "amount": "92233720368547758.07"}, {"user_id": 2, "amount": "92233720368547758.07"}, {"user_id": 3, "amount": "10.02"}]`))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	status, env = do(t, h, http.MethodPost, "/expenses/", 1, request(
		`exact", "participants": [{"user_id": 1, "amount": "1e400000000"}, {"user_id": 2, "amount": "0"}]`))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	status, env = do(t, h, http.MethodGet, "/expenses/", 0, "")
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, env.Meta.Total)
}

func TestHandlerRejectsOversizedBody(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	notes := strings.Repeat("x", maxTestBody)
	body := fmt.Sprintf(`{"description": "Dinner", "amount": "30.00", "currency": "USD", "paid_by": 1,
		"split_type": "equal", "participants": [{"user_id": 1}, {"user_id": 2}], "notes": %q}`, notes)

	status, env := do(t, h, http.MethodPost, "/expenses/", 1, body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}
