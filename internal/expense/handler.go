package expense

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/splitledger/pkg/middleware"
	"github.com/fkhayef/splitledger/pkg/response"
)

// Handler handles HTTP requests for expense operations
type Handler struct {
	service *Service
}

// NewHandler creates a new expense handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for expense endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/preview", h.Preview)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Revise)
	r.Delete("/{id}", h.Void)

	return r
}

// Create handles POST /expenses
// @Summary      Create a new expense
// @Description  Create an expense; splits are resolved with the equal, exact, percentage, shares, adjustment, reimbursement or itemized strategy
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        X-User-ID header int true "Viewpoint user"
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	expense, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, expense.ToResponse())
}

// Preview handles POST /expenses/preview
// @Summary      Preview an expense split
// @Description  Validate an expense and return the splits it would produce, without storing anything
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        request body CreateExpenseRequest true "Expense to preview"
// @Success      200 {object} response.APIResponse{data=[]SplitResponse}
// @Failure      422 {object} response.APIResponse
// @Router       /expenses/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	splits, err := h.service.Preview(&req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, SplitsToResponse(splits))
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Get an expense revision with all its splits
// @Tags         expenses
// @Produce      json
// @Param        id path int true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	expense, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, expense.ToResponse())
}

// List handles GET /expenses
// @Summary      List expenses
// @Description  Paginated expenses, newest first. Replaced and deleted revisions are hidden unless include_history is set.
// @Tags         expenses
// @Produce      json
// @Param        user_id query int false "Only expenses this user paid for or shares in"
// @Param        group_id query int false "Only expenses in this group"
// @Param        from query string false "Earliest expense date (YYYY-MM-DD)"
// @Param        to query string false "Latest expense date (YYYY-MM-DD)"
// @Param        currency query string false "ISO 4217 currency code"
// @Param        include_history query bool false "Include replaced and deleted revisions"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := ParseFilter(q)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	expenses, total, err := h.service.List(r.Context(), f, page, perPage)
	if err != nil {
		response.Error(w, err)
		return
	}

	expenseResponses := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		expenseResponses[i] = e.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, expenseResponses, meta)
}

// Revise handles PUT /expenses/{id}
// @Summary      Edit an expense
// @Description  Append a new revision that replaces the given one. Only the latest revision can be edited.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        X-User-ID header int true "Viewpoint user"
// @Param        id path int true "Expense ID"
// @Param        request body CreateExpenseRequest true "Replacement expense"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /expenses/{id} [put]
func (h *Handler) Revise(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}
	userID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	expense, err := h.service.Revise(r.Context(), userID, id, &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, expense.ToResponse())
}

// Void handles DELETE /expenses/{id}
// @Summary      Delete an expense
// @Description  Append a void revision; the expense stops counting towards balances
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        X-User-ID header int true "Viewpoint user"
// @Param        id path int true "Expense ID"
// @Param        request body VoidExpenseRequest false "Optional reason"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/{id} [delete]
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}
	userID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	var req VoidExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body")
		return
	}

	expense, err := h.service.Void(r.Context(), userID, id, req.Reason)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, expense.ToResponse())
}

// ParseFilter reads the common event filters from query parameters.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	parseID := func(key string) (*int64, error) {
		raw := q.Get(key)
		if raw == "" {
			return nil, nil
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, &queryError{"Invalid " + key}
		}
		return &id, nil
	}
	parseDate := func(key string) (*time.Time, error) {
		raw := q.Get(key)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, &queryError{"Invalid " + key + " date, expected YYYY-MM-DD"}
		}
		return &t, nil
	}

	var err error
	if f.UserID, err = parseID("user_id"); err != nil {
		return f, err
	}
	if f.GroupID, err = parseID("group_id"); err != nil {
		return f, err
	}
	if f.From, err = parseDate("from"); err != nil {
		return f, err
	}
	if f.To, err = parseDate("to"); err != nil {
		return f, err
	}
	f.Currency = strings.ToUpper(strings.TrimSpace(q.Get("currency")))
	f.IncludeHistory, _ = strconv.ParseBool(q.Get("include_history"))
	return f, nil
}

type queryError struct{ msg string }

func (e *queryError) Error() string { return e.msg }
