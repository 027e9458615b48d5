package ledger

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/splitledger/pkg/middleware"
	"github.com/fkhayef/splitledger/pkg/response"
)

// Handler handles HTTP requests for balance views
type Handler struct {
	service *Service
}

// NewHandler creates a new ledger handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for balance endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetBalances)
	r.Get("/{userId}", h.GetBalanceWithUser)

	return r
}

// GetBalances handles GET /balances
// @Summary      Get my balances
// @Description  Net balance against every counterpart, per currency. Positive amounts are owed to you.
// @Tags         balances
// @Produce      json
// @Param        X-User-ID header int true "Viewpoint user"
// @Param        group_id query int false "Only this group's history"
// @Param        from query string false "Earliest event date (YYYY-MM-DD)"
// @Param        to query string false "Latest event date (YYYY-MM-DD)"
// @Param        currency query string false "ISO 4217 currency code"
// @Success      200 {object} response.APIResponse{data=[]BalanceResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /balances [get]
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}
	scope, msg := parseScope(r.URL.Query())
	if msg != "" {
		response.BadRequest(w, msg)
		return
	}

	balances, err := h.service.Balances(r.Context(), userID, scope)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, BalancesToResponse(balances))
}

// GetBalanceWithUser handles GET /balances/{userId}
// @Summary      Get my balance with a user
// @Tags         balances
// @Produce      json
// @Param        X-User-ID header int true "Viewpoint user"
// @Param        userId path int true "Counterpart user ID"
// @Success      200 {object} response.APIResponse{data=[]BalanceResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /balances/{userId} [get]
func (h *Handler) GetBalanceWithUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}
	otherUserID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || otherUserID <= 0 {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	scope, msg := parseScope(r.URL.Query())
	if msg != "" {
		response.BadRequest(w, msg)
		return
	}

	balances, err := h.service.Between(r.Context(), userID, otherUserID, scope)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, BalancesToResponse(balances))
}

// GetDashboard handles GET /dashboard
// @Summary      Get my dashboard
// @Description  Per-currency totals owed and owing, the largest counterparts, and per-group positions
// @Tags         balances
// @Produce      json
// @Param        X-User-ID header int true "Viewpoint user"
// @Success      200 {object} response.APIResponse{data=DashboardResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /dashboard [get]
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, d.ToResponse())
}

// GetGroupBalances handles GET /groups/{id}/balances
// @Summary      Get group balances
// @Description  Every member's net position in the group; with X-User-ID, also your balances inside it
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        X-User-ID header int false "Viewpoint user"
// @Success      200 {object} response.APIResponse{data=GroupBalancesResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups/{id}/balances [get]
func (h *Handler) GetGroupBalances(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || groupID <= 0 {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	scope, msg := parseScope(r.URL.Query())
	if msg != "" {
		response.BadRequest(w, msg)
		return
	}
	var viewpoint *int64
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		viewpoint = &userID
	}

	view, err := h.service.Group(r.Context(), groupID, viewpoint, scope)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, view.ToResponse())
}

func parseScope(q url.Values) (Scope, string) {
	var s Scope
	if raw := q.Get("group_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return s, "Invalid group_id"
		}
		s.GroupID = &id
	}
	for key, dst := range map[string]**time.Time{"from": &s.From, "to": &s.To} {
		if raw := q.Get(key); raw != "" {
			t, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				return s, "Invalid " + key + " date, expected YYYY-MM-DD"
			}
			*dst = &t
		}
	}
	s.Currency = strings.ToUpper(strings.TrimSpace(q.Get("currency")))
	return s, ""
}
