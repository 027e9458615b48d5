package settlement

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/splitledger/pkg/middleware"
	"github.com/fkhayef/splitledger/pkg/response"
)

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service *Service
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetPlan handles GET /groups/{id}/settlement-plan
// @Summary      Propose a settlement plan
// @Description  The fewest greedy transfers that bring every member of the group to zero, per currency
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        currency query string false "Only plan this currency"
// @Success      200 {object} response.APIResponse{data=PlanResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /groups/{id}/settlement-plan [get]
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	plan, err := h.service.Plan(r.Context(), groupID, r.URL.Query().Get("currency"))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, plan.ToResponse())
}

// Settle handles POST /groups/{id}/settle
// @Summary      Settle a group
// @Description  Record the current settlement plan as payments
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        X-User-ID header int true "Acting group member"
// @Param        request body ApplyRequest false "Settlement options"
// @Success      201 {object} response.APIResponse{data=[]payment.PaymentResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/settle [post]
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body")
		return
	}

	payments, err := h.service.Apply(r.Context(), userID, groupID, &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, paymentsToResponse(payments))
}
