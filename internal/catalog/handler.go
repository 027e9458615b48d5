package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/splitledger/pkg/response"
)

// Handler serves the reference data endpoints.
type Handler struct {
	catalog *Catalog
}

// NewHandler creates a new reference data handler
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// Routes returns the router for reference endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/currencies", h.ListCurrencies)
	r.Get("/categories", h.ListCategories)

	return r
}

// ListCurrencies handles GET /reference/currencies
// @Summary      List currencies
// @Description  Currencies offered for expenses and payments, with their minor-unit decimals
// @Tags         reference
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Currency}
// @Router       /reference/currencies [get]
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.catalog.Currencies())
}

// ListCategories handles GET /reference/categories
// @Summary      List expense categories
// @Tags         reference
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Category}
// @Router       /reference/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.catalog.Categories())
}
