package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CartHandler serves the per-browser cart. The browser is identified by the
// anonymous-ID cookie, never by the login session.
type CartHandler struct {
	cartSvc  service.CartService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewCartHandler(cartSvc service.CartService, validate *validator.Validate, logger zerolog.Logger) *CartHandler {
	return &CartHandler{cartSvc: cartSvc, validate: validate, logger: logger}
}

// RegisterRoutes mounts the cart endpoints.
func (h *CartHandler) RegisterRoutes(mux *http.ServeMux, mw func(http.Handler) http.Handler) {
	mux.Handle("GET /cart", mw(http.HandlerFunc(h.Get)))
	mux.Handle("POST /cart/items", mw(http.HandlerFunc(h.AddItem)))
	mux.Handle("DELETE /cart/items/{id}", mw(http.HandlerFunc(h.RemoveItem)))
	mux.Handle("POST /cart/clear", mw(http.HandlerFunc(h.Clear)))
}

// Get godoc
// @Summary Get the current cart
// @Tags cart
// @Produce json
// @Success 200 {object} map[string]any
// @Router /cart [get]
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartSvc.Get(r.Context(), middleware.BrowserID(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

// AddItem godoc
// @Summary Add or replace a cart selection
// @Description At most one item per plan code; adding the same plan code again replaces the earlier selection.
// @Tags cart
// @Accept json
// @Produce json
// @Param item body dto.CartAddItemRequest true "Cart item"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /cart/items [post]
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req dto.CartAddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	cart, err := h.cartSvc.AddItem(r.Context(), middleware.BrowserID(r), model.CartItem{
		ID:        req.ID,
		PlanCode:  req.PlanCode,
		PlanTitle: req.PlanTitle,
		Slug:      req.Slug,
		Price:     model.Price{Amount: req.Price.Amount, Currency: req.Price.Currency},
		Interval: model.Interval{
			Length:             req.Interval.Length,
			Unit:               req.Interval.Unit,
			TotalBillingCycles: req.Interval.TotalBillingCycles,
		},
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

// RemoveItem godoc
// @Summary Remove a cart item by id
// @Tags cart
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartSvc.RemoveItem(r.Context(), middleware.BrowserID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

// Clear godoc
// @Summary Empty the cart
// @Description Called after a successful checkout.
// @Tags cart
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /cart/clear [post]
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cartSvc.Clear(r.Context(), middleware.BrowserID(r)); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
