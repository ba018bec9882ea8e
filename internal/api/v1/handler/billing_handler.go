package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// BillingHandler handles the subscription lifecycle endpoints plus the
// provider diagnostics.
type BillingHandler struct {
	subSvc    service.SubscriptionService
	billing   service.BillingClient
	publicKey string
	validate  *validator.Validate
	logger    zerolog.Logger
}

func NewBillingHandler(subSvc service.SubscriptionService, billing service.BillingClient, publicKey string, validate *validator.Validate, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{
		subSvc:    subSvc,
		billing:   billing,
		publicKey: publicKey,
		validate:  validate,
		logger:    logger,
	}
}

// RegisterRoutes mounts the billing endpoints.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, mw func(http.Handler) http.Handler) {
	mux.Handle("POST /billing/subscribe", mw(http.HandlerFunc(h.Subscribe)))
	mux.Handle("POST /billing/pause-subscription", mw(http.HandlerFunc(h.Pause)))
	mux.Handle("POST /billing/resume-subscription", mw(http.HandlerFunc(h.Resume)))
	mux.Handle("POST /billing/cancel-subscription", mw(http.HandlerFunc(h.Cancel)))
	mux.Handle("POST /billing/cancel-pause", mw(http.HandlerFunc(h.CancelPause)))
	mux.Handle("POST /billing/check-subscriptions", mw(http.HandlerFunc(h.CheckSubscriptions)))
	mux.Handle("POST /billing/token", mw(http.HandlerFunc(h.ValidateToken)))
	mux.Handle("GET /billing/test", mw(http.HandlerFunc(h.Test)))
	mux.Handle("GET /config/payment", mw(http.HandlerFunc(h.PaymentConfig)))
}

// Subscribe godoc
// @Summary Create a subscription
// @Description Creates (or reuses) the billing account, stores the shipping address, and starts the subscription with the payment token.
// @Tags billing
// @Accept json
// @Produce json
// @Param subscription body dto.SubscribeRequest true "Subscribe request"
// @Success 200 {object} map[string]any "Created subscription"
// @Failure 400 {object} map[string]string "Validation or provider rejection"
// @Failure 500 {object} map[string]string "Provider not configured or internal error"
// @Router /billing/subscribe [post]
func (h *BillingHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req dto.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	result, err := h.subSvc.Subscribe(r.Context(), service.SubscribeInput{
		PlanCode:     req.PlanCode,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		BillingToken: req.Token,
		ShippingAddress: model.Address{
			FirstName:  req.ShippingAddress.FirstName,
			LastName:   req.ShippingAddress.LastName,
			Street:     req.ShippingAddress.Street,
			City:       req.ShippingAddress.City,
			Region:     req.ShippingAddress.Region,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := map[string]any{
		"success":      true,
		"subscription": result.Subscription,
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	writeJSON(w, http.StatusOK, resp)
}

// Pause godoc
// @Summary Schedule a pause on a subscription
// @Tags billing
// @Accept json
// @Produce json
// @Param pause body dto.PauseRequest true "Pause request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /billing/pause-subscription [post]
func (h *BillingHandler) Pause(w http.ResponseWriter, r *http.Request) {
	var req dto.PauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	sub, err := h.subSvc.Pause(r.Context(), service.PauseInput{
		Identifier:                req.SubscriptionID,
		Cycles:                    req.Cycles,
		KnownRemainingPauseCycles: req.RemainingPauseCycles,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "subscription": sub})
}

// Resume godoc
// @Summary Resume a paused subscription
// @Tags billing
// @Accept json
// @Produce json
// @Param resume body dto.SubscriptionActionRequest true "Resume request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /billing/resume-subscription [post]
func (h *BillingHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.subscriptionAction(w, r, h.subSvc.Resume)
}

// Cancel godoc
// @Summary Cancel a subscription at period end
// @Tags billing
// @Accept json
// @Produce json
// @Param cancel body dto.SubscriptionActionRequest true "Cancel request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /billing/cancel-subscription [post]
func (h *BillingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.subscriptionAction(w, r, h.subSvc.Cancel)
}

// CancelPause godoc
// @Summary Clear a scheduled pause
// @Tags billing
// @Accept json
// @Produce json
// @Param cancelPause body dto.SubscriptionActionRequest true "Cancel-pause request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /billing/cancel-pause [post]
func (h *BillingHandler) CancelPause(w http.ResponseWriter, r *http.Request) {
	h.subscriptionAction(w, r, h.subSvc.CancelPause)
}

func (h *BillingHandler) subscriptionAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, identifier string) (*model.Subscription, error)) {
	var req dto.SubscriptionActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	sub, err := action(r.Context(), req.SubscriptionID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "subscription": sub})
}

// CheckSubscriptions godoc
// @Summary List all subscriptions for an email
// @Description Returns an empty list, not an error, when no account exists for the email.
// @Tags billing
// @Accept json
// @Produce json
// @Param check body dto.CheckSubscriptionsRequest true "Check request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /billing/check-subscriptions [post]
func (h *BillingHandler) CheckSubscriptions(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckSubscriptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	check, err := h.subSvc.CheckSubscriptions(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := map[string]any{"subscriptions": check.Subscriptions}
	if check.Account != nil {
		resp["account"] = check.Account
	}
	writeJSON(w, http.StatusOK, resp)
}

// ValidateToken godoc
// @Summary Shallow payment-token validation
// @Description Tokens are actually validated by the provider at subscribe time; this only checks presence.
// @Tags billing
// @Accept json
// @Produce json
// @Param token body dto.TokenRequest true "Token"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /billing/token [post]
func (h *BillingHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Missing token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token is valid"})
}

// Test godoc
// @Summary Provider connectivity diagnostic
// @Description Reports whether the API key is configured and whether a trivial provider call succeeds.
// @Tags billing
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /billing/test [get]
func (h *BillingHandler) Test(w http.ResponseWriter, r *http.Request) {
	debug := map[string]any{
		"apiKeySet": h.billing.Configured(),
	}

	if !h.billing.Configured() {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Recurly client not initialized",
			"debug":   debug,
		})
		return
	}

	sites, err := h.billing.ListSites(r.Context(), 1)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":      false,
			"error":        "Failed to connect to Recurly",
			"errorMessage": err.Error(),
			"debug":        debug,
		})
		return
	}

	testResult := map[string]any{"sitesFound": len(sites) > 0}
	if len(sites) > 0 {
		testResult["firstSite"] = map[string]string{"subdomain": sites[0].Subdomain}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Successfully connected to Recurly",
		"debug":      debug,
		"testResult": testResult,
	})
}

// PaymentConfig godoc
// @Summary Public payment-form configuration
// @Tags config
// @Produce json
// @Success 200 {object} map[string]string
// @Router /config/payment [get]
func (h *BillingHandler) PaymentConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.publicKey})
}
