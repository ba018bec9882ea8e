package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/logger"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/recurly"
	"app/internal/repository"
	"app/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscriptionService lets each test script the service outcome.
type fakeSubscriptionService struct {
	subscribe func(service.SubscribeInput) (*service.SubscribeResult, error)
	pause     func(service.PauseInput) (*model.Subscription, error)
	check     func(string) (*service.SubscriptionCheck, error)
}

func (f *fakeSubscriptionService) Subscribe(_ context.Context, input service.SubscribeInput) (*service.SubscribeResult, error) {
	return f.subscribe(input)
}

func (f *fakeSubscriptionService) Pause(_ context.Context, input service.PauseInput) (*model.Subscription, error) {
	return f.pause(input)
}

func (f *fakeSubscriptionService) CancelPause(_ context.Context, identifier string) (*model.Subscription, error) {
	return &model.Subscription{UUID: identifier}, nil
}

func (f *fakeSubscriptionService) Resume(_ context.Context, identifier string) (*model.Subscription, error) {
	return &model.Subscription{UUID: identifier, State: model.StateActive}, nil
}

func (f *fakeSubscriptionService) Cancel(_ context.Context, identifier string) (*model.Subscription, error) {
	return &model.Subscription{UUID: identifier, State: model.StateCanceled}, nil
}

func (f *fakeSubscriptionService) CheckSubscriptions(_ context.Context, email string) (*service.SubscriptionCheck, error) {
	return f.check(email)
}

type unconfiguredBilling struct{}

func (unconfiguredBilling) Configured() bool { return false }
func (unconfiguredBilling) FindAccountByEmail(context.Context, string) (*model.Account, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) CreateAccount(context.Context, string, string, string, string) (*model.Account, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) ListShippingAddresses(context.Context, string) ([]model.ShippingAddress, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) CreateShippingAddress(context.Context, string, model.Address) (*model.ShippingAddress, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) CreateSubscription(context.Context, recurly.SubscriptionCreate) (*model.Subscription, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) UpdateSubscriptionShipping(context.Context, string, string) (*model.Subscription, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) GetSubscription(context.Context, string) (*model.Subscription, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) PauseSubscription(context.Context, string, int) (*model.Subscription, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) ResumeSubscription(context.Context, string) (*model.Subscription, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) CancelSubscription(context.Context, string) (*model.Subscription, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) ListAccountSubscriptions(context.Context, string, int) ([]model.Subscription, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) GetPlan(context.Context, string) (*recurly.Plan, error) {
	return nil, recurly.ErrNotConfigured
}
func (unconfiguredBilling) ListSites(context.Context, int) ([]recurly.Site, error) {
	return nil, recurly.ErrNotConfigured
}

func noMiddleware(next http.Handler) http.Handler { return next }

func newBillingMux(t *testing.T, subSvc service.SubscriptionService, billing service.BillingClient) *http.ServeMux {
	t.Helper()
	validate := validator.New(validator.WithRequiredStructEnabled())
	h := NewBillingHandler(subSvc, billing, "public-key-123", validate, logger.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, noMiddleware)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestSubscribeRejectsInvalidPayload(t *testing.T) {
	svc := &fakeSubscriptionService{}
	mux := newBillingMux(t, svc, unconfiguredBilling{})

	// Missing token and shipping address fields
	payload := `{"planCode":"gold","email":"jane@example.com","firstName":"Jane","lastName":"Doe"}`
	req := httptest.NewRequest(http.MethodPost, "/billing/subscribe", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "Validation failed")
}

func TestSubscribeNotConfiguredIs500WithSetupHint(t *testing.T) {
	svc := &fakeSubscriptionService{
		subscribe: func(service.SubscribeInput) (*service.SubscribeResult, error) {
			return nil, recurly.ErrNotConfigured
		},
	}
	mux := newBillingMux(t, svc, unconfiguredBilling{})

	payload := `{
		"planCode":"gold","email":"jane@example.com","firstName":"Jane","lastName":"Doe","token":"tok-1",
		"shippingAddress":{"street":"123 Bean St","city":"Portland","region":"OR","postalCode":"97201","country":"US"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/billing/subscribe", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "RECURLY_PRIVATE_KEY")
}

func TestSubscribeCarriesWarning(t *testing.T) {
	svc := &fakeSubscriptionService{
		subscribe: func(service.SubscribeInput) (*service.SubscribeResult, error) {
			return &service.SubscribeResult{
				Subscription: &model.Subscription{UUID: "u1", State: model.StateActive},
				Warning:      "Subscription created, but the shipping address could not be attached. Please update it from your account page.",
			}, nil
		},
	}
	mux := newBillingMux(t, svc, unconfiguredBilling{})

	payload := `{
		"planCode":"gold","email":"jane@example.com","firstName":"Jane","lastName":"Doe","token":"tok-1",
		"shippingAddress":{"street":"123 Bean St","city":"Portland","region":"OR","postalCode":"97201","country":"US"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/billing/subscribe", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["warning"], "shipping address")
}

func TestPauseBusinessRejectionIs400(t *testing.T) {
	svc := &fakeSubscriptionService{
		pause: func(input service.PauseInput) (*model.Subscription, error) {
			return nil, &service.UserError{Message: "A pause is already scheduled for this subscription."}
		},
	}
	mux := newBillingMux(t, svc, unconfiguredBilling{})

	payload := `{"subscriptionId":"u1","remainingPauseCycles":2}`
	req := httptest.NewRequest(http.MethodPost, "/billing/pause-subscription", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "already scheduled")
}

func TestCheckSubscriptionsEmptySerializesAsEmptyArray(t *testing.T) {
	svc := &fakeSubscriptionService{
		check: func(string) (*service.SubscriptionCheck, error) {
			return &service.SubscriptionCheck{Subscriptions: []model.SubscriptionView{}}, nil
		},
	}
	mux := newBillingMux(t, svc, unconfiguredBilling{})

	req := httptest.NewRequest(http.MethodPost, "/billing/check-subscriptions", strings.NewReader(`{"email":"jane@example.com"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscriptions":[]`)
}

func TestValidateToken(t *testing.T) {
	mux := newBillingMux(t, &fakeSubscriptionService{}, unconfiguredBilling{})

	req := httptest.NewRequest(http.MethodPost, "/billing/token", strings.NewReader(`{"token":""}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "Missing token")

	req = httptest.NewRequest(http.MethodPost, "/billing/token", strings.NewReader(`{"token":"tok-1"}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
}

func TestBillingTestReportsMissingKey(t *testing.T) {
	mux := newBillingMux(t, &fakeSubscriptionService{}, unconfiguredBilling{})

	req := httptest.NewRequest(http.MethodGet, "/billing/test", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestPaymentConfigExposesPublicKey(t *testing.T) {
	mux := newBillingMux(t, &fakeSubscriptionService{}, unconfiguredBilling{})

	req := httptest.NewRequest(http.MethodGet, "/config/payment", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public-key-123", decodeBody(t, rec)["publicKey"])
}

func TestCartEndToEndWithAnonCookie(t *testing.T) {
	mr := miniredis.RunT(t)
	carts := repository.NewCartRepo(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 30*24*time.Hour)
	cartSvc := service.NewCartService(carts, logger.New())
	validate := validator.New(validator.WithRequiredStructEnabled())
	h := NewCartHandler(cartSvc, validate, logger.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, middleware.AnonIDMiddleware(false))

	payload := `{"planCode":"gold-monthly","planTitle":"Gold","price":{"amount":24,"currency":"USD"}}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// First response sets the anonymous-ID cookie; replay it to stay the
	// same browser
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gold-monthly")

	// A different browser (no cookie) sees an empty cart
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "gold-monthly")
}

func TestSessionEndpointUnauthenticated(t *testing.T) {
	mr := miniredis.RunT(t)
	sessions := repository.NewSessionRepo(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	subSvc := &fakeSubscriptionService{
		check: func(string) (*service.SubscriptionCheck, error) {
			return &service.SubscriptionCheck{Subscriptions: []model.SubscriptionView{}}, nil
		},
	}
	authSvc := service.NewAuthService(sessions, subSvc, "flatwhite", 7*24*time.Hour, logger.New())
	validate := validator.New(validator.WithRequiredStructEnabled())
	h := NewAuthHandler(authSvc, validate, logger.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, middleware.AnonIDMiddleware(false))

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["authenticated"])
}

func TestLoginWithoutSubscriptionsIs400(t *testing.T) {
	mr := miniredis.RunT(t)
	sessions := repository.NewSessionRepo(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	subSvc := &fakeSubscriptionService{
		check: func(string) (*service.SubscriptionCheck, error) {
			return &service.SubscriptionCheck{Subscriptions: []model.SubscriptionView{}}, nil
		},
	}
	authSvc := service.NewAuthService(sessions, subSvc, "flatwhite", 7*24*time.Hour, logger.New())
	validate := validator.New(validator.WithRequiredStructEnabled())
	h := NewAuthHandler(authSvc, validate, logger.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, middleware.AnonIDMiddleware(false))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"jane@example.com","password":"flatwhite"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "No subscription found")
}
