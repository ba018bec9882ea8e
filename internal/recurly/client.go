package recurly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// apiVersion is the Recurly v3 API version pinned via the Accept header.
const apiVersion = "application/vnd.recurly.v2021-02-25"

// Client talks to the Recurly v3 REST API. It is shared across requests and
// carries no request-specific state.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  zerolog.Logger
}

// Config configures a Client. An empty APIKey produces an unconfigured
// client; every call then fails with ErrNotConfigured and handlers map that
// to the 500 "not configured" response.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ErrNotConfigured is returned when the private API key is missing.
var ErrNotConfigured = fmt.Errorf("recurly API key not configured")

// NewClient builds a Client with a scoped logger and a circuit breaker
// around the provider's HTTP surface.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "recurly",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger.With().Str("service", "RecurlyClient").Logger(),
	}
}

// Configured reports whether a private API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// SubscriptionRef formats an opaque identifier for the subscription path
// segment. Recurly addresses subscriptions either by internal ID or by
// "uuid-" + the 32-hex-character UUID; callers pass whichever they have.
func SubscriptionRef(identifier string) string {
	if strings.HasPrefix(identifier, "uuid-") {
		return identifier
	}
	if len(identifier) == 32 && isHex(identifier) {
		return "uuid-" + identifier
	}
	return identifier
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}

// PlanRef formats a plan identifier. Plan codes need a "code-" prefix;
// provider-internal plan IDs are passed through untouched.
func PlanRef(planCode string) string {
	if strings.HasPrefix(planCode, "code-") {
		return planCode
	}
	return "code-" + planCode
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return fmt.Errorf("calling recurly: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding recurly response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		c.logger.Warn().Err(readErr).Int("status_code", resp.StatusCode).Msg("Failed to read error body from Recurly")
		return &Error{Status: resp.StatusCode, Message: fmt.Sprintf("recurly returned status %d", resp.StatusCode)}
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil || envelope.Error.Message == "" {
		c.logger.Error().Int("status_code", resp.StatusCode).Str("error_body", string(bodyBytes)).Msg("Recurly returned non-JSON error")
		return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
	}

	rerr := envelope.Error
	rerr.Status = resp.StatusCode
	c.logger.Error().
		Int("status_code", resp.StatusCode).
		Str("error_type", rerr.Type).
		Str("error_message", rerr.Message).
		Msg("Recurly rejected request")
	return &rerr
}

// FindAccountByEmail returns the account whose email exactly matches, or
// nil when none exists. Recurly's email filter is a superset match, so an
// exact pass over the results is required.
func (c *Client) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	path := "/accounts?email=" + url.QueryEscape(email) + "&limit=200"
	var list listEnvelope[accountWire]
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, acc := range list.Data {
		if acc.Email == email {
			return acc.toModel(), nil
		}
	}
	return nil, nil
}

// CreateAccount creates a provider account with the given unique code.
func (c *Client) CreateAccount(ctx context.Context, code, email, firstName, lastName string) (*model.Account, error) {
	payload := accountCreateWire{Code: code, Email: email, FirstName: firstName, LastName: lastName}
	var acc accountWire
	if err := c.do(ctx, http.MethodPost, "/accounts", payload, &acc); err != nil {
		return nil, err
	}
	return acc.toModel(), nil
}

// ListShippingAddresses returns the shipping addresses stored on an account.
func (c *Client) ListShippingAddresses(ctx context.Context, accountID string) ([]model.ShippingAddress, error) {
	path := "/accounts/" + url.PathEscape(accountID) + "/shipping_addresses?limit=200"
	var list listEnvelope[shippingAddressWire]
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	addresses := make([]model.ShippingAddress, 0, len(list.Data))
	for _, addr := range list.Data {
		addresses = append(addresses, addr.toModel())
	}
	return addresses, nil
}

// CreateShippingAddress stores a new shipping address on an account.
func (c *Client) CreateShippingAddress(ctx context.Context, accountID string, addr model.Address) (*model.ShippingAddress, error) {
	path := "/accounts/" + url.PathEscape(accountID) + "/shipping_addresses"
	var created shippingAddressWire
	if err := c.do(ctx, http.MethodPost, path, shippingAddressFromModel(addr), &created); err != nil {
		return nil, err
	}
	result := created.toModel()
	return &result, nil
}

// CreateSubscription creates a subscription. The billing token rides nested
// under the account payload; address fields are not resent since they are
// embedded in the token at tokenization time.
func (c *Client) CreateSubscription(ctx context.Context, create SubscriptionCreate) (*model.Subscription, error) {
	payload := subscriptionCreateWire{
		PlanCode: create.PlanCode,
		Currency: create.Currency,
		Account: accountCreateWire{
			Code:        create.AccountCode,
			Email:       create.Email,
			FirstName:   create.FirstName,
			LastName:    create.LastName,
			BillingInfo: &billingInfoWire{TokenID: create.BillingToken},
		},
		NextBillDate: create.NextBillDate,
	}
	var sub subscriptionWire
	if err := c.do(ctx, http.MethodPost, "/subscriptions", payload, &sub); err != nil {
		return nil, err
	}
	return sub.toModel(), nil
}

// UpdateSubscriptionShipping attaches a stored shipping address to a
// subscription.
func (c *Client) UpdateSubscriptionShipping(ctx context.Context, ref, addressID string) (*model.Subscription, error) {
	payload := subscriptionUpdateWire{Shipping: &shippingRefWire{AddressID: addressID}}
	var sub subscriptionWire
	if err := c.do(ctx, http.MethodPut, "/subscriptions/"+url.PathEscape(ref), payload, &sub); err != nil {
		return nil, err
	}
	return sub.toModel(), nil
}

// GetSubscription fetches a subscription by ref (see SubscriptionRef).
func (c *Client) GetSubscription(ctx context.Context, ref string) (*model.Subscription, error) {
	var sub subscriptionWire
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(ref), nil, &sub); err != nil {
		return nil, err
	}
	return sub.toModel(), nil
}

// PauseSubscription schedules a pause for remainingCycles billing cycles.
// Zero clears a scheduled pause.
func (c *Client) PauseSubscription(ctx context.Context, ref string, remainingCycles int) (*model.Subscription, error) {
	var sub subscriptionWire
	path := "/subscriptions/" + url.PathEscape(ref) + "/pause"
	if err := c.do(ctx, http.MethodPut, path, pauseWire{RemainingPauseCycles: remainingCycles}, &sub); err != nil {
		return nil, err
	}
	return sub.toModel(), nil
}

// ResumeSubscription resumes a paused subscription. Recurly rejects this
// unless its own internal state is paused.
func (c *Client) ResumeSubscription(ctx context.Context, ref string) (*model.Subscription, error) {
	var sub subscriptionWire
	path := "/subscriptions/" + url.PathEscape(ref) + "/resume"
	if err := c.do(ctx, http.MethodPut, path, nil, &sub); err != nil {
		return nil, err
	}
	return sub.toModel(), nil
}

// CancelSubscription cancels a subscription; it remains active until the
// end of the current billing period.
func (c *Client) CancelSubscription(ctx context.Context, ref string) (*model.Subscription, error) {
	var sub subscriptionWire
	if err := c.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(ref), nil, &sub); err != nil {
		return nil, err
	}
	return sub.toModel(), nil
}

// ListAccountSubscriptions returns up to limit subscriptions for an account.
func (c *Client) ListAccountSubscriptions(ctx context.Context, accountID string, limit int) ([]model.Subscription, error) {
	path := fmt.Sprintf("/accounts/%s/subscriptions?limit=%d", url.PathEscape(accountID), limit)
	var list listEnvelope[subscriptionWire]
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	subs := make([]model.Subscription, 0, len(list.Data))
	for _, sub := range list.Data {
		subs = append(subs, *sub.toModel())
	}
	return subs, nil
}

// GetPlan fetches a plan by code, trying the "code-" prefixed form first and
// falling back to the bare identifier in case the caller passed a plan ID.
// Returns nil when the plan does not exist on the provider.
func (c *Client) GetPlan(ctx context.Context, planCode string) (*Plan, error) {
	var plan Plan
	err := c.do(ctx, http.MethodGet, "/plans/"+url.PathEscape(PlanRef(planCode)), nil, &plan)
	if err == nil {
		return &plan, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	if strings.HasPrefix(planCode, "code-") {
		return nil, nil
	}
	err = c.do(ctx, http.MethodGet, "/plans/"+url.PathEscape(planCode), nil, &plan)
	if err == nil {
		return &plan, nil
	}
	if IsNotFound(err) {
		return nil, nil
	}
	return nil, err
}

// ListSites is a cheap connectivity probe used by the diagnostic endpoint.
func (c *Client) ListSites(ctx context.Context, limit int) ([]Site, error) {
	var list listEnvelope[Site]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sites?limit=%d", limit), nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}
