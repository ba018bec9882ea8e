package recurly

import (
	"errors"
	"fmt"
	"time"

	"app/internal/model"
)

// Error is a Recurly API rejection. Message is safe to surface to the
// client after the light rewriting the services apply.
type Error struct {
	Status  int     `json:"-"`
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Params  []Param `json:"params,omitempty"`
}

// Param names an offending request field in a validation error.
type Param struct {
	Param   string `json:"param"`
	Message string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Params) > 0 {
		return fmt.Sprintf("recurly: %s (%s): %+v", e.Message, e.Type, e.Params)
	}
	return fmt.Sprintf("recurly: %s (%s)", e.Message, e.Type)
}

// IsNotFound reports whether err is a Recurly 404.
func IsNotFound(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr) && (rerr.Status == 404 || rerr.Type == "not_found")
}

// AsError extracts the provider rejection from err, if any.
func AsError(err error) (*Error, bool) {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}

// errorEnvelope is the provider's error body.
type errorEnvelope struct {
	Error Error `json:"error"`
}

// listEnvelope is the provider's paged list body.
type listEnvelope[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"has_more"`
}

type accountWire struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	State     string `json:"state"`
}

func (a accountWire) toModel() *model.Account {
	return &model.Account{
		ID:        a.ID,
		Code:      a.Code,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

type accountCreateWire struct {
	Code        string           `json:"code"`
	Email       string           `json:"email"`
	FirstName   string           `json:"first_name,omitempty"`
	LastName    string           `json:"last_name,omitempty"`
	BillingInfo *billingInfoWire `json:"billing_info,omitempty"`
}

// billingInfoWire carries only the payment token. Address fields are
// embedded in the token at tokenization time and must not be resent here.
type billingInfoWire struct {
	TokenID string `json:"token_id"`
}

type shippingAddressWire struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street1    string `json:"street1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (s shippingAddressWire) toModel() model.ShippingAddress {
	return model.ShippingAddress{
		ID: s.ID,
		Address: model.Address{
			FirstName:  s.FirstName,
			LastName:   s.LastName,
			Street:     s.Street1,
			City:       s.City,
			Region:     s.Region,
			PostalCode: s.PostalCode,
			Country:    s.Country,
		},
	}
}

func shippingAddressFromModel(a model.Address) shippingAddressWire {
	return shippingAddressWire{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street1:    a.Street,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type planMiniWire struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type accountMiniWire struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type subscriptionWire struct {
	ID                     string          `json:"id"`
	UUID                   string          `json:"uuid"`
	State                  string          `json:"state"`
	Plan                   planMiniWire    `json:"plan"`
	Account                accountMiniWire `json:"account"`
	Quantity               int             `json:"quantity"`
	UnitAmount             float64         `json:"unit_amount"`
	Currency               string          `json:"currency"`
	CurrentPeriodStartedAt *time.Time      `json:"current_period_started_at"`
	CurrentPeriodEndsAt    *time.Time      `json:"current_period_ends_at"`
	CurrentTermEndsAt      *time.Time      `json:"current_term_ends_at"`
	PausedAt               *time.Time      `json:"paused_at"`
	ResumeAt               *time.Time      `json:"resume_at"`
	RemainingPauseCycles   int             `json:"remaining_pause_cycles"`
	CanceledAt             *time.Time      `json:"canceled_at"`
	ExpiresAt              *time.Time      `json:"expires_at"`
	TrialEndsAt            *time.Time      `json:"trial_ends_at"`
}

func (s subscriptionWire) toModel() *model.Subscription {
	return &model.Subscription{
		UUID:                 s.UUID,
		ID:                   s.ID,
		State:                s.State,
		PlanCode:             s.Plan.Code,
		PlanName:             s.Plan.Name,
		Quantity:             s.Quantity,
		UnitAmount:           s.UnitAmount,
		Currency:             s.Currency,
		AccountID:            s.Account.ID,
		CurrentPeriodStart:   s.CurrentPeriodStartedAt,
		CurrentPeriodEnd:     s.CurrentPeriodEndsAt,
		CurrentTermEndsAt:    s.CurrentTermEndsAt,
		PausedAt:             s.PausedAt,
		ResumeAt:             s.ResumeAt,
		RemainingPauseCycles: s.RemainingPauseCycles,
		CanceledAt:           s.CanceledAt,
		ExpiresAt:            s.ExpiresAt,
		TrialEndsAt:          s.TrialEndsAt,
	}
}

// SubscriptionCreate is the create-subscription request. BillingToken goes
// nested under the account payload; NextBillDate is only set by the
// duplicate-subscription retry.
type SubscriptionCreate struct {
	PlanCode     string
	Currency     string
	AccountCode  string
	Email        string
	FirstName    string
	LastName     string
	BillingToken string
	NextBillDate *time.Time
}

type subscriptionCreateWire struct {
	PlanCode     string            `json:"plan_code"`
	Currency     string            `json:"currency"`
	Account      accountCreateWire `json:"account"`
	NextBillDate *time.Time        `json:"next_bill_date,omitempty"`
}

type subscriptionUpdateWire struct {
	Shipping *shippingRefWire `json:"shipping,omitempty"`
}

type shippingRefWire struct {
	AddressID string `json:"address_id"`
}

type pauseWire struct {
	RemainingPauseCycles int `json:"remaining_pause_cycles"`
}

// PlanCurrency is one currency entry on a plan.
type PlanCurrency struct {
	Currency   string  `json:"currency"`
	UnitAmount float64 `json:"unit_amount"`
}

// Plan is a Recurly billing plan as the catalog needs it.
type Plan struct {
	ID                 string         `json:"id"`
	Code               string         `json:"code"`
	Name               string         `json:"name"`
	State              string         `json:"state"`
	IntervalUnit       string         `json:"interval_unit"`
	IntervalLength     int            `json:"interval_length"`
	TotalBillingCycles int            `json:"total_billing_cycles"`
	Currencies         []PlanCurrency `json:"currencies"`
}

// UnitAmountFor returns the unit amount for a currency, falling back to the
// plan's first currency entry.
func (p *Plan) UnitAmountFor(currency string) (float64, string) {
	for _, c := range p.Currencies {
		if c.Currency == currency {
			return c.UnitAmount, c.Currency
		}
	}
	if len(p.Currencies) > 0 {
		return p.Currencies[0].UnitAmount, p.Currencies[0].Currency
	}
	return 0, currency
}

// Site is a Recurly site, used only by the connectivity diagnostic.
type Site struct {
	ID           string `json:"id"`
	Subdomain    string `json:"subdomain"`
	PublicAPIKey string `json:"public_api_key"`
}
