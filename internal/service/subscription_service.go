package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"app/internal/model"
	"app/internal/recurly"

	"github.com/rs/zerolog"
)

const maxSubscriptionsPerAccount = 100

// duplicateRetryLeadTime is how far out the first renewal is pushed when
// retrying after a duplicate-subscription rejection. Backdating the renewal
// makes the new subscription distinguishable from the existing one for the
// provider's dedup check. This encodes a provider-behavior assumption that
// has not been confirmed with Recurly; revisit before relying on it.
const duplicateRetryLeadTime = 30 * 24 * time.Hour

// SubscribeInput is a validated subscribe request.
type SubscribeInput struct {
	PlanCode        string
	Email           string
	FirstName       string
	LastName        string
	BillingToken    string
	ShippingAddress model.Address
}

// SubscribeResult carries the created subscription plus a non-fatal warning
// when the shipping-address attach failed after creation.
type SubscribeResult struct {
	Subscription *model.Subscription
	Warning      string
}

// PauseInput identifies the subscription to pause. KnownRemainingPauseCycles
// is the caller's last-seen value from its session snapshot; a positive
// value short-circuits the request before any provider call.
type PauseInput struct {
	Identifier                string
	Cycles                    int
	KnownRemainingPauseCycles int
}

// SubscriptionCheck is the check-subscriptions result. Subscriptions is
// never nil so the empty case serializes as [].
type SubscriptionCheck struct {
	Subscriptions []model.SubscriptionView
	Account       *model.Account
}

// SubscriptionService orchestrates the subscription lifecycle against the
// billing provider.
type SubscriptionService interface {
	Subscribe(ctx context.Context, input SubscribeInput) (*SubscribeResult, error)
	Pause(ctx context.Context, input PauseInput) (*model.Subscription, error)
	CancelPause(ctx context.Context, identifier string) (*model.Subscription, error)
	Resume(ctx context.Context, identifier string) (*model.Subscription, error)
	Cancel(ctx context.Context, identifier string) (*model.Subscription, error)
	CheckSubscriptions(ctx context.Context, email string) (*SubscriptionCheck, error)
}

type subscriptionService struct {
	billing  BillingClient
	currency string
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSubscriptionService creates a SubscriptionService with a scoped logger.
func NewSubscriptionService(billing BillingClient, currency string, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		billing:  billing,
		currency: currency,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
		now:      time.Now,
	}
}

// lookupOrCreateAccount finds the account whose email exactly matches, or
// creates one with a generated unique code. Reusing the existing account
// avoids the provider's duplicate-account rejection.
func (s *subscriptionService) lookupOrCreateAccount(ctx context.Context, input SubscribeInput) (*model.Account, error) {
	account, err := s.billing.FindAccountByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if account != nil {
		s.logger.Info().Str("account_id", account.ID).Str("account_code", account.Code).Msg("Reusing existing account")
		return account, nil
	}
	code := generateAccountCode(input.Email, s.now())
	account, err = s.billing.CreateAccount(ctx, code, input.Email, input.FirstName, input.LastName)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", account.ID).Str("account_code", account.Code).Msg("Created account")
	return account, nil
}

// generateAccountCode builds a unique provider account code from the email
// and a timestamp, the way the storefront has always minted them.
func generateAccountCode(email string, now time.Time) string {
	var b strings.Builder
	b.WriteString("acc-")
	for _, r := range strings.ToLower(email) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	b.WriteString("-")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	return b.String()
}

// lookupOrCreateShippingAddress reuses a stored address when every
// normalized field matches the requested one.
func (s *subscriptionService) lookupOrCreateShippingAddress(ctx context.Context, accountID string, addr model.Address) (*model.ShippingAddress, error) {
	existing, err := s.billing.ListShippingAddresses(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, stored := range existing {
		if stored.EquivalentTo(addr) {
			s.logger.Info().Str("address_id", stored.ID).Msg("Reusing stored shipping address")
			return &stored, nil
		}
	}
	created, err := s.billing.CreateShippingAddress(ctx, accountID, addr)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("address_id", created.ID).Msg("Created shipping address")
	return created, nil
}

func (s *subscriptionService) Subscribe(ctx context.Context, input SubscribeInput) (*SubscribeResult, error) {
	account, err := s.lookupOrCreateAccount(ctx, input)
	if err != nil {
		return nil, err
	}

	shipping, err := s.lookupOrCreateShippingAddress(ctx, account.ID, input.ShippingAddress)
	if err != nil {
		return nil, err
	}

	create := recurly.SubscriptionCreate{
		PlanCode:     input.PlanCode,
		Currency:     s.currency,
		AccountCode:  account.Code,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		BillingToken: input.BillingToken,
	}

	sub, err := s.billing.CreateSubscription(ctx, create)
	if err != nil && isDuplicatePlanError(err) {
		// Push the first renewal out so the provider's duplicate check can
		// tell the two subscriptions apart, once.
		nextBill := s.now().Add(duplicateRetryLeadTime)
		create.NextBillDate = &nextBill
		s.logger.Warn().Str("plan_code", input.PlanCode).Time("next_bill_date", nextBill).Msg("Duplicate plan rejection, retrying with future renewal date")
		sub, err = s.billing.CreateSubscription(ctx, create)
		if err != nil {
			s.logger.Error().Err(err).Str("plan_code", input.PlanCode).Msg("Duplicate-plan retry failed")
			return nil, newUserError("You already have a subscription to this plan and a second one could not be created. Please contact support.")
		}
	}
	if err != nil {
		return nil, err
	}

	result := &SubscribeResult{Subscription: sub}
	if warning := s.attachShippingAddress(ctx, sub, shipping.ID); warning != "" {
		result.Warning = warning
	}
	return result, nil
}

// attachShippingAddress links the stored address to the new subscription,
// retrying with the numeric ID when the UUID form is rejected. A double
// failure does not fail the subscribe; the subscription exists either way.
func (s *subscriptionService) attachShippingAddress(ctx context.Context, sub *model.Subscription, addressID string) string {
	_, err := s.billing.UpdateSubscriptionShipping(ctx, recurly.SubscriptionRef(sub.UUID), addressID)
	if err == nil {
		return ""
	}
	s.logger.Warn().Err(err).Str("subscription_uuid", sub.UUID).Msg("Shipping attach by UUID rejected, retrying with ID")
	if _, err := s.billing.UpdateSubscriptionShipping(ctx, sub.ID, addressID); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Shipping attach failed on both identifiers")
		return "Subscription created, but the shipping address could not be attached. Please update it from your account page."
	}
	return ""
}

// isDuplicatePlanError matches the provider's "already have a subscription
// to this plan" rejection.
func isDuplicatePlanError(err error) bool {
	rerr, ok := recurly.AsError(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(rerr.Message), "subscription to this plan")
}

func (s *subscriptionService) Pause(ctx context.Context, input PauseInput) (*model.Subscription, error) {
	if input.KnownRemainingPauseCycles > 0 {
		return nil, newUserError("A pause is already scheduled for this subscription.")
	}
	cycles := input.Cycles
	if cycles <= 0 {
		cycles = 1
	}
	sub, err := s.billing.PauseSubscription(ctx, recurly.SubscriptionRef(input.Identifier), cycles)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("subscription_uuid", sub.UUID).Int("cycles", cycles).Msg("Pause scheduled")
	return sub, nil
}

func (s *subscriptionService) CancelPause(ctx context.Context, identifier string) (*model.Subscription, error) {
	// remaining_pause_cycles of zero clears the schedule on the provider
	sub, err := s.billing.PauseSubscription(ctx, recurly.SubscriptionRef(identifier), 0)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("subscription_uuid", sub.UUID).Msg("Scheduled pause cleared")
	return sub, nil
}

func (s *subscriptionService) Resume(ctx context.Context, identifier string) (*model.Subscription, error) {
	ref := recurly.SubscriptionRef(identifier)

	// The reconciled display state can disagree with the provider, and the
	// provider rejects resume unless its own state is paused. Checking the
	// authoritative record first gives a clearer error.
	current, err := s.billing.GetSubscription(ctx, ref)
	if err != nil {
		return nil, err
	}
	if state := strings.ToLower(current.State); state != model.StatePaused {
		return nil, newUserError("This subscription is currently \"" + state + "\" and only paused subscriptions can be resumed. If you just paused it, the change may still be processing.")
	}

	sub, err := s.billing.ResumeSubscription(ctx, ref)
	if err != nil {
		if rerr, ok := recurly.AsError(err); ok {
			msg := strings.ToLower(rerr.Message)
			if strings.Contains(msg, "active subscription") || strings.Contains(msg, "not paused") {
				return nil, newUserError("The subscription state may not be synchronized yet. Please wait a moment and try again.")
			}
		}
		return nil, err
	}
	s.logger.Info().Str("subscription_uuid", sub.UUID).Msg("Subscription resumed")
	return sub, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, identifier string) (*model.Subscription, error) {
	// Provider semantics: the subscription stays active until period end
	sub, err := s.billing.CancelSubscription(ctx, recurly.SubscriptionRef(identifier))
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("subscription_uuid", sub.UUID).Str("state", sub.State).Msg("Subscription canceled")
	return sub, nil
}

func (s *subscriptionService) CheckSubscriptions(ctx context.Context, email string) (*SubscriptionCheck, error) {
	check := &SubscriptionCheck{Subscriptions: []model.SubscriptionView{}}

	account, err := s.billing.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// No account is an empty result, not an error; login depends on it
		return check, nil
	}
	check.Account = account

	subs, err := s.billing.ListAccountSubscriptions(ctx, account.ID, maxSubscriptionsPerAccount)
	if err != nil {
		// The account exists; surface it even when the listing fails
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("Failed to list subscriptions")
		return check, nil
	}

	now := s.now()
	for i := range subs {
		check.Subscriptions = append(check.Subscriptions, subs[i].View(now))
	}
	return check, nil
}
