package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"app/internal/logger"
	"app/internal/model"
	"app/internal/recurly"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUUID = "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"

// fakeBilling is an in-memory stand-in for the Recurly client with hooks
// for injecting failures.
type fakeBilling struct {
	accounts  []model.Account
	addresses map[string][]model.ShippingAddress

	createSubCalls   []recurly.SubscriptionCreate
	createSubErrs    []error // popped per CreateSubscription call; nil = success
	shipAttachErrs   map[string]error
	shipAttachCalls  []string
	pauseCalls       []pauseCall
	pauseErr         error
	resumeErr        error
	resumeCalls      int
	current          *model.Subscription // returned by GetSubscription
	listSubs         []model.Subscription
	listErr          error
	plans            map[string]*recurly.Plan
	nextID           int
}

type pauseCall struct {
	Ref    string
	Cycles int
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		addresses:      map[string][]model.ShippingAddress{},
		shipAttachErrs: map[string]error{},
		plans:          map[string]*recurly.Plan{},
	}
}

func (f *fakeBilling) Configured() bool { return true }

func (f *fakeBilling) FindAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	for i := range f.accounts {
		if f.accounts[i].Email == email {
			return &f.accounts[i], nil
		}
	}
	return nil, nil
}

func (f *fakeBilling) CreateAccount(_ context.Context, code, email, firstName, lastName string) (*model.Account, error) {
	f.nextID++
	account := model.Account{
		ID:        fmt.Sprintf("acc-id-%d", f.nextID),
		Code:      code,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}
	f.accounts = append(f.accounts, account)
	return &account, nil
}

func (f *fakeBilling) ListShippingAddresses(_ context.Context, accountID string) ([]model.ShippingAddress, error) {
	return f.addresses[accountID], nil
}

func (f *fakeBilling) CreateShippingAddress(_ context.Context, accountID string, addr model.Address) (*model.ShippingAddress, error) {
	f.nextID++
	created := model.ShippingAddress{ID: fmt.Sprintf("addr-%d", f.nextID), Address: addr}
	f.addresses[accountID] = append(f.addresses[accountID], created)
	return &created, nil
}

func (f *fakeBilling) CreateSubscription(_ context.Context, create recurly.SubscriptionCreate) (*model.Subscription, error) {
	f.createSubCalls = append(f.createSubCalls, create)
	if len(f.createSubErrs) > 0 {
		err := f.createSubErrs[0]
		f.createSubErrs = f.createSubErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &model.Subscription{UUID: testUUID, ID: "98765", State: model.StateActive, PlanCode: create.PlanCode}, nil
}

func (f *fakeBilling) UpdateSubscriptionShipping(_ context.Context, ref, addressID string) (*model.Subscription, error) {
	f.shipAttachCalls = append(f.shipAttachCalls, ref)
	if err := f.shipAttachErrs[ref]; err != nil {
		return nil, err
	}
	return &model.Subscription{UUID: testUUID, ID: "98765", State: model.StateActive}, nil
}

func (f *fakeBilling) GetSubscription(_ context.Context, ref string) (*model.Subscription, error) {
	if f.current == nil {
		return nil, &recurly.Error{Status: 404, Type: "not_found", Message: "Couldn't find Subscription"}
	}
	return f.current, nil
}

func (f *fakeBilling) PauseSubscription(_ context.Context, ref string, remainingCycles int) (*model.Subscription, error) {
	f.pauseCalls = append(f.pauseCalls, pauseCall{Ref: ref, Cycles: remainingCycles})
	if f.pauseErr != nil {
		return nil, f.pauseErr
	}
	return &model.Subscription{UUID: testUUID, State: model.StateActive, RemainingPauseCycles: remainingCycles}, nil
}

func (f *fakeBilling) ResumeSubscription(_ context.Context, ref string) (*model.Subscription, error) {
	f.resumeCalls++
	if f.resumeErr != nil {
		return nil, f.resumeErr
	}
	return &model.Subscription{UUID: testUUID, State: model.StateActive}, nil
}

func (f *fakeBilling) CancelSubscription(_ context.Context, ref string) (*model.Subscription, error) {
	return &model.Subscription{UUID: testUUID, State: model.StateCanceled}, nil
}

func (f *fakeBilling) ListAccountSubscriptions(_ context.Context, accountID string, limit int) ([]model.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.listSubs) > limit {
		return f.listSubs[:limit], nil
	}
	return f.listSubs, nil
}

func (f *fakeBilling) GetPlan(_ context.Context, planCode string) (*recurly.Plan, error) {
	return f.plans[planCode], nil
}

func (f *fakeBilling) ListSites(_ context.Context, limit int) ([]recurly.Site, error) {
	return nil, nil
}

func newTestService(billing BillingClient) SubscriptionService {
	return NewSubscriptionService(billing, "USD", logger.New())
}

func testSubscribeInput() SubscribeInput {
	return SubscribeInput{
		PlanCode:     "gold",
		Email:        "jane@example.com",
		FirstName:    "Jane",
		LastName:     "Doe",
		BillingToken: "tok-abc",
		ShippingAddress: model.Address{
			Street: "123 Bean St", City: "Portland", Region: "OR", PostalCode: "97201", Country: "US",
		},
	}
}

func TestSubscribeCreatesAccountOnce(t *testing.T) {
	billing := newFakeBilling()
	svc := newTestService(billing)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, testSubscribeInput())
	require.NoError(t, err)
	require.Len(t, billing.accounts, 1)
	firstCode := billing.accounts[0].Code

	// Same email again must reuse the account, not mint a second code
	_, err = svc.Subscribe(ctx, testSubscribeInput())
	require.NoError(t, err)
	require.Len(t, billing.accounts, 1)
	assert.Equal(t, firstCode, billing.accounts[0].Code)
	assert.Equal(t, firstCode, billing.createSubCalls[1].AccountCode)
}

func TestSubscribeReusesEquivalentShippingAddress(t *testing.T) {
	billing := newFakeBilling()
	billing.accounts = []model.Account{{ID: "acc-1", Code: "acc-jane", Email: "jane@example.com"}}
	billing.addresses["acc-1"] = []model.ShippingAddress{{
		ID:      "addr-stored",
		Address: model.Address{Street: "  123 BEAN ST", City: "portland", Region: "or", PostalCode: "97201", Country: "us"},
	}}
	svc := newTestService(billing)

	_, err := svc.Subscribe(context.Background(), testSubscribeInput())
	require.NoError(t, err)
	// No new address; the stored one was attached
	assert.Len(t, billing.addresses["acc-1"], 1)
	require.NotEmpty(t, billing.shipAttachCalls)
	assert.Equal(t, "uuid-"+testUUID, billing.shipAttachCalls[0])
}

func TestSubscribeCreatesAddressWhenDifferent(t *testing.T) {
	billing := newFakeBilling()
	billing.accounts = []model.Account{{ID: "acc-1", Code: "acc-jane", Email: "jane@example.com"}}
	billing.addresses["acc-1"] = []model.ShippingAddress{{
		ID:      "addr-stored",
		Address: model.Address{Street: "9 Other Rd", City: "Portland", Region: "OR", PostalCode: "97201", Country: "US"},
	}}
	svc := newTestService(billing)

	_, err := svc.Subscribe(context.Background(), testSubscribeInput())
	require.NoError(t, err)
	assert.Len(t, billing.addresses["acc-1"], 2)
}

func TestSubscribeCreatesAddressForDifferentRecipient(t *testing.T) {
	billing := newFakeBilling()
	billing.accounts = []model.Account{{ID: "acc-1", Code: "acc-jane", Email: "jane@example.com"}}
	// Same location, stored for another recipient; reusing it would ship
	// under the wrong name
	billing.addresses["acc-1"] = []model.ShippingAddress{{
		ID:      "addr-stored",
		Address: model.Address{FirstName: "Bob", LastName: "Smith", Street: "123 Bean St", City: "Portland", Region: "OR", PostalCode: "97201", Country: "US"},
	}}
	svc := newTestService(billing)

	input := testSubscribeInput()
	input.ShippingAddress.FirstName = "Jane"
	input.ShippingAddress.LastName = "Doe"
	_, err := svc.Subscribe(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, billing.addresses["acc-1"], 2)
}

func TestSubscribeShippingAttachFallsBackToNumericID(t *testing.T) {
	billing := newFakeBilling()
	billing.shipAttachErrs["uuid-"+testUUID] = &recurly.Error{Status: 404, Type: "not_found", Message: "Couldn't find Subscription"}
	svc := newTestService(billing)

	result, err := svc.Subscribe(context.Background(), testSubscribeInput())
	require.NoError(t, err)
	assert.Empty(t, result.Warning)
	require.Len(t, billing.shipAttachCalls, 2)
	assert.Equal(t, "98765", billing.shipAttachCalls[1])
}

func TestSubscribeShippingAttachDoubleFailureIsWarning(t *testing.T) {
	billing := newFakeBilling()
	billing.shipAttachErrs["uuid-"+testUUID] = &recurly.Error{Status: 404, Message: "nope"}
	billing.shipAttachErrs["98765"] = &recurly.Error{Status: 422, Message: "still no"}
	svc := newTestService(billing)

	result, err := svc.Subscribe(context.Background(), testSubscribeInput())
	require.NoError(t, err)
	require.NotNil(t, result.Subscription)
	assert.Contains(t, result.Warning, "shipping address")
}

func TestSubscribeDuplicatePlanRetriesWithFutureRenewal(t *testing.T) {
	billing := newFakeBilling()
	billing.createSubErrs = []error{
		&recurly.Error{Status: 422, Type: "validation", Message: "The account already has a subscription to this plan."},
		nil,
	}
	svc := newTestService(billing)

	result, err := svc.Subscribe(context.Background(), testSubscribeInput())
	require.NoError(t, err)
	require.NotNil(t, result.Subscription)
	require.Len(t, billing.createSubCalls, 2)
	assert.Nil(t, billing.createSubCalls[0].NextBillDate)
	require.NotNil(t, billing.createSubCalls[1].NextBillDate)
	assert.InDelta(t, 30*24*time.Hour, time.Until(*billing.createSubCalls[1].NextBillDate), float64(time.Minute))
}

func TestSubscribeDuplicateRetryFailureIsTerminal(t *testing.T) {
	dup := &recurly.Error{Status: 422, Type: "validation", Message: "The account already has a subscription to this plan."}
	billing := newFakeBilling()
	billing.createSubErrs = []error{dup, dup}
	svc := newTestService(billing)

	_, err := svc.Subscribe(context.Background(), testSubscribeInput())
	var uerr *UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "contact support")
	assert.Len(t, billing.createSubCalls, 2)
}

func TestPauseRejectedLocallyWhenAlreadyScheduled(t *testing.T) {
	billing := newFakeBilling()
	svc := newTestService(billing)

	_, err := svc.Pause(context.Background(), PauseInput{Identifier: testUUID, KnownRemainingPauseCycles: 2})
	var uerr *UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "already scheduled")
	assert.Empty(t, billing.pauseCalls, "no provider call may be made")
}

func TestPauseDefaultsToOneCycle(t *testing.T) {
	billing := newFakeBilling()
	svc := newTestService(billing)

	_, err := svc.Pause(context.Background(), PauseInput{Identifier: testUUID})
	require.NoError(t, err)
	require.Len(t, billing.pauseCalls, 1)
	assert.Equal(t, pauseCall{Ref: "uuid-" + testUUID, Cycles: 1}, billing.pauseCalls[0])
}

func TestCancelPauseSendsZeroCycles(t *testing.T) {
	billing := newFakeBilling()
	svc := newTestService(billing)

	_, err := svc.CancelPause(context.Background(), "98765")
	require.NoError(t, err)
	require.Len(t, billing.pauseCalls, 1)
	assert.Equal(t, pauseCall{Ref: "98765", Cycles: 0}, billing.pauseCalls[0])
}

func TestResumeRejectsWhenProviderStateNotPaused(t *testing.T) {
	billing := newFakeBilling()
	// Reconciled state would be paused, but the provider still says active
	billing.current = &model.Subscription{UUID: testUUID, State: model.StateActive, RemainingPauseCycles: 1}
	svc := newTestService(billing)

	_, err := svc.Resume(context.Background(), testUUID)
	var uerr *UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "only paused subscriptions")
	assert.Zero(t, billing.resumeCalls)
}

func TestResumeSucceedsWhenPaused(t *testing.T) {
	billing := newFakeBilling()
	billing.current = &model.Subscription{UUID: testUUID, State: model.StatePaused}
	svc := newTestService(billing)

	sub, err := svc.Resume(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Equal(t, model.StateActive, sub.State)
}

func TestResumeRewritesNotPausedProviderError(t *testing.T) {
	billing := newFakeBilling()
	billing.current = &model.Subscription{UUID: testUUID, State: model.StatePaused}
	billing.resumeErr = &recurly.Error{Status: 422, Message: "Cannot resume an active subscription"}
	svc := newTestService(billing)

	_, err := svc.Resume(context.Background(), testUUID)
	var uerr *UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "may not be synchronized")
}

func TestCheckSubscriptionsNoAccountIsEmptyResult(t *testing.T) {
	svc := newTestService(newFakeBilling())

	check, err := svc.CheckSubscriptions(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	require.NotNil(t, check.Subscriptions)
	assert.Empty(t, check.Subscriptions)
	assert.Nil(t, check.Account)
}

func TestCheckSubscriptionsReconcilesStates(t *testing.T) {
	billing := newFakeBilling()
	billing.accounts = []model.Account{{ID: "acc-1", Code: "acc-jane", Email: "jane@example.com", FirstName: "Jane"}}
	billing.listSubs = []model.Subscription{
		{UUID: "u1", State: model.StateActive, RemainingPauseCycles: 1, PlanCode: "gold"},
		{UUID: "u2", State: model.StateActive, PlanCode: "silver"},
	}
	svc := newTestService(billing)

	check, err := svc.CheckSubscriptions(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.Len(t, check.Subscriptions, 2)
	assert.Equal(t, model.StatePaused, check.Subscriptions[0].State)
	assert.Equal(t, model.StateActive, check.Subscriptions[0].OriginalState)
	assert.Equal(t, model.StateActive, check.Subscriptions[1].State)
	require.NotNil(t, check.Account)
	assert.Equal(t, "Jane", check.Account.FirstName)
}

func TestCheckSubscriptionsListFailureStillReturnsAccount(t *testing.T) {
	billing := newFakeBilling()
	billing.accounts = []model.Account{{ID: "acc-1", Code: "acc-jane", Email: "jane@example.com"}}
	billing.listErr = &recurly.Error{Status: 500, Message: "boom"}
	svc := newTestService(billing)

	check, err := svc.CheckSubscriptions(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Empty(t, check.Subscriptions)
	assert.NotNil(t, check.Account)
}

func TestGenerateAccountCode(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	code := generateAccountCode("Jane.Doe+test@Example.com", now)
	assert.Equal(t, "acc-jane-doe-test-example-com-1700000000000", code)
}
