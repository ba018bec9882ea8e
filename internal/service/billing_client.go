package service

import (
	"context"

	"app/internal/model"
	"app/internal/recurly"
)

// BillingClient is the slice of the Recurly client the services consume.
// *recurly.Client satisfies it; tests substitute fakes.
type BillingClient interface {
	Configured() bool
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	CreateAccount(ctx context.Context, code, email, firstName, lastName string) (*model.Account, error)
	ListShippingAddresses(ctx context.Context, accountID string) ([]model.ShippingAddress, error)
	CreateShippingAddress(ctx context.Context, accountID string, addr model.Address) (*model.ShippingAddress, error)
	CreateSubscription(ctx context.Context, create recurly.SubscriptionCreate) (*model.Subscription, error)
	UpdateSubscriptionShipping(ctx context.Context, ref, addressID string) (*model.Subscription, error)
	GetSubscription(ctx context.Context, ref string) (*model.Subscription, error)
	PauseSubscription(ctx context.Context, ref string, remainingCycles int) (*model.Subscription, error)
	ResumeSubscription(ctx context.Context, ref string) (*model.Subscription, error)
	CancelSubscription(ctx context.Context, ref string) (*model.Subscription, error)
	ListAccountSubscriptions(ctx context.Context, accountID string, limit int) ([]model.Subscription, error)
	GetPlan(ctx context.Context, planCode string) (*recurly.Plan, error)
	ListSites(ctx context.Context, limit int) ([]recurly.Site, error)
}
