package dto

// ShippingAddressDTO is the full shipping address required on subscribe.
type ShippingAddressDTO struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	Region     string `json:"region" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// SubscribeRequest is the incoming subscribe payload. The token comes from
// the hosted payment form and stands in for raw card data.
type SubscribeRequest struct {
	PlanCode        string             `json:"planCode" validate:"required"`
	Email           string             `json:"email" validate:"required,email"`
	FirstName       string             `json:"firstName" validate:"required"`
	LastName        string             `json:"lastName" validate:"required"`
	Token           string             `json:"token" validate:"required"`
	ShippingAddress ShippingAddressDTO `json:"shippingAddress" validate:"required"`
}

// PauseRequest schedules a pause. RemainingPauseCycles is the caller's
// last-seen value from its session snapshot; a positive value means a pause
// is already scheduled and the request is rejected without a provider call.
type PauseRequest struct {
	SubscriptionID       string `json:"subscriptionId" validate:"required"`
	Cycles               int    `json:"cycles,omitempty" validate:"omitempty,min=1"`
	RemainingPauseCycles int    `json:"remainingPauseCycles,omitempty"`
}

// SubscriptionActionRequest identifies a subscription for resume, cancel
// and cancel-pause. Accepts either the UUID or the numeric ID form.
type SubscriptionActionRequest struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
}

// CheckSubscriptionsRequest looks up all subscriptions for an email.
type CheckSubscriptionsRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// TokenRequest is the shallow payment-token validation payload.
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}
