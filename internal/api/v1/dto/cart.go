package dto

// PriceDTO is a display price on a cart item.
type PriceDTO struct {
	Amount   float64 `json:"amount" validate:"min=0"`
	Currency string  `json:"currency" validate:"required"`
}

// IntervalDTO is the billing interval of the selected plan option.
type IntervalDTO struct {
	Length             int    `json:"length,omitempty"`
	Unit               string `json:"unit,omitempty"`
	TotalBillingCycles int    `json:"totalBillingCycles,omitempty"`
}

// CartAddItemRequest adds or replaces the selection for a plan code.
type CartAddItemRequest struct {
	ID        string      `json:"id,omitempty"`
	PlanCode  string      `json:"planCode" validate:"required"`
	PlanTitle string      `json:"planTitle" validate:"required"`
	Slug      string      `json:"slug,omitempty"`
	Price     PriceDTO    `json:"price" validate:"required"`
	Interval  IntervalDTO `json:"interval"`
}
