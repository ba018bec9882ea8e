package model

// Price is a display price in major currency units.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Interval describes how often a plan bills.
type Interval struct {
	Length             int    `json:"length"`
	Unit               string `json:"unit"`
	TotalBillingCycles int    `json:"totalBillingCycles,omitempty"`
}

// CartItem is one selected plan in a cart. Slug links back to the catalog
// entry the selection came from.
type CartItem struct {
	ID        string   `json:"id"`
	PlanCode  string   `json:"planCode"`
	PlanTitle string   `json:"planTitle"`
	Price     Price    `json:"price"`
	Interval  Interval `json:"interval"`
	Slug      string   `json:"slug"`
}

// Cart is the ordered list of in-progress selections for one browser.
type Cart struct {
	Items []CartItem `json:"items"`
}

// AddItem appends an item, or replaces the existing entry when the plan code
// is already in the cart (the user changed their plan option). At most one
// item per plan code.
func (c *Cart) AddItem(item CartItem) {
	for i, existing := range c.Items {
		if existing.PlanCode == item.PlanCode {
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// RemoveItem deletes the item with the given id. Returns false when no item
// matched.
func (c *Cart) RemoveItem(id string) bool {
	for i, item := range c.Items {
		if item.ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// TotalPrice sums item prices. No tax or shipping.
func (c *Cart) TotalPrice() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price.Amount
	}
	return total
}

// ItemCount returns the number of items in the cart.
func (c *Cart) ItemCount() int {
	return len(c.Items)
}
