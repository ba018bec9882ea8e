package model

import "strings"

// Account is the billing-provider account record. Code is the caller-chosen
// unique identifier used at creation; ID is the provider-internal one.
type Account struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Address is a billing or shipping address. Recurly calls the state/province
// field "region".
type Address struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// EquivalentTo reports whether two addresses match after trimming whitespace
// and ignoring case on every field, recipient name included. Used to reuse a
// stored shipping address instead of creating a duplicate on the account; a
// same-location address for a different recipient is a different address.
func (a Address) EquivalentTo(b Address) bool {
	eq := func(x, y string) bool {
		return strings.EqualFold(strings.TrimSpace(x), strings.TrimSpace(y))
	}
	return eq(a.FirstName, b.FirstName) &&
		eq(a.LastName, b.LastName) &&
		eq(a.Street, b.Street) &&
		eq(a.City, b.City) &&
		eq(a.Region, b.Region) &&
		eq(a.PostalCode, b.PostalCode) &&
		eq(a.Country, b.Country)
}

// ShippingAddress is an address stored on a provider account.
type ShippingAddress struct {
	ID string `json:"id"`
	Address
}
