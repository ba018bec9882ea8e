package model

import "fmt"

// CoffeePlan is a catalog entry from the CMS. RecurlyPlanCodes carries the
// one-or-more billing plan codes associated with the coffee.
type CoffeePlan struct {
	ID               string   `json:"_id"`
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	Description      string   `json:"description"`
	ImageURL         string   `json:"imageUrl,omitempty"`
	RoastLevel       string   `json:"roastLevel"`
	Origin           string   `json:"origin"`
	FlavorNotes      []string `json:"flavorNotes,omitempty"`
	CaffeineLevel    string   `json:"caffeineLevel,omitempty"`
	RecurlyPlanCodes []string `json:"recurlyPlanCode"`
	Featured         bool     `json:"featured"`
}

// PlanOption is one billable option for a catalog entry, enriched with live
// pricing from the billing provider.
type PlanOption struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Price    Price    `json:"price"`
	Interval Interval `json:"interval"`
}

// EnrichedCoffeePlan is a catalog entry with its live plan options attached.
// Entries whose plan codes all fail to resolve against the provider are
// dropped from catalog views.
type EnrichedCoffeePlan struct {
	CoffeePlan
	Plans []PlanOption `json:"plans"`
}

// Author is a CMS author record referenced by articles.
type Author struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
}

// Article is a CMS article for the storefront's editorial pages.
type Article struct {
	ID            string   `json:"_id"`
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Excerpt       string   `json:"excerpt,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Featured      bool     `json:"featured"`
	Author        *Author  `json:"author,omitempty"`
	Body          string   `json:"body,omitempty"`
}

// NormalizeUnitAmount maps a provider unit amount to major currency units.
// Recurly responses have been observed returning the amount either in cents
// or already in dollars depending on API version; a value below 1000 is
// assumed to already be in dollars, anything else is divided by 100. This is
// a disambiguation heuristic, not a guaranteed-correct rule.
func NormalizeUnitAmount(unitAmount float64) float64 {
	if unitAmount >= 1000 {
		return unitAmount / 100
	}
	return unitAmount
}

// DisplayPrice formats a normalized amount for the storefront, e.g. "$20.00".
func DisplayPrice(unitAmount float64) string {
	return fmt.Sprintf("$%.2f", NormalizeUnitAmount(unitAmount))
}
