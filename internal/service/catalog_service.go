package service

import (
	"context"

	"app/internal/model"

	"github.com/rs/zerolog"
)

// CMSClient is the slice of the Sanity client the catalog consumes.
type CMSClient interface {
	GetCoffeePlans(ctx context.Context) ([]model.CoffeePlan, error)
	GetCoffeePlanBySlug(ctx context.Context, slug string) (*model.CoffeePlan, error)
	GetCoffeePlanByPlanCode(ctx context.Context, planCode string) (*model.CoffeePlan, error)
	GetArticles(ctx context.Context) ([]model.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error)
	DocumentTypes(ctx context.Context) ([]string, error)
}

// CatalogService composes CMS content with live billing-provider pricing.
type CatalogService interface {
	ListPlans(ctx context.Context) ([]model.EnrichedCoffeePlan, error)
	GetPlanBySlug(ctx context.Context, slug string) (*model.EnrichedCoffeePlan, error)
	GetPlanByCode(ctx context.Context, planCode string) (*model.EnrichedCoffeePlan, error)
	ListArticles(ctx context.Context) ([]model.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error)
	DocumentTypes(ctx context.Context) ([]string, error)
}

type catalogService struct {
	cms      CMSClient
	billing  BillingClient
	currency string
	logger   zerolog.Logger
}

func NewCatalogService(cms CMSClient, billing BillingClient, currency string, logger zerolog.Logger) CatalogService {
	return &catalogService{
		cms:      cms,
		billing:  billing,
		currency: currency,
		logger:   logger.With().Str("service", "CatalogService").Logger(),
	}
}

// planOptions resolves a catalog entry's plan codes against the provider.
// Codes with no matching provider plan are skipped.
func (s *catalogService) planOptions(ctx context.Context, codes []string) []model.PlanOption {
	var options []model.PlanOption
	for _, code := range codes {
		plan, err := s.billing.GetPlan(ctx, code)
		if err != nil {
			s.logger.Error().Err(err).Str("plan_code", code).Msg("Failed to fetch plan pricing")
			continue
		}
		if plan == nil {
			s.logger.Warn().Str("plan_code", code).Msg("Catalog entry references unknown plan code")
			continue
		}
		amount, currency := plan.UnitAmountFor(s.currency)
		options = append(options, model.PlanOption{
			Code: plan.Code,
			Name: plan.Name,
			Price: model.Price{
				Amount:   model.NormalizeUnitAmount(amount),
				Currency: currency,
			},
			Interval: model.Interval{
				Length:             plan.IntervalLength,
				Unit:               plan.IntervalUnit,
				TotalBillingCycles: plan.TotalBillingCycles,
			},
		})
	}
	return options
}

// ListPlans returns catalog entries enriched with live pricing. Entries
// with no resolvable plan are dropped from the listing.
func (s *catalogService) ListPlans(ctx context.Context) ([]model.EnrichedCoffeePlan, error) {
	coffees, err := s.cms.GetCoffeePlans(ctx)
	if err != nil {
		return nil, err
	}
	enriched := make([]model.EnrichedCoffeePlan, 0, len(coffees))
	for _, coffee := range coffees {
		options := s.planOptions(ctx, coffee.RecurlyPlanCodes)
		if len(options) == 0 {
			s.logger.Warn().Str("slug", coffee.Slug).Msg("Dropping catalog entry with no live plans")
			continue
		}
		enriched = append(enriched, model.EnrichedCoffeePlan{CoffeePlan: coffee, Plans: options})
	}
	return enriched, nil
}

// GetPlanBySlug returns one enriched catalog entry, or nil when the slug is
// unknown or no plan code resolves.
func (s *catalogService) GetPlanBySlug(ctx context.Context, slug string) (*model.EnrichedCoffeePlan, error) {
	coffee, err := s.cms.GetCoffeePlanBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if coffee == nil {
		return nil, nil
	}
	options := s.planOptions(ctx, coffee.RecurlyPlanCodes)
	if len(options) == 0 {
		return nil, nil
	}
	return &model.EnrichedCoffeePlan{CoffeePlan: *coffee, Plans: options}, nil
}

// GetPlanByCode resolves the catalog entry carrying a billing plan code,
// the reverse lookup the checkout flow needs when all it has is the code.
func (s *catalogService) GetPlanByCode(ctx context.Context, planCode string) (*model.EnrichedCoffeePlan, error) {
	coffee, err := s.cms.GetCoffeePlanByPlanCode(ctx, planCode)
	if err != nil {
		return nil, err
	}
	if coffee == nil {
		return nil, nil
	}
	options := s.planOptions(ctx, coffee.RecurlyPlanCodes)
	if len(options) == 0 {
		return nil, nil
	}
	return &model.EnrichedCoffeePlan{CoffeePlan: *coffee, Plans: options}, nil
}

// DocumentTypes reports what document types the CMS dataset holds.
// Diagnostic for a misconfigured project or dataset.
func (s *catalogService) DocumentTypes(ctx context.Context) ([]string, error) {
	return s.cms.DocumentTypes(ctx)
}

func (s *catalogService) ListArticles(ctx context.Context) ([]model.Article, error) {
	return s.cms.GetArticles(ctx)
}

func (s *catalogService) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	return s.cms.GetArticleBySlug(ctx, slug)
}
