package sanity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

// Client issues GROQ queries against the Sanity HTTP query API. Read-only;
// no write path exists in this system.
type Client struct {
	queryURL string
	token    string
	http     *http.Client
	logger   zerolog.Logger
}

// Config configures a Client. BaseURL overrides the derived
// project/dataset URL and exists for tests.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
	BaseURL    string
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	queryURL := cfg.BaseURL
	if queryURL == "" {
		host := "api.sanity.io"
		if cfg.UseCDN {
			host = "apicdn.sanity.io"
		}
		queryURL = fmt.Sprintf("https://%s.%s/v%s/data/query/%s", cfg.ProjectID, host, cfg.APIVersion, cfg.Dataset)
	}
	return &Client{
		queryURL: queryURL,
		token:    cfg.Token,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logger.With().Str("service", "SanityClient").Logger(),
	}
}

type queryResult struct {
	Result json.RawMessage `json:"result"`
}

func (c *Client) fetch(ctx context.Context, query string, params map[string]any, out any) error {
	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding query param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+values.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("querying sanity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("error_body", string(bodyBytes)).
			Msg("Sanity query failed")
		return fmt.Errorf("sanity query failed with status %d", resp.StatusCode)
	}

	var result queryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding sanity response: %w", err)
	}
	if out == nil || len(result.Result) == 0 || string(result.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(result.Result, out); err != nil {
		return fmt.Errorf("decoding sanity result: %w", err)
	}
	return nil
}

const coffeeProjection = `{
  _id,
  title,
  "slug": slug.current,
  description,
  "imageUrl": image.asset->url,
  roastLevel,
  origin,
  flavorNotes,
  caffeineLevel,
  recurlyPlanCode,
  featured
}`

// GetCoffeePlans returns all catalog entries, newest first.
func (c *Client) GetCoffeePlans(ctx context.Context) ([]model.CoffeePlan, error) {
	query := `*[_type == "coffee"] | order(_createdAt desc) ` + coffeeProjection
	var plans []model.CoffeePlan
	if err := c.fetch(ctx, query, nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetCoffeePlanBySlug returns one catalog entry, or nil when absent.
func (c *Client) GetCoffeePlanBySlug(ctx context.Context, slug string) (*model.CoffeePlan, error) {
	query := `*[_type == "coffee" && slug.current == $slug][0] ` + coffeeProjection
	var plan model.CoffeePlan
	if err := c.fetch(ctx, query, map[string]any{"slug": slug}, &plan); err != nil {
		return nil, err
	}
	if plan.ID == "" {
		return nil, nil
	}
	return &plan, nil
}

// GetCoffeePlanByPlanCode finds the catalog entry carrying a billing plan
// code, or nil when none does.
func (c *Client) GetCoffeePlanByPlanCode(ctx context.Context, planCode string) (*model.CoffeePlan, error) {
	query := `*[_type == "coffee" && $planCode in recurlyPlanCode][0] ` + coffeeProjection
	var plan model.CoffeePlan
	if err := c.fetch(ctx, query, map[string]any{"planCode": planCode}, &plan); err != nil {
		return nil, err
	}
	if plan.ID == "" {
		return nil, nil
	}
	return &plan, nil
}

const articleListProjection = `{
  _id,
  title,
  "slug": slug.current,
  excerpt,
  "imageUrl": image.asset->url,
  topics,
  publishedDate,
  featured,
  "author": author->{_id, name, "slug": slug.current, role}
}`

// GetArticles returns published articles, newest first.
func (c *Client) GetArticles(ctx context.Context) ([]model.Article, error) {
	query := `*[_type == "article" && status == "published"] | order(publishedDate desc) ` + articleListProjection
	var articles []model.Article
	if err := c.fetch(ctx, query, nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// GetArticleBySlug returns one article with its body flattened to plain
// text, or nil when absent.
func (c *Client) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	query := `*[_type == "article" && slug.current == $slug][0] {
  _id,
  title,
  "slug": slug.current,
  excerpt,
  "imageUrl": image.asset->url,
  topics,
  publishedDate,
  featured,
  "body": pt::text(body),
  "author": author->{_id, name, "slug": slug.current, role, email}
}`
	var article model.Article
	if err := c.fetch(ctx, query, map[string]any{"slug": slug}, &article); err != nil {
		return nil, err
	}
	if article.ID == "" {
		return nil, nil
	}
	return &article, nil
}

// DocumentTypes lists the document types present in the dataset. Debugging
// helper for misconfigured projects.
func (c *Client) DocumentTypes(ctx context.Context) ([]string, error) {
	var types []string
	if err := c.fetch(ctx, `array::unique(*[]._type)`, nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}
