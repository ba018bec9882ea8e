package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	// Explicit origins, not a wildcard: responses carry credentials (the
	// anonymous-ID cookie) and browsers reject credentialed wildcards.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Recurly settings. The private key is deliberately not required at
	// startup: billing endpoints answer 500 "not configured" per request
	// when it is absent, so the catalog still works in a keyless demo.
	RecurlyPrivateKey string `envconfig:"RECURLY_PRIVATE_KEY"`
	RecurlyPublicKey  string `envconfig:"RECURLY_PUBLIC_KEY"`
	RecurlyBaseURL    string `envconfig:"RECURLY_BASE_URL" default:"https://v3.recurly.com"`
	RecurlyCurrency   string `envconfig:"RECURLY_CURRENCY" default:"USD"`

	// Sanity settings
	SanityProjectID  string `envconfig:"SANITY_PROJECT_ID" required:"true"`
	SanityDataset    string `envconfig:"SANITY_DATASET" default:"production"`
	SanityAPIVersion string `envconfig:"SANITY_API_VERSION" default:"2024-01-01"`
	SanityToken      string `envconfig:"SANITY_API_KEY"`
	SanityUseCDN     bool   `envconfig:"SANITY_USE_CDN" default:"false"`

	// Redis holds the per-browser cart and session blobs
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Demo auth settings
	DemoPassword   string `envconfig:"DEMO_PASSWORD" default:"flatwhite"`
	SessionTTLDays int    `envconfig:"SESSION_TTL_DAYS" default:"7"`
	CartTTLDays    int    `envconfig:"CART_TTL_DAYS" default:"30"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
