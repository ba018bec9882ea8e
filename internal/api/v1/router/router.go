package router

import (
	"net/http"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/recurly"
	"app/internal/repository"
	"app/internal/sanity"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires clients, repositories, services and handlers into the HTTP
// handler. The redis client is returned so main can close it on shutdown.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *redis.Client, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Redis holds the per-browser cart and session blobs
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 2. Outbound clients. A missing Recurly key is not fatal: the catalog
	// and cart still work, billing endpoints answer 500 per request.
	billingClient := recurly.NewClient(recurly.Config{
		BaseURL: cfg.RecurlyBaseURL,
		APIKey:  cfg.RecurlyPrivateKey,
	}, logger)
	if !billingClient.Configured() {
		logger.Warn().Msg("RECURLY_PRIVATE_KEY not set, billing endpoints disabled")
	}

	cmsClient := sanity.NewClient(sanity.Config{
		ProjectID:  cfg.SanityProjectID,
		Dataset:    cfg.SanityDataset,
		APIVersion: cfg.SanityAPIVersion,
		Token:      cfg.SanityToken,
		UseCDN:     cfg.SanityUseCDN,
	}, logger)

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize repositories & services & handlers
	cartRepo := repository.NewCartRepo(rdb, time.Duration(cfg.CartTTLDays)*24*time.Hour)
	sessionRepo := repository.NewSessionRepo(rdb)

	subscriptionSvc := service.NewSubscriptionService(billingClient, cfg.RecurlyCurrency, logger)
	catalogSvc := service.NewCatalogService(cmsClient, billingClient, cfg.RecurlyCurrency, logger)
	cartSvc := service.NewCartService(cartRepo, logger)
	authSvc := service.NewAuthService(sessionRepo, subscriptionSvc, cfg.DemoPassword, time.Duration(cfg.SessionTTLDays)*24*time.Hour, logger)

	billingHandler := handler.NewBillingHandler(subscriptionSvc, billingClient, cfg.RecurlyPublicKey, validate, logger)
	catalogHandler := handler.NewCatalogHandler(catalogSvc, logger)
	cartHandler := handler.NewCartHandler(cartSvc, validate, logger)
	authHandler := handler.NewAuthHandler(authSvc, validate, logger)

	// 5. Every v1 route runs behind the anonymous-ID cookie; cart and
	// session state is keyed on it
	anonMw := middleware.AnonIDMiddleware(cfg.Environment != "development")

	// 6. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	billingHandler.RegisterRoutes(apiV1Mux, anonMw)
	catalogHandler.RegisterRoutes(apiV1Mux, anonMw)
	cartHandler.RegisterRoutes(apiV1Mux, anonMw)
	authHandler.RegisterRoutes(apiV1Mux, anonMw)

	// Metrics sit inside the prefix strip so labels carry the registered
	// v1 patterns
	v1 := middleware.MetricsMiddleware(apiV1Mux)(apiV1Mux)
	mux.Handle("/v1/", http.StripPrefix("/v1", v1))
	mux.Handle("/metrics", promhttp.Handler())

	// 7. Apply CORS middleware. Credentials must be allowed for the
	// anonymous-ID cookie, which rules out a wildcard origin.
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), rdb, nil
}
