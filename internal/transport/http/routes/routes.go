package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/config"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/oauth"
	"github.com/oleksandrmytro/timecapsule-auth/internal/transport/http/handlers"
	"github.com/oleksandrmytro/timecapsule-auth/internal/transport/http/middleware"
	"github.com/oleksandrmytro/timecapsule-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Tokens       *usecase.TokenService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config         *config.AppConfig
	Logger         *zap.Logger
	RateLimiter    *middleware.RateLimiter
	Services       ServiceSet
	OAuthProviders *oauth.Providers
	Database       DatabaseChecker
	Cache          CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else if deps.Logger != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		isDev := deps.Config.App.Env == "development"
		secureCookies := !isDev
		notificationDispatcher := handlers.NewLoggingNotificationDispatcher(deps.Logger)

		authGroup := api.Group("/auth")

		// One shared rule counts attempts across every code-redemption endpoint.
		verifyLimit := buildRateLimitMiddlewares(deps, "auth_verify_ip", deps.Config.RateLimit.VerifyMaxAttempts)

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration, notificationDispatcher, isDev)
		registrationHandler.RegisterRoutes(authGroup, handlers.RegistrationRouteMiddlewares{
			Signup: buildRateLimitMiddlewares(deps, "auth_signup_ip", deps.Config.RateLimit.SignupMaxAttempts),
			Verify: verifyLimit,
			Resend: buildRateLimitMiddlewares(deps, "auth_resend_ip", deps.Config.RateLimit.ResendMaxAttempts),
		})

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Tokens, secureCookies)
		authHandler.RegisterRoutes(authGroup, handlers.AuthRouteMiddlewares{
			Login:   buildRateLimitMiddlewares(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts),
			Verify:  verifyLimit,
			Refresh: buildRateLimitMiddlewares(deps, "auth_refresh_ip", deps.Config.RateLimit.RefreshMaxAttempts),
		})

		if deps.OAuthProviders != nil {
			oauthHandler := handlers.NewOAuthHandler(deps.Services.Auth, deps.OAuthProviders, deps.Config.Frontend.URL, secureCookies, deps.Logger)
			oauthHandler.RegisterRoutes(authGroup)
		}

		profileHandler := handlers.NewProfileHandler(deps.Services.Auth, deps.Services.Tokens)
		profileHandler.RegisterRoutes(api)
	}

	return r
}

func buildRateLimitMiddlewares(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
