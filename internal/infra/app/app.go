package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/port"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/config"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/database"
	kafkainfra "github.com/oleksandrmytro/timecapsule-auth/internal/infra/kafka"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/logger"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/oauth"
	redisinfra "github.com/oleksandrmytro/timecapsule-auth/internal/infra/redis"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/security"
	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/telemetry"
	postgresrepo "github.com/oleksandrmytro/timecapsule-auth/internal/repository/postgres"
	redisrepo "github.com/oleksandrmytro/timecapsule-auth/internal/repository/redis"
	"github.com/oleksandrmytro/timecapsule-auth/internal/transport/http/middleware"
	"github.com/oleksandrmytro/timecapsule-auth/internal/transport/http/routes"
	"github.com/oleksandrmytro/timecapsule-auth/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if _, err := telemetry.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
			tracer = nil
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	// Initialize Kafka event publisher
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	passwordPolicy := security.NewPasswordPolicy()
	passwordHasher := security.Hasher{}
	codeGenerator := security.NewCodeGenerator()

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "auth:rate-limit",
		TTL:       rateLimitWindow * 2,
	})

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	tokenService, err := usecase.NewTokenService(cfg.JWT, log)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	registrationService := usecase.NewRegistrationService(
		repos.Accounts, repos.Pending, passwordHasher, passwordPolicy,
		codeGenerator, eventPublisher, cfg.Verification.CodeTTL, log)

	accountLinker := usecase.NewAccountLinker(repos.Accounts, eventPublisher, log)

	authService := usecase.NewAuthService(
		repos.Accounts, repos.Pending, registrationService, tokenService,
		accountLinker, passwordHasher, eventPublisher, log)

	oauthProviders := oauth.NewProviders(cfg.OAuth)

	engine := routes.Register(routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		RateLimiter:    rateLimiter,
		OAuthProviders: oauthProviders,
		Database:       pool,
		Cache:          redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Tokens:       tokenService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			_ = a.tracer.Shutdown(context.Background())
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
