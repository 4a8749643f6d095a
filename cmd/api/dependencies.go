package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/repository"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/service"
	"github.com/FACorreiaa/promptveo-api/internal/domain/billing"
	billinghandler "github.com/FACorreiaa/promptveo-api/internal/domain/billing/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/chatsessions"
	chathandler "github.com/FACorreiaa/promptveo-api/internal/domain/chatsessions/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/community"
	communityhandler "github.com/FACorreiaa/promptveo-api/internal/domain/community/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/favorites"
	favoritehandler "github.com/FACorreiaa/promptveo-api/internal/domain/favorites/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/productanalysis"
	producthandler "github.com/FACorreiaa/promptveo-api/internal/domain/productanalysis/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/profiles"
	profilehandler "github.com/FACorreiaa/promptveo-api/internal/domain/profiles/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/prompts"
	prompthandler "github.com/FACorreiaa/promptveo-api/internal/domain/prompts/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/statistics"
	statisticshandler "github.com/FACorreiaa/promptveo-api/internal/domain/statistics/handler"
	"github.com/FACorreiaa/promptveo-api/internal/domain/subscriptions"
	subscriptionhandler "github.com/FACorreiaa/promptveo-api/internal/domain/subscriptions/handler"
	"github.com/FACorreiaa/promptveo-api/internal/llm"
	"github.com/FACorreiaa/promptveo-api/pkg/cache"
	"github.com/FACorreiaa/promptveo-api/pkg/config"
	"github.com/FACorreiaa/promptveo-api/pkg/db"
	"github.com/FACorreiaa/promptveo-api/pkg/observability"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Cache   cache.Store
	Metrics *observability.Metrics

	redis *cache.Redis

	// Repositories
	AuthRepo         repository.AuthRepository
	ProfileRepo      *profiles.RepositoryImpl
	SubscriptionRepo *subscriptions.RepositoryImpl
	PromptRepo       prompts.Repository
	FavoriteRepo     *favorites.RepositoryImpl
	CommunityRepo    community.Repository
	ChatSessionRepo  chatsessions.Repository
	ProductRepo      productanalysis.Repository
	StatisticsRepo   statistics.Repository

	// Services
	TokenManager    service.TokenManager
	AuthService     *service.AuthService
	ProfileSvc      profiles.Service
	SubscriptionSvc *subscriptions.ServiceImpl
	BillingSvc      billing.Service
	PromptSvc       prompts.Service
	FavoriteSvc     favorites.Service
	CommunitySvc    community.Service
	ChatSessionSvc  chatsessions.Service
	ProductSvc      productanalysis.Service
	StatisticsSvc   statistics.Service

	// Handlers
	AuthHandler         *handler.AuthHandler
	OAuthHandler        *handler.OAuthHandler
	OAuthProviders      []string
	ProfileHandler      *profilehandler.ProfileHandler
	SubscriptionHandler *subscriptionhandler.SubscriptionHandler
	BillingHandler      *billinghandler.BillingHandler
	PromptHandler       *prompthandler.PromptHandler
	FavoriteHandler     *favoritehandler.FavoriteHandler
	CommunityHandler    *communityhandler.CommunityHandler
	ChatSessionHandler  *chathandler.ChatSessionHandler
	ProductHandler      *producthandler.ProductHandler
	StatisticsHandler   *statisticshandler.StatisticsHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.Default(),
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initCache(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the pool and, when enabled, applies pending migrations.
func (d *Dependencies) initDatabase(ctx context.Context) error {
	database, err := OpenDatabase(d.Config, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if d.Config.Server.RunMigrations {
		if err := d.DB.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	d.Logger.Info("database connected", slog.Bool("migrations", d.Config.Server.RunMigrations))
	return nil
}

// OpenDatabase builds the pool from the database settings.
func OpenDatabase(cfg *config.Config, logger *slog.Logger) (*db.DB, error) {
	return db.New(db.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}, logger)
}

// initCache uses Redis when configured so feature and LLM caches are shared
// between instances, otherwise an in-process store.
func (d *Dependencies) initCache() error {
	if !d.Config.Redis.Enabled() {
		d.Cache = cache.NewMemory(5*time.Minute, 10*time.Minute)
		d.Logger.Info("using in-memory cache")
		return nil
	}
	r, err := cache.NewRedis(cache.RedisConfig{
		Addr:     d.Config.Redis.Addr,
		Password: d.Config.Redis.Password,
		DB:       d.Config.Redis.DB,
		Prefix:   "promptveo:",
	})
	if err != nil {
		return err
	}
	d.redis = r
	d.Cache = r
	d.Logger.Info("using redis cache", slog.String("addr", d.Config.Redis.Addr))
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	pool := d.DB.Pool
	d.AuthRepo = repository.NewPostgresAuthRepository(pool, d.Logger)
	d.ProfileRepo = profiles.NewPostgresProfileRepo(pool, d.Logger)
	d.SubscriptionRepo = subscriptions.NewRepository(pool, d.Logger)
	d.PromptRepo = prompts.NewRepositoryImpl(pool, d.Logger)
	d.FavoriteRepo = favorites.NewRepositoryImpl(pool, d.Logger)
	d.CommunityRepo = community.NewRepositoryImpl(pool, d.Logger)
	d.ChatSessionRepo = chatsessions.NewRepositoryImpl(pool, d.Logger)
	d.ProductRepo = productanalysis.NewRepositoryImpl(pool, d.Logger)
	d.StatisticsRepo = statistics.NewRepository(pool, d.Logger)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	cfg := d.Config
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	d.TokenManager = service.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	d.AuthService = service.NewAuthService(d.AuthRepo, d.TokenManager, d.Logger, cfg.Auth.RefreshTokenTTL)
	d.ProfileSvc = profiles.NewUserProfilesService(d.ProfileRepo, d.Logger)

	d.SubscriptionSvc = subscriptions.NewSubscriptionService(d.SubscriptionRepo, d.Cache, cfg.Stripe.ProPriceID, d.Logger,
		subscriptions.WithMetrics(d.Metrics), subscriptions.WithFeatureTTL(cfg.Server.FeatureCacheTTL))

	var stripeClient billing.StripeClient
	if cfg.Stripe.SecretKey != "" {
		stripeClient = billing.NewAPIClient(cfg.Stripe.SecretKey)
	} else {
		d.Logger.Warn("stripe secret key not set; checkout and portal are disabled")
	}
	d.BillingSvc = billing.NewBillingService(stripeClient, d.SubscriptionSvc, d.SubscriptionRepo, d.ProfileRepo, billing.Config{
		ProPriceID:    cfg.Stripe.ProPriceID,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		FrontendURL:   cfg.Frontend.BaseURL,
	}, d.Metrics, d.Logger)

	d.PromptSvc = prompts.NewPromptService(d.PromptRepo, d.SubscriptionSvc, d.Logger).WithFavorites(d.FavoriteRepo)
	d.FavoriteSvc = favorites.NewFavoriteService(d.FavoriteRepo, d.PromptRepo, d.SubscriptionSvc, d.Logger)
	d.CommunitySvc = community.NewCommunityService(d.CommunityRepo, d.Logger)

	var chatClient llm.ChatClient
	if cfg.LLM.GeminiAPIKey != "" {
		client, err := llm.NewGeminiChatClient(ctx, cfg.LLM.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		chatClient = client
	} else {
		d.Logger.Warn("gemini api key not set; prompt drafting is disabled")
	}
	d.ChatSessionSvc = chatsessions.NewChatSessionService(d.ChatSessionRepo, chatClient, d.SubscriptionSvc, d.Cache, d.Logger)

	var vision llm.VisionClient
	if cfg.OpenRouter.APIKey != "" {
		vision = llm.NewOpenRouterClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.Model, cfg.OpenRouter.Timeout)
	} else {
		d.Logger.Warn("openrouter api key not set; product analysis is disabled")
	}
	d.ProductSvc = productanalysis.NewProductService(d.ProductRepo, vision, d.SubscriptionSvc, d.Cache, d.Logger)

	d.StatisticsSvc = statistics.NewService(d.StatisticsRepo, d.Cache, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	cfg := d.Config
	d.AuthHandler = handler.NewAuthHandler(d.AuthService)
	d.OAuthProviders = handler.ConfigureOAuth(handler.OAuthProviders{
		CallbackBaseURL:    cfg.OAuth.CallbackBaseURL,
		GoogleClientID:     cfg.OAuth.GoogleClientID,
		GoogleClientSecret: cfg.OAuth.GoogleClientSecret,
		GitHubClientID:     cfg.OAuth.GitHubClientID,
		GitHubClientSecret: cfg.OAuth.GitHubClientSecret,
		SessionSecret:      sessionSecret(cfg),
		SecureCookies:      cfg.IsProduction(),
	})
	if len(d.OAuthProviders) > 0 {
		d.OAuthHandler = handler.NewOAuthHandler(d.AuthService, cfg.Frontend.BaseURL, d.Logger)
	}
	d.ProfileHandler = profilehandler.NewProfileHandler(d.ProfileSvc)
	d.SubscriptionHandler = subscriptionhandler.NewSubscriptionHandler(d.SubscriptionSvc)
	d.BillingHandler = billinghandler.NewBillingHandler(d.BillingSvc)
	d.PromptHandler = prompthandler.NewPromptHandler(d.PromptSvc)
	d.FavoriteHandler = favoritehandler.NewFavoriteHandler(d.FavoriteSvc)
	d.CommunityHandler = communityhandler.NewCommunityHandler(d.CommunitySvc)
	d.ChatSessionHandler = chathandler.NewChatSessionHandler(d.ChatSessionSvc)
	d.ProductHandler = producthandler.NewProductHandler(d.ProductSvc)
	d.StatisticsHandler = statisticshandler.NewStatisticsHandler(d.StatisticsSvc)
	d.Logger.Info("handlers initialized", slog.Any("oauth_providers", d.OAuthProviders))
}

func sessionSecret(cfg *config.Config) string {
	if cfg.Auth.SessionSecret != "" {
		return cfg.Auth.SessionSecret
	}
	return cfg.Auth.JWTSecret
}

// Health reports database and, when configured, Redis reachability.
func (d *Dependencies) Health() error {
	if err := d.DB.Health(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if d.redis != nil {
		if err := d.redis.Health(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.Logger.Warn("failed to close redis", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
