package api

import (
	"net/http"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	billinghandler "github.com/FACorreiaa/promptveo-api/internal/domain/billing/handler"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
)

// WebhookPath receives Stripe events. It sits outside the Connect chain
// because Stripe signs the raw body.
const WebhookPath = "/api/billing/webhook"

// PublicProcedures run without an access token. A valid token is still
// honoured so listings can be personalised.
var PublicProcedures = []string{
	promptveov1connect.AuthServiceRegisterProcedure,
	promptveov1connect.AuthServiceLoginProcedure,
	promptveov1connect.AuthServiceRefreshTokenProcedure,
	promptveov1connect.AuthServiceLogoutProcedure,
	promptveov1connect.AuthServiceValidateSessionProcedure,
	promptveov1connect.PromptServiceListPromptsProcedure,
	promptveov1connect.PromptServiceGetPromptProcedure,
	promptveov1connect.PromptServiceExportPromptJSONProcedure,
	promptveov1connect.CommunityServiceListProcedure,
	promptveov1connect.SubscriptionServiceGetMyFeaturesProcedure,
	promptveov1connect.SubscriptionServiceGetPlansProcedure,
}

// SetupRouter configures all routes and returns the HTTP service
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	jwtSecret := []byte(deps.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		deps.Logger.Warn("JWT secret is empty; authentication interceptor will reject requests")
	}

	tracer := otel.GetTracerProvider().Tracer("promptveo/api")

	chain := []connect.Interceptor{
		interceptors.NewRequestIDInterceptor("X-Request-ID"),
		interceptors.NewTracingInterceptor(tracer),
	}
	chain = append(chain,
		interceptors.NewRecoveryInterceptor(deps.Logger),
		interceptors.NewLoggingInterceptor(deps.Logger),
		interceptors.NewAuthInterceptor(jwtSecret, PublicProcedures...),
	)
	// Buckets are per user or per client IP, so this runs after auth.
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := interceptors.NewKeyedLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		chain = append(chain, interceptors.NewRateLimitInterceptor(limiter))
	}
	chain = append(chain, deps.Metrics.Interceptor())
	interceptorChain := connect.WithInterceptors(chain...)

	registerConnectRoutes(mux, deps, interceptorChain)
	registerHTTPRoutes(mux, deps)
	registerUtilityRoutes(mux, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   connectcors.AllowedMethods(),
		AllowedHeaders:   append(connectcors.AllowedHeaders(), "Authorization", "X-Request-ID"),
		ExposedHeaders:   append(connectcors.ExposedHeaders(), "X-Request-ID", "X-Upgrade-Required"),
		AllowCredentials: true,
		MaxAge:           7200,
	})

	return corsHandler.Handler(mux)
}

// registerConnectRoutes registers all Connect RPC services
func registerConnectRoutes(mux *http.ServeMux, deps *Dependencies, opts connect.HandlerOption) {
	services := []func() (string, http.Handler){
		func() (string, http.Handler) {
			return promptveov1connect.NewAuthServiceHandler(deps.AuthHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewProfileServiceHandler(deps.ProfileHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewSubscriptionServiceHandler(deps.SubscriptionHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewBillingServiceHandler(deps.BillingHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewPromptServiceHandler(deps.PromptHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewFavoriteServiceHandler(deps.FavoriteHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewCommunityServiceHandler(deps.CommunityHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewChatSessionServiceHandler(deps.ChatSessionHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewProductAnalysisServiceHandler(deps.ProductHandler, opts)
		},
		func() (string, http.Handler) {
			return promptveov1connect.NewStatisticsServiceHandler(deps.StatisticsHandler, opts)
		},
	}
	for _, register := range services {
		path, h := register()
		mux.Handle(path, h)
		deps.Logger.Info("registered Connect RPC service", "path", path)
	}

	deps.Logger.Info("Connect RPC routes configured")
}

// registerHTTPRoutes mounts the plain HTTP endpoints: the Stripe webhook and
// the OAuth redirects.
func registerHTTPRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.Handle(WebhookPath, billinghandler.NewWebhookHandler(deps.BillingSvc, deps.Logger))
	deps.Logger.Info("registered billing webhook", "path", WebhookPath)

	if deps.OAuthHandler != nil {
		deps.OAuthHandler.Register(mux)
		deps.Logger.Info("registered OAuth routes", "providers", deps.OAuthProviders)
	}
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Health(); err != nil {
			deps.Logger.WarnContext(r.Context(), "health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	deps.Logger.Info("registered health check", "path", "/health")

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
