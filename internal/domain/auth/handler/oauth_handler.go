package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/service"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
)

// OAuthProviders holds the client credentials of the supported providers.
// A provider without a client id is not registered.
type OAuthProviders struct {
	CallbackBaseURL    string
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	SessionSecret      string
	SecureCookies      bool
}

// ConfigureOAuth registers the goth providers and the cookie store gothic
// keeps the OAuth state in. It returns the enabled provider names.
func ConfigureOAuth(cfg OAuthProviders) []string {
	base := strings.TrimRight(cfg.CallbackBaseURL, "/")
	var providers []goth.Provider
	var names []string
	if cfg.GoogleClientID != "" {
		providers = append(providers, google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, base+"/auth/google/callback", "email", "profile"))
		names = append(names, "google")
	}
	if cfg.GitHubClientID != "" {
		providers = append(providers, github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, base+"/auth/github/callback", "user:email"))
		names = append(names, "github")
	}
	if len(providers) == 0 {
		return nil
	}
	goth.UseProviders(providers...)

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.SecureCookies
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store
	gothic.GetProviderName = providerFromPath
	return names
}

func providerFromPath(r *http.Request) (string, error) {
	if p := r.PathValue("provider"); p != "" {
		return p, nil
	}
	return "", errors.New("you must select a provider")
}

// OAuthLoginer completes a sign-in for a provider identity.
type OAuthLoginer interface {
	LoginWithOAuth(ctx context.Context, params service.OAuthParams) (*service.AuthResult, error)
}

type OAuthHandler struct {
	auth        OAuthLoginer
	frontendURL string
	logger      *slog.Logger

	begin    func(http.ResponseWriter, *http.Request)
	complete func(http.ResponseWriter, *http.Request) (goth.User, error)
}

func NewOAuthHandler(auth OAuthLoginer, frontendURL string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		auth:        auth,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
		begin:       gothic.BeginAuthHandler,
		complete:    gothic.CompleteUserAuth,
	}
}

// Register mounts the begin and callback routes on mux.
func (h *OAuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /auth/{provider}", h.Begin)
	mux.HandleFunc("GET /auth/{provider}/callback", h.Callback)
}

func (h *OAuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	h.begin(w, r)
}

// Callback finishes the provider flow and redirects to the frontend with the
// token pair in the URL fragment, which browsers never send to servers.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "OAuthCallback"), slog.String("provider", r.PathValue("provider")))

	gu, err := h.complete(w, r)
	if err != nil {
		l.WarnContext(r.Context(), "OAuth exchange failed", slog.Any("error", err))
		h.redirectError(w, r, "oauth_failed")
		return
	}

	name := gu.Name
	if name == "" {
		name = gu.NickName
	}
	result, err := h.auth.LoginWithOAuth(r.Context(), service.OAuthParams{
		Provider:       gu.Provider,
		ProviderUserID: gu.UserID,
		Email:          gu.Email,
		DisplayName:    name,
		AvatarURL:      gu.AvatarURL,
		UserAgent:      r.UserAgent(),
		ClientIP:       interceptors.ClientIP(r.Header, r.RemoteAddr),
	})
	if err != nil {
		l.ErrorContext(r.Context(), "OAuth sign-in failed", slog.Any("error", err))
		h.redirectError(w, r, "signin_failed")
		return
	}

	fragment := url.Values{}
	fragment.Set("access_token", result.Tokens.AccessToken)
	fragment.Set("refresh_token", result.Tokens.RefreshToken)
	fragment.Set("token_type", result.Tokens.TokenType)
	fragment.Set("expires_at", strconv.FormatInt(result.Tokens.ExpiresAt.Unix(), 10))

	l.InfoContext(r.Context(), "OAuth sign-in", slog.String("user_id", result.User.ID.String()))
	http.Redirect(w, r, h.frontendURL+"/auth/callback#"+fragment.Encode(), http.StatusFound)
}

func (h *OAuthHandler) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontendURL+"/auth/error?reason="+url.QueryEscape(reason), http.StatusFound)
}
