package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/config"
)

// Supported provider names.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// ErrUnknownProvider indicates the requested provider is not configured.
var ErrUnknownProvider = fmt.Errorf("unknown oauth provider")

// Identity is the provider-reported profile for an authenticated user.
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
	Login      string
	AvatarURL  string
}

// Providers holds the configured OAuth client for each supported provider.
type Providers struct {
	google *oauth2.Config
	github *oauth2.Config
}

// NewProviders builds provider configs from the OAuth settings. Callback
// URLs are derived from the redirect base.
func NewProviders(cfg config.OAuthSettings) *Providers {
	return &Providers{
		google: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Endpoint:     googleOAuth.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			RedirectURL:  cfg.RedirectBase + "/api/v1/auth/oauth/google/callback",
		},
		github: &oauth2.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"user:email"},
			RedirectURL:  cfg.RedirectBase + "/api/v1/auth/oauth/github/callback",
		},
	}
}

// AuthCodeURL returns the provider's authorization URL for the state value.
func (p *Providers) AuthCodeURL(provider, state string) (string, error) {
	cfg, err := p.config(provider)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

// Exchange trades the authorization code for the provider profile.
func (p *Providers) Exchange(ctx context.Context, provider, code string) (Identity, error) {
	cfg, err := p.config(provider)
	if err != nil {
		return Identity{}, err
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("%s token exchange: %w", provider, err)
	}

	switch provider {
	case ProviderGoogle:
		return fetchGoogleIdentity(ctx, token.AccessToken)
	case ProviderGitHub:
		return fetchGitHubIdentity(ctx, token.AccessToken)
	default:
		return Identity{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

func (p *Providers) config(provider string) (*oauth2.Config, error) {
	switch provider {
	case ProviderGoogle:
		return p.google, nil
	case ProviderGitHub:
		return p.github, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}
