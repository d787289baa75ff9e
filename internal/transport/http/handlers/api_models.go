package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Providers []string `json:"providers,omitempty"`
}

// SignupRequest defines the account registration payload.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// SignupResponse contains registration results and next steps.
type SignupResponse struct {
	Email                string  `json:"email"`
	RequiresVerification bool    `json:"requires_verification"`
	Message              string  `json:"message"`
	ExpiresAt            *string `json:"expires_at,omitempty"`
	// SECURITY: DevCode is ONLY exposed in development mode
	// In production, verification codes are sent via secure channels
	DevCode *string `json:"dev_code,omitempty"` // Development only
}

// ResendRequest holds the payload to resend a verification code.
type ResendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyRequest holds the verification payload.
type VerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyResponse is returned after a successful verification.
type VerifyResponse struct {
	Message string         `json:"message"`
	Account AccountSummary `json:"account"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse contains an issued token pair alongside its account.
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	Account      *AccountSummary `json:"account,omitempty"`
}

// TokenRefreshRequest represents the payload to refresh an access token. The
// token may also arrive via the refresh cookie, in which case the body is
// optional.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse returns the account behind a valid access token.
type SessionResponse struct {
	Account AccountSummary `json:"account"`
}

// UpdateProfileRequest carries optional profile changes. Omitted fields stay
// unchanged; an empty avatar_url clears the avatar.
type UpdateProfileRequest struct {
	Username  string  `json:"username" binding:"omitempty,min=2,max=100"`
	Email     string  `json:"email" binding:"omitempty,email"`
	AvatarURL *string `json:"avatar_url"`
}

// ProviderSummary describes one linked external identity.
type ProviderSummary struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
}

// ProfileResponse is the full account view returned by the profile endpoints.
type ProfileResponse struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	Role      string            `json:"role"`
	Enabled   bool              `json:"enabled"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Providers []ProviderSummary `json:"auth_providers,omitempty"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newAccountSummary converts a domain account to a summary suitable for API responses.
func newAccountSummary(account domain.Account) AccountSummary {
	summary := AccountSummary{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Role:      string(account.Role),
		AvatarURL: account.AvatarURL,
	}

	if len(account.Providers) > 0 {
		providers := make([]string, 0, len(account.Providers))
		for _, link := range account.Providers {
			providers = append(providers, link.Provider)
		}
		summary.Providers = providers
	}

	return summary
}

func newProfileResponse(account domain.Account) ProfileResponse {
	resp := ProfileResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Role:      string(account.Role),
		Enabled:   account.Enabled,
		AvatarURL: account.AvatarURL,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}

	if len(account.Providers) > 0 {
		providers := make([]ProviderSummary, 0, len(account.Providers))
		for _, link := range account.Providers {
			providers = append(providers, ProviderSummary{
				Provider:   link.Provider,
				ProviderID: link.ProviderID,
				Email:      link.Email,
				Name:       link.Name,
			})
		}
		resp.Providers = providers
	}

	return resp
}

func newTokenResponse(pair domain.TokenPair, account *domain.Account) TokenResponse {
	resp := TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.AccessExpiresIn,
	}

	if account != nil {
		summary := newAccountSummary(*account)
		resp.Account = &summary
	}

	return resp
}
