package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oleksandrmytro/timecapsule-auth/internal/infra/oauth"
	"github.com/oleksandrmytro/timecapsule-auth/internal/usecase"
)

const oauthStateCookie = "oauth_state"

// stateCookieMaxAge bounds how long an authorization round-trip may take.
const stateCookieMaxAge = 600

// OAuthHandler drives the authorization-code flow against external providers.
type OAuthHandler struct {
	auth          *usecase.AuthService
	providers     *oauth.Providers
	frontendURL   string
	secureCookies bool
	logger        *zap.Logger
}

// NewOAuthHandler constructs OAuthHandler. After a successful callback the
// browser is redirected to frontendURL with tokens delivered as cookies.
func NewOAuthHandler(auth *usecase.AuthService, providers *oauth.Providers, frontendURL string, secureCookies bool, logger *zap.Logger) *OAuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthHandler{
		auth:          auth,
		providers:     providers,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// RegisterRoutes binds the OAuth redirect and callback endpoints.
func (h *OAuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/oauth/:provider", h.Redirect)
	r.GET("/oauth/:provider/callback", h.Callback)
}

// Redirect sends the browser to the provider's authorization page with a
// fresh anti-forgery state value.
func (h *OAuthHandler) Redirect(c *gin.Context) {
	provider := c.Param("provider")
	state := uuid.NewString()

	authURL, err := h.providers.AuthCodeURL(provider, state)
	if err != nil {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "unknown oauth provider"))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, stateCookieMaxAge, "/", "", h.secureCookies, true)

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback completes the authorization-code exchange, resolves the external
// identity to an account, and hands tokens to the browser.
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")

	state := c.Query("state")
	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != expected {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "oauth state mismatch"))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.secureCookies, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "authorization code is missing"))
		return
	}

	identity, err := h.providers.Exchange(c.Request.Context(), provider, code)
	if err != nil {
		if errors.Is(err, oauth.ErrUnknownProvider) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "unknown oauth provider"))
			return
		}
		h.logger.Warn("oauth exchange failed", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusBadGateway, NewErrorResponse(c, "provider exchange failed"))
		return
	}

	account, pair, err := h.auth.CompleteOAuth(c.Request.Context(), usecase.ExternalIdentity{
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
		Email:      identity.Email,
		Name:       identity.Name,
		Login:      identity.Login,
		AvatarURL:  identity.AvatarURL,
	})
	if err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, NewErrorResponse(c, "account already exists, retry sign-in"))
			return
		}
		h.logger.Error("oauth completion failed", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to complete sign-in"))
		return
	}

	c.SetCookie(accessTokenCookie, pair.AccessToken, int(pair.AccessExpiresIn), "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, int(pair.RefreshExpiresIn), "/", "", h.secureCookies, true)

	if h.frontendURL != "" {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/auth/complete")
		return
	}

	c.JSON(http.StatusOK, newTokenResponse(pair, &account))
}
