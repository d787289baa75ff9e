package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/transport/http/middleware"
	"github.com/oleksandrmytro/timecapsule-auth/internal/usecase"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth          *usecase.AuthService
	tokens        *usecase.TokenService
	secureCookies bool
}

// NewAuthHandler constructs AuthHandler. Cookies carry the Secure attribute
// unless the service runs in development mode.
func NewAuthHandler(auth *usecase.AuthService, tokens *usecase.TokenService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		tokens:        tokens,
		secureCookies: secureCookies,
	}
}

// AuthRouteMiddlewares carries per-endpoint middleware chains applied ahead
// of the handlers. The verify chain covers verify-and-login; the refresh
// chain covers both refresh endpoints.
type AuthRouteMiddlewares struct {
	Login   []gin.HandlerFunc
	Verify  []gin.HandlerFunc
	Refresh []gin.HandlerFunc
}

// RegisterRoutes binds authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, mw AuthRouteMiddlewares) {
	r.POST("/login", withChain(mw.Login, h.Login)...)
	r.POST("/verify-and-login", withChain(mw.Verify, h.VerifyAndLogin)...)
	r.POST("/refresh", withChain(mw.Refresh, h.Refresh)...)
	r.POST("/refresh/check", withChain(mw.Refresh, h.RefreshCheck)...)
	r.POST("/logout", h.Logout)
	r.GET("/session", middleware.RequireAuth(h.tokens), h.Session)
}

// Login authenticates email and password credentials and issues a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	account, pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAccountNotVerified):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "account pending verification"))
		case errors.Is(err, usecase.ErrAccountNotFound), errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid email or password"))
		case errors.Is(err, usecase.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is disabled"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to authenticate"))
		}
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, newTokenResponse(pair, &account))
}

// VerifyAndLogin redeems a verification code and immediately issues tokens
// for the promoted account.
func (h *AuthHandler) VerifyAndLogin(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	account, pair, err := h.auth.VerifyAndIssueTokens(c.Request.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrCodeInvalid):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "verification code is invalid"))
		case errors.Is(err, usecase.ErrCodeExpired):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "verification code has expired"))
		case errors.Is(err, usecase.ErrEmailTaken):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "email already registered"))
		default:
			if isUniqueViolation(err) {
				c.JSON(http.StatusConflict, NewErrorResponse(c, "account already exists"))
				return
			}
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to verify code"))
		}
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, newTokenResponse(pair, &account))
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, ok := h.refreshTokenFromRequest(c)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh token is required"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.respondRefreshError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, newTokenResponse(pair, nil))
}

// RefreshCheck reissues the pair only when the refresh token predates the
// current signing-secret version. A current token yields 304 Not Modified.
func (h *AuthHandler) RefreshCheck(c *gin.Context) {
	refreshToken, ok := h.refreshTokenFromRequest(c)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh token is required"))
		return
	}

	pair, err := h.auth.RefreshIfRotated(c.Request.Context(), refreshToken)
	if err != nil {
		h.respondRefreshError(c, err)
		return
	}

	if pair == nil {
		c.Status(http.StatusNotModified)
		return
	}

	h.setAuthCookies(c, *pair)
	c.JSON(http.StatusOK, newTokenResponse(*pair, nil))
}

// Logout clears the token cookies. Tokens remain valid until expiry; there
// is no server-side session to tear down.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// Session resolves the authenticated access token to its account.
func (h *AuthHandler) Session(c *gin.Context) {
	token, ok := middleware.GetAccessToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.auth.Session(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid access token"))
		case errors.Is(err, usecase.ErrAccountNotFound):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account no longer exists"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resolve session"))
		}
		return
	}

	c.JSON(http.StatusOK, SessionResponse{Account: newAccountSummary(account)})
}

func (h *AuthHandler) respondRefreshError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRefreshToken):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid refresh token"))
	case errors.Is(err, usecase.ErrAccountNotFound):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account no longer exists"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to refresh tokens"))
	}
}

// refreshTokenFromRequest reads the refresh token from the JSON body, falling
// back to the refresh cookie set at login.
func (h *AuthHandler) refreshTokenFromRequest(c *gin.Context) (string, bool) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if token := strings.TrimSpace(req.RefreshToken); token != "" {
			return token, true
		}
	}

	if cookie, err := c.Cookie(refreshTokenCookie); err == nil {
		if token := strings.TrimSpace(cookie); token != "" {
			return token, true
		}
	}

	return "", false
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, pair domain.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, pair.AccessToken, int(pair.AccessExpiresIn), "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, int(pair.RefreshExpiresIn), "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", h.secureCookies, true)
}
