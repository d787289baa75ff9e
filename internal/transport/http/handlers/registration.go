package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oleksandrmytro/timecapsule-auth/internal/usecase"
)

// RegistrationHandler exposes endpoints for staged signup and verification.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
	dispatcher   NotificationDispatcher
	isDev        bool // Development mode flag
}

func NewRegistrationHandler(registration *usecase.RegistrationService, dispatcher NotificationDispatcher, isDev bool) *RegistrationHandler {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	return &RegistrationHandler{
		registration: registration,
		dispatcher:   dispatcher,
		isDev:        isDev,
	}
}

// RegistrationRouteMiddlewares carries per-endpoint middleware chains applied
// ahead of the handlers, typically rate limiting. The verify chain guards both
// the POST and GET forms.
type RegistrationRouteMiddlewares struct {
	Signup []gin.HandlerFunc
	Verify []gin.HandlerFunc
	Resend []gin.HandlerFunc
}

// RegisterRoutes binds registration endpoints.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, mw RegistrationRouteMiddlewares) {
	r.POST("/signup", withChain(mw.Signup, h.Signup)...)
	r.POST("/verify", withChain(mw.Verify, h.Verify)...)
	r.GET("/verify", withChain(mw.Verify, h.VerifyByQuery)...)
	r.POST("/resend", withChain(mw.Resend, h.Resend)...)
}

// withChain appends the handler to its middleware chain.
func withChain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := append([]gin.HandlerFunc{}, middlewares...)
	return append(chain, handler)
}

// Signup stages a registration behind a one-time verification code. No
// account row exists until the code is redeemed.
func (h *RegistrationHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	staged, err := h.registration.Signup(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.respondStagingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.newSignupResponse(c, req.Username, staged, false))
}

// Resend regenerates the verification code for an already staged email.
func (h *RegistrationHandler) Resend(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resend payload"))
		return
	}

	staged, err := h.registration.Resend(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, usecase.ErrPendingNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "no pending registration for this email"))
			return
		}
		h.respondStagingError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.newSignupResponse(c, "", staged, true))
}

// Verify redeems a verification code and promotes the staged registration.
func (h *RegistrationHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	h.verifyCode(c, req.Code)
}

// VerifyByQuery redeems a code arriving as a query parameter, typically from
// a link in the verification email.
func (h *RegistrationHandler) VerifyByQuery(c *gin.Context) {
	h.verifyCode(c, c.Query("code"))
}

func (h *RegistrationHandler) verifyCode(c *gin.Context, code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "verification code is required"))
		return
	}

	account, err := h.registration.Verify(c.Request.Context(), code)
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

	c.JSON(http.StatusOK, VerifyResponse{
		Message: "account verified",
		Account: newAccountSummary(account),
	})
}

func (h *RegistrationHandler) respondStagingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrEmailTaken):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "email already registered"))
	case errors.Is(err, usecase.ErrUsernameTaken):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "username already taken"))
	case errors.Is(err, usecase.ErrPasswordPolicyViolation):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password does not meet requirements"))
	default:
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, NewErrorResponse(c, "email or username already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to stage registration"))
	}
}

func (h *RegistrationHandler) newSignupResponse(c *gin.Context, username string, staged usecase.StagedVerification, resend bool) SignupResponse {
	resp := SignupResponse{
		Email:                staged.Email,
		RequiresVerification: true,
		Message:              "verification required",
	}

	if !staged.ExpiresAt.IsZero() {
		expires := staged.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &expires
	}

	// SECURITY: Only expose raw codes in development mode
	// In production, codes should only be sent via secure channels (email)
	if h.isDev {
		if code := strings.TrimSpace(staged.Code); code != "" {
			resp.DevCode = &code
		}
	}

	h.dispatchVerification(c.Request.Context(), username, staged, resend)

	return resp
}

func (h *RegistrationHandler) dispatchVerification(ctx context.Context, username string, staged usecase.StagedVerification, resend bool) {
	if h.dispatcher == nil {
		return
	}

	payload := RegistrationNotification{
		Email:    staged.Email,
		Username: strings.TrimSpace(username),
		Resend:   resend,
		Expires:  staged.ExpiresAt,
	}

	if h.isDev {
		payload.DevCode = strings.TrimSpace(staged.Code)
	}

	_ = h.dispatcher.SendRegistrationVerification(ctx, payload)
}

// isUniqueViolation reports whether the error is a Postgres unique-constraint
// conflict, typically from two concurrent promotions of the same email.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
