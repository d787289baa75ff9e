package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oleksandrmytro/timecapsule-auth/internal/transport/http/middleware"
	"github.com/oleksandrmytro/timecapsule-auth/internal/usecase"
)

// ProfileHandler exposes the authenticated account profile.
type ProfileHandler struct {
	auth   *usecase.AuthService
	tokens *usecase.TokenService
}

func NewProfileHandler(auth *usecase.AuthService, tokens *usecase.TokenService) *ProfileHandler {
	return &ProfileHandler{
		auth:   auth,
		tokens: tokens,
	}
}

// RegisterRoutes binds the profile endpoints behind authentication.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	users.Use(middleware.RequireAuth(h.tokens))
	users.GET("/me", h.Me)
	users.PATCH("/me", h.UpdateMe)
}

// Me returns the profile of the account behind the access token.
func (h *ProfileHandler) Me(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.auth.Profile(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, usecase.ErrAccountNotFound) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account no longer exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load profile"))
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(account))
}

// UpdateMe applies partial profile changes for the authenticated account.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	account, err := h.auth.UpdateProfile(c.Request.Context(), accountID, usecase.ProfileUpdate{
		Username:  req.Username,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrEmailTaken):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "email already in use"))
		case errors.Is(err, usecase.ErrAccountNotFound):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account no longer exists"))
		default:
			if isUniqueViolation(err) {
				c.JSON(http.StatusConflict, NewErrorResponse(c, "username or email already in use"))
				return
			}
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to update profile"))
		}
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(account))
}
