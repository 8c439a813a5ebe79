package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tasktrack/backend/internal/identity"
	"tasktrack/backend/internal/middleware"
	"tasktrack/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler fronts the external identity provider and the lazily
// materialized profile store.
type AuthHandler struct {
	db             *gorm.DB
	provider       identity.Provider
	profileService services.ProfileService
}

func NewAuthHandler(db *gorm.DB, provider identity.Provider, profileService services.ProfileService) *AuthHandler {
	return &AuthHandler{db: db, provider: provider, profileService: profileService}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required,min=1,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	session, err := h.provider.SignUp(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		h.respondProviderError(c, err)
		return
	}

	respondData(c, http.StatusCreated, session)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	session, err := h.provider.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondProviderError(c, err)
		return
	}

	respondData(c, http.StatusOK, session)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	if err := h.provider.SignOut(c.Request.Context(), token); err != nil {
		// A failed remote revocation still ends the local session; log and
		// report success.
		slog.Warn("provider sign-out failed", "error", err)
	}

	respondMessage(c, http.StatusOK, "Successfully logged out")
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.provider.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondProviderError(c, err)
		return
	}

	respondData(c, http.StatusOK, session)
}

// Profile returns the caller's profile, creating it on first fetch.
func (h *AuthHandler) Profile(c *gin.Context) {
	value, exists := c.Get(middleware.ContextClaims)
	if !exists {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "Access token required"})
		return
	}
	claims, ok := value.(*identity.Claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "Access token required"})
		return
	}

	profile, err := h.profileService.GetOrCreateProfile(h.db, claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, profile)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var input services.ProfileUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := h.profileService.UpdateProfile(h.db, userID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, profile)
}

func (h *AuthHandler) respondProviderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "Invalid credentials"})
	default:
		slog.Error("identity provider call failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Internal server error"})
	}
}
