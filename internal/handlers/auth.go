package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/internal/service"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	authService  service.AuthService
	cookieHelper *CookieHelper
	jwtService   service.JWTService
	log          logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(authService service.AuthService, cookieHelper *CookieHelper, jwtService service.JWTService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieHelper: cookieHelper,
		jwtService:   jwtService,
		log:          log,
	}
}

// LoginRequest represents the login request payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the token refresh request payload. The token may
// instead come from the refresh_token cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login godoc
// @Summary User login
// @Description Authenticate with email and password; returns tokens and sets httpOnly cookies
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.WithField("email", service.NormalizeEmail(req.Email)).Warn("login failed")
		respondServiceError(c, h.log, "handlers", "Login", err)
		return
	}

	h.cookieHelper.SetAuthCookies(c, response.Token, response.RefreshToken,
		h.jwtService.GetAccessExpiry(), h.jwtService.GetRefreshExpiry())
	c.JSON(http.StatusOK, response)
}

// Refresh godoc
// @Summary Refresh tokens
// @Description Exchange a refresh token (body or cookie) for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest false "Refresh token"
// @Success 200 {object} service.LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
	}
	token := req.RefreshToken
	if token == "" {
		token = h.cookieHelper.GetRefreshToken(c)
	}
	if token == "" {
		respondError(c, http.StatusUnauthorized, "refresh token required")
		return
	}

	response, err := h.authService.RefreshToken(c.Request.Context(), token)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "Refresh", err)
		return
	}

	h.cookieHelper.SetAuthCookies(c, response.Token, response.RefreshToken,
		h.jwtService.GetAccessExpiry(), h.jwtService.GetRefreshExpiry())
	c.JSON(http.StatusOK, response)
}

// Logout godoc
// @Summary User logout
// @Description Revoke the refresh token and clear auth cookies
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), caller.UserID); err != nil {
		respondServiceError(c, h.log, "handlers", "Logout", err)
		return
	}

	h.cookieHelper.ClearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Me godoc
// @Summary Current user
// @Description Return the authenticated user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), caller.UserID)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "Me", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
