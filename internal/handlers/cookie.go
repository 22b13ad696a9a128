package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/internal/config"
)

const (
	// Cookie names
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	// RefreshTokenPath limits the refresh cookie to the auth endpoints.
	RefreshTokenPath = "/api/auth"
)

// CookieHelper manages authentication cookies.
type CookieHelper struct {
	config config.CookieConfig
}

// NewCookieHelper creates a new cookie helper with the given configuration.
func NewCookieHelper(cfg config.CookieConfig) *CookieHelper {
	return &CookieHelper{config: cfg}
}

// SetAuthCookies sets both access and refresh token cookies.
func (h *CookieHelper) SetAuthCookies(c *gin.Context, accessToken, refreshToken string, accessExpiry, refreshExpiry time.Duration) {
	h.setCookie(c, AccessTokenCookie, accessToken, h.config.Path, int(accessExpiry.Seconds()))
	h.setCookie(c, RefreshTokenCookie, refreshToken, RefreshTokenPath, int(refreshExpiry.Seconds()))
}

// ClearAuthCookies removes both authentication cookies.
func (h *CookieHelper) ClearAuthCookies(c *gin.Context) {
	h.setCookie(c, AccessTokenCookie, "", h.config.Path, -1)
	h.setCookie(c, RefreshTokenCookie, "", RefreshTokenPath, -1)
}

// GetRefreshToken retrieves the refresh token from cookie.
func (h *CookieHelper) GetRefreshToken(c *gin.Context) string {
	token, err := c.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return token
}

func (h *CookieHelper) setCookie(c *gin.Context, name, value, path string, maxAge int) {
	c.SetSameSite(h.config.SameSite)
	c.SetCookie(
		name,
		value,
		maxAge,
		path,
		h.config.Domain,
		h.config.Secure,
		true,
	)
}
