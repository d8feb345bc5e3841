package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the auth cookies. All are http-only, path "/", SameSite=Lax.
type CookieConfig struct {
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

func setCookie(c *gin.Context, cfg CookieConfig, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", cfg.Secure, true)
}

// SetAccessCookie writes the accessToken cookie.
func SetAccessCookie(c *gin.Context, cfg CookieConfig, token string) {
	setCookie(c, cfg, AccessTokenCookie, token, int(cfg.AccessMaxAge.Seconds()))
}

// SetAuthCookies writes both token cookies.
func SetAuthCookies(c *gin.Context, cfg CookieConfig, access, refresh string) {
	SetAccessCookie(c, cfg, access)
	setCookie(c, cfg, RefreshTokenCookie, refresh, int(cfg.RefreshMaxAge.Seconds()))
}

// ClearAuthCookies expires both token cookies.
func ClearAuthCookies(c *gin.Context, cfg CookieConfig) {
	setCookie(c, cfg, AccessTokenCookie, "", -1)
	setCookie(c, cfg, RefreshTokenCookie, "", -1)
}
