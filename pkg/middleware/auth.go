package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/auth"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/models"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/logger"
)

// Transport names for token carriers.
const (
	AccessTokenCookie    = "accessToken"
	RefreshTokenCookie   = "refreshToken"
	RefreshTokenHeader   = "x-refresh-token"
	ReissuedAccessHeader = "x-access-token"

	principalKey = "principal"
	sessionIDKey = "sessionId"
)

// Authenticator is the minimal interface the middleware depends on
type Authenticator interface {
	Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Decision, error)
}

// AuthMiddleware returns a Gin middleware that runs the access/refresh guard.
// When the refresh path was taken the new access token is sent back both as
// the x-access-token header and as the accessToken cookie.
func AuthMiddleware(a Authenticator, cookies CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := a.Authenticate(c.Request.Context(), auth.Credentials{
			AccessToken:  AccessToken(c),
			RefreshToken: RefreshToken(c),
		})
		if err != nil {
			var ue *auth.UnauthenticatedError
			if errors.As(err, &ue) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ue.Reason})
				return
			}
			logger.Default().ErrorContext(c.Request.Context(), "guard failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if d.ReissuedAccessToken != "" {
			c.Header(ReissuedAccessHeader, d.ReissuedAccessToken)
			SetAccessCookie(c, cookies, d.ReissuedAccessToken)
		}
		c.Set(principalKey, d.Principal)
		c.Set(sessionIDKey, d.SessionID)
		c.Next()
	}
}

// AccessToken reads the accessToken cookie, falling back to an Authorization bearer header.
func AccessToken(c *gin.Context) string {
	if v, err := c.Cookie(AccessTokenCookie); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RefreshToken reads the refreshToken cookie, falling back to the x-refresh-token header.
func RefreshToken(c *gin.Context) string {
	if v, err := c.Cookie(RefreshTokenCookie); err == nil && v != "" {
		return v
	}
	return strings.TrimSpace(c.GetHeader(RefreshTokenHeader))
}

// PrincipalFrom returns the principal stored by AuthMiddleware.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// SessionIDFrom returns the id of the session that authenticated the request.
func SessionIDFrom(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
