package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/auth"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/sessions"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/middleware"
)

// AuthHandler holds dependencies
type AuthHandler struct {
	svc     *auth.Service
	guard   gin.HandlerFunc
	cookies middleware.CookieConfig
}

func NewAuthHandler(svc *auth.Service, guard gin.HandlerFunc, cookies middleware.CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, guard: guard, cookies: cookies}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/sign-in", h.SignIn)
	a.POST("/register", h.SignUp)
	a.POST("/sign-out", h.guard, h.SignOut)
	a.POST("/sign-out-all", h.guard, h.SignOutAll)
}

type authResponse struct {
	Message string `json:"message"`
	*auth.Result
}

func requestMeta(c *gin.Context) sessions.Meta {
	return sessions.Meta{UserAgent: c.Request.UserAgent(), IPAddress: c.ClientIP()}
}

// SignIn checks email/password, sets both cookies and echoes the tokens in the body.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var in auth.SignInInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := auth.ValidateSignIn(&in); err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.Login(c.Request.Context(), in, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetAuthCookies(c, h.cookies, res.AccessToken, res.RefreshToken)
	c.JSON(http.StatusOK, authResponse{Message: "Login successful", Result: res})
}

// SignUp creates an account and signs it in.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var in auth.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := auth.ValidateRegister(&in); err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.Register(c.Request.Context(), in, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetAuthCookies(c, h.cookies, res.AccessToken, res.RefreshToken)
	c.JSON(http.StatusCreated, authResponse{Message: "Registration successful", Result: res})
}

// SignOut ends the session named by the refresh token (cookie or x-refresh-token).
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.RefreshToken(c)); err != nil {
		writeError(c, err)
		return
	}
	middleware.ClearAuthCookies(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// SignOutAll ends every session of the authenticated user.
func (h *AuthHandler) SignOutAll(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	if _, err := h.svc.LogoutAll(c.Request.Context(), p.ID); err != nil {
		writeError(c, err)
		return
	}
	middleware.ClearAuthCookies(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out from all devices"})
}

// writeError maps domain errors to HTTP responses. Authentication failures
// carry only coarse reasons; anything unrecognised is logged and hidden.
func writeError(c *gin.Context, err error) {
	var ve *auth.ValidationError
	var ue *auth.UnauthenticatedError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": ve.Fields})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, auth.ErrPasswordMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password confirmation must match password"})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already in use"})
	case errors.As(err, &ue):
		c.JSON(http.StatusUnauthorized, gin.H{"error": ue.Reason})
	case errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	default:
		logger.Default().ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
