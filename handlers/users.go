package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/auth"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/middleware"
)

type UsersHandler struct {
	svc   *auth.Service
	guard gin.HandlerFunc
}

func NewUsersHandler(svc *auth.Service, guard gin.HandlerFunc) *UsersHandler {
	return &UsersHandler{svc: svc, guard: guard}
}

func (h *UsersHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/users/me", h.guard, h.Me)
}

// Me returns {id, email, name} for the authenticated user.
func (h *UsersHandler) Me(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	u, err := h.svc.Me(c.Request.Context(), p.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
