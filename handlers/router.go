package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/auth"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/middleware"
)

// RouterConfig carries everything NewRouter wires.
type RouterConfig struct {
	APIPrefix  string
	CORSOrigin string
	Auth       *auth.Service
	Guard      *auth.Guard
	Cookies    middleware.CookieConfig
	Ready      map[string]Pinger
	// Metrics, when set, is served on GET /metrics.
	Metrics http.Handler
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())
	if rc.CORSOrigin != "" {
		r.Use(middleware.CORS(rc.CORSOrigin))
	}

	NewHealthHandler(rc.Ready).Register(r)
	if rc.Metrics != nil {
		r.GET("/metrics", gin.WrapH(rc.Metrics))
	}
	RegisterSwagger(r, rc.APIPrefix)

	guard := middleware.AuthMiddleware(rc.Guard, rc.Cookies)
	api := r.Group(rc.APIPrefix)
	NewAuthHandler(rc.Auth, guard, rc.Cookies).Register(api)
	NewUsersHandler(rc.Auth, guard).Register(api)
	return r
}
