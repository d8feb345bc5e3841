package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the auth service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r *gin.Engine, apiPrefix string) {
	doc := []byte(strings.ReplaceAll(swaggerJSON, "{{prefix}}", strings.TrimRight(apiPrefix, "/")))

	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>auth-sessions - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "auth-sessions", "version": "v1.0.0" },
  "components": {
    "securitySchemes": {
      "bearer": { "type": "http", "scheme": "bearer" },
      "accessCookie": { "type": "apiKey", "in": "cookie", "name": "accessToken" },
      "refreshCookie": { "type": "apiKey", "in": "cookie", "name": "refreshToken" },
      "refreshHeader": { "type": "apiKey", "in": "header", "name": "x-refresh-token" }
    },
    "schemas": {
      "User": { "type": "object", "properties": { "id": {"type":"string"}, "email": {"type":"string"}, "name": {"type":"string"} } },
      "AuthResponse": { "type": "object", "properties": { "message": {"type":"string"}, "user": {"$ref":"#/components/schemas/User"}, "accessToken": {"type":"string"}, "refreshToken": {"type":"string"} } }
    }
  },
  "paths": {
    "{{prefix}}/auth/sign-in": {
      "post": {
        "summary": "Sign in with email and password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["email","password"],"properties":{"email":{"type":"string"},"password":{"type":"string","minLength":8}}}}}},
        "responses": { "200": { "description": "signed in; cookies set", "content": {"application/json": {"schema": {"$ref":"#/components/schemas/AuthResponse"}}} }, "400": { "description": "invalid input" }, "401": { "description": "invalid email or password" } }
      }
    },
    "{{prefix}}/auth/register": {
      "post": {
        "summary": "Create an account and sign in",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","email","password","passwordConfirmation"],"properties":{"name":{"type":"string","minLength":3},"email":{"type":"string"},"password":{"type":"string","minLength":8},"passwordConfirmation":{"type":"string"}}}}}},
        "responses": { "201": { "description": "registered; cookies set", "content": {"application/json": {"schema": {"$ref":"#/components/schemas/AuthResponse"}}} }, "400": { "description": "invalid input, password mismatch or email in use" } }
      }
    },
    "{{prefix}}/auth/sign-out": {
      "post": { "summary": "End the current session", "security": [{"accessCookie":[]},{"bearer":[]}], "responses": { "200": { "description": "logged out; cookies cleared" }, "401": { "description": "no usable refresh token or session not found" } } }
    },
    "{{prefix}}/auth/sign-out-all": {
      "post": { "summary": "End every session of the current user", "security": [{"accessCookie":[]},{"bearer":[]}], "responses": { "200": { "description": "logged out from all devices" }, "401": { "description": "unauthenticated" } } }
    },
    "{{prefix}}/users/me": {
      "get": { "summary": "Current user", "security": [{"accessCookie":[]},{"bearer":[]}], "responses": { "200": { "description": "user", "content": {"application/json": {"schema": {"$ref":"#/components/schemas/User"}}} }, "401": { "description": "unauthenticated" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
