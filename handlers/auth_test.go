package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/auth-sessions/internal/auth"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/config"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/security"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/sessions"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/users"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/middleware"
)

const prefix = "/api/v1"

var jwtCfg = config.JWTConfig{
	AccessSecret:  "access-secret",
	AccessTTL:     15 * time.Minute,
	RefreshSecret: "refresh-secret",
	RefreshTTL:    7 * 24 * time.Hour,
}

type testServer struct {
	r        *gin.Engine
	sessions *sessions.Service
	repo     *sessions.MemoryRepository
	past     *tokens.Codec
}

func newTestServer(t *testing.T, ready map[string]Pinger) *testServer {
	t.Helper()
	codec, err := tokens.NewCodec(jwtCfg)
	require.NoError(t, err)
	past, err := tokens.NewCodec(jwtCfg, tokens.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	require.NoError(t, err)

	hasher := security.NewHasher(4)
	repo := sessions.NewMemoryRepository()
	sess := sessions.NewService(repo, hasher)
	log := logger.Discard()
	svc, err := auth.NewService(users.NewService(users.NewMemoryUserRepository()), sess, auth.NewLifecycle(sess, codec, log), codec, hasher, log)
	require.NoError(t, err)

	r := NewRouter(RouterConfig{
		APIPrefix:  prefix,
		CORSOrigin: "http://localhost:5173",
		Auth:       svc,
		Guard:      auth.NewGuard(sess, codec, log),
		Cookies:    middleware.CookieConfig{AccessMaxAge: jwtCfg.AccessTTL, RefreshMaxAge: jwtCfg.RefreshTTL},
		Ready:      ready,
	})
	return &testServer{r: r, sessions: sess, repo: repo, past: past}
}

type reqOpt func(*http.Request)

func bearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func refreshHeader(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set(middleware.RefreshTokenHeader, tok) }
}

func (s *testServer) do(method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

type authBody struct {
	Message      string            `json:"message"`
	User         map[string]string `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const joDoe = `{"name":"Jo Doe","email":"jo@x.com","password":"Abc12345!","passwordConfirmation":"Abc12345!"}`

func (s *testServer) register(t *testing.T) authBody {
	t.Helper()
	w := s.do(http.MethodPost, prefix+"/auth/register", joDoe)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[authBody](t, w)
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterAndSignIn(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, prefix+"/auth/register", joDoe)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode[authBody](t, w)
	assert.Equal(t, "Registration successful", body.Message)
	assert.Equal(t, "jo@x.com", body.User["email"])
	assert.Equal(t, "Jo Doe", body.User["name"])
	assert.NotContains(t, w.Body.String(), "password")
	require.NotNil(t, cookieNamed(w, middleware.AccessTokenCookie))
	require.NotNil(t, cookieNamed(w, middleware.RefreshTokenCookie))
	assert.Equal(t, 7*24*3600, cookieNamed(w, middleware.RefreshTokenCookie).MaxAge)

	w = s.do(http.MethodPost, prefix+"/auth/sign-in", `{"email":"JO@x.com","password":"Abc12345!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[authBody](t, w)
	assert.Equal(t, body.User["id"], login.User["id"])
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, 2, s.repo.Count())
}

func TestSignIn_Failures(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t)

	w := s.do(http.MethodPost, prefix+"/auth/sign-in", `{"email":"jo@x.com","password":"Wrong1234!"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	wrong := w.Body.String()

	w = s.do(http.MethodPost, prefix+"/auth/sign-in", `{"email":"nobody@x.com","password":"Abc12345!"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, wrong, w.Body.String())

	w = s.do(http.MethodPost, prefix+"/auth/sign-in", `{"email":"bad","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, prefix+"/auth/sign-in", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_Failures(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, prefix+"/auth/register", `{"name":"Jo Doe","email":"jo@x.com","password":"Abc12345!","passwordConfirmation":"Abc12345?"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Password confirmation must match password")
	assert.Equal(t, 0, s.repo.Count())

	s.register(t)
	w = s.do(http.MethodPost, prefix+"/auth/register", joDoe)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email is already in use")

	w = s.do(http.MethodPost, prefix+"/auth/register", `{"name":"Jo","email":"jo2@x.com","password":"weakpass","passwordConfirmation":"weakpass"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	v := decode[struct {
		Fields []auth.FieldError `json:"fields"`
	}](t, w)
	assert.Len(t, v.Fields, 2)
}

func TestMe(t *testing.T) {
	s := newTestServer(t, nil)
	reg := s.register(t)

	w := s.do(http.MethodGet, prefix+"/users/me", "", bearer(reg.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+reg.User["id"]+`","email":"jo@x.com","name":"Jo Doe"}`, w.Body.String())

	w = s.do(http.MethodGet, prefix+"/users/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), auth.ReasonAccessRequired)
}

func (s *testServer) expiredAccess(t *testing.T, reg authBody) string {
	t.Helper()
	c, err := tokens.NewCodec(jwtCfg)
	require.NoError(t, err)
	claims, err := c.Verify(reg.AccessToken, tokens.Access)
	require.NoError(t, err)
	tok, err := s.past.Issue(*claims, tokens.Access)
	require.NoError(t, err)
	return tok
}

func TestMe_SilentRefresh(t *testing.T) {
	s := newTestServer(t, nil)
	reg := s.register(t)
	expired := s.expiredAccess(t, reg)

	w := s.do(http.MethodGet, prefix+"/users/me", "", bearer(expired), refreshHeader(reg.RefreshToken))
	require.Equal(t, http.StatusOK, w.Code)
	fresh := w.Header().Get(middleware.ReissuedAccessHeader)
	require.NotEmpty(t, fresh)
	assert.NotEqual(t, expired, fresh)
	ck := cookieNamed(w, middleware.AccessTokenCookie)
	require.NotNil(t, ck)
	assert.Equal(t, fresh, ck.Value)

	w = s.do(http.MethodGet, prefix+"/users/me", "", bearer(fresh))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(middleware.ReissuedAccessHeader))
}

func TestSignOut(t *testing.T) {
	s := newTestServer(t, nil)
	reg := s.register(t)

	// guard passes but no refresh token to name the session
	w := s.do(http.MethodPost, prefix+"/auth/sign-out", "", bearer(reg.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, prefix+"/auth/sign-out", "", bearer(reg.AccessToken), refreshHeader(reg.RefreshToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, w.Body.String())
	ck := cookieNamed(w, middleware.RefreshTokenCookie)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)

	// the session is gone, so neither path authenticates
	w = s.do(http.MethodGet, prefix+"/users/me", "", bearer(reg.AccessToken), refreshHeader(reg.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Register, read /users/me, sign out, then retry with an expired access token.
func TestEndToEnd(t *testing.T) {
	s := newTestServer(t, nil)
	reg := s.register(t)
	require.Equal(t, 1, s.repo.Count())

	w := s.do(http.MethodGet, prefix+"/users/me", "", bearer(reg.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, prefix+"/auth/sign-out", "", bearer(reg.AccessToken), refreshHeader(reg.RefreshToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, prefix+"/users/me", "", bearer(s.expiredAccess(t, reg)), refreshHeader(reg.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), auth.ReasonInvalidSession)
}

func TestSignOutAll(t *testing.T) {
	s := newTestServer(t, nil)
	reg := s.register(t)
	w := s.do(http.MethodPost, prefix+"/auth/sign-in", `{"email":"jo@x.com","password":"Abc12345!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	other := decode[authBody](t, w)

	w = s.do(http.MethodPost, prefix+"/auth/sign-out-all", "", bearer(reg.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out from all devices"}`, w.Body.String())

	for _, b := range []authBody{reg, other} {
		w = s.do(http.MethodGet, prefix+"/users/me", "", bearer(b.AccessToken), refreshHeader(b.RefreshToken))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w = s.do(http.MethodPost, prefix+"/auth/sign-in", `{"email":"jo@x.com","password":"Abc12345!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := decode[authBody](t, w)
	w = s.do(http.MethodGet, prefix+"/users/me", "", bearer(fresh.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, prefix+"/auth/sign-in", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Access-Token")
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, map[string]Pinger{
		"mongo": pingFunc(func(context.Context) error { return nil }),
	})
	w := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", w.Body.String())

	w = s.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mongo":true`)

	s = newTestServer(t, map[string]Pinger{
		"redis": pingFunc(func(context.Context) error { return errors.New("down") }),
	})
	w = s.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}
