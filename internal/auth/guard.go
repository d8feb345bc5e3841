package auth

import (
	"context"
	"fmt"

	"github.com/gogotex/gogotex/backend/auth-sessions/internal/models"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/metrics"
)

// Credentials is the token material a transport extracted from a request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Path names the branch that authenticated a request.
type Path string

const (
	PathAccess  Path = "access"
	PathRefresh Path = "refresh"
)

// Decision is the outcome of a successful guard run. ReissuedAccessToken is
// set only when the refresh path was taken.
type Decision struct {
	Principal           models.Principal
	SessionID           string
	Path                Path
	ReissuedAccessToken string
}

// Guard authenticates protected requests. An access token is tried first; any
// failure there, including a revoked session, falls through to the refresh
// token, which mints a new access token on success.
type Guard struct {
	sessions SessionStore
	codec    *tokens.Codec
	log      logger.Logger
}

func NewGuard(s SessionStore, c *tokens.Codec, l logger.Logger) *Guard {
	if l == nil {
		l = logger.Discard()
	}
	return &Guard{sessions: s, codec: c, log: l}
}

// Authenticate returns an *UnauthenticatedError when neither token is usable.
// Other errors come from the session store.
func (g *Guard) Authenticate(ctx context.Context, creds Credentials) (*Decision, error) {
	if creds.AccessToken == "" {
		return nil, g.reject(ReasonAccessRequired)
	}
	d, reason, err := g.tryAccess(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if d != nil {
		metrics.GuardDecisions.WithLabelValues(string(PathAccess)).Inc()
		return d, nil
	}
	g.log.DebugContext(ctx, "access path failed, trying refresh", "reason", reason)
	return g.tryRefresh(ctx, creds.RefreshToken)
}

// tryAccess returns a decision, or the reason the access path failed.
func (g *Guard) tryAccess(ctx context.Context, raw string) (*Decision, string, error) {
	claims, err := g.codec.Verify(raw, tokens.Access)
	if err != nil {
		return nil, err.Error(), nil
	}
	sess, err := g.sessions.FindValid(ctx, claims.SessionID, claims.SubjectID)
	if err != nil {
		return nil, "", fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil {
		return nil, ReasonSessionInvalid, nil
	}
	return &Decision{
		Principal: models.Principal{ID: claims.SubjectID, Email: claims.Email, Name: claims.Name},
		SessionID: sess.ID,
		Path:      PathAccess,
	}, "", nil
}

func (g *Guard) tryRefresh(ctx context.Context, raw string) (*Decision, error) {
	if raw == "" {
		return nil, g.reject(ReasonRefreshRequired)
	}
	claims, err := g.codec.Verify(raw, tokens.Refresh)
	if err != nil {
		return nil, g.reject(ReasonInvalidSession)
	}
	sp, err := g.sessions.FindValidByRefreshToken(ctx, claims, raw)
	if err != nil {
		return nil, fmt.Errorf("lookup session by refresh token: %w", err)
	}
	if sp == nil {
		return nil, g.reject(ReasonInvalidSession)
	}
	access, err := g.codec.Issue(tokens.Claims{
		SubjectID: sp.UserID,
		Email:     sp.Email,
		Name:      sp.Name,
		SessionID: sp.SessionID,
	}, tokens.Access)
	if err != nil {
		return nil, fmt.Errorf("reissue access token: %w", err)
	}
	metrics.GuardDecisions.WithLabelValues(string(PathRefresh)).Inc()
	g.log.InfoContext(ctx, "access token reissued", "event", "auth:refresh:silent", "user_id", sp.UserID, "session_id", sp.SessionID)
	return &Decision{
		Principal:           models.Principal{ID: sp.UserID, Email: sp.Email, Name: sp.Name},
		SessionID:           sp.SessionID,
		Path:                PathRefresh,
		ReissuedAccessToken: access,
	}, nil
}

func (g *Guard) reject(reason string) error {
	metrics.GuardDecisions.WithLabelValues("rejected").Inc()
	return unauthenticated(reason)
}
