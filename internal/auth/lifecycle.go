package auth

import (
	"context"
	"fmt"

	"github.com/gogotex/gogotex/backend/auth-sessions/internal/models"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/sessions"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/logger"
)

// SessionStore is the subset of sessions.Service used by this package.
type SessionStore interface {
	CreateEmpty(ctx context.Context, userID string, meta sessions.Meta) (*sessions.Session, error)
	BindRefreshToken(ctx context.Context, sessionID, rawToken string) error
	FindValid(ctx context.Context, sessionID, userID string) (*sessions.Session, error)
	FindValidByRefreshToken(ctx context.Context, claims *tokens.Claims, rawToken string) (*sessions.SessionPrincipal, error)
	Invalidate(ctx context.Context, sessionID string) error
	InvalidateAllForUser(ctx context.Context, userID string) (int64, error)
}

// Result is what sign-in and registration hand back to the transport.
type Result struct {
	User         models.Principal `json:"user"`
	SessionID    string           `json:"-"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

// Lifecycle creates a session row before minting the tokens that name it, then
// binds the refresh-token hash to that row.
type Lifecycle struct {
	sessions SessionStore
	codec    *tokens.Codec
	log      logger.Logger
}

func NewLifecycle(s SessionStore, c *tokens.Codec, l logger.Logger) *Lifecycle {
	if l == nil {
		l = logger.Discard()
	}
	return &Lifecycle{sessions: s, codec: c, log: l}
}

// IssueTokensAndSession runs the create, sign, bind sequence for p. A failed
// bind is logged and the tokens are still returned: the access token works
// until expiry and the client must sign in again afterwards.
func (l *Lifecycle) IssueTokensAndSession(ctx context.Context, p models.Principal, meta sessions.Meta) (*Result, error) {
	sess, err := l.sessions.CreateEmpty(ctx, p.ID, meta)
	if err != nil {
		return nil, err
	}
	claims := tokens.Claims{SubjectID: p.ID, Email: p.Email, Name: p.Name, SessionID: sess.ID}
	access, err := l.codec.Issue(claims, tokens.Access)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := l.codec.Issue(claims, tokens.Refresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := l.sessions.BindRefreshToken(ctx, sess.ID, refresh); err != nil {
		l.log.ErrorContext(ctx, "refresh token bind failed", "event", "auth:session:bind_failed", "session_id", sess.ID, "error", err)
	}
	return &Result{User: p, SessionID: sess.ID, AccessToken: access, RefreshToken: refresh}, nil
}
