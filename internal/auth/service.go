package auth

import (
	"context"
	"errors"

	"github.com/gogotex/gogotex/backend/auth-sessions/internal/models"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/security"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/sessions"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/tokens"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/users"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/logger"
	"github.com/gogotex/gogotex/backend/auth-sessions/pkg/metrics"
)

// UserStore is the subset of users.Service used by this package.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)
}

// Service implements sign-in, registration and sign-out.
type Service struct {
	users     UserStore
	sessions  SessionStore
	lifecycle *Lifecycle
	codec     *tokens.Codec
	hasher    *security.Hasher
	log       logger.Logger

	// compared against when the email is unknown so both failure paths cost one bcrypt run
	dummyHash string
}

func NewService(u UserStore, s SessionStore, lc *Lifecycle, c *tokens.Codec, h *security.Hasher, l logger.Logger) (*Service, error) {
	if l == nil {
		l = logger.Discard()
	}
	dummy, err := h.HashPassword("not-a-real-password-1!")
	if err != nil {
		return nil, err
	}
	return &Service{users: u, sessions: s, lifecycle: lc, codec: c, hasher: h, log: l, dummyHash: dummy}, nil
}

// Login checks the password and opens a new session. Unknown email and wrong
// password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in SignInInput, meta sessions.Meta) (*Result, error) {
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.hasher.ComparePassword(s.dummyHash, in.Password)
		s.loginFailed(ctx)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.ComparePassword(u.PasswordHash, in.Password) {
		s.loginFailed(ctx)
		return nil, ErrInvalidCredentials
	}
	res, err := s.lifecycle.IssueTokensAndSession(ctx, u.Principal(), meta)
	if err != nil {
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	s.log.InfoContext(ctx, "user signed in", "event", "auth:login", "user_id", u.ID, "session_id", res.SessionID)
	return res, nil
}

func (s *Service) loginFailed(ctx context.Context) {
	metrics.AuthAttempts.WithLabelValues("login", "invalid_credentials").Inc()
	s.log.WarnContext(ctx, "sign-in rejected", "event", "auth:login:failed")
}

// Register creates a user and opens its first session. The confirmation check
// runs before any store access.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta sessions.Meta) (*Result, error) {
	if in.Password != in.PasswordConfirmation {
		metrics.AuthAttempts.WithLabelValues("register", "password_mismatch").Inc()
		return nil, ErrPasswordMismatch
	}
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, s.emailTaken(ctx)
	}
	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, in.Name, in.Email, hash)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, s.emailTaken(ctx)
		}
		return nil, err
	}
	res, err := s.lifecycle.IssueTokensAndSession(ctx, u.Principal(), meta)
	if err != nil {
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	s.log.InfoContext(ctx, "user registered", "event", "auth:register:success", "user_id", u.ID)
	return res, nil
}

func (s *Service) emailTaken(ctx context.Context) error {
	metrics.AuthAttempts.WithLabelValues("register", "email_taken").Inc()
	s.log.WarnContext(ctx, "registration rejected", "event", "auth:register:email_taken")
	return ErrEmailTaken
}

// Logout invalidates the session named by refreshToken.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return unauthenticated(ReasonRefreshRequired)
	}
	claims, err := s.codec.Verify(refreshToken, tokens.Refresh)
	if err != nil {
		s.log.WarnContext(ctx, "sign-out with unusable refresh token", "event", "auth:logout:invalid-session")
		return unauthenticated(ReasonInvalidSession)
	}
	sess, err := s.sessions.FindValid(ctx, claims.SessionID, claims.SubjectID)
	if err != nil {
		return err
	}
	if sess == nil {
		s.log.WarnContext(ctx, "sign-out for unknown session", "event", "auth:logout:invalid-session", "session_id", claims.SessionID)
		return unauthenticated(ReasonSessionNotFound)
	}
	if err := s.sessions.Invalidate(ctx, sess.ID); err != nil {
		return err
	}
	metrics.SessionsInvalidated.WithLabelValues("single").Inc()
	s.log.InfoContext(ctx, "session ended", "event", "auth:logout:single", "user_id", claims.SubjectID, "session_id", sess.ID)
	return nil
}

// LogoutAll invalidates every valid session of userID. It is a no-op for
// users without sessions.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.sessions.InvalidateAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	metrics.SessionsInvalidated.WithLabelValues("all").Inc()
	s.log.InfoContext(ctx, "all sessions ended", "event", "auth:logout:all", "user_id", userID, "count", n)
	return n, nil
}

// Me returns the stored principal for id, or ErrUnauthenticated when the user no longer exists.
func (s *Service) Me(ctx context.Context, id string) (models.Principal, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.Principal{}, err
	}
	if u == nil {
		return models.Principal{}, unauthenticated(ReasonInvalidSession)
	}
	return u.Principal(), nil
}
