package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogotex/gogotex/backend/auth-sessions/internal/security"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/tokens"
)

// Service wraps repository operations and owns the refresh-token hash comparison.
type Service struct {
	repo   Repository
	hasher *security.Hasher
}

func NewService(r Repository, h *security.Hasher) *Service { return &Service{repo: r, hasher: h} }

// Repository exposes the backing store (used for readiness checks).
func (s *Service) Repository() Repository { return s.repo }

// CreateEmpty inserts a valid session with no bound refresh-token hash.
func (s *Service) CreateEmpty(ctx context.Context, userID string, meta Meta) (*Session, error) {
	if userID == "" {
		return nil, errors.New("sessions: user id required")
	}
	sess := &Session{
		UserID:    userID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		IsValid:   true,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// BindRefreshToken hashes rawToken and stores it on the session, replacing any prior hash.
func (s *Service) BindRefreshToken(ctx context.Context, sessionID, rawToken string) error {
	hash, err := s.hasher.HashToken(rawToken)
	if err != nil {
		return fmt.Errorf("hash refresh token: %w", err)
	}
	if err := s.repo.SetRefreshHash(ctx, sessionID, hash); err != nil {
		return fmt.Errorf("bind refresh token: %w", err)
	}
	return nil
}

// FindValid returns the session only if it exists, belongs to userID and is valid.
func (s *Service) FindValid(ctx context.Context, sessionID, userID string) (*Session, error) {
	if sessionID == "" || userID == "" {
		return nil, nil
	}
	return s.repo.FindValid(ctx, sessionID, userID)
}

// FindValidByRefreshToken scans the claimed user's valid sessions for one whose
// stored hash matches rawToken. The session named in the claims is compared
// first; the remaining sessions are still scanned so a match never depends on
// the claim being accurate.
func (s *Service) FindValidByRefreshToken(ctx context.Context, claims *tokens.Claims, rawToken string) (*SessionPrincipal, error) {
	if claims == nil || claims.SubjectID == "" || rawToken == "" {
		return nil, nil
	}
	list, err := s.repo.ListValidByUser(ctx, claims.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for i, sess := range list {
		if sess.ID == claims.SessionID && i > 0 {
			list[0], list[i] = list[i], list[0]
			break
		}
	}
	for _, sess := range list {
		if s.hasher.CompareToken(sess.HashedRefreshToken, rawToken) {
			return &SessionPrincipal{
				UserID:    sess.UserID,
				Email:     claims.Email,
				Name:      claims.Name,
				SessionID: sess.ID,
			}, nil
		}
	}
	return nil, nil
}

// Invalidate marks one session terminal.
func (s *Service) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.repo.Invalidate(ctx, sessionID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

// InvalidateAllForUser marks every valid session of userID terminal and returns how many changed.
func (s *Service) InvalidateAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.InvalidateAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("invalidate sessions: %w", err)
	}
	return n, nil
}
