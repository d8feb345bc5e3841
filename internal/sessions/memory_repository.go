package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used for local runs
// (SESSION_STORE=memory) and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*Session)}
}

func (m *MemoryRepository) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MemoryRepository) SetRefreshHash(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	s.HashedRefreshToken = hash
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepository) FindValid(ctx context.Context, id, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok || s.UserID != userID || !s.IsValid {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) ListValidByUser(ctx context.Context, userID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Session{}
	for _, s := range m.store {
		if s.UserID == userID && s.IsValid {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) Invalidate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store[id]; ok && s.IsValid {
		s.IsValid = false
		s.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MemoryRepository) InvalidateAllByUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, s := range m.store {
		if s.UserID == userID && s.IsValid {
			s.IsValid = false
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored sessions, valid or not.
func (m *MemoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
