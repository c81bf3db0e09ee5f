package memory

import (
	"context"
	"sync"
	"time"

	"progression-engine/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressRepository.
// Updates run under one store-wide lock, which serializes every per-user
// read-modify-write.
type ProgressStore struct {
	mu     sync.RWMutex
	now    func() time.Time
	users  map[string]*domain.UserProgress
	order  []string
	ledger []domain.LedgerEntry
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		now:   time.Now,
		users: make(map[string]*domain.UserProgress),
	}
}

func (s *ProgressStore) Get(_ context.Context, userID string) (domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.UserProgress{}, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *ProgressStore) Upsert(_ context.Context, userID, displayName string) (domain.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if u, ok := s.users[userID]; ok {
		if displayName != "" {
			u.DisplayName = displayName
			u.UpdatedAt = now
		}
		return u.Clone(), nil
	}
	u := &domain.UserProgress{
		UserID:         userID,
		DisplayName:    displayName,
		CourseProgress: domain.CourseProgress{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[userID] = u
	s.order = append(s.order, userID)
	return u.Clone(), nil
}

func (s *ProgressStore) Update(_ context.Context, userID string, fn func(*domain.UserProgress) error) (domain.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[userID]
	if !ok {
		return domain.UserProgress{}, domain.ErrUserNotFound
	}

	working := current.Clone()
	working.Credits = nil
	if err := fn(&working); err != nil {
		return domain.UserProgress{}, err
	}

	s.ledger = append(s.ledger, working.Credits...)
	working.Credits = nil
	working.UpdatedAt = s.now().UTC()
	*current = working
	return working.Clone(), nil
}

func (s *ProgressStore) List(_ context.Context) ([]domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserProgress, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id].Clone())
	}
	return out, nil
}

func (s *ProgressStore) CreditsSince(_ context.Context, since time.Time) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, e := range s.ledger {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}
