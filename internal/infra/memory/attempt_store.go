package memory

import (
	"context"
	"sync"

	"progression-engine/internal/domain"
)

type attemptKey struct {
	userID string
	quizID string
}

// AttemptStore is an in-memory attempt ledger indexed by (user, quiz).
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[attemptKey][]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[attemptKey][]domain.Attempt)}
}

func (s *AttemptStore) Count(_ context.Context, userID, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts[attemptKey{userID, quizID}]), nil
}

// Append checks the limit and assigns the sequence number under the store lock.
func (s *AttemptStore) Append(_ context.Context, attempt domain.Attempt, maxAttempts int) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey{attempt.UserID, attempt.QuizID}
	existing := s.attempts[key]
	if len(existing) >= maxAttempts {
		return domain.Attempt{}, domain.ErrLimitExceeded
	}
	attempt.Sequence = len(existing) + 1
	attempt.Answers = append([]domain.GradedAnswer(nil), attempt.Answers...)
	s.attempts[key] = append(existing, attempt)
	return attempt, nil
}

func (s *AttemptStore) List(_ context.Context, userID, quizID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Attempt(nil), s.attempts[attemptKey{userID, quizID}]...), nil
}

func (s *AttemptStore) BestScores(_ context.Context, userID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := make(map[string]float64)
	for key, attempts := range s.attempts {
		if key.userID != userID {
			continue
		}
		for _, a := range attempts {
			if cur, ok := best[key.quizID]; !ok || a.Score > cur {
				best[key.quizID] = a.Score
			}
		}
	}
	return best, nil
}
