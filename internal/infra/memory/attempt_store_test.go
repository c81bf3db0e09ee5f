package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progression-engine/internal/domain"
)

func TestAttemptStoreAssignsSequence(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		a, err := store.Append(ctx, domain.Attempt{ID: "a", UserID: "u1", QuizID: "quiz-1", Score: float64(i * 40)}, 3)
		require.NoError(t, err)
		assert.Equal(t, i, a.Sequence)
	}
	_, err := store.Append(ctx, domain.Attempt{UserID: "u1", QuizID: "quiz-2", Score: 10}, 3)
	require.NoError(t, err)

	n, err := store.Count(ctx, "u1", "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	best, err := store.BestScores(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"quiz-1": 80, "quiz-2": 10}, best)

	other, err := store.BestScores(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAttemptStoreConcurrentAppendRespectsLimit(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	const maxAttempts = 3

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append(ctx, domain.Attempt{UserID: "u1", QuizID: "quiz-1"}, maxAttempts)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, domain.ErrLimitExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, maxAttempts, accepted)
	assert.Equal(t, 17, rejected)

	attempts, err := store.List(ctx, "u1", "quiz-1")
	require.NoError(t, err)
	require.Len(t, attempts, maxAttempts)
	for i, a := range attempts {
		assert.Equal(t, i+1, a.Sequence)
	}
}
