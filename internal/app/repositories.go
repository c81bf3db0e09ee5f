package app

import (
	"context"
	"time"

	"progression-engine/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizWriter persists authored quiz definitions.
type QuizWriter interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// Invalidator is implemented by caching repositories that must drop a stale quiz.
type Invalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// AttemptRepository is the append-only attempt ledger keyed by (user, quiz).
type AttemptRepository interface {
	Count(ctx context.Context, userID, quizID string) (int, error)
	// Append stores the attempt with the next sequence number for (user, quiz),
	// or fails with domain.ErrLimitExceeded when maxAttempts are already used.
	// The count check and the insert are atomic.
	Append(ctx context.Context, attempt domain.Attempt, maxAttempts int) (domain.Attempt, error)
	List(ctx context.Context, userID, quizID string) ([]domain.Attempt, error)
	// BestScores returns the highest recorded score per quiz for a user.
	BestScores(ctx context.Context, userID string) (map[string]float64, error)
}

// ProgressRepository stores the per-user progress record and points ledger.
type ProgressRepository interface {
	Get(ctx context.Context, userID string) (domain.UserProgress, error)
	// Upsert creates the record if missing and refreshes the display name.
	Upsert(ctx context.Context, userID, displayName string) (domain.UserProgress, error)
	// Update runs fn against the current record under a per-user lock and
	// persists the result, including any queued Credits, in one write.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, userID string, fn func(*domain.UserProgress) error) (domain.UserProgress, error)
	// List returns every user in insertion order.
	List(ctx context.Context) ([]domain.UserProgress, error)
	// CreditsSince returns ledger entries created at or after since, oldest first.
	CreditsSince(ctx context.Context, since time.Time) ([]domain.LedgerEntry, error)
}

// AwardRepository stores badge and achievement definitions.
type AwardRepository interface {
	Save(ctx context.Context, award domain.Awardable) error
	Get(ctx context.Context, kind domain.AwardableKind, id string) (domain.Awardable, error)
	ListActive(ctx context.Context, kind domain.AwardableKind) ([]domain.Awardable, error)
}

// MetricSource exposes externally tracked engagement metrics (streaks, logins, ...).
// Metrics that are not tracked are simply absent from the returned map.
type MetricSource interface {
	Metrics(ctx context.Context, userID string) (map[string]float64, error)
}

// Notifier delivers award notifications by user id. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
