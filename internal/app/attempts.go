package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"progression-engine/internal/domain"
	"progression-engine/internal/logger"
)

// AttemptTracker enforces attempt policy and owns the only write to the attempt ledger.
type AttemptTracker struct {
	attempts AttemptRepository
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

func NewAttemptTracker(attempts AttemptRepository, log *logger.Logger) *AttemptTracker {
	return &AttemptTracker{
		attempts: attempts,
		log:      log.With("component", "AttemptTracker"),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// BeginSubmission decides whether a submission may be graded. A nil error means allow.
func (t *AttemptTracker) BeginSubmission(ctx context.Context, quiz domain.Quiz, userID string, timeTaken int) error {
	if timeTaken < 0 {
		return &domain.ValidationError{Field: "timeTaken", Reason: "must not be negative"}
	}
	used, err := t.attempts.Count(ctx, userID, quiz.ID)
	if err != nil {
		return fmt.Errorf("count attempts: %w", err)
	}
	if used >= quiz.MaxAttempts {
		return domain.ErrLimitExceeded
	}
	if timeTaken > quiz.TimeLimitSeconds() {
		return domain.ErrTimeExceeded
	}
	return nil
}

// Submit checks policy, grades the answers and appends exactly one attempt.
// Rejected submissions leave the ledger untouched.
func (t *AttemptTracker) Submit(ctx context.Context, quiz domain.Quiz, userID string, answers []domain.AnswerSubmission, timeTaken int) (domain.Attempt, GradeResult, error) {
	if err := t.BeginSubmission(ctx, quiz, userID, timeTaken); err != nil {
		t.log.Info("submission rejected", "quiz_id", quiz.ID, "user_id", userID, "reason", err.Error())
		return domain.Attempt{}, GradeResult{}, err
	}

	graded := Grade(quiz, answers)
	attempt, err := t.attempts.Append(ctx, domain.Attempt{
		ID:           t.newID(),
		UserID:       userID,
		QuizID:       quiz.ID,
		Answers:      graded.Answers,
		Score:        graded.Score,
		EarnedPoints: graded.EarnedPoints,
		TotalPoints:  graded.TotalPoints,
		Passed:       graded.Passed,
		TimeTaken:    timeTaken,
		CreatedAt:    t.now().UTC(),
	}, quiz.MaxAttempts)
	if err != nil {
		// A concurrent submission may have taken the last slot between check and append.
		return domain.Attempt{}, GradeResult{}, err
	}

	t.log.Info("attempt recorded",
		"quiz_id", quiz.ID,
		"user_id", userID,
		"sequence", attempt.Sequence,
		"score", attempt.Score,
		"passed", attempt.Passed,
	)
	return attempt, graded, nil
}

// History returns a user's attempts for a quiz, oldest first.
func (t *AttemptTracker) History(ctx context.Context, userID, quizID string) ([]domain.Attempt, error) {
	return t.attempts.List(ctx, userID, quizID)
}
