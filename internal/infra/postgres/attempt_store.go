package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"progression-engine/internal/domain"
)

// appendRetries bounds how often Append retries after losing a sequence race.
const appendRetries = 3

// AttemptStore is the attempt ledger. (user_id, quiz_id, seq) is unique.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Count(ctx context.Context, userID, quizID string) (int, error) {
	return s.db.NewSelect().
		Model((*attemptRow)(nil)).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID).
		Count(ctx)
}

// Append inserts the attempt as seq = count+1. Appends for one (user, quiz)
// pair are serialized by a transaction-scoped advisory lock; the unique
// (user_id, quiz_id, seq) index is the backstop, and a loser recounts and
// either retries or reports the limit.
func (s *AttemptStore) Append(ctx context.Context, attempt domain.Attempt, maxAttempts int) (domain.Attempt, error) {
	for i := 0; i < appendRetries; i++ {
		err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", attempt.UserID+"/"+attempt.QuizID); err != nil {
				return err
			}
			used, err := tx.NewSelect().
				Model((*attemptRow)(nil)).
				Where("user_id = ?", attempt.UserID).
				Where("quiz_id = ?", attempt.QuizID).
				Count(ctx)
			if err != nil {
				return err
			}
			if used >= maxAttempts {
				return domain.ErrLimitExceeded
			}
			attempt.Sequence = used + 1
			row := &attemptRow{
				ID:           attempt.ID,
				UserID:       attempt.UserID,
				QuizID:       attempt.QuizID,
				Seq:          attempt.Sequence,
				Answers:      attempt.Answers,
				Score:        attempt.Score,
				EarnedPoints: attempt.EarnedPoints,
				TotalPoints:  attempt.TotalPoints,
				Passed:       attempt.Passed,
				TimeTaken:    attempt.TimeTaken,
				CreatedAt:    attempt.CreatedAt,
			}
			_, err = tx.NewInsert().Model(row).Exec(ctx)
			return err
		})
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return domain.Attempt{}, err
		}
		return attempt, nil
	}
	return domain.Attempt{}, fmt.Errorf("append attempt: sequence contention for %s/%s", attempt.UserID, attempt.QuizID)
}

func (s *AttemptStore) List(ctx context.Context, userID, quizID string) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *AttemptStore) BestScores(ctx context.Context, userID string) (map[string]float64, error) {
	var rows []struct {
		QuizID string  `bun:"quiz_id"`
		Score  float64 `bun:"score"`
	}
	err := s.db.NewSelect().
		Model((*attemptRow)(nil)).
		Column("quiz_id").
		ColumnExpr("max(score) AS score").
		Where("user_id = ?", userID).
		Group("quiz_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	best := make(map[string]float64, len(rows))
	for _, r := range rows {
		best[r.QuizID] = r.Score
	}
	return best, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
