package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"progression-engine/internal/domain"
)

// QuizStore writes authored quizzes; QuizLoader reads them back.
type QuizStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewQuizStore(db *bun.DB) *QuizStore {
	return &QuizStore{db: db, now: time.Now}
}

// SaveQuiz upserts the quiz document read back by QuizLoader.
func (s *QuizStore) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	row := &quizRow{ID: quiz.ID, Data: quiz, UpdatedAt: s.now().UTC()}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
