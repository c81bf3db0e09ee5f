package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"progression-engine/internal/domain"
	"progression-engine/internal/logger"
)

// Viewer identifies who is reading a quiz. Privileged viewers (owners,
// admins) see answer keys.
type Viewer struct {
	UserID     string
	Privileged bool
}

// QuestionView is a question as returned to a reader.
type QuestionView struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	Points       int      `json:"points"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// QuizView is a quiz as returned to a reader.
type QuizView struct {
	ID              string         `json:"id"`
	ModuleID        string         `json:"moduleId"`
	Title           string         `json:"title"`
	Questions       []QuestionView `json:"questions"`
	PassingScore    float64        `json:"passingScore"`
	TimeLimit       int            `json:"timeLimit"`
	MaxAttempts     int            `json:"maxAttempts"`
	IsRandomized    bool           `json:"isRandomized"`
	ShowExplanation bool           `json:"showExplanation"`
	ShowResults     bool           `json:"showResults"`
	TotalPoints     int            `json:"totalPoints"`
}

// QuizCatalog serves quiz definitions.
type QuizCatalog struct {
	quizzes QuizRepository
	writer  QuizWriter
	log     *logger.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCatalog(quizzes QuizRepository, writer QuizWriter, log *logger.Logger) *QuizCatalog {
	return &QuizCatalog{
		quizzes: quizzes,
		writer:  writer,
		log:     log.With("component", "QuizCatalog"),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Quiz returns the full definition, answer keys included. Internal use only.
func (c *QuizCatalog) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := c.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	// Cached quizzes share their question slice; never mutate it in place.
	quiz.SetQuestions(append([]domain.Question(nil), quiz.Questions...))
	return quiz, nil
}

// GetQuiz returns the reader view of a quiz. Answer keys and explanations are
// stripped for non-privileged viewers; explanations only ever reach learners
// through a graded submission. Randomized quizzes are reshuffled per read.
func (c *QuizCatalog) GetQuiz(ctx context.Context, quizID string, viewer Viewer) (QuizView, error) {
	quiz, err := c.Quiz(ctx, quizID)
	if err != nil {
		return QuizView{}, err
	}

	view := QuizView{
		ID:              quiz.ID,
		ModuleID:        quiz.ModuleID,
		Title:           quiz.Title,
		Questions:       make([]QuestionView, 0, len(quiz.Questions)),
		PassingScore:    quiz.PassingScore,
		TimeLimit:       quiz.TimeLimit,
		MaxAttempts:     quiz.MaxAttempts,
		IsRandomized:    quiz.IsRandomized,
		ShowExplanation: quiz.ShowExplanation,
		ShowResults:     quiz.ShowResults,
		TotalPoints:     quiz.TotalPoints,
	}
	for _, q := range quiz.Questions {
		qv := QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
			Points:  q.Points,
		}
		if viewer.Privileged {
			idx := q.CorrectIndex
			qv.CorrectIndex = &idx
			qv.Explanation = q.Explanation
		}
		view.Questions = append(view.Questions, qv)
	}

	if quiz.IsRandomized {
		c.mu.Lock()
		c.rnd.Shuffle(len(view.Questions), func(i, j int) {
			view.Questions[i], view.Questions[j] = view.Questions[j], view.Questions[i]
		})
		c.mu.Unlock()
	}
	return view, nil
}

// CreateQuiz validates and stores a quiz, deriving TotalPoints from its questions.
func (c *QuizCatalog) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	quiz.SetQuestions(append([]domain.Question(nil), quiz.Questions...))

	if c.writer == nil {
		return domain.Quiz{}, fmt.Errorf("quiz catalog is read-only")
	}
	if err := c.writer.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	if inv, ok := c.quizzes.(Invalidator); ok {
		if err := inv.Invalidate(ctx, quiz.ID); err != nil {
			c.log.Warn("quiz cache invalidation failed", "quiz_id", quiz.ID, "error", err)
		}
	}
	c.log.Info("quiz saved", "quiz_id", quiz.ID, "questions", len(quiz.Questions), "total_points", quiz.TotalPoints)
	return quiz, nil
}
