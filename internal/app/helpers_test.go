package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"progression-engine/internal/app"
	"progression-engine/internal/domain"
	"progression-engine/internal/infra/memory"
	"progression-engine/internal/logger"
)

type testEnv struct {
	engine   *app.Engine
	quizzes  *memory.StaticQuizLoader
	attempts *memory.AttemptStore
	progress *memory.ProgressStore
	awards   *memory.AwardStore
	metrics  *memory.MetricSource
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, quizzes ...domain.Quiz) *testEnv {
	t.Helper()
	byID := make(map[string]domain.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}
	env := &testEnv{
		quizzes:  memory.NewStaticQuizLoader(byID),
		attempts: memory.NewAttemptStore(),
		progress: memory.NewProgressStore(),
		awards:   memory.NewAwardStore(),
		metrics:  memory.NewMetricSource(),
		notifier: &recordingNotifier{},
	}
	env.engine = app.NewEngine(app.Deps{
		Quizzes:    memory.NewQuizRepository(env.quizzes, time.Minute),
		QuizWriter: env.quizzes,
		Attempts:   env.attempts,
		Progress:   env.progress,
		Awards:     env.awards,
		Metrics:    env.metrics,
		Notifier:   env.notifier,
	}, logger.NewNop())
	return env
}

func (e *testEnv) register(t *testing.T, userIDs ...string) {
	t.Helper()
	for _, id := range userIDs {
		if _, err := e.engine.RegisterUser(context.Background(), id, "user "+id); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
}

func (e *testEnv) award(t *testing.T, a domain.Awardable) {
	t.Helper()
	a.Active = true
	if _, err := e.engine.Awards.CreateAwardable(context.Background(), a); err != nil {
		t.Fatalf("create %s %s: %v", a.Kind, a.ID, err)
	}
}

// arithmeticQuiz has question points {1, 1, 2, 1} and passes at 60.
func arithmeticQuiz() domain.Quiz {
	quiz := domain.Quiz{
		ID:           "quiz-1",
		ModuleID:     "module-1",
		Title:        "Arithmetic",
		PassingScore: 60,
		TimeLimit:    10,
		MaxAttempts:  3,
	}
	quiz.SetQuestions([]domain.Question{
		{ID: "q1", Text: "1+1", Options: []string{"1", "2"}, CorrectIndex: 1, Points: 1, Explanation: "one and one"},
		{ID: "q2", Text: "2+2", Options: []string{"4", "5"}, CorrectIndex: 0, Points: 1},
		{ID: "q3", Text: "3*3", Options: []string{"6", "9", "12"}, CorrectIndex: 1, Points: 2},
		{ID: "q4", Text: "5-3", Options: []string{"2", "3"}, CorrectIndex: 0, Points: 1},
	})
	return quiz
}

// passingAnswers gets q1..q3 right and q4 wrong: 4 of 5 points.
func passingAnswers() []domain.AnswerSubmission {
	return []domain.AnswerSubmission{
		{QuestionID: "q1", SelectedIndex: 1},
		{QuestionID: "q2", SelectedIndex: 0},
		{QuestionID: "q3", SelectedIndex: 1},
		{QuestionID: "q4", SelectedIndex: 1},
	}
}

func failingAnswers() []domain.AnswerSubmission {
	return []domain.AnswerSubmission{
		{QuestionID: "q1", SelectedIndex: 0},
		{QuestionID: "q3", SelectedIndex: 0},
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) notifications() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.sent...)
}
