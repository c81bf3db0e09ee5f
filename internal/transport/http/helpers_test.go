package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"progression-engine/internal/app"
	"progression-engine/internal/domain"
	"progression-engine/internal/infra/memory"
	"progression-engine/internal/logger"
)

type testServer struct {
	*httptest.Server
	engine *app.Engine
	hub    *NotificationHub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	loader := memory.NewStaticQuizLoader(sampleQuiz())
	hub := NewNotificationHub()
	engine := app.NewEngine(app.Deps{
		Quizzes:    memory.NewQuizRepository(loader, time.Minute),
		QuizWriter: loader,
		Attempts:   memory.NewAttemptStore(),
		Progress:   memory.NewProgressStore(),
		Awards:     memory.NewAwardStore(),
		Notifier:   hub,
	}, logger.NewNop())

	log := logger.NewNop()
	router := NewHandler(engine, log).Router(NewWSHandler(hub, log))
	srv := &testServer{Server: httptest.NewServer(router), engine: engine, hub: hub}
	t.Cleanup(srv.Close)

	if _, err := engine.RegisterUser(context.Background(), "u1", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := engine.Awards.CreateAwardable(context.Background(), domain.Awardable{
		Kind:         domain.KindBadge,
		ID:           "first-pass",
		Name:         "First pass",
		Criteria:     domain.QuizScore{Quiz: "quiz-1", Threshold: 100},
		RewardPoints: 10,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("create badge: %v", err)
	}
	return srv
}

// do sends a JSON request as userID with the given role and decodes the reply into out.
func (s *testServer) do(t *testing.T, method, path, userID, role string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(headerUserID, userID)
	}
	if role != "" {
		req.Header.Set(headerRole, role)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func sampleQuiz() map[string]domain.Quiz {
	quiz := domain.Quiz{
		ID:           "quiz-1",
		Title:        "Arithmetic",
		PassingScore: 50,
		TimeLimit:    1,
		MaxAttempts:  2,
		ShowResults:  true,
	}
	quiz.SetQuestions([]domain.Question{
		{
			ID:           "q1",
			Text:         "What is 2 + 2?",
			Options:      []string{"3", "4", "5"},
			CorrectIndex: 1,
			Points:       1,
			Explanation:  "Two pairs make four.",
		},
	})
	return map[string]domain.Quiz{quiz.ID: quiz}
}

func correctAnswer() submitRequest {
	return submitRequest{
		Answers:   []domain.AnswerSubmission{{QuestionID: "q1", SelectedIndex: 1}},
		TimeTaken: 20,
	}
}
