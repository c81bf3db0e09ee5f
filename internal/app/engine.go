package app

import (
	"context"
	"fmt"

	"progression-engine/internal/domain"
	"progression-engine/internal/logger"
)

// AnswerFeedback is one graded answer as shown to the learner after submission.
type AnswerFeedback struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectIndex  *int   `json:"correctIndex,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// SubmitResult is the response to a quiz submission.
type SubmitResult struct {
	AttemptID       string           `json:"attemptId"`
	Attempt         int              `json:"attempt"`
	Passed          bool             `json:"passed"`
	Score           float64          `json:"score"`
	TotalPoints     int              `json:"totalPoints"`
	EarnedPoints    int              `json:"earnedPoints"`
	Answers         []AnswerFeedback `json:"answers,omitempty"`
	NewBadges       []domain.Grant   `json:"newBadges"`
	NewAchievements []domain.Grant   `json:"newAchievements"`
}

// Engine is the entry point for the assessment and progression use cases.
type Engine struct {
	Catalog     *QuizCatalog
	Attempts    *AttemptTracker
	Awards      *AwardCoordinator
	Leaderboard *LeaderboardService

	progress ProgressRepository
	log      *logger.Logger
}

// Deps groups the adapters an Engine needs. Metrics and Notifier are optional.
type Deps struct {
	Quizzes          QuizRepository
	QuizWriter       QuizWriter
	Attempts         AttemptRepository
	Progress         ProgressRepository
	Awards           AwardRepository
	Metrics          MetricSource
	Notifier         Notifier
	LeaderboardLimit int
}

func NewEngine(deps Deps, log *logger.Logger) *Engine {
	return &Engine{
		Catalog:     NewQuizCatalog(deps.Quizzes, deps.QuizWriter, log),
		Attempts:    NewAttemptTracker(deps.Attempts, log),
		Awards:      NewAwardCoordinator(deps.Awards, deps.Progress, deps.Attempts, deps.Metrics, deps.Notifier, log),
		Leaderboard: NewLeaderboardService(deps.Progress, deps.LeaderboardLimit),
		progress:    deps.Progress,
		log:         log.With("component", "Engine"),
	}
}

// SubmitQuiz grades a submission, credits earned points on a pass and
// re-evaluates awards.
func (e *Engine) SubmitQuiz(ctx context.Context, quizID, userID string, answers []domain.AnswerSubmission, timeTaken int) (SubmitResult, error) {
	quiz, err := e.Catalog.Quiz(ctx, quizID)
	if err != nil {
		return SubmitResult{}, err
	}
	if _, err := e.progress.Get(ctx, userID); err != nil {
		return SubmitResult{}, err
	}

	attempt, graded, err := e.Attempts.Submit(ctx, quiz, userID, answers, timeTaken)
	if err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{
		AttemptID:       attempt.ID,
		Attempt:         attempt.Sequence,
		Passed:          graded.Passed,
		Score:           graded.Score,
		TotalPoints:     graded.TotalPoints,
		EarnedPoints:    graded.EarnedPoints,
		NewBadges:       []domain.Grant{},
		NewAchievements: []domain.Grant{},
	}
	if quiz.ShowResults {
		result.Answers = feedback(quiz, graded)
	}

	if !graded.Passed {
		return result, nil
	}

	_, err = e.progress.Update(ctx, userID, func(p *domain.UserProgress) error {
		p.Credit(graded.EarnedPoints, domain.CreditQuiz, attempt.ID, attempt.CreatedAt)
		return nil
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("credit quiz points: %w", err)
	}

	awards, err := e.Awards.EvaluateAwards(ctx, userID)
	if err != nil {
		// The attempt and credit are committed; awards are picked up by the next check.
		e.log.Error("award evaluation failed", "user_id", userID, "quiz_id", quizID, "error", err)
		return result, nil
	}
	if awards.Badges != nil {
		result.NewBadges = awards.Badges
	}
	if awards.Achievements != nil {
		result.NewAchievements = awards.Achievements
	}
	return result, nil
}

func feedback(quiz domain.Quiz, graded GradeResult) []AnswerFeedback {
	out := make([]AnswerFeedback, 0, len(graded.Answers))
	for _, a := range graded.Answers {
		fb := AnswerFeedback{
			QuestionID:    a.QuestionID,
			SelectedIndex: a.SelectedIndex,
			IsCorrect:     a.IsCorrect,
		}
		if quiz.ShowExplanation {
			if q, ok := quiz.Question(a.QuestionID); ok {
				idx := q.CorrectIndex
				fb.CorrectIndex = &idx
				fb.Explanation = q.Explanation
			}
		}
		out = append(out, fb)
	}
	return out
}

// RegisterUser makes sure a progress record exists for the user.
func (e *Engine) RegisterUser(ctx context.Context, userID, displayName string) (domain.UserProgress, error) {
	if userID == "" {
		return domain.UserProgress{}, &domain.ValidationError{Field: "userId", Reason: "required"}
	}
	return e.progress.Upsert(ctx, userID, displayName)
}

// Progress returns the stored progress record for a user.
func (e *Engine) Progress(ctx context.Context, userID string) (domain.UserProgress, error) {
	return e.progress.Get(ctx, userID)
}

// RecordCourseProgress stores course completion reported by the enrollment
// system. Award checks are left to the caller.
func (e *Engine) RecordCourseProgress(ctx context.Context, userID, courseID string, percent float64) (domain.UserProgress, error) {
	if courseID == "" {
		return domain.UserProgress{}, &domain.ValidationError{Field: "courseId", Reason: "required"}
	}
	return e.progress.Update(ctx, userID, func(p *domain.UserProgress) error {
		p.SetCourseProgress(courseID, percent)
		return nil
	})
}
