package app

import "progression-engine/internal/domain"

// GradeResult is the outcome of grading one answer set.
type GradeResult struct {
	Score        float64               `json:"score"`
	Passed       bool                  `json:"passed"`
	Answers      []domain.GradedAnswer `json:"answers"`
	EarnedPoints int                   `json:"earnedPoints"`
	TotalPoints  int                   `json:"totalPoints"`
}

// Grade scores answers against quiz. Answers for unknown questions are
// skipped, and only the first answer per question counts. Grading is pure.
func Grade(quiz domain.Quiz, answers []domain.AnswerSubmission) GradeResult {
	total := 0
	for _, q := range quiz.Questions {
		total += pointsOf(q)
	}

	result := GradeResult{
		Answers:     make([]domain.GradedAnswer, 0, len(answers)),
		TotalPoints: total,
	}
	seen := make(map[string]struct{}, len(answers))
	for _, answer := range answers {
		question, ok := quiz.Question(answer.QuestionID)
		if !ok {
			continue
		}
		if _, dup := seen[question.ID]; dup {
			continue
		}
		seen[question.ID] = struct{}{}

		graded := domain.GradedAnswer{
			QuestionID:    question.ID,
			SelectedIndex: answer.SelectedIndex,
			IsCorrect:     answer.SelectedIndex == question.CorrectIndex,
		}
		if graded.IsCorrect {
			graded.Points = pointsOf(question)
			result.EarnedPoints += graded.Points
		}
		result.Answers = append(result.Answers, graded)
	}

	if total > 0 {
		result.Score = float64(result.EarnedPoints) / float64(total) * 100
	}
	result.Passed = result.Score >= quiz.PassingScore
	return result
}

func pointsOf(q domain.Question) int {
	if q.Points == 0 {
		return 1
	}
	return q.Points
}
