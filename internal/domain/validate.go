package domain

import "fmt"

// ValidateQuiz checks a quiz definition before it can be stored.
func ValidateQuiz(q Quiz) error {
	if q.ID == "" {
		return invalid("id", "required")
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return invalid("passingScore", "must be within 0-100, got %v", q.PassingScore)
	}
	if q.TimeLimit <= 0 {
		return invalid("timeLimit", "must be positive, got %d", q.TimeLimit)
	}
	if q.MaxAttempts < 1 {
		return invalid("maxAttempts", "must be at least 1, got %d", q.MaxAttempts)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if question.ID == "" {
			return invalid(field+".id", "required")
		}
		if _, dup := seen[question.ID]; dup {
			return invalid(field+".id", "duplicate id %q", question.ID)
		}
		seen[question.ID] = struct{}{}
		if len(question.Options) < 2 {
			return invalid(field+".options", "need at least 2 options, got %d", len(question.Options))
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return invalid(field+".correctIndex", "out of range: %d", question.CorrectIndex)
		}
		if question.Points < 0 {
			return invalid(field+".points", "must not be negative")
		}
	}
	return nil
}

// ValidateAwardable checks a badge or achievement definition.
func ValidateAwardable(a Awardable) error {
	if a.Kind != KindBadge && a.Kind != KindAchievement {
		return invalid("kind", "unknown kind %q", a.Kind)
	}
	if a.ID == "" {
		return invalid("id", "required")
	}
	if a.Name == "" {
		return invalid("name", "required")
	}
	if a.RewardPoints < 0 {
		return invalid("rewardPoints", "must not be negative")
	}
	if a.Criteria == nil {
		return invalid("criteria", "required")
	}
	if err := a.Criteria.validate(); err != nil {
		return err
	}
	if a.Kind == KindBadge && len(a.BundledBadges) > 0 {
		return invalid("bundledBadges", "only achievements may bundle badges")
	}
	return nil
}
