package app

import "progression-engine/internal/domain"

// CriteriaEvaluator decides whether a user state satisfies a criterion.
// It never fails: unknown criteria and untracked metrics evaluate to false.
type CriteriaEvaluator struct{}

// Satisfies dispatches on the criteria variant.
func (CriteriaEvaluator) Satisfies(criterion domain.Criteria, state domain.UserState) bool {
	switch c := criterion.(type) {
	case domain.CourseCompletion:
		return state.Progress.CourseProgress.Percent(c.Course) >= c.Threshold
	case domain.QuizScore:
		return state.BestScore(c.Quiz) >= c.Threshold
	case domain.Streak:
		return metricAtLeast(state, domain.MetricStreakDays, float64(c.MinStreak))
	case domain.Engagement:
		return metricAtLeast(state, c.Metric, c.Threshold)
	case domain.Custom:
		return metricAtLeast(state, c.Metric, c.Threshold)
	default:
		return false
	}
}

// metricAtLeast is false when the surrounding system does not track the metric.
func metricAtLeast(state domain.UserState, name string, threshold float64) bool {
	v, ok := state.Metric(name)
	if !ok {
		return false
	}
	return v >= threshold
}
