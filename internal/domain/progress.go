package domain

import "time"

// OwnedSet is an insertion-ordered set of ids.
type OwnedSet []string

// Has reports whether id is in the set.
func (s OwnedSet) Has(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add inserts id and reports whether it was absent.
func (s *OwnedSet) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// CourseProgress maps course id to completion percent. Absent courses read as 0.
type CourseProgress map[string]float64

// Percent returns the recorded completion for courseID, or 0.
func (p CourseProgress) Percent(courseID string) float64 {
	if p == nil {
		return 0
	}
	return p[courseID]
}

// Enrolled reports whether any progress has been recorded for courseID.
func (p CourseProgress) Enrolled(courseID string) bool {
	_, ok := p[courseID]
	return ok
}

// UserProgress is the slice of user state the engine reads and writes.
type UserProgress struct {
	UserID         string         `json:"userId"`
	DisplayName    string         `json:"displayName"`
	Points         int            `json:"points"`
	Badges         OwnedSet       `json:"badges"`
	Achievements   OwnedSet       `json:"achievements"`
	CourseProgress CourseProgress `json:"courseProgress"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`

	// Credits holds ledger entries produced during the current update.
	// Stores persist and clear it on commit.
	Credits []LedgerEntry `json:"-"`
}

// Owns reports whether the user already holds the given badge or achievement.
func (u UserProgress) Owns(kind AwardableKind, id string) bool {
	if kind == KindAchievement {
		return u.Achievements.Has(id)
	}
	return u.Badges.Has(id)
}

// Grant adds ownership and reports whether it was new.
func (u *UserProgress) Grant(kind AwardableKind, id string) bool {
	if kind == KindAchievement {
		return u.Achievements.Add(id)
	}
	return u.Badges.Add(id)
}

// Credit increments the points total and queues a ledger entry. Non-positive
// amounts are ignored; points never decrease.
func (u *UserProgress) Credit(amount int, source CreditSource, refID string, at time.Time) {
	if amount <= 0 {
		return
	}
	u.Points += amount
	u.Credits = append(u.Credits, LedgerEntry{
		UserID:    u.UserID,
		Amount:    amount,
		Source:    source,
		RefID:     refID,
		CreatedAt: at,
	})
}

// SetCourseProgress records completion for a course, clamped to 0-100.
func (u *UserProgress) SetCourseProgress(courseID string, percent float64) {
	if u.CourseProgress == nil {
		u.CourseProgress = CourseProgress{}
	}
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	u.CourseProgress[courseID] = percent
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (u UserProgress) Clone() UserProgress {
	out := u
	out.Badges = append(OwnedSet(nil), u.Badges...)
	out.Achievements = append(OwnedSet(nil), u.Achievements...)
	if u.CourseProgress != nil {
		out.CourseProgress = make(CourseProgress, len(u.CourseProgress))
		for k, v := range u.CourseProgress {
			out.CourseProgress[k] = v
		}
	}
	out.Credits = append([]LedgerEntry(nil), u.Credits...)
	return out
}

// UserState is the read-only snapshot the criteria evaluator works on.
type UserState struct {
	Progress   UserProgress
	QuizScores map[string]float64
	Metrics    map[string]float64
}

// BestScore returns the best recorded score for quizID, or 0.
func (s UserState) BestScore(quizID string) float64 {
	return s.QuizScores[quizID]
}

// Metric returns a tracked metric value and whether it is tracked at all.
func (s UserState) Metric(name string) (float64, bool) {
	v, ok := s.Metrics[name]
	return v, ok
}
