package app

import (
	"context"
	"sort"
	"time"

	"progression-engine/internal/domain"
)

// LeaderboardService projects rankings from the points ledger. It never writes.
type LeaderboardService struct {
	progress     ProgressRepository
	defaultLimit int
	now          func() time.Time
}

func NewLeaderboardService(progress ProgressRepository, defaultLimit int) *LeaderboardService {
	return &LeaderboardService{progress: progress, defaultLimit: defaultLimit, now: time.Now}
}

// Get ranks users for scope. Ties keep the store's insertion order. A
// non-positive limit falls back to the configured default; zero default
// means unlimited.
func (s *LeaderboardService) Get(ctx context.Context, scope domain.LeaderboardScope, courseID string, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	now := s.now().UTC()

	users, err := s.progress.List(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	var entries []domain.LeaderboardEntry
	switch scope {
	case domain.ScopeGlobal, "":
		scope = domain.ScopeGlobal
		entries = make([]domain.LeaderboardEntry, 0, len(users))
		for _, u := range users {
			entries = append(entries, entryOf(u, u.Points))
		}
	case domain.ScopeCourse:
		if courseID == "" {
			return domain.Leaderboard{}, &domain.ValidationError{Field: "courseId", Reason: "required for course scope"}
		}
		for _, u := range users {
			if u.CourseProgress.Enrolled(courseID) {
				entries = append(entries, entryOf(u, u.Points))
			}
		}
	case domain.ScopeMonthly:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		credits, err := s.progress.CreditsSince(ctx, monthStart)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		earned := make(map[string]int, len(credits))
		for _, c := range credits {
			earned[c.UserID] += c.Amount
		}
		for _, u := range users {
			if pts, ok := earned[u.UserID]; ok {
				entries = append(entries, entryOf(u, pts))
			}
		}
	default:
		return domain.Leaderboard{}, &domain.ValidationError{Field: "scope", Reason: "unknown scope " + string(scope)}
	}

	rank(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	lb := domain.Leaderboard{
		Scope:     scope,
		Entries:   entries,
		UpdatedAt: now,
	}
	if scope == domain.ScopeCourse {
		lb.CourseID = courseID
	}
	return lb, nil
}

func entryOf(u domain.UserProgress, points int) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{UserID: u.UserID, DisplayName: u.DisplayName, Points: points}
}

// rank sorts by points descending and assigns 1-based positions.
func rank(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
