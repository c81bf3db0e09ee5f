package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"progression-engine/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        string      `bun:"id,pk"`
	Data      domain.Quiz `bun:"data,type:jsonb"`
	UpdatedAt time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	ID           string                `bun:"id,pk,type:uuid"`
	UserID       string                `bun:"user_id,notnull"`
	QuizID       string                `bun:"quiz_id,notnull"`
	Seq          int                   `bun:"seq,notnull"`
	Answers      []domain.GradedAnswer `bun:"answers,type:jsonb"`
	Score        float64               `bun:"score,notnull"`
	EarnedPoints int                   `bun:"earned_points,notnull"`
	TotalPoints  int                   `bun:"total_points,notnull"`
	Passed       bool                  `bun:"passed,notnull"`
	TimeTaken    int                   `bun:"time_taken,notnull"`
	CreatedAt    time.Time             `bun:"created_at,notnull"`
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:           r.ID,
		UserID:       r.UserID,
		QuizID:       r.QuizID,
		Sequence:     r.Seq,
		Answers:      r.Answers,
		Score:        r.Score,
		EarnedPoints: r.EarnedPoints,
		TotalPoints:  r.TotalPoints,
		Passed:       r.Passed,
		TimeTaken:    r.TimeTaken,
		CreatedAt:    r.CreatedAt,
	}
}

type userRow struct {
	bun.BaseModel `bun:"table:user_progress"`

	UserID         string                `bun:"user_id,pk"`
	Seq            int64                 `bun:"seq,autoincrement"`
	DisplayName    string                `bun:"display_name,notnull"`
	Points         int                   `bun:"points,notnull"`
	Badges         domain.OwnedSet       `bun:"badges,type:jsonb"`
	Achievements   domain.OwnedSet       `bun:"achievements,type:jsonb"`
	CourseProgress domain.CourseProgress `bun:"course_progress,type:jsonb"`
	CreatedAt      time.Time             `bun:"created_at,notnull"`
	UpdatedAt      time.Time             `bun:"updated_at,notnull"`
}

func (r userRow) toDomain() domain.UserProgress {
	u := domain.UserProgress{
		UserID:         r.UserID,
		DisplayName:    r.DisplayName,
		Points:         r.Points,
		Badges:         r.Badges,
		Achievements:   r.Achievements,
		CourseProgress: r.CourseProgress,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if u.CourseProgress == nil {
		u.CourseProgress = domain.CourseProgress{}
	}
	return u
}

type ledgerRow struct {
	bun.BaseModel `bun:"table:point_ledger"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	Amount    int       `bun:"amount,notnull"`
	Source    string    `bun:"source,notnull"`
	RefID     string    `bun:"ref_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type awardRow struct {
	bun.BaseModel `bun:"table:awardables"`

	Kind   string           `bun:"kind,pk"`
	ID     string           `bun:"id,pk"`
	Seq    int64            `bun:"seq,autoincrement"`
	Active bool             `bun:"active,notnull"`
	Data   domain.Awardable `bun:"data,type:jsonb"`
}
