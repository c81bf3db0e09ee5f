package domain

import (
	"encoding/json"
	"fmt"
)

// CriteriaKind is the wire tag of a Criteria variant.
type CriteriaKind string

const (
	KindCourseCompletion CriteriaKind = "course_completion"
	KindQuizScore        CriteriaKind = "quiz_score"
	KindStreak           CriteriaKind = "streak"
	KindEngagement       CriteriaKind = "engagement"
	KindCustom           CriteriaKind = "custom"
)

// MetricStreakDays is the metric consulted by Streak criteria.
const MetricStreakDays = "streak_days"

// Criteria is a closed set of award rules. Only the types in this file
// implement it.
type Criteria interface {
	Kind() CriteriaKind
	validate() error
	sealed()
}

// CourseCompletion is met when the user's progress in Course reaches Threshold percent.
type CourseCompletion struct {
	Course    string  `json:"course"`
	Threshold float64 `json:"threshold"`
}

// QuizScore is met when the user's best score on Quiz reaches Threshold percent.
type QuizScore struct {
	Quiz      string  `json:"quiz"`
	Threshold float64 `json:"threshold"`
}

// Streak is met when the externally tracked day streak reaches MinStreak.
type Streak struct {
	MinStreak int `json:"minStreak"`
}

// Engagement compares a named engagement metric against Threshold.
type Engagement struct {
	Metric    string  `json:"metric"`
	Threshold float64 `json:"threshold"`
}

// Custom compares an arbitrary externally supplied metric against Threshold.
type Custom struct {
	Metric    string  `json:"metric"`
	Threshold float64 `json:"threshold"`
}

func (CourseCompletion) Kind() CriteriaKind { return KindCourseCompletion }
func (QuizScore) Kind() CriteriaKind        { return KindQuizScore }
func (Streak) Kind() CriteriaKind           { return KindStreak }
func (Engagement) Kind() CriteriaKind       { return KindEngagement }
func (Custom) Kind() CriteriaKind           { return KindCustom }

func (CourseCompletion) sealed() {}
func (QuizScore) sealed()        {}
func (Streak) sealed()           {}
func (Engagement) sealed()       {}
func (Custom) sealed()           {}

func (c CourseCompletion) validate() error {
	if c.Course == "" {
		return invalid("criteria.course", "required")
	}
	return validPercent("criteria.threshold", c.Threshold)
}

func (c QuizScore) validate() error {
	if c.Quiz == "" {
		return invalid("criteria.quiz", "required")
	}
	return validPercent("criteria.threshold", c.Threshold)
}

func (c Streak) validate() error {
	if c.MinStreak < 1 {
		return invalid("criteria.minStreak", "must be at least 1, got %d", c.MinStreak)
	}
	return nil
}

func (c Engagement) validate() error {
	if c.Metric == "" {
		return invalid("criteria.metric", "required")
	}
	return nil
}

func (c Custom) validate() error {
	if c.Metric == "" {
		return invalid("criteria.metric", "required")
	}
	return nil
}

func validPercent(field string, v float64) error {
	if v < 0 || v > 100 {
		return invalid(field, "must be within 0-100, got %v", v)
	}
	return nil
}

// MarshalCriteria encodes c as a flat JSON object tagged with "type".
func MarshalCriteria(c Criteria) ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(c.Kind())
	fields["type"] = tag
	return json.Marshal(fields)
}

// UnmarshalCriteria decodes the tagged form produced by MarshalCriteria.
func UnmarshalCriteria(data []byte) (Criteria, error) {
	var head struct {
		Type CriteriaKind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode criteria: %w", err)
	}
	var (
		c   Criteria
		err error
	)
	switch head.Type {
	case KindCourseCompletion:
		var v CourseCompletion
		err = json.Unmarshal(data, &v)
		c = v
	case KindQuizScore:
		var v QuizScore
		err = json.Unmarshal(data, &v)
		c = v
	case KindStreak:
		var v Streak
		err = json.Unmarshal(data, &v)
		c = v
	case KindEngagement:
		var v Engagement
		err = json.Unmarshal(data, &v)
		c = v
	case KindCustom:
		var v Custom
		err = json.Unmarshal(data, &v)
		c = v
	default:
		return nil, invalid("criteria.type", "unknown kind %q", head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s criteria: %w", head.Type, err)
	}
	return c, nil
}
