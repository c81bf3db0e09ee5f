package domain

import "time"

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Points       int      `json:"points"` // defaults to 1 if zero
	Explanation  string   `json:"explanation,omitempty"`
}

// Quiz is a collection of questions plus its attempt policy.
type Quiz struct {
	ID              string     `json:"id"`
	ModuleID        string     `json:"moduleId"`
	Title           string     `json:"title"`
	Questions       []Question `json:"questions"`
	PassingScore    float64    `json:"passingScore"`
	TimeLimit       int        `json:"timeLimit"` // minutes
	MaxAttempts     int        `json:"maxAttempts"`
	IsRandomized    bool       `json:"isRandomized"`
	ShowExplanation bool       `json:"showExplanation"`
	ShowResults     bool       `json:"showResults"`
	TotalPoints     int        `json:"totalPoints"`
}

// SetQuestions replaces the question set and keeps TotalPoints in sync.
func (q *Quiz) SetQuestions(questions []Question) {
	q.Questions = questions
	q.RecomputeTotal()
}

// RecomputeTotal applies the default point weight and re-derives TotalPoints.
func (q *Quiz) RecomputeTotal() {
	total := 0
	for i := range q.Questions {
		if q.Questions[i].Points == 0 {
			q.Questions[i].Points = 1
		}
		total += q.Questions[i].Points
	}
	q.TotalPoints = total
}

// TimeLimitSeconds is the longest accepted submission duration.
func (q Quiz) TimeLimitSeconds() int {
	return q.TimeLimit * 60
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// AnswerSubmission is a single answer sent by a client.
type AnswerSubmission struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
}

// GradedAnswer is an answer after grading; stored on the attempt.
type GradedAnswer struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
	IsCorrect     bool   `json:"isCorrect"`
	Points        int    `json:"points"`
}

// Attempt is one graded submission. Attempts are never updated.
type Attempt struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	QuizID       string         `json:"quizId"`
	Sequence     int            `json:"sequence"`
	Answers      []GradedAnswer `json:"answers"`
	Score        float64        `json:"score"`
	EarnedPoints int            `json:"earnedPoints"`
	TotalPoints  int            `json:"totalPoints"`
	Passed       bool           `json:"passed"`
	TimeTaken    int            `json:"timeTaken"` // seconds
	CreatedAt    time.Time      `json:"createdAt"`
}

// CreditSource names what produced a points credit.
type CreditSource string

const (
	CreditQuiz        CreditSource = "quiz"
	CreditBadge       CreditSource = "badge"
	CreditAchievement CreditSource = "achievement"
)

// LedgerEntry records a single increment of a user's points total.
type LedgerEntry struct {
	UserID    string       `json:"userId"`
	Amount    int          `json:"amount"`
	Source    CreditSource `json:"source"`
	RefID     string       `json:"refId"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Notification is emitted once per badge or achievement granted.
type Notification struct {
	UserID    string        `json:"userId"`
	Kind      AwardableKind `json:"kind"`
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	AwardedAt time.Time     `json:"awardedAt"`
}

// LeaderboardScope selects which projection a leaderboard read uses.
type LeaderboardScope string

const (
	ScopeGlobal  LeaderboardScope = "global"
	ScopeMonthly LeaderboardScope = "monthly"
	ScopeCourse  LeaderboardScope = "course"
)

// LeaderboardEntry is a ranked view of a user.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Points      int    `json:"points"`
}

// Leaderboard captures an ordered ranking for one scope.
type Leaderboard struct {
	Scope     LeaderboardScope   `json:"scope"`
	CourseID  string             `json:"courseId,omitempty"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
