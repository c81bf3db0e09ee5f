package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"progression-engine/internal/app"
	"progression-engine/internal/domain"
	"progression-engine/internal/infra/postgres"
	infraredis "progression-engine/internal/infra/redis"
	"progression-engine/internal/logger"
)

type stack struct {
	engine *app.Engine
	redis  *goredis.Client
}

func TestSubmitQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)
	s := newStack(t, ctx)

	for _, id := range []string{"u1", "u2"} {
		if _, err := s.engine.RegisterUser(ctx, id, strings.ToUpper(id)); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	if _, err := s.engine.Catalog.CreateQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	awards := []domain.Awardable{
		{
			Kind:         domain.KindBadge,
			ID:           "steady",
			Name:         "Steady",
			Criteria:     domain.Streak{MinStreak: 3},
			RewardPoints: 5,
			Active:       true,
		},
		{
			Kind:          domain.KindAchievement,
			ID:            "ace",
			Name:          "Ace",
			Criteria:      domain.QuizScore{Quiz: "quiz-1", Threshold: 100},
			RewardPoints:  20,
			Active:        true,
			BundledBadges: []string{"steady"},
		},
	}
	for _, a := range awards {
		if _, err := s.engine.Awards.CreateAwardable(ctx, a); err != nil {
			t.Fatalf("create %s: %v", a.ID, err)
		}
	}
	if err := s.redis.HSet(ctx, "metrics:u1", domain.MetricStreakDays, "1").Err(); err != nil {
		t.Fatalf("seed metrics: %v", err)
	}

	res, err := s.engine.SubmitQuiz(ctx, "quiz-1", "u2", []domain.AnswerSubmission{{QuestionID: "q1", SelectedIndex: 1}}, 30)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Passed || res.EarnedPoints != 1 || res.Attempt != 1 {
		t.Fatalf("expected a first passing attempt worth 1 point, got %+v", res)
	}
	if len(res.NewAchievements) != 1 || len(res.NewBadges) != 1 || res.NewBadges[0].BundledBy != "ace" {
		t.Fatalf("expected ace with bundled steady badge, got %+v / %+v", res.NewAchievements, res.NewBadges)
	}

	user, err := s.engine.Progress(ctx, "u2")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if user.Points != 21 || !user.Owns(domain.KindBadge, "steady") {
		t.Fatalf("expected 21 points and the bundled badge, got %+v", user)
	}

	lb, err := s.engine.Leaderboard.Get(ctx, domain.ScopeGlobal, "", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].UserID != "u2" {
		t.Fatalf("expected u2 leading, got %+v", lb.Entries)
	}

	monthly, err := s.engine.Leaderboard.Get(ctx, domain.ScopeMonthly, "", 10)
	if err != nil {
		t.Fatalf("monthly leaderboard: %v", err)
	}
	if len(monthly.Entries) != 1 || monthly.Entries[0].Points != 21 {
		t.Fatalf("expected only u2 with 21 monthly points, got %+v", monthly.Entries)
	}

	// u1's tracked streak is too short for the badge.
	check, err := s.engine.Awards.CheckBadges(ctx, "u1")
	if err != nil {
		t.Fatalf("check badges: %v", err)
	}
	if !check.Empty() {
		t.Fatalf("expected no badges for u1, got %+v", check)
	}
	if err := s.redis.HSet(ctx, "metrics:u1", domain.MetricStreakDays, "4").Err(); err != nil {
		t.Fatalf("update metrics: %v", err)
	}
	check, err = s.engine.Awards.CheckBadges(ctx, "u1")
	if err != nil {
		t.Fatalf("check badges again: %v", err)
	}
	if len(check.Badges) != 1 || check.Badges[0].ID != "steady" {
		t.Fatalf("expected steady badge for u1, got %+v", check)
	}
}

func TestConcurrentSubmissionsRespectLimit(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)
	s := newStack(t, ctx)

	if _, err := s.engine.RegisterUser(ctx, "u1", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	quiz := sampleQuiz()
	if _, err := s.engine.Catalog.CreateQuiz(ctx, quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.engine.SubmitQuiz(ctx, quiz.ID, "u1", []domain.AnswerSubmission{{QuestionID: "q1", SelectedIndex: 1}}, 5)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, domain.ErrLimitExceeded):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != quiz.MaxAttempts {
		t.Fatalf("expected %d accepted submissions, got %d", quiz.MaxAttempts, accepted)
	}
	history, err := s.engine.Attempts.History(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for i, a := range history {
		if a.Sequence != i+1 {
			t.Fatalf("expected contiguous sequence, got %d at %d", a.Sequence, i)
		}
	}
	user, err := s.engine.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if user.Points != quiz.MaxAttempts {
		t.Fatalf("expected %d points, got %d", quiz.MaxAttempts, user.Points)
	}
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	db := postgres.Open(pgURL)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	engine := app.NewEngine(app.Deps{
		Quizzes:          infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute),
		QuizWriter:       postgres.NewQuizStore(db),
		Attempts:         postgres.NewAttemptStore(db),
		Progress:         postgres.NewProgressStore(db),
		Awards:           postgres.NewAwardStore(db),
		Metrics:          infraredis.NewMetricSource(redisClient, "metrics:"),
		Notifier:         infraredis.NewNotifier(redisClient, "progression:notifications"),
		LeaderboardLimit: 50,
	}, logger.NewNop())
	return &stack{engine: engine, redis: redisClient}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "progress", "POSTGRES_PASSWORD": "progresspass", "POSTGRES_DB": "progressdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://progress:progresspass@%s:%s/progressdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:           "quiz-1",
		Title:        "Arithmetic",
		PassingScore: 100,
		TimeLimit:    2,
		MaxAttempts:  3,
		Questions: []domain.Question{
			{
				ID:           "q1",
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				Points:       1,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
