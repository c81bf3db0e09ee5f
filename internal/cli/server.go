package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"progression-engine/internal/app"
	"progression-engine/internal/config"
	"progression-engine/internal/domain"
	"progression-engine/internal/infra/memory"
	"progression-engine/internal/infra/postgres"
	infraredis "progression-engine/internal/infra/redis"
	"progression-engine/internal/logger"
	transport "progression-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progression engine HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	hub := transport.NewNotificationHub()
	deps, closeDeps, err := buildDeps(ctx, cfg, hub, log)
	if err != nil {
		return err
	}
	defer closeDeps()

	engine := app.NewEngine(deps, log)
	handler := transport.NewHandler(engine, log)
	wsHandler := transport.NewWSHandler(hub, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting progression engine", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// buildDeps picks Postgres/Redis adapters when configured and in-memory ones otherwise.
func buildDeps(ctx context.Context, cfg config.Config, hub *transport.NotificationHub, log *logger.Logger) (app.Deps, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	deps := app.Deps{LeaderboardLimit: cfg.Leaderboard.Limit}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	var loader memory.QuizLoader
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			closeAll()
			return app.Deps{}, nil, err
		}
		db := postgres.Open(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			closeAll()
			return app.Deps{}, nil, err
		}
		closers = append(closers, pool.Close)

		loader = postgres.NewQuizLoader(pool)
		deps.QuizWriter = postgres.NewQuizStore(db)
		deps.Attempts = postgres.NewAttemptStore(db)
		deps.Progress = postgres.NewProgressStore(db)
		deps.Awards = postgres.NewAwardStore(db)
	} else {
		static := memory.NewStaticQuizLoader(sampleQuizzes())
		loader = static
		deps.QuizWriter = static
		deps.Attempts = memory.NewAttemptStore()
		deps.Progress = memory.NewProgressStore()
		deps.Awards = memory.NewAwardStore()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		deps.Quizzes = infraredis.NewQuizRepository(redisClient, loader, config.TTLDuration(cfg.Redis.TTL, quizTTL))
		deps.Metrics = infraredis.NewMetricSource(redisClient, cfg.MetricsPrefix())

		// Publish through Redis so whichever instance holds the socket delivers it.
		deps.Notifier = infraredis.NewNotifier(redisClient, cfg.NotificationChannel())
		if err := infraredis.Forward(ctx, redisClient, cfg.NotificationChannel(), hub, log); err != nil {
			closeAll()
			return app.Deps{}, nil, err
		}
	} else {
		deps.Quizzes = memory.NewQuizRepository(loader, quizTTL)
		deps.Notifier = hub
	}
	return deps, closeAll, nil
}

// sampleQuizzes provides a minimal quiz for in-memory runs; Postgres-backed deployments author quizzes through the API.
func sampleQuizzes() map[string]domain.Quiz {
	quiz := domain.Quiz{
		ID:              "quiz-1",
		ModuleID:        "module-1",
		Title:           "Arithmetic warm-up",
		PassingScore:    60,
		TimeLimit:       10,
		MaxAttempts:     3,
		ShowResults:     true,
		ShowExplanation: true,
	}
	quiz.SetQuestions([]domain.Question{
		{
			ID:           "q1",
			Text:         "What is 2 + 2?",
			Options:      []string{"3", "4", "5"},
			CorrectIndex: 1,
			Points:       1,
			Explanation:  "Two pairs make four.",
		},
	})
	return map[string]domain.Quiz{quiz.ID: quiz}
}
