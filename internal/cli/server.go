package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stfc-quiz-service/internal/app"
	"stfc-quiz-service/internal/config"
	"stfc-quiz-service/internal/domain"
	"stfc-quiz-service/internal/infra/memory"
	pgloader "stfc-quiz-service/internal/infra/postgres"
	infraredis "stfc-quiz-service/internal/infra/redis"
	"stfc-quiz-service/internal/infra/wordpress"
	"stfc-quiz-service/internal/logger"
	transport "stfc-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := logger.Get()
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	loader, posts, cleanup, err := buildSources(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL, log)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.AttemptRepository
	if redisClient != nil {
		store = infraredis.NewAttemptStore(redisClient, redisTTL, log)
	} else {
		store = memory.NewAttemptStore()
	}
	service := app.NewQuizService(store, quizRepo, domain.NewGradeScale(cfg.Quiz.Grades), log)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sweepIdleAttempts(sweepCtx, service, config.TTLDuration(cfg.Attempts.IdleTTL, time.Hour), log)

	api := transport.NewAPI(service, posts, log)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(api, transport.NewWSHandler(service, log)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildSources picks where quizzes and posts come from: the content backend
// when configured, then Postgres, then the bundled sample quizzes.
func buildSources(ctx context.Context, cfg config.Config, log *zap.Logger) (memory.QuizLoader, transport.PostSource, func(), error) {
	if cfg.Content.BaseURL != "" {
		client := wordpress.NewClient(cfg.Content.BaseURL, config.TTLDuration(cfg.Content.Timeout, 10*time.Second), log)
		log.Info("loading quizzes from content backend", zap.String("base_url", cfg.Content.BaseURL))
		return client, client, func() {}, nil
	}

	posts := unconfiguredPosts{}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info("loading quizzes from postgres")
		return pgloader.NewQuizLoader(pool), posts, pool.Close, nil
	}

	log.Warn("no content source configured, serving sample quizzes")
	return memory.NewStaticQuizLoader(sampleQuizzes()), posts, func() {}, nil
}

type unconfiguredPosts struct{}

func (unconfiguredPosts) LoadPost(_ context.Context, postID string) (domain.Post, error) {
	return domain.Post{}, fmt.Errorf("%w: no content backend configured for post %s", domain.ErrPostUnavailable, postID)
}

func sweepIdleAttempts(ctx context.Context, service *app.QuizService, idle time.Duration, log *zap.Logger) {
	interval := idle / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := service.Sweep(idle); n > 0 {
				log.Info("idle attempts removed", zap.Int("count", n))
			}
		}
	}
}
