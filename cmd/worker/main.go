package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"jobboard/internal/company"
	"jobboard/internal/config"
	"jobboard/internal/database"
	"jobboard/internal/feed"
	"jobboard/internal/jobs"
	"jobboard/internal/metrics"
	"jobboard/internal/notify"
	"jobboard/internal/role"
	"jobboard/internal/tasks"
	"jobboard/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password}, asynq.Config{
		Concurrency: concurrency,
	})

	principals := database.NewPrincipalRepository(db)
	jobManager := jobs.NewManager(database.NewJobRepository(db, feed.NewRedisBus(redisClient, logger), logger), logger)
	verifyHandler := worker.NewVerifyTaskHandler(
		principals,
		role.NewResolver(principals, logger),
		company.NewVerifier(jobManager, jobManager, logger, cfg.Verification.Concurrency),
		notify.NewPublisher(redisClient),
		logger,
	)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeCompanyVerify, verifyHandler)

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
