package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"jobboard/internal/api"
	"jobboard/internal/applications"
	"jobboard/internal/auth"
	"jobboard/internal/company"
	"jobboard/internal/config"
	"jobboard/internal/database"
	"jobboard/internal/feed"
	"jobboard/internal/jobs"
	"jobboard/internal/notify"
	"jobboard/internal/role"
	"jobboard/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapped",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("db_sslmode", cfg.Database.SSLMode),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database migrated")

	principals := database.NewPrincipalRepository(db)
	if err := bootstrapAdministrator(context.Background(), principals, cfg.Admin, logger); err != nil {
		log.Fatalf("bootstrap administrator: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	authService, err := auth.NewAuthServiceFromFiles(
		cfg.Auth.PrivateKeyPath,
		cfg.Auth.PublicKeyPath,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer asynqClient.Close()

	bus := feed.NewRedisBus(redisClient, logger)
	resolver := role.NewResolver(principals, logger)
	jobManager := jobs.NewManager(database.NewJobRepository(db, bus, logger), logger)
	applicationManager := applications.NewManager(
		database.NewApplicationRepository(db, bus, logger),
		jobManager,
		storageClient,
		notify.NewPublisher(redisClient),
		logger,
		cfg.Uploads.MaxResumeBytes,
	)
	verifier := company.NewVerifier(jobManager, jobManager, logger, cfg.Verification.Concurrency)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, api.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Redis:        redisClient,
		Auth:         authService,
		Resolver:     resolver,
		Principals:   principals,
		Jobs:         jobManager,
		Applications: applicationManager,
		Verifier:     verifier,
		Queue:        asynqClient,
		Scanner:      storage.NewScanner(cfg.Uploads.ClamdAddr),
		Bus:          bus,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

// bootstrapAdministrator 按配置写入管理员账号。未配置密码时生成随机初始密码，只打印一次。
func bootstrapAdministrator(ctx context.Context, principals *database.PrincipalRepository, cfg config.AdminConfig, logger *slog.Logger) error {
	email := strings.TrimSpace(cfg.BootstrapEmail)
	if email == "" {
		return nil
	}

	password := cfg.BootstrapPassword
	generated := false
	if password == "" {
		p, err := auth.GenerateRandomPassword(24)
		if err != nil {
			return err
		}
		password, generated = p, true
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	created, err := principals.EnsureAdministrator(ctx, email, hashed)
	if err != nil {
		return err
	}
	if !created {
		logger.Info("administrator already present", slog.String("email", database.NormalizeEmail(email)))
		return nil
	}

	logger.Info("administrator created", slog.String("email", database.NormalizeEmail(email)))
	if generated {
		fmt.Printf("已创建初始管理员账号（首次登录需强制改密）：\n")
		fmt.Printf("邮箱: %s\n", database.NormalizeEmail(email))
		fmt.Printf("初始密码: %s\n", password)
	}
	return nil
}
