package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"videogate/internal/domain/usecase"
	psqlRepo "videogate/internal/repository/psql"
	"videogate/internal/repository/rabbitmq"
	redisRepo "videogate/internal/repository/redis"
	"videogate/internal/repository/rekognition"
	s3Repo "videogate/internal/repository/s3"
	"videogate/pkg/client/psql"
	redisClient "videogate/pkg/client/redis"
	s3Client "videogate/pkg/client/s3"
	"videogate/pkg/ffmpeg"
)

type Config struct {
	RedisAddr string
	RedisDB   int

	PSQLHost     string
	PSQLPort     int
	PSQLUser     string
	PSQLPassword string
	PSQLDBName   string
	PSQLSSLMode  string

	S3Host      string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string

	RabbitMQURL string
	ScratchDir  string
	Concurrency int
}

func main() {
	cfg := loadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	redisCli, err := redisClient.NewRedisClient(ctx, redisClient.Config{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	db, err := psql.NewPostgresDB(psql.Config{
		Host:     cfg.PSQLHost,
		User:     cfg.PSQLUser,
		Password: cfg.PSQLPassword,
		DBName:   cfg.PSQLDBName,
		Port:     cfg.PSQLPort,
		SslMode:  cfg.PSQLSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	storage, err := s3Client.NewS3Client(cfg.S3Host, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		log.Fatalf("failed to init s3 client: %v", err)
	}

	moderation, err := rekognition.NewModerationClient(ctx, rekognition.Config{
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		log.Fatalf("failed to init moderation client: %v", err)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	videoRepo := psqlRepo.NewGormVideoRepo(db)
	cache := redisRepo.NewRedisRepo(redisCli)
	notifier := redisRepo.NewNotifier(redisCli)
	blobs := s3Repo.NewS3Repo(storage)

	lifecycle := usecase.NewLifecycle(videoRepo, notifier, cache, logger)
	adapter := usecase.NewFormatAdapter(blobs, ffmpeg.NewCLI(), cfg.ScratchDir, logger)
	poller := usecase.NewModerationPoller(moderation, logger)
	pipeline := usecase.NewPipelineUseCase(lifecycle, adapter, poller, logger)

	consumer, err := rabbitmq.NewVideoConsumer(conn, "videos.exchange", "videos.uploaded", "videos.uploaded.q", cfg.Concurrency, pipeline, logger)
	if err != nil {
		log.Fatalf("failed to init consumer: %v", err)
	}

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("consumer stopped with error: %v", err)
		}
	}()

	logger.Info("moderation worker started", "concurrency", cfg.Concurrency)
	<-sigCh
	logger.Info("shutting down moderation worker")
	cancel()
	time.Sleep(time.Second)
}

func loadConfig() Config {
	if err := godotenv.Load("./.env.local"); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}
	mustGetEnv := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			log.Fatalf("Environment variable %s is not set", key)
		}
		return val
	}

	redisHost := mustGetEnv("REDIS_HOST")
	redisPort := mustGetEnv("REDIS_PORT")
	redisDBStr := os.Getenv("REDIS_DB")
	if redisDBStr == "" {
		redisDBStr = "0"
	}
	redisDB, err := strconv.Atoi(redisDBStr)
	if err != nil {
		log.Fatalf("Invalid REDIS_DB value: %v", err)
	}

	psqlPort, err := strconv.Atoi(mustGetEnv("PSQL_PORT"))
	if err != nil {
		log.Fatalf("Invalid PSQL_PORT value: %v", err)
	}

	rmqUser := mustGetEnv("RABBITMQ_USER")
	rmqPassword := mustGetEnv("RABBITMQ_PASSWORD")
	rmqHost := mustGetEnv("RABBITMQ_HOST")
	rmqPort := mustGetEnv("RABBITMQ_PORT")
	rabbitMQURL := "amqp://" + rmqUser + ":" + rmqPassword + "@" + rmqHost + ":" + rmqPort + "/"

	scratchDir := os.Getenv("WORKER_SCRATCH_DIR")
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "videogate")
	}

	concurrency := 4
	if raw := os.Getenv("WORKER_CONCURRENCY"); raw != "" {
		concurrency, err = strconv.Atoi(raw)
		if err != nil {
			log.Fatalf("Invalid WORKER_CONCURRENCY value: %v", err)
		}
	}

	return Config{
		RedisAddr: redisHost + ":" + redisPort,
		RedisDB:   redisDB,

		PSQLHost:     mustGetEnv("PSQL_HOST"),
		PSQLPort:     psqlPort,
		PSQLUser:     mustGetEnv("PSQL_USER"),
		PSQLPassword: mustGetEnv("PSQL_PASSWORD"),
		PSQLDBName:   mustGetEnv("PSQL_DB"),
		PSQLSSLMode:  mustGetEnv("PSQL_SSLMODE"),

		S3Host:      mustGetEnv("S3_HOST") + ":" + mustGetEnv("S3_PORT"),
		S3Bucket:    mustGetEnv("S3_BUCKET"),
		S3AccessKey: mustGetEnv("S3_ACCESS_KEY"),
		S3SecretKey: mustGetEnv("S3_SECRET_KEY"),

		AWSRegion:    mustGetEnv("AWS_REGION"),
		AWSAccessKey: mustGetEnv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey: mustGetEnv("AWS_SECRET_ACCESS_KEY"),

		RabbitMQURL: rabbitMQURL,
		ScratchDir:  scratchDir,
		Concurrency: concurrency,
	}
}
