package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	v1 "videogate/internal/controller/http/v1"
	"videogate/internal/domain/entity"
	"videogate/internal/domain/usecase"
	psqlRepo "videogate/internal/repository/psql"
	"videogate/internal/repository/rabbitmq"
	redisRepo "videogate/internal/repository/redis"
	s3Repo "videogate/internal/repository/s3"
	"videogate/pkg/client/psql"
	redisClient "videogate/pkg/client/redis"
	s3Client "videogate/pkg/client/s3"
	"videogate/pkg/middleware"
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

	RabbitMQURL string
	JWTSecret   string
	ListenAddr  string
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

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
	if err := db.AutoMigrate(&entity.Video{}); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	storage, err := s3Client.NewS3Client(cfg.S3Host, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		log.Fatalf("failed to init s3 client: %v", err)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	publisher, err := rabbitmq.NewRabbitPublisher(conn, "videos.exchange", "videos.uploaded")
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}

	videoRepo := psqlRepo.NewGormVideoRepo(db)
	cache := redisRepo.NewRedisRepo(redisCli)
	blobs := s3Repo.NewS3Repo(storage)

	uc := usecase.NewVideoUseCase(videoRepo, blobs, publisher, cache, logger)
	handler := v1.NewVideoHandler(uc)

	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20
	r.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	r.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RedisClient: redisCli,
		Limit:       10,
		Window:      time.Second,
	}))

	videos := r.Group("/api/v1/videos")
	{
		videos.POST("/upload", middleware.RequireRole("editor", "admin"), handler.Upload)
		videos.GET("", handler.List)
		videos.GET("/:id", handler.Get)
		videos.GET("/:id/stream", handler.Stream)
		videos.DELETE("/:id", middleware.RequireRole("editor", "admin"), handler.Delete)
	}

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
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

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
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

		RabbitMQURL: rabbitMQURL,
		JWTSecret:   mustGetEnv("JWT_SECRET"),
		ListenAddr:  listenAddr,
	}
}
