package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/generator"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/logger"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/publisher"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

type stores struct {
	posts    repository.PostRepository
	assets   repository.MediaAssetRepository
	creds    repository.CredentialRepository
	sessions repository.SessionRepository
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	logger.New(cfg.LogLevel, cfg.LogFormat)

	registry := platform.NewRegistry()
	if err := cfg.Validate(registry); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	var db *sql.DB
	st := stores{
		posts:  repository.NewMemoryPostRepository(),
		assets: repository.NewMemoryMediaAssetRepository(),
		creds:  repository.NewMemoryCredentialRepository(),
	}
	if cfg.PostgresURI != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("Database is unreachable: %v", err)
		}
		st.posts = repository.NewPostRepository(db)
		st.assets = repository.NewMediaAssetRepository(db)
		st.creds = repository.NewCredentialRepository(db, []byte(cfg.SecretKey))
	} else {
		slog.Warn("POSTGRES_URI not set, keeping posts and credentials in memory")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()
	st.sessions = repository.NewRedisSessionRepository(rdb)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis is unreachable, keeping authorization sessions in memory", "error", err)
		st.sessions = repository.NewMemorySessionRepository()
	}

	blobs, err := service.NewR2BlobStore(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}
	text, err := generator.NewGeminiTextGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to configure text generation: %v", err)
	}
	images := generator.NewHuggingFaceImageGenerator(cfg.HuggingFaceModelURL, cfg.HuggingFaceAPIKey)

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	validator := service.NewConstraintValidator(registry)
	transformer := service.NewContentTransformer(registry, text)
	mediaService := service.NewMediaService(st.assets, blobs, images, service.DefaultWarmupBackoff)
	oauthService := service.NewOAuthService(*cfg, registry, st.sessions, st.creds)
	schedulerService := service.NewSchedulerService(st.posts, validator)
	publishService := service.NewPublishService(st.posts, mediaService, validator, oauthService,
		publisher.NewDefaultRegistry(&http.Client{Timeout: 2 * time.Minute}), cfg.PublishMaxAttempts)
	postService := service.NewPostService(st.posts, registry, transformer, validator, mediaService,
		schedulerService, publishService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	api.Register(app, middleware.NewAuthMiddleware(*cfg), api.Handlers{
		Posts:     handlers.NewPostHandler(postService, transformer),
		Platforms: handlers.NewPlatformHandler(oauthService, registry, *cfg),
		Social:    handlers.NewSocialHandler(postService, registry),
		Media:     handlers.NewMediaHandler(mediaService),
	})

	// cron jobs
	duePostJob := job.NewDuePostJob(schedulerService, queue.NewProducer(client))
	refreshTokenJob := job.NewTokenRefreshJob(oauthService)

	c := cron.New()
	c.AddFunc(fmt.Sprintf("@every %s", cfg.SchedulerPollInterval), duePostJob.DispatchDue)
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()
	defer c.Stop()

	//queue
	queueW := queue.NewQueue(publishService)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

	log.Println("Starting the Asynq server...")
	if err := server.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.PublicURL)

	gracefulShutdown(app, server, db)
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	closeDB(db)
	log.Println("Server shutdown complete.")
}
