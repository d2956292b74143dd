package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/robfig/cron"
)

type repositories struct {
	posts     repository.PostRepository
	accounts  repository.SocialAccountRepository
	history   repository.PostingHistoryRepository
	analytics repository.AnalyticsRepository
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	setupLogger(cfg.LogLevel)

	var db *sql.DB
	repos := repositories{}
	if cfg.PostgresURI != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("Database is unreachable: %v", err)
		}
		repos = repositories{
			posts:     repository.NewPostRepository(db),
			accounts:  repository.NewSocialAccountRepository(db),
			history:   repository.NewPostingHistoryRepository(db),
			analytics: repository.NewAnalyticsRepository(db),
		}
	} else {
		slog.Warn("POSTGRES_URI is not set, using the in-memory store")
		store := repository.NewMemoryStore()
		repos = repositories{
			posts:     store.Posts(),
			accounts:  store.Accounts(),
			history:   store.PostingHistory(),
			analytics: store.Analytics(),
		}
	}

	registry := platform.NewRegistry(
		platform.NewTwitter(platform.OAuthApp(cfg.Twitter)),
		platform.NewFacebook(cfg.GraphAPIVersion),
		platform.NewLinkedIn(platform.OAuthApp(cfg.LinkedIn)),
		platform.NewInstagram(),
		platform.NewYoutube(platform.OAuthApp(cfg.Google)),
		platform.NewTiktok(platform.OAuthApp(cfg.Tiktok)),
	)

	resolver := service.NewFirstActiveResolver(repos.accounts, cfg.SecretKey)
	publisher := service.NewPublisher(repos.posts, repos.history, registry, resolver, service.PublisherConfig{
		Timeout:     cfg.Scheduler.PublishTimeout,
		Concurrency: cfg.Scheduler.PublishConcurrency,
	})
	publishJob := job.NewPublishJob(repos.posts, publisher, job.PublishJobConfig{
		BatchSize:   cfg.Scheduler.BatchSize,
		Concurrency: cfg.Scheduler.PublishConcurrency,
		StaleAfter:  cfg.Scheduler.StaleAfter,
	})
	refreshTokenJob := job.NewTokenRefreshJob(repos.accounts, registry, cfg.SecretKey)

	var (
		notifier     service.DueNotifier
		asynqClient  *asynq.Client
		asynqServer  *asynq.Server
		asynqOptions asynq.RedisClientOpt
	)
	if cfg.RedisURI != "" {
		asynqOptions = asynq.RedisClientOpt{Addr: cfg.RedisURI}
		asynqClient = asynq.NewClient(asynqOptions)
		defer asynqClient.Close()
		notifier = queue.NewEnqueuer(asynqClient)
	} else {
		slog.Warn("REDIS_URI is not set, scheduled posts are only picked up by the scheduler tick")
	}

	postService := service.NewPostService(repos.posts, repos.analytics, registry, publisher, notifier)
	analyticsService := service.NewAnalyticsService(repos.posts, repos.history, repos.accounts, repos.analytics,
		registry, cfg.SecretKey, cfg.Scheduler.PublishTimeout)
	platformService := service.NewPlatformService(repos.accounts, registry, cfg.SecretKey)
	syncService := service.NewSyncService(repos.posts, repos.analytics, repos.accounts)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error(err.Error(), "path", c.Path())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, analyticsService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/scheduled", post.ScheduledPosts)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/publish", post.PublishNow)
	api.Post("/posts/remove", post.RemovePost)
	api.Get("/posts/analytics", post.Analytics)

	// social accounts api routes
	accounts := handlers.NewPlatformHandler(platformService)
	api.Get("/accounts", accounts.ListSocialAccounts)
	api.Post("/accounts/connect", accounts.ConnectSocialAccount)
	api.Post("/accounts/remove", accounts.DeleteSocialAccount)

	if cfg.R2.AccountID != "" {
		storage, err := service.NewR2Storage(context.Background(), cfg.R2)
		if err != nil {
			log.Fatalf("Failed to configure media storage: %v", err)
		}
		media := handlers.NewMediaHandler(service.NewMediaService(storage, cfg.R2.PublicURL))
		api.Post("/media/upload", media.Upload)
	} else {
		slog.Warn("R2 is not configured, media uploads are disabled")
	}

	sync := handlers.NewSyncHandler(syncService)
	api.Get("/sync", sync.Snapshot)
	api.Get("/sync/conflicts", sync.Conflicts)

	// cron jobs
	c := cron.New()
	mustAddFunc(c, cfg.Scheduler.Spec, publishJob.PublishDuePosts)
	mustAddFunc(c, cfg.Scheduler.Spec, publishJob.FailStalePosts)
	mustAddFunc(c, cfg.Scheduler.TokenRefreshSpec, refreshTokenJob.RefreshTokens)
	c.Start()

	if asynqClient != nil {
		asynqServer = asynq.NewServer(asynqOptions, asynq.Config{
			Concurrency: cfg.Scheduler.QueueConcurrency,
		})

		mux := asynq.NewServeMux()
		queue.NewWorker(publishJob).Register(mux)

		go func() {
			slog.Info("Starting the Asynq server...")
			if err := asynqServer.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("Server is running", "port", cfg.Port)

	gracefulShutdown(app, c, asynqServer, db)
}

func setupLogger(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l})))
}

func mustAddFunc(c *cron.Cron, spec string, fn func()) {
	if err := c.AddFunc(spec, fn); err != nil {
		log.Fatalf("Invalid cron spec %q: %v", spec, err)
	}
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

func gracefulShutdown(app *fiber.App, c *cron.Cron, server *asynq.Server, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("Shutting down server...")

	c.Stop()
	if server != nil {
		server.Shutdown()
	}

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	slog.Info("Server shutdown complete.")
}
