package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/api/handlers"
	"github.com/postpilothq/postpilot/internal/queue"
	"github.com/postpilothq/postpilot/internal/ratelimit"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/scheduler"
	"github.com/postpilothq/postpilot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	campaignRepo := repository.NewCampaignRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	postLogRepo := repository.NewPostLogRepository(db)
	xAccountRepo := repository.NewXAccountRepository(db)

	r2Service, err := service.NewR2Service(*cfg)
	if err != nil {
		log.Printf("Warning: R2 unavailable, media restore falls back to database backups: %v", err)
		r2Service = nil
	}
	xClient := service.NewXClient(*cfg)
	tokenService := service.NewTokenService(*cfg, xAccountRepo)
	mediaService := service.NewMediaService(*cfg, mediaAssetRepo, xClient, r2Service)
	campaignService := service.NewCampaignService(campaignRepo, scheduleRepo, draftRepo, postLogRepo)

	gate := ratelimit.NewGate(cfg.RateLimitBuffer, time.Duration(cfg.MinPostGapSeconds)*time.Second)
	executor := scheduler.NewExecutor(*cfg, draftRepo, campaignRepo, mediaAssetRepo, postLogRepo,
		tokenService, mediaService, xClient, gate)

	api := app.Group("/api")

	schedule := handlers.NewScheduleHandler(campaignService)
	api.Post("/schedules/create", schedule.CreateSchedule)
	api.Get("/schedules", schedule.ListSchedules)

	draft := handlers.NewDraftHandler(campaignService, client)
	api.Get("/drafts", draft.ListDrafts)
	api.Post("/drafts/:id/post_now", draft.PostNow)

	logs := handlers.NewLogHandler(campaignService)
	api.Get("/logs", logs.ListLogs)

	// queue
	queueW := queue.NewQueue(draftRepo, executor)

	go func() {
		// Concurrency 1 keeps manual publishes serialized through the gate.
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 1,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishDraft, queueW.HandlePublishDraftTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
