package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postpilothq/postpilot/configs"
	job "github.com/postpilothq/postpilot/internal/jobs"
	"github.com/postpilothq/postpilot/internal/ratelimit"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/scheduler"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/robfig/cron"
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

	campaignRepo := repository.NewCampaignRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	draftMediaRepo := repository.NewDraftMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	postLogRepo := repository.NewPostLogRepository(db)
	xAccountRepo := repository.NewXAccountRepository(db)

	r2Service, err := service.NewR2Service(*cfg)
	if err != nil {
		log.Printf("Warning: R2 unavailable, media restore falls back to database backups: %v", err)
		r2Service = nil
	}

	// The posting mode is fixed for the process lifetime.
	xClient := service.NewXClient(*cfg)
	if cfg.MockPosting {
		log.Println("Mock posting enabled, no requests will reach X")
	}

	tokenService := service.NewTokenService(*cfg, xAccountRepo)
	mediaService := service.NewMediaService(*cfg, mediaAssetRepo, xClient, r2Service)

	gate := ratelimit.NewGate(cfg.RateLimitBuffer, time.Duration(cfg.MinPostGapSeconds)*time.Second)
	executor := scheduler.NewExecutor(*cfg, draftRepo, campaignRepo, mediaAssetRepo, postLogRepo,
		tokenService, mediaService, xClient, gate)
	scanner := scheduler.NewScanner(scheduleRepo, draftRepo, cfg.MaxDueDrafts)
	materializer := scheduler.NewMaterializer(draftRepo, draftMediaRepo)
	worker := scheduler.NewWorker(db, *cfg, scanner, materializer, executor, scheduleRepo, postLogRepo)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(xAccountRepo, tokenService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down worker...")
		cancel()
	}()

	if err := worker.Run(ctx); err != nil {
		log.Printf("Worker stopped: %v", err)
		closeDB(db)
		os.Exit(1)
	}

	log.Println("Worker shutdown complete.")
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}
