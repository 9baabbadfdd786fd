package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/meditext/labelengine/internal/config"
	"github.com/meditext/labelengine/internal/domain"
	"github.com/meditext/labelengine/internal/ensemble"
	"github.com/meditext/labelengine/internal/predictor"
	"github.com/meditext/labelengine/internal/queue"
	"github.com/meditext/labelengine/internal/review"
	"github.com/meditext/labelengine/internal/segmenter"
	"github.com/meditext/labelengine/internal/storage"
	"github.com/meditext/labelengine/internal/tracker"
	"github.com/meditext/labelengine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	q, err := queue.NewRedisQueue(&cfg.Redis, &cfg.Worker)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer q.Close()

	predictors, err := predictor.FromConfig(&cfg.Predictor)
	if err != nil {
		log.Fatalf("Failed to build predictor pool: %v", err)
	}

	voter := ensemble.NewVoter(predictors, cfg.Policy, cfg.Predictor.Timeout)
	seg := segmenter.New(cfg.Policy.MinSentenceLength)

	sampleRepo := storage.NewSampleRepo(db)
	metricsRepo := storage.NewCategoryMetricsRepo(db)
	track := tracker.New(sampleRepo, metricsRepo, cfg.Policy)
	reviews := review.NewService(sampleRepo, track, domain.NewCategorySet(cfg.Policy.Categories))

	w := worker.New(
		q,
		seg,
		voter,
		reviews,
		cfg.Worker.Concurrency,
		cfg.Worker.BatchSize,
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down worker...")
		cancel()
	}()

	log.Println("Worker starting...")
	if err := w.Start(ctx); err != nil {
		log.Fatalf("Worker error: %v", err)
	}

	log.Println("Worker stopped")
}
