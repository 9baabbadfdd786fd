package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meditext/labelengine/internal/api"
	"github.com/meditext/labelengine/internal/config"
	"github.com/meditext/labelengine/internal/ensemble"
	"github.com/meditext/labelengine/internal/predictor"
	"github.com/meditext/labelengine/internal/queue"
	"github.com/meditext/labelengine/internal/segmenter"
	"github.com/meditext/labelengine/internal/storage"
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

	router := api.NewRouter(cfg, db, q, voter, seg)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on %s with %d predictors", cfg.Server.Addr(), len(predictors))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
