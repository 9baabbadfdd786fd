package api

import (
	"github.com/gin-gonic/gin"

	"github.com/meditext/labelengine/internal/aggregator"
	"github.com/meditext/labelengine/internal/api/handler"
	"github.com/meditext/labelengine/internal/config"
	"github.com/meditext/labelengine/internal/domain"
	"github.com/meditext/labelengine/internal/ensemble"
	"github.com/meditext/labelengine/internal/queue"
	"github.com/meditext/labelengine/internal/review"
	"github.com/meditext/labelengine/internal/segmenter"
	"github.com/meditext/labelengine/internal/storage"
	"github.com/meditext/labelengine/internal/tracker"
)

type Router struct {
	engine *gin.Engine
}

func NewRouter(cfg *config.Config, db *storage.PostgresDB, q *queue.RedisQueue, voter *ensemble.Voter, seg *segmenter.Segmenter) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	categories := domain.NewCategorySet(cfg.Policy.Categories)

	sampleRepo := storage.NewSampleRepo(db)
	metricsRepo := storage.NewCategoryMetricsRepo(db)
	track := tracker.New(sampleRepo, metricsRepo, cfg.Policy)
	reviews := review.NewService(sampleRepo, track, categories)
	agg := aggregator.New(cfg.Policy.Categories)

	classifyHandler := handler.NewClassifyHandler(voter, seg, agg)
	documentHandler := handler.NewDocumentHandler(q)
	reviewHandler := handler.NewReviewHandler(reviews)
	metricsHandler := handler.NewMetricsHandler(track, metricsRepo, categories)
	sampleHandler := handler.NewSampleHandler(sampleRepo, agg)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/classify", classifyHandler.Classify)

		documents := v1.Group("/documents")
		{
			documents.POST("", documentHandler.Ingest)
			documents.POST("/batch", documentHandler.IngestBatch)
			documents.GET("/queue", documentHandler.QueueDepth)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.GET("/pending", reviewHandler.GetPending)
			reviews.POST("/:id/confirm", reviewHandler.Confirm)
			reviews.POST("/:id/override", reviewHandler.Override)
			reviews.POST("/:id/undo", reviewHandler.Undo)
		}

		v1.GET("/categories", metricsHandler.ListCategories)
		categories := v1.Group("/categories/:category")
		{
			categories.POST("/auto-accept/enable", metricsHandler.EnableAutoAccept)
			categories.POST("/auto-accept/disable", metricsHandler.DisableAutoAccept)
		}

		metrics := v1.Group("/metrics")
		{
			metrics.GET("/categories", metricsHandler.GetAll)
			metrics.GET("/categories/:category", metricsHandler.GetReport)
			metrics.POST("/recompute", metricsHandler.Recompute)
		}

		v1.GET("/samples/:id", sampleHandler.GetByID)
		v1.GET("/stats", sampleHandler.Stats)
		v1.GET("/summary", sampleHandler.Summary)
		v1.GET("/training-data", sampleHandler.ExportTrainingData)
	}

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
