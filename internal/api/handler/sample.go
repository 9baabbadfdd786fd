package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meditext/labelengine/internal/aggregator"
	"github.com/meditext/labelengine/internal/domain"
	"github.com/meditext/labelengine/internal/storage"
)

type SampleHandler struct {
	sampleRepo *storage.SampleRepo
	aggregator *aggregator.Aggregator
}

func NewSampleHandler(sampleRepo *storage.SampleRepo, agg *aggregator.Aggregator) *SampleHandler {
	return &SampleHandler{
		sampleRepo: sampleRepo,
		aggregator: agg,
	}
}

// GET /api/v1/samples/:id
func (h *SampleHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sample ID is required"})
		return
	}

	sample, err := h.sampleRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sample not found"})
		return
	}

	c.JSON(http.StatusOK, sample)
}

// GET /api/v1/stats
func (h *SampleHandler) Stats(c *gin.Context) {
	stats, err := h.sampleRepo.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GET /api/v1/summary
//
// Per-category rollup of the finalized corpus, optionally filtered to
// samples mentioning one category.
func (h *SampleHandler) Summary(c *gin.Context) {
	category := domain.Category(c.Query("category"))

	samples, err := h.sampleRepo.Confirmed(c.Request.Context(), category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch samples"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sample_count": len(samples),
		"summary":      h.aggregator.AggregateSamples(samples),
	})
}

// GET /api/v1/training-data
//
// Confirmed samples as JSON Lines, one {"text", "labels"} object per line,
// ready for classifier training.
func (h *SampleHandler) ExportTrainingData(c *gin.Context) {
	samples, err := h.sampleRepo.Confirmed(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch samples"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Content-Disposition", "attachment; filename=training-data.jsonl")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	for _, s := range samples {
		labels := s.HumanLabels
		if len(labels) == 0 {
			labels = s.EnsembleLabels
		}
		line := struct {
			Text   string            `json:"text"`
			Labels []domain.Category `json:"labels"`
		}{Text: s.Sentence, Labels: labels}

		if err := enc.Encode(line); err != nil {
			return
		}
	}
}
