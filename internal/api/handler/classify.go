package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meditext/labelengine/internal/aggregator"
	"github.com/meditext/labelengine/internal/ensemble"
	"github.com/meditext/labelengine/internal/segmenter"
)

type ClassifyHandler struct {
	voter      *ensemble.Voter
	segmenter  *segmenter.Segmenter
	aggregator *aggregator.Aggregator
}

func NewClassifyHandler(voter *ensemble.Voter, seg *segmenter.Segmenter, agg *aggregator.Aggregator) *ClassifyHandler {
	return &ClassifyHandler{
		voter:      voter,
		segmenter:  seg,
		aggregator: agg,
	}
}

// POST /api/v1/classify
//
// Synchronous classification: the text is segmented, every sentence voted on
// by the full ensemble, and the verdicts returned alongside a per-category
// summary. Nothing is persisted.
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	sentences := h.segmenter.Segment(req.Text)
	if len(sentences) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no classifiable sentences in text"})
		return
	}

	verdicts := h.voter.ClassifyBatch(c.Request.Context(), sentences)

	c.JSON(http.StatusOK, gin.H{
		"sentence_count": len(sentences),
		"verdicts":       verdicts,
		"summary":        h.aggregator.Aggregate(verdicts),
	})
}
