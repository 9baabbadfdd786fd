package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meditext/labelengine/internal/domain"
	"github.com/meditext/labelengine/internal/review"
)

type ReviewHandler struct {
	service *review.Service
}

func NewReviewHandler(service *review.Service) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// GET /api/v1/reviews/pending
func (h *ReviewHandler) GetPending(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	samples, err := h.service.NextBatch(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch pending reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending": samples,
		"count":   len(samples),
	})
}

// POST /api/v1/reviews/:id/confirm
func (h *ReviewHandler) Confirm(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sample ID is required"})
		return
	}

	sample, err := h.service.Confirm(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sample": sample})
}

// POST /api/v1/reviews/:id/override
func (h *ReviewHandler) Override(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sample ID is required"})
		return
	}

	var req struct {
		Labels []domain.Category `json:"labels" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "labels are required"})
		return
	}

	sample, err := h.service.Override(c.Request.Context(), id, req.Labels)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sample": sample})
}

// POST /api/v1/reviews/:id/undo
func (h *ReviewHandler) Undo(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sample ID is required"})
		return
	}

	if err := h.service.Undo(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "sample reverted to review queue"})
}
