package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meditext/labelengine/internal/domain"
	"github.com/meditext/labelengine/internal/storage"
	"github.com/meditext/labelengine/internal/tracker"
)

type MetricsHandler struct {
	tracker     *tracker.Tracker
	metricsRepo *storage.CategoryMetricsRepo
	categories  *domain.CategorySet
}

func NewMetricsHandler(t *tracker.Tracker, metricsRepo *storage.CategoryMetricsRepo, categories *domain.CategorySet) *MetricsHandler {
	return &MetricsHandler{
		tracker:     t,
		metricsRepo: metricsRepo,
		categories:  categories,
	}
}

// GET /api/v1/categories
func (h *MetricsHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.categories.Ordered()})
}

// GET /api/v1/metrics/categories
func (h *MetricsHandler) GetAll(c *gin.Context) {
	metrics, err := h.metricsRepo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch metrics"})
		return
	}
	policies, err := h.metricsRepo.GetAllPolicies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch policies"})
		return
	}

	type row struct {
		Category domain.Category         `json:"category"`
		Policy   domain.ReviewPolicy     `json:"policy"`
		Metrics  *domain.CategoryMetrics `json:"metrics,omitempty"`
	}

	rows := make([]row, 0, h.categories.Len())
	for _, cat := range h.categories.Ordered() {
		policy, ok := policies[cat]
		if !ok {
			policy = domain.PolicyMandatoryReview
		}
		rows = append(rows, row{
			Category: cat,
			Policy:   policy,
			Metrics:  metrics[cat],
		})
	}

	c.JSON(http.StatusOK, gin.H{"categories": rows})
}

// GET /api/v1/metrics/categories/:category
func (h *MetricsHandler) GetReport(c *gin.Context) {
	category := domain.Category(c.Param("category"))

	report, err := h.tracker.Report(c.Request.Context(), category)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// POST /api/v1/categories/:category/auto-accept/enable
func (h *MetricsHandler) EnableAutoAccept(c *gin.Context) {
	category := domain.Category(c.Param("category"))

	if err := h.tracker.EnableAutoAccept(c.Request.Context(), category); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category, "policy": domain.PolicyAutoAcceptEnabled})
}

// POST /api/v1/categories/:category/auto-accept/disable
func (h *MetricsHandler) DisableAutoAccept(c *gin.Context) {
	category := domain.Category(c.Param("category"))

	if err := h.tracker.DisableAutoAccept(c.Request.Context(), category); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category, "policy": domain.PolicyMandatoryReview})
}

// POST /api/v1/metrics/recompute
func (h *MetricsHandler) Recompute(c *gin.Context) {
	if err := h.tracker.RecomputeAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "metrics recomputed"})
}
