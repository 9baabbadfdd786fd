package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meditext/labelengine/internal/queue"
)

type DocumentHandler struct {
	queue *queue.RedisQueue
}

func NewDocumentHandler(q *queue.RedisQueue) *DocumentHandler {
	return &DocumentHandler{queue: q}
}

// POST /api/v1/documents
//
// Asynchronous ingest: the document is queued and classified by the worker
// pool. Returns the job ID for tracking.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req struct {
		Text   string `json:"text" binding:"required"`
		Source string `json:"source"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	job := queue.NewClassifyJob(req.Text, req.Source)
	if err := h.queue.Publish(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue document"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": "queued"})
}

// POST /api/v1/documents/batch
func (h *DocumentHandler) IngestBatch(c *gin.Context) {
	var req struct {
		Documents []struct {
			Text   string `json:"text"`
			Source string `json:"source"`
		} `json:"documents" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documents are required"})
		return
	}

	jobs := make([]*queue.ClassifyJob, 0, len(req.Documents))
	for _, d := range req.Documents {
		if d.Text == "" {
			continue
		}
		jobs = append(jobs, queue.NewClassifyJob(d.Text, d.Source))
	}
	if len(jobs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no non-empty documents"})
		return
	}

	if err := h.queue.PublishBatch(c.Request.Context(), jobs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue documents"})
		return
	}

	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	c.JSON(http.StatusAccepted, gin.H{"job_ids": ids, "count": len(ids)})
}

// GET /api/v1/documents/queue
func (h *DocumentHandler) QueueDepth(c *gin.Context) {
	depth, err := h.queue.Len(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read queue depth"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"depth": depth})
}
