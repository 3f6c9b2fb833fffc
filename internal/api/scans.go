package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medikon.dev/scan-pipeline/internal/ingest"
	"medikon.dev/scan-pipeline/pkg/scan"
)

// handleCreateScans serves POST /api/v1/scans. The payload is a keyed
// batch of scan elements; each element is normalized and stored as a
// processing result for its device. Elements are processed in key
// order and the batch stops at the first invalid element, keeping the
// ones already stored.
func (s *Server) handleCreateScans(c *gin.Context) {
	var batch scan.Batch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}

	summary, err := s.processor.ProcessBatch(c.Request.Context(), batch)
	if err != nil {
		var invalid *ingest.InvalidElementError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"processed": summary.Processed,
			})
			return
		}

		s.logger.Error("scan batch failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "failed to process scan data",
			"processed": summary.Processed,
		})
		return
	}

	c.JSON(http.StatusCreated, scanBatchResponse{
		Detail:         "scan data processed",
		Processed:      summary.Processed,
		DevicesCreated: summary.DevicesCreated,
	})
}
