package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medikon.dev/scan-pipeline/internal/store"
)

// handleListResults serves GET /api/v1/results.
func (s *Server) handleListResults(c *gin.Context) {
	results, err := s.results.List(c.Request.Context())
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResultResponses(results))
}

// handleCreateResult serves POST /api/v1/results. It stores a
// pre-computed summary; scan payloads go through /api/v1/scans
// instead.
func (s *Server) handleCreateResult(c *gin.Context) {
	var req createResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := &store.ProcessingResult{
		DeviceID:                   req.DeviceID,
		AverageBeforeNormalization: *req.AverageBeforeNormalization,
		AverageAfterNormalization:  *req.AverageAfterNormalization,
		DataSize:                   req.DataSize,
	}
	if err := s.results.Create(c.Request.Context(), result); err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResultResponse(result))
}

// handleGetResult serves GET /api/v1/results/:id.
func (s *Server) handleGetResult(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	result, err := s.results.Get(c.Request.Context(), id)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResultResponse(result))
}

// handleDeleteResult serves DELETE /api/v1/results/:id.
func (s *Server) handleDeleteResult(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := s.results.Delete(c.Request.Context(), id); err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "processing result deleted"})
}
