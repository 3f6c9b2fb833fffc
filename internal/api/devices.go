package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medikon.dev/scan-pipeline/internal/store"
)

// idParam parses the :id path parameter.
func idParam(c *gin.Context) (int32, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return int32(id), true
}

// writeStoreError maps store sentinel errors to HTTP status codes.
func (s *Server) writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrDeviceNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrDeviceNotFound),
		errors.Is(err, store.ErrResultNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrDeviceInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("storage error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// handleListDevices serves GET /api/v1/devices.
func (s *Server) handleListDevices(c *gin.Context) {
	devices, err := s.devices.List(c.Request.Context())
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDeviceResponses(devices))
}

// handleCreateDevice serves POST /api/v1/devices.
func (s *Server) handleCreateDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := s.devices.Create(c.Request.Context(), req.DeviceName)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toDeviceResponse(device))
}

// handleGetDevice serves GET /api/v1/devices/:id.
func (s *Server) handleGetDevice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	device, err := s.devices.Get(c.Request.Context(), id)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDeviceResponse(device))
}

// handleRenameDevice serves PUT /api/v1/devices/:id.
func (s *Server) handleRenameDevice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req renameDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := s.devices.Rename(c.Request.Context(), id, req.DeviceName)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDeviceResponse(device))
}

// handleDeleteDevice serves DELETE /api/v1/devices/:id. Devices that
// still have processing results are rejected with 409.
func (s *Server) handleDeleteDevice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := s.devices.Delete(c.Request.Context(), id); err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "device deleted"})
}

// handleListDeviceResults serves GET /api/v1/devices/:id/results,
// returning the device's results in creation order.
func (s *Server) handleListDeviceResults(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	// 404 for unknown devices rather than an empty list
	if _, err := s.devices.Get(c.Request.Context(), id); err != nil {
		s.writeStoreError(c, err)
		return
	}

	results, err := s.results.ListByDevice(c.Request.Context(), id)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResultResponses(results))
}
