// Package handlers contains the gin request handlers for the REST surface.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stkw0/lms/internal/scanner"
)

// ScannerHandler exposes scan control and status.
type ScannerHandler struct {
	service *scanner.Service
}

func NewScannerHandler(service *scanner.Service) *ScannerHandler {
	return &ScannerHandler{service: service}
}

// StartScan triggers an immediate scan. ?force=true re-extracts every file.
func (h *ScannerHandler) StartScan(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	h.service.RequestImmediateScan(force)
	c.JSON(http.StatusAccepted, gin.H{
		"message": "scan requested",
		"force":   force,
	})
}

// AbortScan terminates the running scan, if any.
func (h *ScannerHandler) AbortScan(c *gin.Context) {
	h.service.AbortScan()
	c.JSON(http.StatusOK, gin.H{"message": "scan aborted"})
}

// Reload re-reads settings and re-evaluates the schedule.
func (h *ScannerHandler) Reload(c *gin.Context) {
	h.service.RequestReload()
	c.JSON(http.StatusOK, gin.H{"message": "scanner reloaded"})
}

// Status returns the scanner snapshot.
func (h *ScannerHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status())
}
