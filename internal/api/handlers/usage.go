package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tessitura-labs/lookback-api/internal/logger"
	"github.com/tessitura-labs/lookback-api/internal/services"
)

type UsageHandler struct {
	usage *services.UsageService
}

func NewUsageHandler(usage *services.UsageService) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// GetUsageStats returns aggregate encode activity for a time range
func (h *UsageHandler) GetUsageStats(c *gin.Context) {
	// Parse time range from query params
	var from, to time.Time

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err == nil {
			from = parsed
		}
	}

	if toStr := c.Query("to"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err == nil {
			to = parsed
		}
	}

	// Default to last 30 days if not specified
	if from.IsZero() {
		from = time.Now().AddDate(0, 0, -30)
	}
	if to.IsZero() {
		to = time.Now()
	}

	// Optional filter; empty means service-wide stats
	userID := c.Query("user_id")

	stats, err := h.usage.GetUsageStats(userID, from, to)
	if err != nil {
		logger.Error("Failed to get usage stats", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get usage stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
		"period": gin.H{
			"from": from.Format(time.RFC3339),
			"to":   to.Format(time.RFC3339),
		},
	})
}
