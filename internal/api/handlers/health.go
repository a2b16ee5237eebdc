package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db          *gorm.DB
	encoder     *lookback.Encoder
	profileName string
}

func NewHealthHandler(db *gorm.DB, enc *lookback.Encoder, profileName string) *HealthHandler {
	return &HealthHandler{
		db:          db,
		encoder:     enc,
		profileName: profileName,
	}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = "up"
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "down"
		}
	}

	status := "healthy"
	code := http.StatusOK
	if dbStatus == "down" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"database": gin.H{
			"status": dbStatus,
		},
		"encoder": gin.H{
			"profile":     h.profileName,
			"input_size":  h.encoder.InputSize(),
			"num_classes": h.encoder.NumClasses(),
		},
	})
}
