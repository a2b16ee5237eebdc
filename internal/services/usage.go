package services

import (
	"fmt"
	"time"

	"github.com/tessitura-labs/lookback-api/internal/logger"
	"github.com/tessitura-labs/lookback-api/internal/models"
	"gorm.io/gorm"
)

// UsageService records encode activity and aggregates usage statistics.
// A nil database disables recording, the same way the metrics clients degrade
// outside production.
type UsageService struct {
	db *gorm.DB
}

func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{db: db}
}

// Enabled reports whether usage recording has a database behind it
func (s *UsageService) Enabled() bool {
	return s.db != nil
}

// LogEncode records one encode or decode call. Recording is asynchronous and
// best-effort: a failed insert must not fail the request.
func (s *UsageService) LogEncode(entry *models.EncodeLog) {
	if s.db == nil {
		return
	}

	go func() {
		if err := s.db.Create(entry).Error; err != nil {
			logger.Warn("Failed to record encode log", logger.Fields{
				"operation": entry.Operation,
				"error":     err.Error(),
			})
		}
	}()
}

// UsageStats aggregates encode activity over a time window
type UsageStats struct {
	TotalRequests   int64            `json:"total_requests"`
	TotalMelodies   int64            `json:"total_melodies"`
	TotalSteps      int64            `json:"total_steps"`
	FailedRequests  int64            `json:"failed_requests"`
	AvgDurationMS   float64          `json:"avg_duration_ms"`
	OperationCounts map[string]int64 `json:"operation_counts"`
}

// GetUsageStats aggregates encode logs, optionally filtered by user
func (s *UsageService) GetUsageStats(userID string, from, to time.Time) (*UsageStats, error) {
	if s.db == nil {
		return nil, fmt.Errorf("usage recording is disabled")
	}

	var stats UsageStats

	// Get aggregated stats
	if err := s.filtered(userID, from, to).Select(
		"COUNT(*) as total_requests",
		"COALESCE(SUM(melody_count), 0) as total_melodies",
		"COALESCE(SUM(step_count), 0) as total_steps",
		"COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) as failed_requests",
		"COALESCE(AVG(duration_ms), 0) as avg_duration_ms",
	).Scan(&stats).Error; err != nil {
		return nil, err
	}

	// Per-operation request counts
	type operationCount struct {
		Operation string
		Count     int64
	}
	var rows []operationCount
	if err := s.filtered(userID, from, to).
		Select("operation, COUNT(*) as count").
		Group("operation").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats.OperationCounts = make(map[string]int64, len(rows))
	for _, row := range rows {
		stats.OperationCounts[row.Operation] = row.Count
	}

	return &stats, nil
}

func (s *UsageService) filtered(userID string, from, to time.Time) *gorm.DB {
	query := s.db.Model(&models.EncodeLog{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at <= ?", to)
	}
	return query
}
