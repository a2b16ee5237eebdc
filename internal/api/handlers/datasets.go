package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tessitura-labs/lookback-api/internal/logger"
	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"github.com/tessitura-labs/lookback-api/internal/middleware"
	"github.com/tessitura-labs/lookback-api/internal/models"
	"github.com/tessitura-labs/lookback-api/internal/services"
	"gorm.io/gorm"
)

type DatasetsHandler struct {
	service     *services.DatasetService
	encoder     *lookback.Encoder
	profileName string
	usage       *services.UsageService
}

func NewDatasetsHandler(service *services.DatasetService, enc *lookback.Encoder, profileName string, usage *services.UsageService) *DatasetsHandler {
	return &DatasetsHandler{
		service:     service,
		encoder:     enc,
		profileName: profileName,
		usage:       usage,
	}
}

type DatasetCreateRequest struct {
	Name     string          `json:"name" binding:"required"`
	Melodies []models.Melody `json:"melodies" binding:"required"`
}

// Create encodes a batch of melodies into stored training examples
func (h *DatasetsHandler) Create(c *gin.Context) {
	start := time.Now()

	var req DatasetCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Melodies) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "melodies must not be empty"})
		return
	}
	if len(req.Melodies) > maxBatchMelodies {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "at most " + strconv.Itoa(maxBatchMelodies) + " melodies per dataset build",
		})
		return
	}

	userID, _ := middleware.GetCurrentUserID(c)

	dataset, err := h.service.BuildDataset(c.Request.Context(), h.encoder, services.BuildRequest{
		Name:      req.Name,
		Profile:   h.profileName,
		CreatedBy: userID,
		Melodies:  req.Melodies,
	})
	if err != nil {
		h.logBuild(c, start, nil, false)
		if errors.Is(err, services.ErrInvalidMelody) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Dataset build failed", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dataset"})
		return
	}

	h.logBuild(c, start, dataset, true)
	c.JSON(http.StatusCreated, gin.H{"dataset": dataset})
}

// List returns stored datasets, newest first
func (h *DatasetsHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)

	datasets, total, err := h.service.ListDatasets(page, pageSize)
	if err != nil {
		logger.Error("Failed to list datasets", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list datasets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"datasets": datasets,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		},
	})
}

// Get returns one dataset by ID
func (h *DatasetsHandler) Get(c *gin.Context) {
	id, ok := parseDatasetID(c)
	if !ok {
		return
	}

	dataset, err := h.service.GetDataset(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
			return
		}
		logger.Error("Failed to get dataset", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dataset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dataset": dataset})
}

// GetExamples returns the encoded training examples of a dataset, ordered by
// melody position within the build
func (h *DatasetsHandler) GetExamples(c *gin.Context) {
	id, ok := parseDatasetID(c)
	if !ok {
		return
	}

	page, pageSize := parsePagination(c)

	examples, total, err := h.service.GetDatasetExamples(id, page, pageSize)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
			return
		}
		logger.Error("Failed to get dataset examples", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dataset examples"})
		return
	}

	out := make([]gin.H, 0, len(examples))
	for _, ex := range examples {
		out = append(out, gin.H{
			"id":        ex.ID,
			"position":  ex.Position,
			"num_steps": ex.NumSteps,
			"events":    json.RawMessage(ex.Events),
			"inputs":    json.RawMessage(ex.Inputs),
			"labels":    json.RawMessage(ex.Labels),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"examples": out,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		},
	})
}

// Delete removes a dataset and its examples
func (h *DatasetsHandler) Delete(c *gin.Context) {
	id, ok := parseDatasetID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteDataset(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
			return
		}
		logger.Error("Failed to delete dataset", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete dataset"})
		return
	}

	logger.Info("Dataset deleted", logger.Fields{"dataset_id": id})
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *DatasetsHandler) logBuild(c *gin.Context, start time.Time, dataset *models.Dataset, success bool) {
	userID, _ := middleware.GetCurrentUserID(c)

	entry := &models.EncodeLog{
		RequestID:  c.GetString("request_id"),
		UserID:     userID,
		Operation:  operationDataset,
		Profile:    h.profileName,
		DurationMS: int(time.Since(start).Milliseconds()),
		Success:    success,
	}
	if dataset != nil {
		entry.MelodyCount = dataset.MelodyCount
		entry.StepCount = dataset.StepCount
	}
	h.usage.LogEncode(entry)
}

func parseDatasetID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return 0, false
	}
	return uint(id), true
}

func parsePagination(c *gin.Context) (page, pageSize int) {
	page = 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	pageSize = defaultPageSize
	if sizeStr := c.Query("page_size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 {
			pageSize = s
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return page, pageSize
}
