package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tessitura-labs/lookback-api/internal/logger"
	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"github.com/tessitura-labs/lookback-api/internal/metrics"
	"github.com/tessitura-labs/lookback-api/internal/middleware"
	"github.com/tessitura-labs/lookback-api/internal/models"
	"github.com/tessitura-labs/lookback-api/internal/services"
)

// EncodeHandler serves the stateless codec endpoints: melody to input vector,
// melody to class label, and class index back to melody event.
type EncodeHandler struct {
	encoder       *lookback.Encoder
	profileName   string
	usage         *services.UsageService
	cw            *metrics.Client
	sentryMetrics *metrics.SentryMetrics
}

func NewEncodeHandler(enc *lookback.Encoder, profileName string, usage *services.UsageService, cw *metrics.Client) *EncodeHandler {
	return &EncodeHandler{
		encoder:       enc,
		profileName:   profileName,
		usage:         usage,
		cw:            cw,
		sentryMetrics: metrics.NewSentryMetrics(),
	}
}

type EncodeInputRequest struct {
	Events   models.Melody `json:"events" binding:"required"`
	Position *int          `json:"position"`
}

type EncodeSequenceRequest struct {
	Events models.Melody `json:"events" binding:"required"`
}

type EncodeBatchRequest struct {
	Melodies   []models.Melody `json:"melodies" binding:"required"`
	FullLength bool            `json:"full_length"`
}

// EncodeInput returns the model input vector for one melody position
func (h *EncodeHandler) EncodeInput(c *gin.Context) {
	start := time.Now()

	var req EncodeInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := req.Events.Events()
	if err := h.validateMelody(events); err != nil {
		h.rejectEncode(c, operationInput, start, err)
		return
	}

	position, err := resolvePosition(req.Position, len(events))
	if err != nil {
		h.rejectEncode(c, operationInput, start, err)
		return
	}

	input := h.encoder.EventsToInput(events, position)

	h.recordUsage(c, operationInput, 1, len(events), start, true)
	c.JSON(http.StatusOK, gin.H{
		"input":      input,
		"position":   position,
		"input_size": h.encoder.InputSize(),
	})
}

// EncodeLabel returns the training label for one melody position
func (h *EncodeHandler) EncodeLabel(c *gin.Context) {
	start := time.Now()

	var req EncodeInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := req.Events.Events()
	if err := h.validateMelody(events); err != nil {
		h.rejectEncode(c, operationLabel, start, err)
		return
	}

	position, err := resolvePosition(req.Position, len(events))
	if err != nil {
		h.rejectEncode(c, operationLabel, start, err)
		return
	}

	label := h.encoder.EventsToLabel(events, position)

	h.recordUsage(c, operationLabel, 1, len(events), start, true)
	c.JSON(http.StatusOK, gin.H{
		"label":       label,
		"position":    position,
		"num_classes": h.encoder.NumClasses(),
	})
}

// EncodeSequence returns the full input/label training pairs for one melody
func (h *EncodeHandler) EncodeSequence(c *gin.Context) {
	start := time.Now()

	var req EncodeSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := req.Events.Events()
	if err := h.validateMelody(events); err != nil {
		h.rejectEncode(c, operationSequence, start, err)
		return
	}
	if len(events) < 2 {
		h.rejectEncode(c, operationSequence, start, errors.New("melody needs at least 2 events to form training pairs"))
		return
	}

	inputs, labels := h.encoder.EncodeSequence(events)

	h.recordUsage(c, operationSequence, 1, len(events), start, true)
	c.JSON(http.StatusOK, gin.H{
		"inputs": inputs,
		"labels": labels,
		"steps":  len(events),
		"pairs":  len(labels),
	})
}

// EncodeBatch returns input vectors for several melodies at once, either the
// last position of each melody or every position when full_length is set
func (h *EncodeHandler) EncodeBatch(c *gin.Context) {
	start := time.Now()

	var req EncodeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Melodies) == 0 {
		h.rejectEncode(c, operationBatch, start, errors.New("melodies must not be empty"))
		return
	}
	if len(req.Melodies) > maxBatchMelodies {
		h.rejectEncode(c, operationBatch, start, fmt.Errorf("at most %d melodies per batch", maxBatchMelodies))
		return
	}

	melodies := make([][]lookback.MelodyEvent, len(req.Melodies))
	totalSteps := 0
	for i, m := range req.Melodies {
		events := m.Events()
		if err := h.validateMelody(events); err != nil {
			h.rejectEncode(c, operationBatch, start, fmt.Errorf("melody %d: %v", i, err))
			return
		}
		melodies[i] = events
		totalSteps += len(events)
	}

	inputs := h.encoder.InputsBatch(melodies, req.FullLength)

	h.recordUsage(c, operationBatch, len(melodies), totalSteps, start, true)
	c.JSON(http.StatusOK, gin.H{
		"inputs":      inputs,
		"full_length": req.FullLength,
		"input_size":  h.encoder.InputSize(),
	})
}

// validateMelody checks length bounds and pitch range for one request melody
func (h *EncodeHandler) validateMelody(events []lookback.MelodyEvent) error {
	if len(events) == 0 {
		return errors.New("events must not be empty")
	}
	if len(events) > maxMelodySteps {
		return fmt.Errorf("melody exceeds %d steps", maxMelodySteps)
	}
	return h.encoder.ValidateEvents(events)
}

// resolvePosition defaults to the last event when position is omitted
func resolvePosition(position *int, length int) (int, error) {
	if position == nil {
		return length - 1, nil
	}
	if *position < 0 || *position >= length {
		return 0, fmt.Errorf("position %d out of range [0, %d)", *position, length)
	}
	return *position, nil
}

// rejectEncode sends a 400 and logs the failed attempt
func (h *EncodeHandler) rejectEncode(c *gin.Context, operation string, start time.Time, err error) {
	h.recordUsage(c, operation, 0, 0, start, false)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *EncodeHandler) recordUsage(c *gin.Context, operation string, melodies, steps int, start time.Time, success bool) {
	duration := time.Since(start)

	userID, _ := middleware.GetCurrentUserID(c)
	h.usage.LogEncode(&models.EncodeLog{
		RequestID:   c.GetString("request_id"),
		UserID:      userID,
		Operation:   operation,
		Profile:     h.profileName,
		MelodyCount: melodies,
		StepCount:   steps,
		DurationMS:  int(duration.Milliseconds()),
		Success:     success,
	})

	if !success {
		return
	}

	if h.cw != nil {
		h.cw.RecordEncodedSteps(operation, melodies, steps)
	}
	h.sentryMetrics.RecordEncodeMetrics(c.Request.Context(), operation, melodies, steps)
	logger.LogEncodeRequest(c.Request.Context(), operation, duration, melodies, steps, logger.WithContext(c))
}
