package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"github.com/tessitura-labs/lookback-api/internal/models"
)

type DecodeRequest struct {
	ClassIndex   *int          `json:"class_index"`
	Distribution []float64     `json:"distribution"`
	History      models.Melody `json:"history"`
}

// Decode maps a model output back to a melody event. The caller sends either
// a class_index or a full output distribution, which is greedy-decoded with
// argmax. History is the melody generated so far and may be empty, in which
// case lookback classes decode to no-event.
func (h *EncodeHandler) Decode(c *gin.Context) {
	start := time.Now()

	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	classIndex, err := h.resolveClassIndex(&req)
	if err != nil {
		h.rejectEncode(c, operationDecode, start, err)
		return
	}

	history := req.History.Events()
	if len(history) > maxMelodySteps {
		h.rejectEncode(c, operationDecode, start, fmt.Errorf("history exceeds %d steps", maxMelodySteps))
		return
	}
	if err := h.encoder.ValidateEvents(history); err != nil {
		h.rejectEncode(c, operationDecode, start, fmt.Errorf("invalid history: %v", err))
		return
	}

	event := h.encoder.ClassIndexToEvent(classIndex, history)

	response := gin.H{
		"event":       int(event),
		"class_index": classIndex,
	}
	if distance, ok := h.encoder.LookbackForClass(classIndex); ok {
		response["lookback_distance"] = distance
		response["repeated"] = len(history) >= distance
	}

	h.recordUsage(c, operationDecode, 0, len(history), start, true)
	c.JSON(http.StatusOK, response)
}

// resolveClassIndex picks the class from either request form
func (h *EncodeHandler) resolveClassIndex(req *DecodeRequest) (int, error) {
	numClasses := h.encoder.NumClasses()

	switch {
	case req.ClassIndex != nil && req.Distribution != nil:
		return 0, errors.New("send either class_index or distribution, not both")
	case req.Distribution != nil:
		if len(req.Distribution) != numClasses {
			return 0, fmt.Errorf("distribution must have %d entries, got %d", numClasses, len(req.Distribution))
		}
		return lookback.ArgmaxClassIndex(req.Distribution), nil
	case req.ClassIndex != nil:
		if *req.ClassIndex < 0 || *req.ClassIndex >= numClasses {
			return 0, fmt.Errorf("class_index %d out of range [0, %d)", *req.ClassIndex, numClasses)
		}
		return *req.ClassIndex, nil
	default:
		return 0, errors.New("class_index or distribution is required")
	}
}
