package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ascendingHistory returns length pitches walking up from 48
func ascendingHistory(length int) []int {
	history := make([]int, length)
	for i := range history {
		history[i] = 48 + i
	}
	return history
}

// TestDecodeLiteralClass tests decoding a literal pitch class
func TestDecodeLiteralClass(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(t, router, "/api/v1/decode", map[string]interface{}{
		"class_index": 14,
		"history":     []int{60, 62},
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	response := decodeBody(t, w)
	assert.Equal(t, float64(60), response["event"])
	assert.Equal(t, float64(14), response["class_index"])
	assert.NotContains(t, response, "lookback_distance")
}

// TestDecodeSentinelClasses tests the two sentinel classes
func TestDecodeSentinelClasses(t *testing.T) {
	router := setupTestRouter()

	tests := []struct {
		classIndex int
		wantEvent  float64
	}{
		{classIndex: 0, wantEvent: -2},
		{classIndex: 1, wantEvent: -1},
	}

	for _, tt := range tests {
		w := postJSON(t, router, "/api/v1/decode", map[string]interface{}{
			"class_index": tt.classIndex,
			"history":     []int{60},
		})
		require.Equal(t, http.StatusOK, w.Code)

		response := decodeBody(t, w)
		assert.Equal(t, tt.wantEvent, response["event"])
	}
}

// TestDecodeRepeatClasses tests that repeat classes read back into history
func TestDecodeRepeatClasses(t *testing.T) {
	router := setupTestRouter()

	history := ascendingHistory(33)

	tests := []struct {
		name         string
		classIndex   int
		wantEvent    float64
		wantDistance float64
	}{
		{
			name:         "one bar back",
			classIndex:   38,
			wantEvent:    float64(history[33-16]),
			wantDistance: 16,
		},
		{
			name:         "two bars back",
			classIndex:   39,
			wantEvent:    float64(history[33-32]),
			wantDistance: 32,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/api/v1/decode", map[string]interface{}{
				"class_index": tt.classIndex,
				"history":     history,
			})
			require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

			response := decodeBody(t, w)
			assert.Equal(t, tt.wantEvent, response["event"])
			assert.Equal(t, tt.wantDistance, response["lookback_distance"])
			assert.Equal(t, true, response["repeated"])
		})
	}
}

// TestDecodeShortHistory tests repeat classes against too-short histories
func TestDecodeShortHistory(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(t, router, "/api/v1/decode", map[string]interface{}{
		"class_index": 39,
		"history":     []int{60},
	})
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, float64(-2), response["event"], "too-short history decodes to no-event")
	assert.Equal(t, float64(32), response["lookback_distance"])
	assert.Equal(t, false, response["repeated"])
}

// TestDecodeEmptyHistory tests decoding the very first generation step
func TestDecodeEmptyHistory(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(t, router, "/api/v1/decode", map[string]interface{}{
		"class_index": 38,
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	response := decodeBody(t, w)
	assert.Equal(t, float64(-2), response["event"])
	assert.Equal(t, false, response["repeated"])
}

// TestDecodeDistribution tests greedy argmax over a model output distribution
func TestDecodeDistribution(t *testing.T) {
	router := setupTestRouter()

	// Peak at the literal class for pitch 60
	distribution := make([]float64, 40)
	distribution[14] = 0.9
	distribution[20] = 0.3

	w := postJSON(t, router, "/api/v1/decode", map[string]interface{}{
		"distribution": distribution,
		"history":      []int{62},
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	response := decodeBody(t, w)
	assert.Equal(t, float64(14), response["class_index"])
	assert.Equal(t, float64(60), response["event"])
}

// TestDecodeDistributionRepeatClass tests argmax landing on a repeat class
func TestDecodeDistributionRepeatClass(t *testing.T) {
	router := setupTestRouter()

	history := ascendingHistory(20)

	distribution := make([]float64, 40)
	distribution[38] = 0.8

	w := postJSON(t, router, "/api/v1/decode", map[string]interface{}{
		"distribution": distribution,
		"history":      history,
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	response := decodeBody(t, w)
	assert.Equal(t, float64(38), response["class_index"])
	assert.Equal(t, float64(history[20-16]), response["event"])
	assert.Equal(t, float64(16), response["lookback_distance"])
	assert.Equal(t, true, response["repeated"])
}

// TestDecodeValidation tests the request validation errors
func TestDecodeValidation(t *testing.T) {
	router := setupTestRouter()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing class index and distribution",
			body: map[string]interface{}{"history": []int{60}},
		},
		{
			name: "both class index and distribution",
			body: map[string]interface{}{"class_index": 14, "distribution": make([]float64, 40)},
		},
		{
			name: "class index past range",
			body: map[string]interface{}{"class_index": 40},
		},
		{
			name: "negative class index",
			body: map[string]interface{}{"class_index": -1},
		},
		{
			name: "distribution wrong length",
			body: map[string]interface{}{"distribution": make([]float64, 12)},
		},
		{
			name: "history pitch out of range",
			body: map[string]interface{}{"class_index": 14, "history": []int{200}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/api/v1/decode", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", w.Body.String())
		})
	}
}
