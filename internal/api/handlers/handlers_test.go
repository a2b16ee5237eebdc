package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessitura-labs/lookback-api/internal/profile"
	"github.com/tessitura-labs/lookback-api/internal/services"
)

// setupTestRouter builds a minimal router around the default encoder profile.
// No database, no CloudWatch client; usage logging degrades to a no-op.
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	loader, err := profile.NewProfileLoader()
	if err != nil {
		panic(err)
	}
	enc, err := loader.DefaultProfile().NewEncoder()
	if err != nil {
		panic(err)
	}

	usage := services.NewUsageService(nil)

	router := gin.New()
	router.Use(gin.Recovery())

	healthHandler := NewHealthHandler(nil, enc, profile.DefaultProfileName)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := NewMetricsHandler("test", enc, profile.DefaultProfileName)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	encoderHandler := NewEncoderHandler(enc, profile.DefaultProfileName, loader)
	router.GET("/api/v1/encoder", encoderHandler.GetEncoder)
	router.GET("/api/v1/encoder/profiles", encoderHandler.ListProfiles)

	encodeHandler := NewEncodeHandler(enc, profile.DefaultProfileName, usage, nil)
	router.POST("/api/v1/encode/input", encodeHandler.EncodeInput)
	router.POST("/api/v1/encode/label", encodeHandler.EncodeLabel)
	router.POST("/api/v1/encode/sequence", encodeHandler.EncodeSequence)
	router.POST("/api/v1/encode/batch", encodeHandler.EncodeBatch)
	router.POST("/api/v1/decode", encodeHandler.Decode)

	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest("GET", path, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	return response
}

// TestHealthCheck tests the health check endpoint without a database
func TestHealthCheck(t *testing.T) {
	router := setupTestRouter()

	w := getJSON(t, router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "healthy", response["status"])

	database, ok := response["database"].(map[string]interface{})
	require.True(t, ok, "Response should have 'database' object")
	assert.Equal(t, "disabled", database["status"])

	encoder, ok := response["encoder"].(map[string]interface{})
	require.True(t, ok, "Response should have 'encoder' object")
	assert.Equal(t, "default", encoder["profile"])
	assert.Equal(t, float64(121), encoder["input_size"])
}

// TestGetMetrics tests the runtime metrics endpoint
func TestGetMetrics(t *testing.T) {
	router := setupTestRouter()

	w := getJSON(t, router, "/api/metrics")
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "test", response["version"])

	api, ok := response["api"].(map[string]interface{})
	require.True(t, ok, "Response should have 'api' object")
	encoder, ok := api["encoder"].(map[string]interface{})
	require.True(t, ok, "API section should describe the encoder")
	assert.Equal(t, float64(121), encoder["input_size"])
	assert.Equal(t, float64(40), encoder["num_classes"])
}

// TestGetEncoder tests the active encoder configuration endpoint
func TestGetEncoder(t *testing.T) {
	router := setupTestRouter()

	w := getJSON(t, router, "/api/v1/encoder")
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "default", response["profile"])
	assert.Equal(t, float64(48), response["min_note"])
	assert.Equal(t, float64(84), response["max_note"])
	assert.Equal(t, float64(0), response["transpose_to_key"])
	assert.Equal(t, float64(16), response["steps_per_bar"])
	assert.Equal(t, float64(38), response["num_model_events"])
	assert.Equal(t, float64(121), response["input_size"])
	assert.Equal(t, float64(40), response["num_classes"])
	assert.Equal(t, []interface{}{float64(16), float64(32)}, response["lookback_distances"])
}

// TestListProfiles tests the built-in profile listing
func TestListProfiles(t *testing.T) {
	router := setupTestRouter()

	w := getJSON(t, router, "/api/v1/encoder/profiles")
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	profiles, ok := response["profiles"].([]interface{})
	require.True(t, ok, "Response should have 'profiles' array")
	require.Len(t, profiles, 3)

	// Sorted by name, with the active profile flagged
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		entry, ok := p.(map[string]interface{})
		require.True(t, ok)
		names = append(names, entry["name"].(string))

		active := entry["active"].(bool)
		assert.Equal(t, entry["name"] == "default", active)
	}
	assert.Equal(t, []string{"bass", "default", "wide"}, names)
}
