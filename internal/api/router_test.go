package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessitura-labs/lookback-api/internal/config"
	"github.com/tessitura-labs/lookback-api/internal/middleware"
	"github.com/tessitura-labs/lookback-api/internal/profile"
)

func testDeps(t *testing.T, cfg *config.Config) Deps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loader, err := profile.NewProfileLoader()
	require.NoError(t, err)

	enc, active, err := profile.ResolveEncoder(loader, profile.ResolveOptions{})
	require.NoError(t, err)

	return Deps{
		Config:      cfg,
		Version:     "test",
		Encoder:     enc,
		ProfileName: active.Name,
		Profiles:    loader,
	}
}

func encodeRequest(t *testing.T, router *gin.Engine, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	body := []byte(`{"events": [60, -2, -1]}`)
	req, err := http.NewRequest("POST", "/api/v1/encode/input", bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRouterServesCodecWithoutDatabase tests the stateless configuration
func TestRouterServesCodecWithoutDatabase(t *testing.T) {
	cfg := &config.Config{
		Environment:    "test",
		AuthMode:       config.AuthModeNone,
		DatasetWorkers: 2,
	}
	router := SetupRouter(testDeps(t, cfg))

	// Health and codec endpoints are up
	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = encodeRequest(t, router, nil)
	assert.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	// Dataset endpoints are not registered without storage
	req, err = http.NewRequest("GET", "/api/v1/datasets", nil)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRouterSetsRequestID tests that responses carry a request ID
func TestRouterSetsRequestID(t *testing.T) {
	cfg := &config.Config{
		Environment:    "test",
		AuthMode:       config.AuthModeNone,
		DatasetWorkers: 2,
	}
	router := SetupRouter(testDeps(t, cfg))

	w := encodeRequest(t, router, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

// TestRouterGatewayMode tests identity propagation from gateway headers
func TestRouterGatewayMode(t *testing.T) {
	cfg := &config.Config{
		Environment:    "test",
		AuthMode:       config.AuthModeGateway,
		DatasetWorkers: 2,
	}
	router := SetupRouter(testDeps(t, cfg))

	// No gateway identity headers
	w := encodeRequest(t, router, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// With identity headers
	header := http.Header{}
	header.Set("X-User-ID", "svc-42")
	w = encodeRequest(t, router, header)
	assert.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
}

// TestRouterTokenMode tests service JWT validation
func TestRouterTokenMode(t *testing.T) {
	cfg := &config.Config{
		Environment:      "test",
		AuthMode:         config.AuthModeToken,
		ServiceJWTSecret: "test-secret",
		DatasetWorkers:   2,
	}
	router := SetupRouter(testDeps(t, cfg))

	// Missing token
	w := encodeRequest(t, router, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token
	header := http.Header{}
	header.Set("Authorization", "Bearer not-a-token")
	w = encodeRequest(t, router, header)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token
	claims := middleware.ServiceClaims{
		Role: "service",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "trainer-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.ServiceJWTSecret))
	require.NoError(t, err)

	header = http.Header{}
	header.Set("Authorization", "Bearer "+token)
	w = encodeRequest(t, router, header)
	assert.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
}
