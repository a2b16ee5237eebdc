package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tessitura-labs/lookback-api/internal/api/handlers"
	apimiddleware "github.com/tessitura-labs/lookback-api/internal/api/middleware"
	"github.com/tessitura-labs/lookback-api/internal/config"
	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"github.com/tessitura-labs/lookback-api/internal/metrics"
	"github.com/tessitura-labs/lookback-api/internal/middleware"
	"github.com/tessitura-labs/lookback-api/internal/profile"
	"github.com/tessitura-labs/lookback-api/internal/services"
	"gorm.io/gorm"
)

// Deps carries the shared components the router wires into handlers.
// DB may be nil, in which case the dataset and usage endpoints are not
// registered and the service runs as a stateless codec.
type Deps struct {
	DB          *gorm.DB
	Config      *config.Config
	Version     string
	Metrics     *metrics.Client
	Encoder     *lookback.Encoder
	ProfileName string
	Profiles    *profile.Loader
}

func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.Metrics))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Encoder, deps.ProfileName)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.Encoder, deps.ProfileName)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	usageService := services.NewUsageService(deps.DB)

	// Protected API routes v1
	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(deps.Config))
	{
		// Encoder configuration endpoints
		encoderHandler := handlers.NewEncoderHandler(deps.Encoder, deps.ProfileName, deps.Profiles)
		v1.GET("/encoder", encoderHandler.GetEncoder)
		v1.GET("/encoder/profiles", encoderHandler.ListProfiles)

		// Codec endpoints - melody events to model vectors and back
		encodeHandler := handlers.NewEncodeHandler(deps.Encoder, deps.ProfileName, usageService, deps.Metrics)
		v1.POST("/encode/input", encodeHandler.EncodeInput)
		v1.POST("/encode/label", encodeHandler.EncodeLabel)
		v1.POST("/encode/sequence", encodeHandler.EncodeSequence)
		v1.POST("/encode/batch", encodeHandler.EncodeBatch)
		v1.POST("/decode", encodeHandler.Decode)

		// Dataset and usage endpoints require storage
		if deps.DB != nil {
			datasetService := services.NewDatasetService(deps.DB, deps.Metrics, deps.Config.DatasetWorkers)
			datasetsHandler := handlers.NewDatasetsHandler(datasetService, deps.Encoder, deps.ProfileName, usageService)
			v1.POST("/datasets", datasetsHandler.Create)
			v1.GET("/datasets", datasetsHandler.List)
			v1.GET("/datasets/:id", datasetsHandler.Get)
			v1.GET("/datasets/:id/examples", datasetsHandler.GetExamples)
			v1.DELETE("/datasets/:id", middleware.AdminRequired(), datasetsHandler.Delete)

			usageHandler := handlers.NewUsageHandler(usageService)
			v1.GET("/usage/stats", usageHandler.GetUsageStats)
		}
	}

	return router
}

// authMiddleware selects the identity middleware for the configured auth mode
func authMiddleware(cfg *config.Config) gin.HandlerFunc {
	switch {
	case cfg.IsGatewayMode():
		return apimiddleware.GatewayAuth()
	case cfg.IsTokenMode():
		return middleware.ServiceAuth(cfg)
	default:
		return apimiddleware.NoAuth()
	}
}
