package main

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/tessitura-labs/lookback-api/internal/api"
	"github.com/tessitura-labs/lookback-api/internal/config"
	"github.com/tessitura-labs/lookback-api/internal/database"
	"github.com/tessitura-labs/lookback-api/internal/metrics"
	"github.com/tessitura-labs/lookback-api/internal/profile"
	"gorm.io/gorm"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	if cfg.IsTokenMode() && cfg.ServiceJWTSecret == "" {
		log.Fatal("SERVICE_JWT_SECRET is required when AUTH_MODE=token")
	}

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "lookback-api@" + releaseVersion,         // Use embedded release version
			EnableTracing:    true,                                     // Enable tracing for spans
			TracesSampleRate: 1.0,                                      // 100% sampling for now, adjust based on volume
			EnableLogs:       true,                                     // Enable Sentry Logs feature
			Debug:            cfg.Environment != environmentProduction, // Enable debug in non-prod
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			// Flush on shutdown
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	// Initialize database; without one the service still serves the
	// stateless codec endpoints
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to connect to database:", err)
		}

		// Run migrations
		if err := database.Migrate(db); err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to run migrations:", err)
		}
	} else {
		log.Println("⚠️  DATABASE_URL not set, dataset and usage endpoints disabled")
	}

	// Load encoder profiles and resolve the active encoder
	loader, err := profile.NewProfileLoader()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to load encoder profiles:", err)
	}

	enc, activeProfile, err := profile.ResolveEncoder(loader, profile.ResolveOptions{
		Profile:   cfg.EncoderProfile,
		MinNote:   cfg.EncoderMinNote,
		MaxNote:   cfg.EncoderMaxNote,
		Key:       cfg.EncoderKey,
		Lookbacks: cfg.EncoderLookbacks,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to resolve encoder configuration:", err)
	}
	log.Printf("🎹 Encoder ready (profile: %s, range: [%d, %d), input size: %d, classes: %d)",
		activeProfile.Name, enc.MinNote(), enc.MaxNote(), enc.InputSize(), enc.NumClasses())

	// CloudWatch metrics client (enabled in production only)
	cwMetrics, err := metrics.NewClient(context.Background(), cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
	}

	// Set Gin mode
	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := api.SetupRouter(api.Deps{
		DB:          db,
		Config:      cfg,
		Version:     GetVersion(),
		Metrics:     cwMetrics,
		Encoder:     enc,
		ProfileName: activeProfile.Name,
		Profiles:    loader,
	})

	// Start server
	log.Printf("🚀 Starting server on port %s (auth mode: %s)", cfg.Port, cfg.AuthMode)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
