package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	// Create a span for API request tracking using the request context
	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	// Set span tags
	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	// Set span data
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	// Set span status based on response
	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	// Set span description
	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordEncodeMetrics records how much melody material an encode call covered
func (m *SentryMetrics) RecordEncodeMetrics(ctx context.Context, operation string, melodies, steps int) {
	if !m.enabled {
		return
	}

	// Tag the surrounding transaction so encode volume is searchable
	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("encode.operation", operation)
		transaction.SetTag("encode.melodies", fmt.Sprintf("%d", melodies))
		transaction.SetTag("encode.steps", fmt.Sprintf("%d", steps))
		transaction.SetData("encode.melodies", melodies)
		transaction.SetData("encode.steps", steps)
	}

	// Also create a child span for detailed tracking
	span := sentry.StartSpan(ctx, "encode.volume")
	defer span.Finish()

	span.SetTag("operation", operation)
	span.SetTag("melodies", fmt.Sprintf("%d", melodies))
	span.SetTag("steps", fmt.Sprintf("%d", steps))

	span.SetData("melodies", melodies)
	span.SetData("steps", steps)

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Encode Volume: %s", operation)
}

// RecordDatasetBuildDuration records dataset build duration
func (m *SentryMetrics) RecordDatasetBuildDuration(ctx context.Context, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	// Create a span for dataset build tracking using the request context
	span := sentry.StartSpan(ctx, "dataset.build")
	defer span.Finish()

	// Set span tags
	span.SetTag("success", fmt.Sprintf("%t", success))

	// Set span data
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("success", success)

	// Set span status
	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("Dataset Build: %t", success)
}

// RecordPerformanceMetric records performance data
func (m *SentryMetrics) RecordPerformanceMetric(operation string, duration time.Duration, metadata map[string]interface{}) {
	if !m.enabled {
		return
	}

	// Use Sentry's performance monitoring
	ctx := context.Background()
	span := sentry.StartSpan(ctx, operation)
	span.Description = operation
	span.SetData("duration_ms", duration.Milliseconds())

	// Add metadata
	for key, value := range metadata {
		span.SetData(key, value)
	}

	span.Finish()
}
