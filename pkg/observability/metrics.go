package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// ReconcileMetrics records rejoin run instruments
type ReconcileMetrics struct {
	attempts    metric.Int64Counter
	refreshes   metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewReconcileMetrics registers the rejoin instruments on meter
func NewReconcileMetrics(meter metric.Meter) (*ReconcileMetrics, error) {
	attempts, err := meter.Int64Counter("rejoin_attempts_total",
		metric.WithDescription("Per-user rejoin attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempts counter: %w", err)
	}

	refreshes, err := meter.Int64Counter("rejoin_token_refreshes_total",
		metric.WithDescription("Access token refreshes by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("rejoin_run_duration_seconds",
		metric.WithDescription("Duration of rejoin runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}

	return &ReconcileMetrics{
		attempts:    attempts,
		refreshes:   refreshes,
		runDuration: runDuration,
	}, nil
}

// RecordAttempt counts one per-user outcome
func (m *ReconcileMetrics) RecordAttempt(ctx context.Context, outcome string) {
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordRefresh counts one refresh by result
func (m *ReconcileMetrics) RecordRefresh(ctx context.Context, result string) {
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRun observes a finished run; status is completed or aborted
func (m *ReconcileMetrics) RecordRun(ctx context.Context, status string, elapsed time.Duration) {
	m.runDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}
