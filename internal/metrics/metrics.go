// Package metrics provides Prometheus instrumentation for the Consentry service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consentry",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "consentry",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// VerdictsTotal counts bot-detection analyses by resulting verdict.
	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consentry",
			Name:      "verdicts_total",
			Help:      "Total bot-detection analyses by final verdict.",
		},
		[]string{"verdict"},
	)

	// VerdictOverridesTotal counts analyses where the remote classifier
	// overrode the local heuristic verdict.
	VerdictOverridesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "consentry",
		Name:      "verdict_overrides_total",
		Help:      "Total verdicts overridden by the remote classifier.",
	})

	// ClassifierCallsTotal counts remote classifier calls by result.
	ClassifierCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consentry",
			Name:      "classifier_calls_total",
			Help:      "Total remote classifier calls by result (ok, error, skipped).",
		},
		[]string{"result"},
	)

	// ProofsCreatedTotal counts consent proofs created (including refreshes).
	ProofsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "consentry",
		Name:      "proofs_created_total",
		Help:      "Total consent proofs created or refreshed.",
	})

	// ProofVerificationsTotal counts proof verifications by outcome.
	ProofVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consentry",
			Name:      "proof_verifications_total",
			Help:      "Total proof verifications by outcome (valid, invalid).",
		},
		[]string{"outcome"},
	)

	// AuditWriteFailuresTotal counts audit entries dropped after retries.
	AuditWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "consentry",
		Name:      "audit_write_failures_total",
		Help:      "Total audit entries dropped because the store rejected them.",
	})

	// ActiveWebSocketClients tracks connected realtime feed clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "consentry",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "consentry", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "consentry", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "consentry", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		VerdictsTotal,
		VerdictOverridesTotal,
		ClassifierCallsTotal,
		ProofsCreatedTotal,
		ProofVerificationsTotal,
		AuditWriteFailuresTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// statusBucket collapses status codes into class buckets (2xx, 4xx, ...).
func statusBucket(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// Handler returns the Prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
