package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Status category counter
	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category"},
	)

	// Price resolutions by outcome
	PriceResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_price_resolutions_total",
			Help: "Total number of price resolutions by resolved price type",
		},
		[]string{"type"}, // "private", "default", "none"
	)

	// Price writes
	PriceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_price_operations_total",
			Help: "Total number of price write operations",
		},
		[]string{"operation"},
	)

	// Quote transitions
	QuoteTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_quote_transitions_total",
			Help: "Total number of quote state transitions",
		},
		[]string{"action", "to"},
	)

	// Approval decisions
	ApprovalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_approval_decisions_total",
			Help: "Total number of approval workflow decisions",
		},
		[]string{"subject", "decision"}, // subject is "tenant" or "user"
	)

	// Event publication results
	EventPublishCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_events_published_total",
			Help: "Total number of events handed to the relay",
		},
		[]string{"type", "result"}, // result is "delivered", "dropped" or "failed"
	)

	// Auth errors
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)

	// Login counter
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// Registration counter
	RegisterCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_register_total",
			Help: "Total number of registrations",
		},
		[]string{"kind"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	// Connected event stream subscribers
	SSESubscribersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_sse_subscribers",
			Help: "Number of currently connected event stream subscribers",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketplace_info",
			Help: "Information about the marketplace service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(StatusCategoryCounter)
	prometheus.MustRegister(PriceResolutionCounter)
	prometheus.MustRegister(PriceOperationCounter)
	prometheus.MustRegister(QuoteTransitionCounter)
	prometheus.MustRegister(ApprovalCounter)
	prometheus.MustRegister(EventPublishCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(SSESubscribersGauge)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures a database operation. Use as
// defer TrackDBOperation("query")(time.Now()).
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request.
// Errors are handed to echo's error handler first so the recorded status is the final one.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			labels := prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   strconv.Itoa(status),
			}
			RequestDuration.With(labels).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.With(labels).Inc()

			if category := statusCategory(status); category != "" {
				StatusCategoryCounter.WithLabelValues(category).Inc()
			}
			return nil
		}
	}
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordLogin records a login attempt outcome
func RecordLogin(result string) {
	LoginCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordRegistration records a registration by kind ("tenant" or "customer")
func RecordRegistration(kind string) {
	RegisterCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

// RecordPriceResolution records which price type a resolution returned
func RecordPriceResolution(priceType string) {
	PriceResolutionCounter.With(prometheus.Labels{"type": priceType}).Inc()
}

// RecordPriceOperation records a price write
func RecordPriceOperation(operation string) {
	PriceOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordQuoteTransition records a persisted quote transition
func RecordQuoteTransition(action, to string) {
	QuoteTransitionCounter.With(prometheus.Labels{"action": action, "to": to}).Inc()
}

// RecordApproval records an approval workflow decision
func RecordApproval(subject, decision string) {
	ApprovalCounter.With(prometheus.Labels{"subject": subject, "decision": decision}).Inc()
}

// RecordEventPublish records the outcome of handing an event to the relay
func RecordEventPublish(eventType, result string) {
	EventPublishCounter.With(prometheus.Labels{"type": eventType, "result": result}).Inc()
}
