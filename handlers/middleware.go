package handlers

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

// HTTPMetrics holds Prometheus metrics for the sandbox API
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	uploads  prometheus.Counter
}

var (
	metricsOnce   sync.Once
	globalMetrics *HTTPMetrics
)

// getMetrics registers the metrics once per process and returns them
func getMetrics() *HTTPMetrics {
	metricsOnce.Do(func() {
		globalMetrics = &HTTPMetrics{
			requests: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "opd_sandbox_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			}, []string{"route", "method", "status"}),
			latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "opd_sandbox_http_request_duration_seconds",
				Help:    "Time taken to serve HTTP requests",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			}, []string{"route", "method"}),
			uploads: promauto.NewCounter(prometheus.CounterOpts{
				Name: "opd_sandbox_documents_uploaded_total",
				Help: "Total number of claim documents stored",
			}),
		}
	})
	return globalMetrics
}

// RequestIDMiddleware reuses the caller's X-Request-ID or generates one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// LoggerMiddleware logs every request once it has been served
func LoggerMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Infow("Request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"requestID", c.GetString(RequestIDKey),
		)
	}
}

// MetricsMiddleware records request counts and latency per route
func MetricsMiddleware() gin.HandlerFunc {
	m := getMetrics()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// CORSMiddleware allows the configured origins. An empty list or "*" allows
// every origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	if len(allowedOrigins) == 0 || containsOrigin(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}

func containsOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if o == origin {
			return true
		}
	}
	return false
}
