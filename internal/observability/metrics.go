package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadchat_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadchat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leadchat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"scope"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadchat_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"scope", "event"},
	)
	providerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadchat_provider_events_total",
			Help: "Total number of normalized messaging provider events.",
		},
		[]string{"kind"},
	)
	persistFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadchat_message_persist_failures_total",
			Help: "Total number of failed message store writes.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadchat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		providerEventsTotal,
		persistFailuresTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(scope string) {
	wsActiveConnections.WithLabelValues(scope).Inc()
}

func DecWSActive(scope string) {
	wsActiveConnections.WithLabelValues(scope).Dec()
}

func IncWSEvent(scope, event string) {
	wsEventsTotal.WithLabelValues(scope, event).Inc()
}

func IncProviderEvent(kind string) {
	providerEventsTotal.WithLabelValues(kind).Inc()
}

func IncPersistFailure() {
	persistFailuresTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
