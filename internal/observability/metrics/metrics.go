package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

func outcomeOf(failure bool) Outcome {
	if failure {
		return Error
	}
	return Success
}

var defaultHistogramBucketsSeconds = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// Collectors are created eagerly so recording never depends on Init having
// run; Init only registers them and exposes the endpoint.
var (
	once          sync.Once
	metricsRouter *chi.Mux

	teleportOutcomeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teleport_outcome_total",
			Help: "Number of teleport requests by terminal phase and error code.",
		},
		[]string{"outcome", "code"},
	)

	activeRequestsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "teleport_active_requests",
			Help: "Number of teleport requests that have not reached a terminal phase.",
		},
	)

	searchAttemptsHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safe_location_search_attempts",
			Help:    "Candidate columns probed per safe location search, by the phase that finished it.",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 50},
		},
		[]string{"phase"},
	)

	searchDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safe_location_search_duration_seconds",
			Help:    "Histogram of safe location search durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"status"},
	)

	economyProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "economy_provider_latency_seconds",
			Help:    "Histogram of economy provider call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"provider", "method", "status"},
	)

	economyProviderSwitchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_provider_switch_total",
			Help: "Number of times the active economy provider changed, by the newly active provider.",
		},
		[]string{"provider"},
	)

	// client requests are the ones sending to other service
	clientRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Histogram of outgoing client request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"baseurl", "method", "path", "status"},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	// add a counter for the number of errors from the fail to push message into queue
	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending messages to the queue",
		},
	)
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics registers the Prometheus metrics.
func registerMetrics() {
	prometheus.MustRegister(
		teleportOutcomeCounter,
		activeRequestsGauge,
		searchAttemptsHistogram,
		searchDurationHistogram,
		economyProviderLatency,
		economyProviderSwitchCounter,
		clientRequestDurationHistogram,
		pollerDurationHistogram,
		dbLatency,
		queueSendErrorCounter,
	)
}

// RecordTeleportOutcome counts a request that reached a terminal phase.
// code is empty for completed requests.
func RecordTeleportOutcome(outcome, code string) {
	teleportOutcomeCounter.WithLabelValues(outcome, code).Inc()
}

func IncActiveRequests() {
	activeRequestsGauge.Inc()
}

func DecActiveRequests() {
	activeRequestsGauge.Dec()
}

func RecordSearch(d time.Duration, phase string, attempts int, failure bool) {
	searchDurationHistogram.WithLabelValues(outcomeOf(failure).String()).Observe(d.Seconds())
	searchAttemptsHistogram.WithLabelValues(phase).Observe(float64(attempts))
}

func RecordEconomyProviderLatency(d time.Duration, provider, method string, failure bool) {
	economyProviderLatency.WithLabelValues(provider, method, outcomeOf(failure).String()).Observe(d.Seconds())
}

func RecordEconomyProviderSwitch(provider string) {
	economyProviderSwitchCounter.WithLabelValues(provider).Inc()
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	dbLatency.WithLabelValues(method, outcomeOf(failure).String()).Observe(d.Seconds())
}

// StartClientRequestDurationTimer starts a timer to measure outgoing client request duration.
func StartClientRequestDurationTimer(baseUrl, method, path string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		clientRequestDurationHistogram.WithLabelValues(
			baseUrl,
			method,
			path,
			fmt.Sprintf("%d", statusCode),
		).Observe(duration)
	}
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}
