package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seichat"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by handler, method and status.",
		},
		[]string{"handler", "method", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"handler", "method"},
	)
)

// Pipeline metrics
var (
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolved messages by the stage that produced the result.",
		},
		[]string{"stage"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched commands by outcome (ok, usage, error, unknown).",
		},
		[]string{"command", "outcome"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent inside a command's collaborator call.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_failures_total",
			Help:      "Failures swallowed at a collaborator boundary.",
		},
		[]string{"collaborator"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Command outcome events by publish result.",
		},
		[]string{"result"},
	)

	OracleCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_cache_lookups_total",
			Help:      "Oracle price cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
)

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// ObserveResolution counts a resolution produced by the named stage.
func ObserveResolution(stage string) {
	ResolutionsTotal.WithLabelValues(stage).Inc()
}

// ObserveCommand records a dispatched command's outcome and latency.
func ObserveCommand(command, outcome string, duration time.Duration) {
	CommandsTotal.WithLabelValues(command, outcome).Inc()
	if duration > 0 {
		CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
	}
}

// ObserveCollaboratorFailure counts a swallowed collaborator failure.
func ObserveCollaboratorFailure(collaborator string) {
	CollaboratorFailures.WithLabelValues(collaborator).Inc()
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer serves /metrics on addr until ctx is cancelled.
func StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
