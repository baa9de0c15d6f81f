package httpserver

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	httpRequestDuration metric.Float64Histogram
	httpRequestTotal    metric.Int64Counter
	httpRequestActive   metric.Int64UpDownCounter
	metricsInitialized  bool
	metricsMutex        sync.Mutex
)

// ResetMetricsForTesting makes the next MetricsMiddleware call recreate its
// instruments from the current meter provider.
func ResetMetricsForTesting() {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	metricsInitialized = false
}

func initMetrics() {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if metricsInitialized {
		return
	}

	meter := otel.GetMeterProvider().Meter("avro-producer/http")

	var err error
	httpRequestDuration, err = meter.Float64Histogram(
		"avro_producer.http.request.duration.seconds",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		slog.Error("creating http duration histogram", slog.Any("error", err))
	}

	httpRequestTotal, err = meter.Int64Counter(
		"avro_producer.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		slog.Error("creating http request counter", slog.Any("error", err))
	}

	httpRequestActive, err = meter.Int64UpDownCounter(
		"avro_producer.http.requests.active",
		metric.WithDescription("Number of HTTP requests currently being processed"),
	)
	if err != nil {
		slog.Error("creating active request counter", slog.Any("error", err))
	}

	metricsInitialized = true
}

func MetricsMiddleware() func(http.Handler) http.Handler {
	initMetrics()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			endpoint := normalizeEndpoint(r.URL.Path)
			active := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.endpoint", endpoint),
			)

			if httpRequestActive != nil {
				httpRequestActive.Add(r.Context(), 1, active)
				defer httpRequestActive.Add(r.Context(), -1, active)
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.endpoint", endpoint),
				attribute.Int("http.status_code", wrapped.statusCode),
			)
			if httpRequestDuration != nil {
				httpRequestDuration.Record(r.Context(), time.Since(start).Seconds(), attrs)
			}
			if httpRequestTotal != nil {
				httpRequestTotal.Add(r.Context(), 1, attrs)
			}
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizeEndpoint keeps topic names out of metric labels.
func normalizeEndpoint(path string) string {
	if path == "" || path == "/" {
		return "root"
	}
	if strings.HasPrefix(path, "/topics/") && len(path) > len("/topics/") {
		return "/topics/_name"
	}
	return path
}
