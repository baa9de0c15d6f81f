package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const _tracerName = "avro-producer/pubsub"

var (
	recordsSent        metric.Int64Counter
	recordsAcked       metric.Int64Counter
	recordsFailed      metric.Int64Counter
	recordsDropped     metric.Int64Counter
	metricsInitialized bool
	metricsMutex       sync.Mutex
)

func initMetrics() {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if metricsInitialized {
		return
	}

	meter := otel.GetMeterProvider().Meter(_tracerName)
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&recordsSent, "avro_producer.records.sent", "Records handed to the kafka producer"},
		{&recordsAcked, "avro_producer.records.acked", "Records acknowledged by the broker"},
		{&recordsFailed, "avro_producer.records.failed", "Records the broker rejected"},
		{&recordsDropped, "avro_producer.records.dropped", "Records still unacknowledged when a flush timed out"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			slog.Error("creating counter", slog.String("name", c.name), slog.Any("error", err))
			continue
		}
		*c.target = counter
	}

	metricsInitialized = true
}

func addRecords(ctx context.Context, counter metric.Int64Counter, topic string, n int64) {
	if counter != nil && n > 0 {
		counter.Add(ctx, n, metric.WithAttributes(attribute.String("topic", topic)))
	}
}
