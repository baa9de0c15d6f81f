package kafka

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const _meterName = "avro-producer"

var (
	topicsCreated      metric.Int64Counter
	provisionErrors    metric.Int64Counter
	metricsInitialized bool
	metricsMutex       sync.Mutex
)

func initMetrics() {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if metricsInitialized {
		return
	}

	meter := otel.GetMeterProvider().Meter(_meterName)

	var err error
	topicsCreated, err = meter.Int64Counter(
		"avro_producer.topics.created",
		metric.WithDescription("Topics created by the provisioner"),
	)
	if err != nil {
		slog.Error("creating topics created counter", slog.Any("error", err))
	}

	provisionErrors, err = meter.Int64Counter(
		"avro_producer.topics.provision_errors",
		metric.WithDescription("Failed topic provisioning attempts"),
	)
	if err != nil {
		slog.Error("creating provision errors counter", slog.Any("error", err))
	}

	metricsInitialized = true
}

func recordTopicCreated(ctx context.Context, topic string) {
	if topicsCreated != nil {
		topicsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
	}
}

func recordProvisionError(ctx context.Context, topic string) {
	if provisionErrors != nil {
		provisionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
	}
}
