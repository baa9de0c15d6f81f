package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shopify/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

type ProvisionerOptions struct {
	// Timeout bounds each admin round trip. Defaults to 10s.
	Timeout time.Duration
}

// Provisioner makes sure topics exist before anything is produced to them.
// Ensure is safe to call concurrently.
type Provisioner struct {
	admin    Admin
	registry TopicRegistry
	timeout  time.Duration
	group    singleflight.Group
}

func NewProvisioner(admin Admin, registry TopicRegistry, opts ProvisionerOptions) *Provisioner {
	initMetrics()

	if opts.Timeout <= 0 {
		opts.Timeout = _defaultAdminTimeout
	}
	return &Provisioner{
		admin:    admin,
		registry: registry,
		timeout:  opts.Timeout,
	}
}

func (p *Provisioner) Registry() TopicRegistry {
	return p.registry
}

// Ensure creates the topic unless the registry or the broker already knows
// it. A broker reporting the topic as already existing counts as success.
func (p *Provisioner) Ensure(ctx context.Context, spec TopicSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	if p.registry.Contains(ctx, spec.Name) {
		return nil
	}

	ctx, span := otel.Tracer(_meterName).Start(ctx, "kafka.ensure_topic",
		trace.WithAttributes(
			attribute.String("topic", spec.Name),
			attribute.Int("partitions", int(spec.Partitions)),
			attribute.Int("replication_factor", int(spec.ReplicationFactor)),
		),
	)
	defer span.End()

	// the shared flight outlives any one caller; the admin timeout bounds it
	flightCtx := context.WithoutCancel(ctx)
	results := p.group.DoChan(spec.Name, func() (any, error) {
		// a previous flight may have recorded the name since the check above
		if p.registry.Contains(flightCtx, spec.Name) {
			return nil, nil
		}
		return nil, p.ensure(flightCtx, spec)
	})

	var err error
	select {
	case result := <-results:
		err = result.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (p *Provisioner) ensure(ctx context.Context, spec TopicSpec) error {
	topics, err := withTimeout(ctx, p.timeout, p.admin.ListTopics)
	if err != nil {
		return fmt.Errorf("%w: listing topics: %v", ErrBrokerUnreachable, err)
	}

	if _, exists := topics[spec.Name]; exists {
		slog.Debug("topic already present on broker", slog.String("topic", spec.Name))
		p.registry.Record(ctx, spec.Name)
		return nil
	}

	brokers, err := withTimeout(ctx, p.timeout, func() ([]*sarama.Broker, error) {
		brokers, _, err := p.admin.DescribeCluster()
		return brokers, err
	})
	if err != nil {
		return fmt.Errorf("%w: describing cluster: %v", ErrBrokerUnreachable, err)
	}
	if int(spec.ReplicationFactor) > len(brokers) {
		recordProvisionError(ctx, spec.Name)
		return &ProvisionError{
			Topic: spec.Name,
			Cause: fmt.Errorf("%w: replication factor %d exceeds %d available brokers",
				ErrInvalidTopicSpec, spec.ReplicationFactor, len(brokers)),
		}
	}

	_, err = withTimeout(ctx, p.timeout, func() (struct{}, error) {
		return struct{}{}, p.admin.CreateTopic(spec.Name, spec.detail(), false)
	})
	switch {
	case err == nil:
		slog.Info("topic created",
			slog.String("topic", spec.Name),
			slog.Int("partitions", int(spec.Partitions)),
			slog.Int("replication_factor", int(spec.ReplicationFactor)))
		recordTopicCreated(ctx, spec.Name)
	case isTopicAlreadyExists(err):
		slog.Debug("topic created concurrently by another client", slog.String("topic", spec.Name))
	default:
		slog.Error("failed to create topic",
			slog.String("topic", spec.Name),
			slog.String("error", err.Error()))
		recordProvisionError(ctx, spec.Name)
		return &ProvisionError{Topic: spec.Name, Cause: err}
	}

	p.registry.Record(ctx, spec.Name)
	return nil
}

// withTimeout runs a blocking admin call and gives up after d. sarama's own
// timeouts eventually release the abandoned goroutine.
func withTimeout[T any](ctx context.Context, d time.Duration, call func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := call()
		done <- result{value, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
