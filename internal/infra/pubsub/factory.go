package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"avro-producer/internal/infra/kafka"
	"avro-producer/internal/shared_kernel/avro"

	"github.com/Shopify/sarama"
)

// ProducerBuilder opens a sarama async producer. Swapped in tests.
type ProducerBuilder func(brokers []string, config *sarama.Config) (sarama.AsyncProducer, error)

type Provisioner interface {
	Ensure(ctx context.Context, spec kafka.TopicSpec) error
}

type SchemaResolver interface {
	Resolve(ctx context.Context, ref avro.SchemaRef) (*avro.ConfluentCodec, error)
}

type KafkaPublisherFactoryOptions struct {
	Kafka        kafka.Config
	Provisioner  Provisioner
	Schemas      SchemaResolver
	FlushTimeout time.Duration
	Builder      ProducerBuilder
}

var _ PublisherFactory = (*KafkaPublisherFactory)(nil)

type KafkaPublisherFactory struct {
	config       kafka.Config
	provisioner  Provisioner
	schemas      SchemaResolver
	flushTimeout time.Duration
	builder      ProducerBuilder
}

func NewKafkaPublisherFactory(opts KafkaPublisherFactoryOptions) *KafkaPublisherFactory {
	if opts.Builder == nil {
		opts.Builder = sarama.NewAsyncProducer
	}
	return &KafkaPublisherFactory{
		config:       opts.Kafka,
		provisioner:  opts.Provisioner,
		schemas:      opts.Schemas,
		flushTimeout: opts.FlushTimeout,
		builder:      opts.Builder,
	}
}

// New makes sure the topic exists, resolves the key and value schemas and
// opens a producer for the topic. Provisioning happens at most once per topic
// for the lifetime of the provisioner's registry.
func (f *KafkaPublisherFactory) New(ctx context.Context, opts ProducerOptions) (Publisher, error) {
	return f.NewKafkaPublisher(ctx, opts)
}

func (f *KafkaPublisherFactory) NewKafkaPublisher(ctx context.Context, opts ProducerOptions) (*KafkaPublisher, error) {
	spec := opts.Topic.WithDefaults()

	if err := f.provisioner.Ensure(ctx, spec); err != nil {
		return nil, err
	}

	keyCodec, err := f.schemas.Resolve(ctx, opts.KeySchema.WithSubject(avro.KeySubject(spec.Name)))
	if err != nil {
		return nil, fmt.Errorf("resolving key schema for %s: %w", spec.Name, err)
	}

	var valueEncoder Encoder
	if opts.ValueSchema != nil {
		valueCodec, err := f.schemas.Resolve(ctx, opts.ValueSchema.WithSubject(avro.ValueSubject(spec.Name)))
		if err != nil {
			return nil, fmt.Errorf("resolving value schema for %s: %w", spec.Name, err)
		}
		valueEncoder = valueCodec
	}

	saramaConfig, err := kafka.NewSaramaConfig(f.config)
	if err != nil {
		return nil, err
	}

	producer, err := kafka.Dial(ctx, f.config.ConnectRetries, func() (sarama.AsyncProducer, error) {
		return f.builder(f.config.Brokers, saramaConfig)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening producer for %s: %v", kafka.ErrBrokerUnreachable, spec.Name, err)
	}

	slog.Info("producer opened",
		slog.String("topic", spec.Name),
		slog.Int("key_schema_id", keyCodec.SchemaID()),
		slog.Bool("value_schema", opts.ValueSchema != nil))

	return NewKafkaPublisher(producer, KafkaPublisherOptions{
		Topic:        spec.Name,
		KeyEncoder:   keyCodec,
		ValueEncoder: valueEncoder,
		FlushTimeout: f.flushTimeout,
	}), nil
}
