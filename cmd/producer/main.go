package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"avro-producer/cmd/config"
	"avro-producer/internal/infra/cache"
	"avro-producer/internal/infra/httpserver"
	"avro-producer/internal/infra/kafka"
	"avro-producer/internal/infra/node"
	"avro-producer/internal/infra/pubsub"
	"avro-producer/internal/logger"
	"avro-producer/internal/shared_kernel/avro"
	"avro-producer/internal/shared_kernel/avro/schemas"

	"github.com/spf13/pflag"
)

const (
	_schemaRegistryTimeout = 10 * time.Second
	_shutdownTimeout       = 5 * time.Second
)

const (
	exitOK = iota
	exitFailure
	exitUsage
	exitBrokerUnreachable
	exitProvisioning
)

var (
	logLevelMapping = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := config.Flags()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	path, _ := flags.GetString("config")

	cfg, err := config.LoadConfig(path, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitUsage
	}

	level := logLevelMapping[cfg.General.LogLevel]
	baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: level, ReplaceAttr: slogReplaceAttr})
	handler := baseHandler.WithAttrs([]slog.Attr{slog.String("version", node.Version)})
	slog.SetDefault(slog.New(handler))
	slog.Info("avro producer is initializing")
	slog.Debug("config loaded", "data", cfg)

	zlog, err := logger.New(cfg.General.LogLevel)
	if err != nil {
		slog.Error("creating client logger", slog.Any("error", err))
		return exitFailure
	}
	defer func() { _ = zlog.Sync() }()
	logger.InstallSarama(zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTel.Enabled {
		shutdownOTel, err := startOTel(ctx, cfg.OTel.Endpoint, cfg.General.ServiceName)
		if err != nil {
			slog.Error("starting otel providers", slog.Any("error", err))
			return exitFailure
		}
		defer func() {
			if err := shutdownOTel(); err != nil {
				slog.Error("stopping otel providers", slog.Any("error", err))
			}
		}()
	}

	if err := runProducer(ctx, cfg); err != nil {
		slog.Error("producer failed", slog.Any("error", err))
		return exitCode(err)
	}

	slog.Info("good bye!!!")
	return exitOK
}

func runProducer(ctx context.Context, cfg config.AppConfig) error {
	registry := newTopicRegistry(cfg.Registry)
	client := cfg.Kafka.Client(node.ClientID(cfg.General.ServiceName))

	admin, err := kafka.NewClusterAdmin(ctx, client)
	if err != nil {
		return err
	}
	defer func() {
		if err := admin.Close(); err != nil {
			slog.Warn("closing cluster admin", slog.Any("error", err))
		}
	}()

	store, err := cache.New(cache.DefaultConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	serde := avro.NewSerde(avro.NewSchemaRegistryClient(cfg.Kafka.SchemaRegistry, _schemaRegistryTimeout), store)
	factory := pubsub.NewKafkaPublisherFactory(pubsub.KafkaPublisherFactoryOptions{
		Kafka:        client,
		Provisioner:  kafka.NewProvisioner(admin, registry, kafka.ProvisionerOptions{Timeout: cfg.Kafka.AdminTimeout}),
		Schemas:      serde,
		FlushTimeout: cfg.Kafka.FlushTimeout,
	})

	publisher, err := factory.NewKafkaPublisher(ctx, pubsub.ProducerOptions{
		Topic: kafka.TopicSpec{
			Name:              cfg.Producer.Topic,
			Partitions:        cfg.Producer.Partitions,
			ReplicationFactor: cfg.Producer.Replicas,
		},
		KeySchema:   avro.SchemaRef{Definition: schemas.EventKey},
		ValueSchema: &avro.SchemaRef{Definition: schemas.ArrivalValue},
	})
	if err != nil {
		return err
	}

	var server *httpserver.StandardServer
	if cfg.Producer.Serve {
		server = httpserver.NewServer(
			httpserver.ServerOptions{Addr: cfg.HTTP.Addr, AllowedOrigins: cfg.HTTP.AllowedOrigins},
			httpserver.NewTopicController(registry, func() []pubsub.Publisher {
				return []pubsub.Publisher{publisher}
			}),
		)
		go func() {
			if err := server.Run(); err != nil {
				slog.Error("ops server stopped", slog.Any("error", err))
			}
		}()
	}

	produceErr := produceArrivals(ctx, publisher, cfg.Producer.Count)
	closeErr := closePublisher(publisher)
	if err := errors.Join(produceErr, closeErr); err != nil {
		shutdownServer(server)
		return err
	}

	if cfg.Producer.Tail {
		consumer := pubsub.NewKafkaConsumer(pubsub.KafkaConsumerOptions{
			Brokers:      cfg.Kafka.Brokers,
			Group:        cfg.Kafka.ConsumerGroup,
			Decoder:      serde,
			ValueDecoder: arrivalDecoder{serde: serde},
		})
		if err := consumer.Tail(ctx, publisher.Topic(), logRecord); err != nil {
			shutdownServer(server)
			return err
		}
	} else if server != nil {
		<-ctx.Done()
	}

	shutdownServer(server)
	return nil
}

func produceArrivals(ctx context.Context, publisher pubsub.Publisher, count int) error {
	for i := 0; i < count; i++ {
		record := pubsub.Record{
			Key:   map[string]any{"timestamp": kafka.CurrentTimeMillis()},
			Value: exampleArrival(i),
		}
		if err := publisher.Produce(ctx, record); err != nil {
			return fmt.Errorf("producing record %d: %w", i, err)
		}
	}
	slog.Info("records queued", slog.String("topic", publisher.Topic()), slog.Int("count", count))
	return nil
}

// closePublisher flushes with its own deadline so an interrupt during
// produce still gets a bounded flush.
func closePublisher(publisher pubsub.Publisher) error {
	err := publisher.Close(context.Background())

	var flushErr *pubsub.FlushTimeoutError
	if errors.As(err, &flushErr) {
		slog.Warn("records dropped on close",
			slog.String("topic", flushErr.Topic),
			slog.Int64("dropped", flushErr.Dropped))
	}

	stats := publisher.Stats()
	slog.Info("delivery summary",
		slog.String("topic", publisher.Topic()),
		slog.Int64("sent", stats.Sent),
		slog.Int64("acked", stats.Acked),
		slog.Int64("failed", stats.Failed))
	return err
}

func logRecord(_ context.Context, record pubsub.ConsumedRecord) error {
	slog.Info("record consumed",
		slog.String("topic", record.Topic),
		slog.Any("key", record.Key),
		slog.Any("value", record.Value),
		slog.Time("timestamp", record.Timestamp))
	return nil
}

func shutdownServer(server *httpserver.StandardServer) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), _shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Warn("shutting down ops server", slog.Any("error", err))
	}
}

func newTopicRegistry(cfg config.RegistryConfig) kafka.TopicRegistry {
	if cfg.Backend == "redis" {
		slog.Info("using redis topic registry", slog.String("addr", cfg.Redis.Addr))
		return kafka.NewRedisTopicRegistry(kafka.RedisRegistryConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
	}
	return kafka.NewMemoryTopicRegistry()
}

func exitCode(err error) int {
	var provisionErr *kafka.ProvisionError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, kafka.ErrBrokerUnreachable):
		return exitBrokerUnreachable
	case errors.As(err, &provisionErr), errors.Is(err, kafka.ErrInvalidTopicSpec):
		return exitProvisioning
	default:
		return exitFailure
	}
}

func slogReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
		return slog.Any(a.Key, source)
	}
	return a
}
