package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/cenkalti/backoff/v4"
)

//go:generate mockgen -source=admin.go -destination=../../../test/unit/doubles/infra/kafka/admin_mock.go -package=kafka -mock_names=Admin=MockAdmin

// Admin is the part of sarama.ClusterAdmin used for provisioning.
type Admin interface {
	ListTopics() (map[string]sarama.TopicDetail, error)
	DescribeCluster() (brokers []*sarama.Broker, controllerID int32, err error)
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	Close() error
}

var _ Admin = (sarama.ClusterAdmin)(nil)

// NewClusterAdmin connects an admin client, retrying with exponential
// backoff. Exhausted retries are reported as ErrBrokerUnreachable.
func NewClusterAdmin(ctx context.Context, config Config) (Admin, error) {
	sc, err := NewSaramaConfig(config)
	if err != nil {
		return nil, err
	}

	brokers := strings.Join(config.Brokers, ",")
	admin, err := Dial(ctx, config.ConnectRetries, func() (sarama.ClusterAdmin, error) {
		slog.Debug("connecting kafka admin", slog.String("brokers", brokers))
		return sarama.NewClusterAdmin(config.Brokers, sc)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBrokerUnreachable, brokers, err)
	}

	return admin, nil
}

// Dial calls connect until it succeeds, the retries run out or ctx is done.
func Dial[T any](ctx context.Context, retries int, connect func() (T, error)) (T, error) {
	if retries <= 0 {
		retries = _defaultConnectRetries
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	var result T
	operation := func() error {
		value, err := connect()
		if err != nil {
			return err
		}
		result = value
		return nil
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("kafka connection attempt failed",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", wait))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries-1)), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
