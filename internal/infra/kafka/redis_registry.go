package kafka

import (
	"context"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -source=redis_registry.go -destination=../../../test/unit/doubles/infra/kafka/redis_client_mock.go -package=kafka -mock_names=SetClient=MockSetClient

const _defaultRegistryKey = "avro_producer:topics"

// SetClient is the subset of redis commands the registry needs.
type SetClient interface {
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

type RedisRegistryConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

var _ TopicRegistry = (*RedisTopicRegistry)(nil)

// RedisTopicRegistry shares the known-topic set between processes. The
// broker stays authoritative: lookup failures report the name as unknown.
type RedisTopicRegistry struct {
	client SetClient
	key    string
}

func NewRedisTopicRegistry(config RedisRegistryConfig) *RedisTopicRegistry {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewRedisTopicRegistryWithClient(client, config.Key)
}

func NewRedisTopicRegistryWithClient(client SetClient, key string) *RedisTopicRegistry {
	if key == "" {
		key = _defaultRegistryKey
	}
	return &RedisTopicRegistry{
		client: client,
		key:    key,
	}
}

func (r *RedisTopicRegistry) Contains(ctx context.Context, name string) bool {
	found, err := r.client.SIsMember(ctx, r.key, name).Result()
	if err != nil {
		slog.Warn("topic registry lookup failed",
			slog.String("topic", name),
			slog.String("error", err.Error()))
		return false
	}
	return found
}

func (r *RedisTopicRegistry) Record(ctx context.Context, name string) {
	if err := r.client.SAdd(ctx, r.key, name).Err(); err != nil {
		slog.Warn("recording topic in registry",
			slog.String("topic", name),
			slog.String("error", err.Error()))
	}
}

func (r *RedisTopicRegistry) Names(ctx context.Context) []string {
	names, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		slog.Warn("listing registry topics", slog.String("error", err.Error()))
		return []string{}
	}
	sort.Strings(names)
	return names
}
