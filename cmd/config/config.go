package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"avro-producer/internal/infra/kafka"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const _envPrefix = "avro_producer"

var loadConfigOnce sync.Once
var configInstance AppConfig
var configErr error

// LoadConfig reads the process configuration once. An empty path searches
// config/ and /config for producer.yaml and falls back to defaults when no
// file exists.
func LoadConfig(path string, flags *pflag.FlagSet) (AppConfig, error) {
	loadConfigOnce.Do(func() {
		v := viper.GetViper()
		if flags != nil {
			if err := BindFlags(v, flags); err != nil {
				configErr = err
				return
			}
		}
		configInstance, configErr = Load(v, path)
	})

	return configInstance, configErr
}

// Load fills v with defaults, environment overrides and the optional config
// file, then builds an AppConfig from it.
func Load(v *viper.Viper, path string) (AppConfig, error) {
	setDefaults(v)

	v.SetEnvPrefix(_envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("producer")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		v.AddConfigPath("/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	config := AppConfig{
		General: GeneralConfig{
			LogLevel:    v.GetString("general.log_level"),
			ServiceName: v.GetString("general.service_name"),
		},
		Kafka: KafkaConfig{
			Brokers:        splitList(v.GetStringSlice("kafka.brokers")),
			SchemaRegistry: v.GetString("kafka.schema_registry"),
			Zookeeper:      v.GetString("kafka.zookeeper"),
			ClientID:       v.GetString("kafka.client_id"),
			AdminTimeout:   v.GetDuration("kafka.admin_timeout"),
			FlushTimeout:   v.GetDuration("kafka.flush_timeout"),
			ConnectRetries: v.GetInt("kafka.connect_retries"),
			RequiredAcks:   v.GetString("kafka.required_acks"),
			Compression:    v.GetString("kafka.compression"),
			ConsumerGroup:  v.GetString("kafka.consumer_group"),
		},
		Registry: RegistryConfig{
			Backend: v.GetString("registry.backend"),
			Redis: RedisConfig{
				Addr:     v.GetString("registry.redis.addr"),
				Password: v.GetString("registry.redis.password"),
				DB:       v.GetInt("registry.redis.db"),
				Key:      v.GetString("registry.redis.key"),
			},
		},
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			AllowedOrigins: splitList(v.GetStringSlice("http.allowed_origins")),
		},
		OTel: OTelConfig{
			Enabled:  v.GetBool("otel.enabled"),
			Endpoint: v.GetString("otel.endpoint"),
		},
		Producer: ProducerConfig{
			Topic:      v.GetString("producer.topic"),
			Partitions: v.GetInt32("producer.partitions"),
			Replicas:   int16(v.GetInt("producer.replicas")),
			Count:      v.GetInt("producer.count"),
			Tail:       v.GetBool("producer.tail"),
			Serve:      v.GetBool("producer.serve"),
		},
	}

	if err := config.Validate(); err != nil {
		return AppConfig{}, err
	}
	return config, nil
}

// Flags declares the command line switches that override producer.* keys.
func Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("producer", pflag.ContinueOnError)
	flags.String("config", "", "path to a yaml config file")
	flags.String("topic", "", "topic to provision and produce to")
	flags.Int32("partitions", 0, "partitions used when the topic is created")
	flags.Int16("replicas", 0, "replication factor used when the topic is created")
	flags.Int("count", 0, "number of example records to produce")
	flags.Bool("tail", false, "consume the topic after producing")
	flags.Bool("serve", false, "run the ops http server until interrupted")
	return flags
}

// BindFlags makes every flag except --config take precedence over the
// producer.* key with the same name.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, name := range []string{"topic", "partitions", "replicas", "count", "tail", "serve"} {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag("producer."+name, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.service_name", "avro-producer")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.schema_registry", "http://localhost:8081")
	v.SetDefault("kafka.zookeeper", "localhost:2181")
	v.SetDefault("kafka.client_id", "")
	v.SetDefault("kafka.admin_timeout", 10*time.Second)
	v.SetDefault("kafka.flush_timeout", 10*time.Second)
	v.SetDefault("kafka.connect_retries", 10)
	v.SetDefault("kafka.required_acks", "all")
	v.SetDefault("kafka.compression", "none")
	v.SetDefault("kafka.consumer_group", "avro-producer-tail")

	v.SetDefault("registry.backend", "memory")
	v.SetDefault("registry.redis.addr", "localhost:6379")
	v.SetDefault("registry.redis.password", "")
	v.SetDefault("registry.redis.db", 0)
	v.SetDefault("registry.redis.key", "avro_producer:topics")

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.allowed_origins", []string{})

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")

	v.SetDefault("producer.topic", "org.chicago.cta.station.arrivals.v1")
	v.SetDefault("producer.partitions", 1)
	v.SetDefault("producer.replicas", 1)
	v.SetDefault("producer.count", 10)
	v.SetDefault("producer.tail", false)
	v.SetDefault("producer.serve", false)
}

// splitList accepts both yaml lists and comma separated environment values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type AppConfig struct {
	General  GeneralConfig
	Kafka    KafkaConfig
	Registry RegistryConfig
	HTTP     HTTPConfig
	OTel     OTelConfig
	Producer ProducerConfig
}

func (c AppConfig) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("config: kafka.brokers is empty")
	}
	switch c.Registry.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown registry.backend %q", c.Registry.Backend)
	}
	if c.Producer.Count < 0 {
		return fmt.Errorf("config: producer.count must not be negative")
	}
	return nil
}

type GeneralConfig struct {
	LogLevel    string
	ServiceName string
}

type KafkaConfig struct {
	Brokers        []string
	SchemaRegistry string
	// Zookeeper is accepted for compatibility with older deployments. The
	// admin client talks to the brokers directly.
	Zookeeper      string
	ClientID       string
	AdminTimeout   time.Duration
	FlushTimeout   time.Duration
	ConnectRetries int
	RequiredAcks   string
	Compression    string
	ConsumerGroup  string
}

// Client converts the section into the settings used by the kafka package.
func (k KafkaConfig) Client(clientID string) kafka.Config {
	if k.ClientID != "" {
		clientID = k.ClientID
	}
	return kafka.Config{
		Brokers:        k.Brokers,
		ClientID:       clientID,
		AdminTimeout:   k.AdminTimeout,
		ConnectRetries: k.ConnectRetries,
		RequiredAcks:   k.RequiredAcks,
		Compression:    k.Compression,
	}
}

type RegistryConfig struct {
	Backend string
	Redis   RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

type ProducerConfig struct {
	Topic      string
	Partitions int32
	Replicas   int16
	Count      int
	Tail       bool
	Serve      bool
}
