package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

const (
	_defaultAdminTimeout   = 10 * time.Second
	_defaultConnectRetries = 10
)

// Config groups the client settings shared by the admin connection and the
// producers. Zero values are replaced by applyDefaults.
type Config struct {
	Brokers        []string
	ClientID       string
	AdminTimeout   time.Duration
	ConnectRetries int
	// RequiredAcks is one of "all" (default), "leader" or "none".
	RequiredAcks string
	// Compression is one of "none" (default), "gzip", "snappy", "lz4" or "zstd".
	Compression string
}

func (c *Config) applyDefaults() {
	if c.AdminTimeout <= 0 {
		c.AdminTimeout = _defaultAdminTimeout
	}
	if c.ConnectRetries <= 0 {
		c.ConnectRetries = _defaultConnectRetries
	}
	if c.RequiredAcks == "" {
		c.RequiredAcks = "all"
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
	if c.ClientID == "" {
		c.ClientID = "avro-producer"
	}
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: brokers required")
	}
	return nil
}

// NewSaramaConfig applies defaults to the config and translates it into a
// sarama client configuration.
func NewSaramaConfig(c Config) (*sarama.Config, error) {
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	sc := sarama.NewConfig()
	sc.Version = sarama.V2_1_0_0
	sc.ClientID = c.ClientID
	sc.Admin.Timeout = c.AdminTimeout

	switch strings.ToLower(c.RequiredAcks) {
	case "all":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	case "leader":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("kafka: invalid required acks %q", c.RequiredAcks)
	}

	switch strings.ToLower(c.Compression) {
	case "none":
		sc.Producer.Compression = sarama.CompressionNone
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("kafka: invalid compression %q", c.Compression)
	}

	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	return sc, nil
}
