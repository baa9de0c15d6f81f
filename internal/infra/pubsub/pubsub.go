package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avro-producer/internal/infra/kafka"
	"avro-producer/internal/shared_kernel/avro"
)

var (
	ErrPublisherClosed  = errors.New("publisher is not open")
	ErrUnsupportedValue = errors.New("value must be []byte, string or nil without a value schema")
)

type PublisherFactory interface {
	New(context.Context, ProducerOptions) (Publisher, error)
}

type Publisher interface {
	Publish(ctx context.Context, key any, value any) error
	Produce(ctx context.Context, record Record) error
	Close(ctx context.Context) error
	Stats() Stats
	State() State
	Topic() string
}

type ProducerOptions struct {
	Topic     kafka.TopicSpec
	KeySchema avro.SchemaRef
	// ValueSchema is optional. Without it values are sent as raw bytes.
	ValueSchema *avro.SchemaRef
}

// Record is a single message. A zero Timestamp is replaced with the current
// wall clock time in milliseconds.
type Record struct {
	Key       any
	Value     any
	Timestamp time.Time
	Headers   map[string][]byte
}

type Stats struct {
	Sent    int64 `json:"sent"`
	Acked   int64 `json:"acked"`
	Failed  int64 `json:"failed"`
	Pending int64 `json:"pending"`
}

type State int32

const (
	StateCreated State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FlushTimeoutError reports records that were still unacknowledged when the
// flush deadline passed. They are dropped, not retried.
type FlushTimeoutError struct {
	Topic   string
	Dropped int64
	Timeout time.Duration
}

func (e *FlushTimeoutError) Error() string {
	return fmt.Sprintf("flushing topic %s: %d records unacknowledged after %s", e.Topic, e.Dropped, e.Timeout)
}

type ConsumedRecord struct {
	Topic     string
	Key       any
	Value     any
	Timestamp time.Time
	Headers   map[string][]byte
}

type RecordHandler func(context.Context, ConsumedRecord) error

type Consumer interface {
	Tail(ctx context.Context, topic string, handler RecordHandler) error
}
