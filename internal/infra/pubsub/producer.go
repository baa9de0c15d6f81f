package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"avro-producer/internal/infra/kafka"

	"github.com/Shopify/sarama"
)

const _defaultFlushTimeout = 10 * time.Second

// Encoder turns a key or value into its wire representation.
type Encoder interface {
	Encode(value any) ([]byte, error)
}

// rawEncoder passes bytes and strings through unchanged.
type rawEncoder struct{}

func (rawEncoder) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedValue, value)
	}
}

var _ Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher produces records to a single topic. Sends are accepted only
// while the publisher is open; Close waits a bounded time for outstanding
// deliveries.
type KafkaPublisher struct {
	topic        string
	producer     sarama.AsyncProducer
	keyEncoder   Encoder
	valueEncoder Encoder
	flushTimeout time.Duration

	mu       sync.RWMutex
	state    State
	inflight sync.WaitGroup
	closing  chan struct{}
	done     chan struct{}

	sent    atomic.Int64
	acked   atomic.Int64
	failed  atomic.Int64
	pending atomic.Int64
}

type KafkaPublisherOptions struct {
	Topic        string
	KeyEncoder   Encoder
	ValueEncoder Encoder
	FlushTimeout time.Duration
}

// NewKafkaPublisher takes ownership of producer and opens the publisher.
// A nil ValueEncoder accepts only []byte, string or nil values.
func NewKafkaPublisher(producer sarama.AsyncProducer, opts KafkaPublisherOptions) *KafkaPublisher {
	initMetrics()

	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = _defaultFlushTimeout
	}
	if opts.KeyEncoder == nil {
		opts.KeyEncoder = rawEncoder{}
	}
	if opts.ValueEncoder == nil {
		opts.ValueEncoder = rawEncoder{}
	}

	p := &KafkaPublisher{
		topic:        opts.Topic,
		producer:     producer,
		keyEncoder:   opts.KeyEncoder,
		valueEncoder: opts.ValueEncoder,
		flushTimeout: opts.FlushTimeout,
		state:        StateCreated,
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	go p.dispatch()

	p.mu.Lock()
	p.state = StateOpen
	p.mu.Unlock()
	return p
}

func (p *KafkaPublisher) Topic() string {
	return p.topic
}

func (p *KafkaPublisher) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *KafkaPublisher) Stats() Stats {
	return Stats{
		Sent:    p.sent.Load(),
		Acked:   p.acked.Load(),
		Failed:  p.failed.Load(),
		Pending: p.pending.Load(),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key any, value any) error {
	return p.Produce(ctx, Record{Key: key, Value: value})
}

// Produce encodes record and hands it to the producer. Delivery happens
// asynchronously; failures are counted and logged, not returned.
func (p *KafkaPublisher) Produce(ctx context.Context, record Record) error {
	if p.State() != StateOpen {
		return ErrPublisherClosed
	}

	ctx, span := CreateChildSpan(ctx, "kafka.produce")
	defer span.End()

	key, err := p.keyEncoder.Encode(record.Key)
	if err != nil {
		return fmt.Errorf("encoding key for %s: %w", p.topic, err)
	}
	value, err := p.valueEncoder.Encode(record.Value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", p.topic, err)
	}

	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.UnixMilli(kafka.CurrentTimeMillis())
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Headers:   InjectTraceHeaders(ctx, record.Headers),
		Timestamp: timestamp,
	}
	if key != nil {
		msg.Key = sarama.ByteEncoder(key)
	}
	if value != nil {
		msg.Value = sarama.ByteEncoder(value)
	}

	// the lock is released before the send; Close unblocks it through closing
	p.mu.RLock()
	if p.state != StateOpen {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.inflight.Add(1)
	p.pending.Add(1)
	p.mu.RUnlock()

	select {
	case p.producer.Input() <- msg:
		p.sent.Add(1)
		addRecords(ctx, recordsSent, p.topic, 1)
		return nil
	case <-ctx.Done():
		p.settle()
		return ctx.Err()
	case <-p.closing:
		p.settle()
		return ErrPublisherClosed
	}
}

func (p *KafkaPublisher) settle() {
	p.pending.Add(-1)
	p.inflight.Done()
}

func (p *KafkaPublisher) dispatch() {
	defer close(p.done)

	successes := p.producer.Successes()
	errs := p.producer.Errors()
	for successes != nil || errs != nil {
		select {
		case _, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			p.acked.Add(1)
			addRecords(context.Background(), recordsAcked, p.topic, 1)
			p.settle()
		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.failed.Add(1)
			addRecords(context.Background(), recordsFailed, p.topic, 1)
			slog.Error("delivering record",
				slog.String("topic", p.topic),
				slog.Any("error", perr.Err))
			p.settle()
		}
	}
}

// Close stops accepting records and waits up to the flush timeout, or the
// ctx deadline when sooner, for outstanding deliveries. Sends still blocked
// on the producer input are abandoned with ErrPublisherClosed. Records still
// unacknowledged at the deadline are reported in a *FlushTimeoutError.
// Calling Close again is a no-op.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateOpen {
		p.mu.Unlock()
		return nil
	}
	p.state = StateClosed
	close(p.closing)
	p.mu.Unlock()

	// no send can register after the state change, so pending only shrinks
	if p.pending.Load() == 0 {
		return p.closeProducer()
	}

	timeout := p.flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	flushed := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(flushed)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-flushed:
		return p.closeProducer()
	case <-timer.C:
	case <-ctx.Done():
	}

	dropped := p.pending.Load()
	if dropped == 0 {
		return p.closeProducer()
	}

	p.producer.AsyncClose()
	addRecords(context.Background(), recordsDropped, p.topic, dropped)
	slog.Warn("flush timed out, dropping records",
		slog.String("topic", p.topic),
		slog.Int64("dropped", dropped),
		slog.Duration("timeout", timeout))

	return &FlushTimeoutError{Topic: p.topic, Dropped: dropped, Timeout: timeout}
}

func (p *KafkaPublisher) closeProducer() error {
	err := p.producer.Close()
	<-p.done
	slog.Info("producer closed", slog.String("topic", p.topic), slog.Int64("acked", p.acked.Load()))
	if err != nil {
		return fmt.Errorf("closing producer for %s: %w", p.topic, err)
	}
	return nil
}
