package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lovoo/goka"
)

// Decoder turns a Confluent framed payload back into native avro data.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (any, error)
}

// framedCodec lets goka hand over framed payloads for decoding. Encoding
// only accepts payloads that are already framed.
type framedCodec struct {
	decoder Decoder
}

func (c framedCodec) Encode(value any) ([]byte, error) {
	data, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedValue, value)
	}
	return data, nil
}

func (c framedCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return c.decoder.Decode(context.Background(), data)
}

var _ Consumer = (*KafkaConsumer)(nil)

type KafkaConsumerOptions struct {
	Brokers []string
	Group   string
	// Decoder decodes keys, and values unless ValueDecoder is set.
	Decoder      Decoder
	ValueDecoder Decoder
	// ProcessorOptions are passed to goka.NewProcessor.
	ProcessorOptions []goka.ProcessorOption
}

type KafkaConsumer struct {
	brokers []string
	group   goka.Group
	keys    Decoder
	codec   framedCodec
	options []goka.ProcessorOption
}

func NewKafkaConsumer(opts KafkaConsumerOptions) *KafkaConsumer {
	if opts.ValueDecoder == nil {
		opts.ValueDecoder = opts.Decoder
	}
	return &KafkaConsumer{
		brokers: opts.Brokers,
		group:   goka.Group(opts.Group),
		keys:    opts.Decoder,
		codec:   framedCodec{decoder: opts.ValueDecoder},
		options: opts.ProcessorOptions,
	}
}

// Tail runs a processor on topic and calls handler for every record until
// ctx is done. Handler errors are logged and do not stop the processor.
func (c *KafkaConsumer) Tail(ctx context.Context, topic string, handler RecordHandler) error {
	graph := goka.DefineGroup(c.group,
		goka.Input(goka.Stream(topic), c.codec, c.callback(topic, handler)),
	)
	processor, err := goka.NewProcessor(c.brokers, graph, c.options...)
	if err != nil {
		return fmt.Errorf("creating processor for %s: %w", topic, err)
	}

	slog.Info("tailing topic", slog.String("topic", topic), slog.String("group", string(c.group)))
	if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tailing %s: %w", topic, err)
	}
	return nil
}

func (c *KafkaConsumer) callback(topic string, handler RecordHandler) goka.ProcessCallback {
	return func(gctx goka.Context, msg any) {
		headers := map[string][]byte(gctx.Headers())
		recordCtx := ExtractTraceHeaders(gctx.Context(), headers)
		recordCtx, span := CreateChildSpan(recordCtx, "kafka.consume")
		defer span.End()

		record := ConsumedRecord{
			Topic:     topic,
			Key:       c.decodeKey(recordCtx, gctx.Key()),
			Value:     msg,
			Timestamp: gctx.Timestamp(),
			Headers:   headers,
		}
		if err := handler(recordCtx, record); err != nil {
			slog.Error("handling record",
				slog.String("topic", topic),
				slog.Int64("offset", gctx.Offset()),
				slog.Any("error", err))
		}
	}
}

// decodeKey decodes framed keys and falls back to the raw key.
func (c *KafkaConsumer) decodeKey(ctx context.Context, key string) any {
	if key == "" {
		return nil
	}
	decoded, err := c.keys.Decode(ctx, []byte(key))
	if err != nil {
		return key
	}
	return decoded
}
