package pubsub

import (
	"context"

	"github.com/Shopify/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _propagator propagation.TextMapPropagator = propagation.TraceContext{}

// headerCarrier adapts kafka record headers to the otel TextMapCarrier.
type headerCarrier map[string][]byte

func (c headerCarrier) Get(key string) string {
	return string(c[key])
}

func (c headerCarrier) Set(key, value string) {
	c[key] = []byte(value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// InjectTraceHeaders adds the span context of ctx to headers and returns them
// as sarama record headers.
func InjectTraceHeaders(ctx context.Context, headers map[string][]byte) []sarama.RecordHeader {
	carrier := headerCarrier{}
	for k, v := range headers {
		carrier[k] = v
	}
	_propagator.Inject(ctx, carrier)

	if len(carrier) == 0 {
		return nil
	}
	out := make([]sarama.RecordHeader, 0, len(carrier))
	for k, v := range carrier {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: v})
	}
	return out
}

// ExtractTraceHeaders returns ctx carrying the remote span context found in
// headers. Without trace headers ctx is returned unchanged.
func ExtractTraceHeaders(ctx context.Context, headers map[string][]byte) context.Context {
	return _propagator.Extract(ctx, headerCarrier(headers))
}

// CreateChildSpan starts a span as a child of the one in ctx.
func CreateChildSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(_tracerName).Start(ctx, name, opts...)
}
