package pubsub_test

import (
	"context"

	"avro-producer/internal/infra/pubsub"

	"github.com/Shopify/sarama"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func headerValue(headers []sarama.RecordHeader, key string) string {
	for _, h := range headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

var _ = ginkgo.Describe("Trace Propagation", func() {
	var (
		tp   *trace.TracerProvider
		ctx  context.Context
		span oteltrace.Span
	)

	ginkgo.BeforeEach(func() {
		tp = trace.NewTracerProvider(trace.WithSpanProcessor(tracetest.NewSpanRecorder()))
		otel.SetTracerProvider(tp)
		ctx, span = tp.Tracer("test").Start(context.Background(), "test.span")
	})

	ginkgo.AfterEach(func() {
		span.End()
		_ = tp.Shutdown(context.Background())
	})

	ginkgo.Context("InjectTraceHeaders", func() {
		ginkgo.It("should add a traceparent header carrying the span context", func() {
			headers := pubsub.InjectTraceHeaders(ctx, nil)

			traceparent := headerValue(headers, "traceparent")
			gomega.Expect(traceparent).To(gomega.ContainSubstring(span.SpanContext().TraceID().String()))
			gomega.Expect(traceparent).To(gomega.ContainSubstring(span.SpanContext().SpanID().String()))
		})

		ginkgo.It("should keep caller headers", func() {
			headers := pubsub.InjectTraceHeaders(ctx, map[string][]byte{"source": []byte("cta")})

			gomega.Expect(headerValue(headers, "source")).To(gomega.Equal("cta"))
		})

		ginkgo.It("should add nothing without a span", func() {
			headers := pubsub.InjectTraceHeaders(context.Background(), nil)

			gomega.Expect(headers).To(gomega.BeEmpty())
		})
	})

	ginkgo.Context("ExtractTraceHeaders", func() {
		ginkgo.It("should restore the remote span context from injected headers", func() {
			injected := pubsub.InjectTraceHeaders(ctx, nil)
			headers := make(map[string][]byte, len(injected))
			for _, h := range injected {
				headers[string(h.Key)] = h.Value
			}

			extracted := pubsub.ExtractTraceHeaders(context.Background(), headers)

			remote := oteltrace.SpanContextFromContext(extracted)
			gomega.Expect(remote.IsRemote()).To(gomega.BeTrue())
			gomega.Expect(remote.TraceID()).To(gomega.Equal(span.SpanContext().TraceID()))
		})

		ginkgo.It("should leave the context alone for malformed headers", func() {
			extracted := pubsub.ExtractTraceHeaders(context.Background(), map[string][]byte{
				"traceparent": []byte("not-a-trace"),
			})

			gomega.Expect(oteltrace.SpanContextFromContext(extracted).IsValid()).To(gomega.BeFalse())
		})

		ginkgo.It("should handle missing headers", func() {
			extracted := pubsub.ExtractTraceHeaders(context.Background(), nil)

			gomega.Expect(oteltrace.SpanContextFromContext(extracted).IsValid()).To(gomega.BeFalse())
		})
	})

	ginkgo.Context("CreateChildSpan", func() {
		ginkgo.It("should create a child of the span in the context", func() {
			childCtx, child := pubsub.CreateChildSpan(ctx, "child.span")
			defer child.End()

			gomega.Expect(child.SpanContext().TraceID()).To(gomega.Equal(span.SpanContext().TraceID()))
			gomega.Expect(child.SpanContext().SpanID()).NotTo(gomega.Equal(span.SpanContext().SpanID()))
			gomega.Expect(oteltrace.SpanFromContext(childCtx).SpanContext().SpanID()).To(gomega.Equal(child.SpanContext().SpanID()))
		})
	})
})
