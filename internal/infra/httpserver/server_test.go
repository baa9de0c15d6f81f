package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ = ginkgo.Describe("HTTPServer", func() {
	var (
		tp       *trace.TracerProvider
		recorder *tracetest.SpanRecorder
	)

	ginkgo.BeforeEach(func() {
		recorder = tracetest.NewSpanRecorder()
		tp = trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
		otel.SetTracerProvider(tp)
	})

	ginkgo.AfterEach(func() {
		_ = tp.Shutdown(context.Background())
	})

	ginkgo.Context("TracingMiddleware", func() {
		ginkgo.It("should add a span to the request context", func() {
			handler := createTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(GetSpanFromContext(r).SpanContext().HasSpanID()).To(gomega.BeTrue())
				w.WriteHeader(http.StatusTeapot)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusTeapot))
			gomega.Expect(rec.Header().Get("traceparent")).NotTo(gomega.BeEmpty())
			gomega.Expect(recorder.Ended()).To(gomega.HaveLen(1))
		})

		ginkgo.It("should continue a trace started by the caller", func() {
			traceID := "4bf92f3577b34da6a3ce929d0e0e4736"
			var seen string
			handler := createTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetSpanFromContext(r).SpanContext().TraceID().String()
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			gomega.Expect(seen).To(gomega.Equal(traceID))
		})
	})

	ginkgo.Context("GetSpanFromContext", func() {
		ginkgo.It("should return a no-op span when the context has none", func() {
			span := GetSpanFromContext(httptest.NewRequest(http.MethodGet, "/test", nil))

			gomega.Expect(span).NotTo(gomega.BeNil())
			gomega.Expect(span.SpanContext().IsValid()).To(gomega.BeFalse())
		})
	})

	ginkgo.Context("NewServer", func() {
		var server *StandardServer

		ginkgo.BeforeEach(func() {
			server = NewServer(ServerOptions{AllowedOrigins: []string{"http://localhost:5173"}})
		})

		ginkgo.It("should answer health checks", func() {
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var body map[string]string
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
			gomega.Expect(body).To(gomega.HaveKeyWithValue("status", "success"))
			gomega.Expect(body["node_id"]).NotTo(gomega.BeEmpty())
		})

		ginkgo.It("should expose prometheus metrics", func() {
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("go_goroutines"))
		})

		ginkgo.It("should allow configured origins", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", "http://localhost:5173")
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)

			gomega.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(gomega.Equal("http://localhost:5173"))
		})

		ginkgo.It("should not allow other origins", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", "http://evil.example")
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)

			gomega.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(gomega.BeEmpty())
		})

		ginkgo.It("should reject unknown methods on known routes", func() {
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusMethodNotAllowed))
		})
	})
})
