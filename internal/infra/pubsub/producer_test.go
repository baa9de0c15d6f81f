package pubsub_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"avro-producer/internal/infra/pubsub"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

// stubProducer records every message and acknowledges it only when ack is
// set.
type stubProducer struct {
	ack       bool
	input     chan *sarama.ProducerMessage
	successes chan *sarama.ProducerMessage
	errors    chan *sarama.ProducerError
	stopped   chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	received    []*sarama.ProducerMessage
	asyncClosed bool
}

func newStubProducer(ack bool) *stubProducer {
	s := &stubProducer{
		ack:       ack,
		input:     make(chan *sarama.ProducerMessage),
		successes: make(chan *sarama.ProducerMessage, 1024),
		errors:    make(chan *sarama.ProducerError, 1024),
		stopped:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *stubProducer) run() {
	defer close(s.stopped)
	for msg := range s.input {
		s.mu.Lock()
		s.received = append(s.received, msg)
		s.mu.Unlock()
		if s.ack {
			s.successes <- msg
		}
	}
	close(s.successes)
	close(s.errors)
}

func (s *stubProducer) Input() chan<- *sarama.ProducerMessage { return s.input }
func (s *stubProducer) Successes() <-chan *sarama.ProducerMessage { return s.successes }
func (s *stubProducer) Errors() <-chan *sarama.ProducerError { return s.errors }

func (s *stubProducer) AsyncClose() {
	s.mu.Lock()
	s.asyncClosed = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.input) })
}

func (s *stubProducer) Close() error {
	s.closeOnce.Do(func() { close(s.input) })
	<-s.stopped
	return nil
}

func (s *stubProducer) messages() []*sarama.ProducerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sarama.ProducerMessage(nil), s.received...)
}

func (s *stubProducer) wasAsyncClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asyncClosed
}

// stalledProducer never reads its input, like a producer stuck on broker
// backpressure.
type stalledProducer struct {
	input     chan *sarama.ProducerMessage
	successes chan *sarama.ProducerMessage
	errors    chan *sarama.ProducerError
	closeOnce sync.Once
}

func newStalledProducer() *stalledProducer {
	return &stalledProducer{
		input:     make(chan *sarama.ProducerMessage),
		successes: make(chan *sarama.ProducerMessage),
		errors:    make(chan *sarama.ProducerError),
	}
}

func (s *stalledProducer) Input() chan<- *sarama.ProducerMessage { return s.input }
func (s *stalledProducer) Successes() <-chan *sarama.ProducerMessage { return s.successes }
func (s *stalledProducer) Errors() <-chan *sarama.ProducerError { return s.errors }
func (s *stalledProducer) AsyncClose() { s.stop() }

func (s *stalledProducer) Close() error {
	s.stop()
	return nil
}

func (s *stalledProducer) stop() {
	s.closeOnce.Do(func() {
		close(s.successes)
		close(s.errors)
	})
}

func mockConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	return config
}

var _ = ginkgo.Describe("KafkaPublisher", func() {
	var ctx context.Context

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
	})

	ginkgo.Context("with a healthy broker", func() {
		var (
			producer  *mocks.AsyncProducer
			publisher *pubsub.KafkaPublisher
		)

		ginkgo.BeforeEach(func() {
			producer = mocks.NewAsyncProducer(ginkgo.GinkgoT(), mockConfig())
			publisher = pubsub.NewKafkaPublisher(producer, pubsub.KafkaPublisherOptions{
				Topic:        "arrivals",
				FlushTimeout: time.Second,
			})
		})

		ginkgo.It("should start open", func() {
			gomega.Expect(publisher.State()).To(gomega.Equal(pubsub.StateOpen))
			gomega.Expect(publisher.Topic()).To(gomega.Equal("arrivals"))
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())
		})

		ginkgo.It("should flush acknowledged records on close", func() {
			producer.ExpectInputAndSucceed()
			producer.ExpectInputAndSucceed()

			gomega.Expect(publisher.Publish(ctx, "k1", []byte("v1"))).To(gomega.Succeed())
			gomega.Expect(publisher.Publish(ctx, "k2", "v2")).To(gomega.Succeed())
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())

			gomega.Expect(publisher.State()).To(gomega.Equal(pubsub.StateClosed))
			gomega.Expect(publisher.Stats()).To(gomega.Equal(pubsub.Stats{Sent: 2, Acked: 2}))
		})

		ginkgo.It("should count failed deliveries without failing the send", func() {
			producer.ExpectInputAndFail(sarama.ErrNotLeaderForPartition)

			gomega.Expect(publisher.Publish(ctx, "k1", nil)).To(gomega.Succeed())
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())

			gomega.Expect(publisher.Stats()).To(gomega.Equal(pubsub.Stats{Sent: 1, Failed: 1}))
		})

		ginkgo.It("should reject sends after close", func() {
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())

			err := publisher.Publish(ctx, "k1", "v1")
			gomega.Expect(errors.Is(err, pubsub.ErrPublisherClosed)).To(gomega.BeTrue())
		})

		ginkgo.It("should treat a second close as a no-op", func() {
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())
			gomega.Expect(publisher.State()).To(gomega.Equal(pubsub.StateClosed))
		})

		ginkgo.It("should reject values it cannot send without a value schema", func() {
			err := publisher.Publish(ctx, "k1", map[string]any{"line": "blue"})

			gomega.Expect(errors.Is(err, pubsub.ErrUnsupportedValue)).To(gomega.BeTrue())
			gomega.Expect(publisher.Stats().Sent).To(gomega.BeZero())
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())
		})
	})

	ginkgo.Context("record contents", func() {
		var (
			stub      *stubProducer
			publisher *pubsub.KafkaPublisher
		)

		ginkgo.BeforeEach(func() {
			stub = newStubProducer(true)
			publisher = pubsub.NewKafkaPublisher(stub, pubsub.KafkaPublisherOptions{Topic: "arrivals"})
		})

		ginkgo.AfterEach(func() {
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())
		})

		ginkgo.It("should stamp records with the current time by default", func() {
			before := time.Now().Truncate(time.Millisecond)
			gomega.Expect(publisher.Publish(ctx, "k1", "v1")).To(gomega.Succeed())
			after := time.Now()

			gomega.Eventually(stub.messages).Should(gomega.HaveLen(1))
			ts := stub.messages()[0].Timestamp
			gomega.Expect(ts).To(gomega.BeTemporally(">=", before))
			gomega.Expect(ts).To(gomega.BeTemporally("<=", after))
		})

		ginkgo.It("should keep an explicit timestamp", func() {
			at := time.UnixMilli(1700000000000)
			gomega.Expect(publisher.Produce(ctx, pubsub.Record{Key: "k1", Value: "v1", Timestamp: at})).To(gomega.Succeed())

			gomega.Eventually(stub.messages).Should(gomega.HaveLen(1))
			gomega.Expect(stub.messages()[0].Timestamp).To(gomega.Equal(at))
		})

		ginkgo.It("should send the key and value bytes to the topic", func() {
			gomega.Expect(publisher.Publish(ctx, "k1", []byte("v1"))).To(gomega.Succeed())

			gomega.Eventually(stub.messages).Should(gomega.HaveLen(1))
			msg := stub.messages()[0]
			gomega.Expect(msg.Topic).To(gomega.Equal("arrivals"))
			gomega.Expect(msg.Key).To(gomega.Equal(sarama.ByteEncoder("k1")))
			gomega.Expect(msg.Value).To(gomega.Equal(sarama.ByteEncoder("v1")))
		})

		ginkgo.It("should carry the trace context in record headers", func() {
			tp := trace.NewTracerProvider()
			otel.SetTracerProvider(tp)
			defer func() { _ = tp.Shutdown(context.Background()) }()
			spanCtx, span := tp.Tracer("test").Start(ctx, "arrival")
			defer span.End()

			gomega.Expect(publisher.Publish(spanCtx, "k1", "v1")).To(gomega.Succeed())

			gomega.Eventually(stub.messages).Should(gomega.HaveLen(1))
			traceparent := headerValue(stub.messages()[0].Headers, "traceparent")
			gomega.Expect(traceparent).To(gomega.ContainSubstring(span.SpanContext().TraceID().String()))
		})

		ginkgo.It("should accept concurrent sends", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer ginkgo.GinkgoRecover()
					gomega.Expect(publisher.Publish(ctx, "k", "v")).To(gomega.Succeed())
				}()
			}
			wg.Wait()

			gomega.Eventually(publisher.Stats).Should(gomega.Equal(pubsub.Stats{Sent: 20, Acked: 20}))
		})
	})

	ginkgo.Context("with a broker that never acknowledges", func() {
		var (
			stub      *stubProducer
			publisher *pubsub.KafkaPublisher
		)

		ginkgo.BeforeEach(func() {
			stub = newStubProducer(false)
			publisher = pubsub.NewKafkaPublisher(stub, pubsub.KafkaPublisherOptions{
				Topic:        "arrivals",
				FlushTimeout: 50 * time.Millisecond,
			})
		})

		ginkgo.It("should give up after the flush timeout and report dropped records", func() {
			gomega.Expect(publisher.Publish(ctx, "k1", "v1")).To(gomega.Succeed())
			gomega.Expect(publisher.Publish(ctx, "k2", "v2")).To(gomega.Succeed())

			started := time.Now()
			err := publisher.Close(ctx)

			var flushErr *pubsub.FlushTimeoutError
			gomega.Expect(errors.As(err, &flushErr)).To(gomega.BeTrue())
			gomega.Expect(flushErr.Topic).To(gomega.Equal("arrivals"))
			gomega.Expect(flushErr.Dropped).To(gomega.Equal(int64(2)))
			gomega.Expect(flushErr.Timeout).To(gomega.Equal(50 * time.Millisecond))
			gomega.Expect(time.Since(started)).To(gomega.BeNumerically("<", time.Second))
			gomega.Expect(stub.wasAsyncClosed()).To(gomega.BeTrue())
			gomega.Expect(publisher.State()).To(gomega.Equal(pubsub.StateClosed))
		})

		ginkgo.It("should honour a context deadline shorter than the flush timeout", func() {
			publisher = pubsub.NewKafkaPublisher(newStubProducer(false), pubsub.KafkaPublisherOptions{
				Topic:        "arrivals",
				FlushTimeout: time.Minute,
			})
			gomega.Expect(publisher.Publish(ctx, "k1", "v1")).To(gomega.Succeed())

			closeCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()
			started := time.Now()
			err := publisher.Close(closeCtx)

			var flushErr *pubsub.FlushTimeoutError
			gomega.Expect(errors.As(err, &flushErr)).To(gomega.BeTrue())
			gomega.Expect(flushErr.Dropped).To(gomega.Equal(int64(1)))
			gomega.Expect(time.Since(started)).To(gomega.BeNumerically("<", time.Second))
		})

		ginkgo.It("should close cleanly when nothing is pending", func() {
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())
			gomega.Expect(stub.wasAsyncClosed()).To(gomega.BeFalse())
		})

		ginkgo.It("should close cleanly with an expired context when nothing is pending", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			for i := 0; i < 50; i++ {
				acked := newStubProducer(true)
				p := pubsub.NewKafkaPublisher(acked, pubsub.KafkaPublisherOptions{Topic: "arrivals"})

				gomega.Expect(p.Close(cancelled)).To(gomega.Succeed())
				gomega.Expect(p.State()).To(gomega.Equal(pubsub.StateClosed))
				gomega.Expect(acked.wasAsyncClosed()).To(gomega.BeFalse())
			}
			gomega.Expect(publisher.Close(ctx)).To(gomega.Succeed())
		})

		ginkgo.It("should not let a send stuck on the producer input hold up close", func() {
			stalled := newStalledProducer()
			publisher = pubsub.NewKafkaPublisher(stalled, pubsub.KafkaPublisherOptions{
				Topic:        "arrivals",
				FlushTimeout: 50 * time.Millisecond,
			})

			sendErr := make(chan error, 1)
			go func() {
				sendErr <- publisher.Publish(context.Background(), "k1", "v1")
			}()
			gomega.Eventually(func() int64 { return publisher.Stats().Pending }).Should(gomega.Equal(int64(1)))

			closed := make(chan error, 1)
			go func() {
				closed <- publisher.Close(ctx)
			}()

			gomega.Eventually(closed, time.Second).Should(gomega.Receive(gomega.BeNil()))
			gomega.Eventually(sendErr, time.Second).Should(gomega.Receive(gomega.MatchError(pubsub.ErrPublisherClosed)))
			gomega.Expect(publisher.State()).To(gomega.Equal(pubsub.StateClosed))
			gomega.Expect(publisher.Stats()).To(gomega.Equal(pubsub.Stats{}))
		})

		ginkgo.It("should stop a blocked send when its context ends", func() {
			blocked := &stubProducer{
				input:     make(chan *sarama.ProducerMessage),
				successes: make(chan *sarama.ProducerMessage),
				errors:    make(chan *sarama.ProducerError),
				stopped:   make(chan struct{}),
			}
			publisher = pubsub.NewKafkaPublisher(blocked, pubsub.KafkaPublisherOptions{
				Topic:        "arrivals",
				FlushTimeout: 20 * time.Millisecond,
			})

			sendCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			err := publisher.Publish(sendCtx, "k1", "v1")

			gomega.Expect(errors.Is(err, context.DeadlineExceeded)).To(gomega.BeTrue())
			gomega.Expect(publisher.Stats()).To(gomega.Equal(pubsub.Stats{}))
		})
	})
})
