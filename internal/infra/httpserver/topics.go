package httpserver

import (
	"context"
	"net/http"
	"strings"

	"avro-producer/internal/infra/pubsub"

	"go.opentelemetry.io/otel/attribute"
)

type TopicLister interface {
	Contains(ctx context.Context, name string) bool
	Names(ctx context.Context) []string
}

type TopicResponse struct {
	Name  string        `json:"name"`
	State string        `json:"state,omitempty"`
	Stats *pubsub.Stats `json:"stats,omitempty"`
}

type TopicListResponse struct {
	Data []TopicResponse `json:"data"`
}

// TopicController exposes the provisioned topics and the delivery stats of
// the publishers writing to them.
type TopicController struct {
	registry   TopicLister
	publishers func() []pubsub.Publisher
}

func NewTopicController(registry TopicLister, publishers func() []pubsub.Publisher) *TopicController {
	if publishers == nil {
		publishers = func() []pubsub.Publisher { return nil }
	}
	return &TopicController{registry: registry, publishers: publishers}
}

func (c *TopicController) AddRoutes(router *http.ServeMux) {
	router.Handle("GET /topics", c.listTopics())
	router.Handle("GET /topics/{name}", c.getTopic())
}

func (c *TopicController) listTopics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := GetQueryParam(r, "prefix")
		byTopic := c.byTopic()

		data := make([]TopicResponse, 0)
		for _, name := range c.registry.Names(r.Context()) {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			data = append(data, toTopicResponse(name, byTopic[name]))
		}

		ReplyJSONResponse(w, http.StatusOK, TopicListResponse{Data: data})
	}
}

func (c *TopicController) getTopic() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := GetPathParam(r, "name")
		GetSpanFromContext(r).SetAttributes(attribute.String("topic", name))

		if !c.registry.Contains(r.Context(), name) {
			ReplyWithError(w, http.StatusNotFound, "topic not found")
			return
		}

		ReplyJSONResponse(w, http.StatusOK, toTopicResponse(name, c.byTopic()[name]))
	}
}

func (c *TopicController) byTopic() map[string]pubsub.Publisher {
	out := make(map[string]pubsub.Publisher)
	for _, p := range c.publishers() {
		out[p.Topic()] = p
	}
	return out
}

func toTopicResponse(name string, publisher pubsub.Publisher) TopicResponse {
	response := TopicResponse{Name: name}
	if publisher != nil {
		stats := publisher.Stats()
		response.State = publisher.State().String()
		response.Stats = &stats
	}
	return response
}
