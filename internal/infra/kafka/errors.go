package kafka

import (
	"errors"
	"fmt"

	"github.com/Shopify/sarama"
)

var (
	ErrInvalidTopicSpec  = errors.New("invalid topic spec")
	ErrBrokerUnreachable = errors.New("kafka broker unreachable")
)

// ProvisionError is returned when the broker rejects a create-topic request
// for any reason other than the topic already existing.
type ProvisionError struct {
	Topic string
	Cause error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning topic %s: %v", e.Topic, e.Cause)
}

func (e *ProvisionError) Unwrap() error {
	return e.Cause
}

func isTopicAlreadyExists(err error) bool {
	if errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return true
	}
	var topicErr *sarama.TopicError
	return errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists
}
