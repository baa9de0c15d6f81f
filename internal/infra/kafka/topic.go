package kafka

import (
	"fmt"
	"regexp"

	"github.com/Shopify/sarama"
)

const (
	_maxTopicNameLength = 249
	_defaultPartitions  = 1
	_defaultReplicas    = 1
)

var legalTopicName = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// TopicSpec describes a topic to provision. It is treated as immutable once
// handed to the provisioner.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	Config            map[string]string
}

// WithDefaults returns a copy where unset partition and replication values
// are replaced by 1.
func (s TopicSpec) WithDefaults() TopicSpec {
	if s.Partitions == 0 {
		s.Partitions = _defaultPartitions
	}
	if s.ReplicationFactor == 0 {
		s.ReplicationFactor = _defaultReplicas
	}
	return s
}

func (s TopicSpec) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: empty topic name", ErrInvalidTopicSpec)
	case s.Name == "." || s.Name == "..":
		return fmt.Errorf("%w: topic name %q is reserved", ErrInvalidTopicSpec, s.Name)
	case len(s.Name) > _maxTopicNameLength:
		return fmt.Errorf("%w: topic name longer than %d characters", ErrInvalidTopicSpec, _maxTopicNameLength)
	case !legalTopicName.MatchString(s.Name):
		return fmt.Errorf("%w: topic name %q contains illegal characters", ErrInvalidTopicSpec, s.Name)
	case s.Partitions <= 0:
		return fmt.Errorf("%w: partitions must be positive, got %d", ErrInvalidTopicSpec, s.Partitions)
	case s.ReplicationFactor <= 0:
		return fmt.Errorf("%w: replication factor must be positive, got %d", ErrInvalidTopicSpec, s.ReplicationFactor)
	}
	return nil
}

func (s TopicSpec) detail() *sarama.TopicDetail {
	detail := &sarama.TopicDetail{
		NumPartitions:     s.Partitions,
		ReplicationFactor: s.ReplicationFactor,
	}
	if len(s.Config) > 0 {
		detail.ConfigEntries = make(map[string]*string, len(s.Config))
		for k, v := range s.Config {
			value := v
			detail.ConfigEntries[k] = &value
		}
	}
	return detail
}
