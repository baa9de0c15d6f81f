package avro

import (
	"errors"
	"fmt"

	hamba "github.com/hamba/avro/v2"
)

var (
	ErrInvalidSchema   = errors.New("invalid avro schema")
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrInvalidEnvelope = errors.New("invalid confluent avro envelope")
)

// SchemaRef points at a schema registry subject. When Definition is set the
// schema is registered under Subject, otherwise the latest registered
// version of Subject is used.
type SchemaRef struct {
	Subject    string
	Definition string
}

func KeySubject(topic string) string {
	return topic + "-key"
}

func ValueSubject(topic string) string {
	return topic + "-value"
}

func (r SchemaRef) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidSchema)
	}
	if r.Definition == "" {
		return nil
	}
	if _, err := hamba.Parse(r.Definition); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSchema, r.Subject, err)
	}
	return nil
}

// WithSubject fills an empty subject, leaving an explicit one alone.
func (r SchemaRef) WithSubject(subject string) SchemaRef {
	if r.Subject == "" {
		r.Subject = subject
	}
	return r
}
