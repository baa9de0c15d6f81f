package avro

import (
	"fmt"
	"time"

	"github.com/riferrei/srclient"
)

// RegisteredSchema is a schema as stored in the registry.
type RegisteredSchema struct {
	ID         int
	Subject    string
	Definition string
}

type SchemaRegistry interface {
	Latest(subject string) (RegisteredSchema, error)
	Register(subject string, definition string) (RegisteredSchema, error)
	ByID(id int) (RegisteredSchema, error)
}

// srclientAPI is the subset of *srclient.SchemaRegistryClient used here.
type srclientAPI interface {
	GetLatestSchema(subject string) (*srclient.Schema, error)
	CreateSchema(subject string, schema string, schemaType srclient.SchemaType, references ...srclient.Reference) (*srclient.Schema, error)
	GetSchema(schemaID int) (*srclient.Schema, error)
}

var _ srclientAPI = (*srclient.SchemaRegistryClient)(nil)

type SchemaRegistryClient struct {
	client srclientAPI
}

var _ SchemaRegistry = (*SchemaRegistryClient)(nil)

func NewSchemaRegistryClient(baseURL string, timeout time.Duration) *SchemaRegistryClient {
	client := srclient.CreateSchemaRegistryClient(baseURL)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &SchemaRegistryClient{client: client}
}

func (c *SchemaRegistryClient) Latest(subject string) (RegisteredSchema, error) {
	schema, err := c.client.GetLatestSchema(subject)
	if err != nil {
		return RegisteredSchema{}, fmt.Errorf("%w: %s: %v", ErrSchemaNotFound, subject, err)
	}
	if schema == nil {
		return RegisteredSchema{}, fmt.Errorf("%w: %s", ErrSchemaNotFound, subject)
	}
	return RegisteredSchema{ID: schema.ID(), Subject: subject, Definition: schema.Schema()}, nil
}

// Register is idempotent on the registry side: registering an identical
// definition returns the existing id.
func (c *SchemaRegistryClient) Register(subject string, definition string) (RegisteredSchema, error) {
	schema, err := c.client.CreateSchema(subject, definition, srclient.Avro)
	if err != nil {
		return RegisteredSchema{}, fmt.Errorf("registering schema under %s: %w", subject, err)
	}
	return RegisteredSchema{ID: schema.ID(), Subject: subject, Definition: definition}, nil
}

func (c *SchemaRegistryClient) ByID(id int) (RegisteredSchema, error) {
	schema, err := c.client.GetSchema(id)
	if err != nil {
		return RegisteredSchema{}, fmt.Errorf("%w: id %d: %v", ErrSchemaNotFound, id, err)
	}
	if schema == nil {
		return RegisteredSchema{}, fmt.Errorf("%w: id %d", ErrSchemaNotFound, id)
	}
	return RegisteredSchema{ID: id, Definition: schema.Schema()}, nil
}
