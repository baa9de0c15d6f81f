package avro

import (
	"context"
	"encoding/binary"
	"fmt"
	"reflect"
	"time"

	"avro-producer/internal/infra/cache"

	hamba "github.com/hamba/avro/v2"
	"github.com/linkedin/goavro/v2"
)

const (
	_magicByte        = 0
	_headerSize       = 5
	_defaultSchemaTTL = 5 * time.Minute
)

type compiledSchema struct {
	id     int
	codec  *goavro.Codec
	schema hamba.Schema
}

func compile(id int, definition string) (*compiledSchema, error) {
	codec, err := goavro.NewCodec(definition)
	if err != nil {
		return nil, fmt.Errorf("%w: id %d: %v", ErrInvalidSchema, id, err)
	}
	schema, err := hamba.Parse(definition)
	if err != nil {
		return nil, fmt.Errorf("%w: id %d: %v", ErrInvalidSchema, id, err)
	}
	return &compiledSchema{id: id, codec: codec, schema: schema}, nil
}

// marshal encodes Go structs through their avro tags and everything else
// (maps, primitives, goavro unions) as goavro native data.
func (s *compiledSchema) marshal(value any) ([]byte, error) {
	if isStruct(value) {
		return hamba.Marshal(s.schema, value)
	}
	return s.codec.BinaryFromNative(nil, value)
}

func isStruct(value any) bool {
	t := reflect.TypeOf(value)
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// Serde resolves schemas against the registry and decodes Confluent framed
// payloads. Schema ids and compiled schemas are cached.
type Serde struct {
	registry SchemaRegistry
	cache    cache.Cache
	ttl      time.Duration
}

func NewSerde(registry SchemaRegistry, store cache.Cache) *Serde {
	return &Serde{
		registry: registry,
		cache:    store,
		ttl:      _defaultSchemaTTL,
	}
}

// Resolve registers ref (or looks up its latest version) and returns a codec
// bound to the resulting schema id.
func (s *Serde) Resolve(ctx context.Context, ref SchemaRef) (*ConfluentCodec, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("subject:%s:%s", ref.Subject, ref.Definition)
	id, err := cache.Load(ctx, s.cache, key, s.ttl, func() (int, error) {
		var (
			registered RegisteredSchema
			err        error
		)
		if ref.Definition == "" {
			registered, err = s.registry.Latest(ref.Subject)
		} else {
			registered, err = s.registry.Register(ref.Subject, ref.Definition)
		}
		if err != nil {
			return 0, err
		}

		compiled, err := compile(registered.ID, registered.Definition)
		if err != nil {
			return 0, err
		}
		s.cache.Set(ctx, schemaKey(registered.ID), compiled, s.ttl)
		return registered.ID, nil
	})
	if err != nil {
		return nil, err
	}

	compiled, err := s.compiled(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ConfluentCodec{serde: s, subject: ref.Subject, schema: compiled}, nil
}

func (s *Serde) compiled(ctx context.Context, id int) (*compiledSchema, error) {
	return cache.Load(ctx, s.cache, schemaKey(id), s.ttl, func() (*compiledSchema, error) {
		registered, err := s.registry.ByID(id)
		if err != nil {
			return nil, err
		}
		return compile(id, registered.Definition)
	})
}

// Decode returns goavro native data for a framed payload using the schema id
// it carries.
func (s *Serde) Decode(ctx context.Context, data []byte) (any, error) {
	id, payload, err := unframe(data)
	if err != nil {
		return nil, err
	}
	compiled, err := s.compiled(ctx, id)
	if err != nil {
		return nil, err
	}
	native, _, err := compiled.codec.NativeFromBinary(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding avro data with schema %d: %w", id, err)
	}
	return native, nil
}

// Unmarshal decodes a framed payload into target through its avro tags.
func (s *Serde) Unmarshal(ctx context.Context, data []byte, target any) error {
	id, payload, err := unframe(data)
	if err != nil {
		return err
	}
	compiled, err := s.compiled(ctx, id)
	if err != nil {
		return err
	}
	if err := hamba.Unmarshal(compiled.schema, payload, target); err != nil {
		return fmt.Errorf("decoding avro data with schema %d: %w", id, err)
	}
	return nil
}

func schemaKey(id int) string {
	return fmt.Sprintf("schema:%d", id)
}

func frame(id int, payload []byte) []byte {
	out := make([]byte, _headerSize, _headerSize+len(payload))
	out[0] = _magicByte
	binary.BigEndian.PutUint32(out[1:_headerSize], uint32(id))
	return append(out, payload...)
}

func unframe(data []byte) (int, []byte, error) {
	if len(data) < _headerSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrInvalidEnvelope, len(data))
	}
	if data[0] != _magicByte {
		return 0, nil, fmt.Errorf("%w: magic byte %d", ErrInvalidEnvelope, data[0])
	}
	return int(binary.BigEndian.Uint32(data[1:_headerSize])), data[_headerSize:], nil
}

// ConfluentCodec encodes values in the Confluent wire format
// (magic byte, 4 byte big endian schema id, avro binary) with the schema it
// was resolved for. It satisfies goka.Codec.
type ConfluentCodec struct {
	serde   *Serde
	subject string
	schema  *compiledSchema
}

func (c *ConfluentCodec) Subject() string {
	return c.subject
}

func (c *ConfluentCodec) SchemaID() int {
	return c.schema.id
}

func (c *ConfluentCodec) Encode(value any) ([]byte, error) {
	payload, err := c.schema.marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding value for %s: %w", c.subject, err)
	}
	return frame(c.schema.id, payload), nil
}

func (c *ConfluentCodec) Decode(data []byte) (any, error) {
	return c.serde.Decode(context.Background(), data)
}
