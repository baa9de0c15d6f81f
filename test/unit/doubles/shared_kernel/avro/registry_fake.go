package avro

import (
	"fmt"
	"sync"

	serde "avro-producer/internal/shared_kernel/avro"
)

// FakeSchemaRegistry is an in-memory schema registry. Registering an
// identical definition under a subject returns the existing id.
type FakeSchemaRegistry struct {
	mu        sync.Mutex
	nextID    int
	byID      map[int]serde.RegisteredSchema
	bySubject map[string][]serde.RegisteredSchema
	calls     map[string]int
	failWith  error
}

var _ serde.SchemaRegistry = (*FakeSchemaRegistry)(nil)

func NewFakeSchemaRegistry() *FakeSchemaRegistry {
	return &FakeSchemaRegistry{
		nextID:    1,
		byID:      make(map[int]serde.RegisteredSchema),
		bySubject: make(map[string][]serde.RegisteredSchema),
		calls:     make(map[string]int),
	}
}

// FailWith makes every following call return err.
func (f *FakeSchemaRegistry) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// Calls returns how often method was invoked.
func (f *FakeSchemaRegistry) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeSchemaRegistry) Latest(subject string) (serde.RegisteredSchema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Latest"]++
	if f.failWith != nil {
		return serde.RegisteredSchema{}, f.failWith
	}

	versions := f.bySubject[subject]
	if len(versions) == 0 {
		return serde.RegisteredSchema{}, fmt.Errorf("%w: %s", serde.ErrSchemaNotFound, subject)
	}
	return versions[len(versions)-1], nil
}

func (f *FakeSchemaRegistry) Register(subject string, definition string) (serde.RegisteredSchema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Register"]++
	if f.failWith != nil {
		return serde.RegisteredSchema{}, f.failWith
	}

	for _, existing := range f.bySubject[subject] {
		if existing.Definition == definition {
			return existing, nil
		}
	}
	registered := serde.RegisteredSchema{ID: f.nextID, Subject: subject, Definition: definition}
	f.nextID++
	f.byID[registered.ID] = registered
	f.bySubject[subject] = append(f.bySubject[subject], registered)
	return registered, nil
}

func (f *FakeSchemaRegistry) ByID(id int) (serde.RegisteredSchema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ByID"]++
	if f.failWith != nil {
		return serde.RegisteredSchema{}, f.failWith
	}

	registered, ok := f.byID[id]
	if !ok {
		return serde.RegisteredSchema{}, fmt.Errorf("%w: id %d", serde.ErrSchemaNotFound, id)
	}
	return registered, nil
}
