package kafka

import (
	"context"
	"sort"
	"sync"
)

// TopicRegistry remembers topic names already confirmed to exist on the
// broker. Names are only ever added.
type TopicRegistry interface {
	Contains(ctx context.Context, name string) bool
	Record(ctx context.Context, name string)
	Names(ctx context.Context) []string
}

var _ TopicRegistry = (*MemoryTopicRegistry)(nil)

// MemoryTopicRegistry is a process-local registry safe for concurrent use.
type MemoryTopicRegistry struct {
	names map[string]struct{}
	mutex sync.RWMutex
}

func NewMemoryTopicRegistry() *MemoryTopicRegistry {
	return &MemoryTopicRegistry{
		names: make(map[string]struct{}),
	}
}

func (r *MemoryTopicRegistry) Contains(_ context.Context, name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.names[name]
	return ok
}

func (r *MemoryTopicRegistry) Record(_ context.Context, name string) {
	r.mutex.Lock()
	r.names[name] = struct{}{}
	r.mutex.Unlock()
}

// Names returns the recorded names sorted alphabetically.
func (r *MemoryTopicRegistry) Names(_ context.Context) []string {
	r.mutex.RLock()
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	r.mutex.RUnlock()

	sort.Strings(names)
	return names
}
