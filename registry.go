package esdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnregisteredEvent is returned when decoding an event whose type has no
// registered factory.
var ErrUnregisteredEvent = errors.New("esdb: event type not registered")

// Registry maps event types to factories of the Go values their payloads
// decode into. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() any
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]func() any{}}
}

// Register adds a factory for eventType. The factory must return a new
// pointer on every call.
//
// Register panics if fn is nil, if fn returns nil or if eventType is
// already registered.
//
//	registry.Register("OrderPlaced", func() any { return &OrderPlaced{} })
func (r *Registry) Register(eventType string, fn func() any) {
	if fn == nil {
		panic("cannot register nil factory")
	}
	if fn() == nil {
		panic(fmt.Sprintf("factory returned nil for event: %s", eventType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[eventType]; exists {
		panic(fmt.Sprintf("event already registered: %s", eventType))
	}
	r.factories[eventType] = fn
}

// New returns a fresh value for eventType.
func (r *Registry) New(eventType string) (any, error) {
	r.mu.RLock()
	factory, ok := r.factories[eventType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredEvent, eventType)
	}
	return factory(), nil
}

// Decode unmarshals the JSON payload of record into a value of its
// registered type.
func (r *Registry) Decode(record *EventRecord) (any, error) {
	v, err := r.New(record.EventType)
	if err != nil {
		return nil, err
	}

	if !isJSON(record.ContentType) {
		return nil, fmt.Errorf("esdb: decode %s@%d: content type %q is not JSON", record.StreamID, record.EventNumber, record.ContentType)
	}
	if err := json.Unmarshal(record.Data, v); err != nil {
		return nil, fmt.Errorf("esdb: decode %s@%d: %w", record.StreamID, record.EventNumber, err)
	}
	return v, nil
}

// DecodeResolved decodes the event a read delivered, following the link
// when one was resolved.
func (r *Registry) DecodeResolved(event *ResolvedEvent) (any, error) {
	return r.Decode(event.Event)
}

func isJSON(contentType string) bool {
	// Servers that predate the content-type key leave it empty.
	return contentType == "" || strings.HasPrefix(contentType, ContentTypeJSON)
}
