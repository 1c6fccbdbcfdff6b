package esdb

import (
	"fmt"

	"github.com/google/uuid"
)

// ReadRequest is the read call sent to the server. Target is either a
// StreamTarget or an AllTarget.
type ReadRequest struct {
	Direction      Direction
	ResolveLinkTos bool
	Target         ReadTarget
	Count          uint64
	Filter         FilterOption
	UUIDOption     UUIDOption
}

// ReadTarget selects what a read walks over.
type ReadTarget interface {
	isReadTarget()
}

// StreamTarget reads a single stream.
type StreamTarget struct {
	Stream   *StreamIdentifier
	Revision StreamPosition
}

func (StreamTarget) isReadTarget() {}

// AllTarget reads the whole log.
type AllTarget struct {
	Position AllPosition
}

func (AllTarget) isReadTarget() {}

// FilterOption is either NoFilter or a *SubscriptionFilter. The server
// requires one of them to be set explicitly.
type FilterOption interface {
	isFilterOption()
}

// NoFilter asks the server not to filter.
type NoFilter struct{}

func (NoFilter) isFilterOption() {}

// FilterType selects what a SubscriptionFilter matches against.
type FilterType int

const (
	StreamFilter FilterType = iota
	EventFilter
)

// SubscriptionFilter restricts a whole-log read to matching streams or
// event types. Either Prefixes or Regex is set.
type SubscriptionFilter struct {
	Type     FilterType
	Prefixes []string
	Regex    string

	// MaxSearchWindow bounds how many events the server scans between
	// checkpoints. Zero lets the server pick.
	MaxSearchWindow uint32

	CheckpointIntervalMultiplier uint32
}

func (*SubscriptionFilter) isFilterOption() {}

// ExcludeSystemEventsFilter skips events whose type starts with "$".
func ExcludeSystemEventsFilter() *SubscriptionFilter {
	return &SubscriptionFilter{
		Type:  EventFilter,
		Regex: "^[^\\$].*",
	}
}

// UUIDOption selects how the server encodes event ids.
type UUIDOption int

const (
	UUIDStructured UUIDOption = iota
	UUIDString
)

// Response is one message of a read response stream. It is one of
// *ConfirmationResponse, *CheckpointResponse, *EventResponse or
// *StreamNotFoundResponse.
type Response interface {
	isResponse()
}

// ConfirmationResponse acknowledges that the read session was established.
type ConfirmationResponse struct {
	SubscriptionID string
}

// CheckpointResponse marks a safe resumption point in the log.
type CheckpointResponse struct {
	CommitPosition  uint64
	PreparePosition uint64
}

// EventResponse carries one event and, when links were resolved, the link.
type EventResponse struct {
	Event *RecordedEvent
	Link  *RecordedEvent

	// CommitPosition is nil when the server sent no_position.
	CommitPosition *uint64
}

// StreamNotFoundResponse reports that the requested stream does not exist.
type StreamNotFoundResponse struct {
	Stream *StreamIdentifier
}

func (*ConfirmationResponse) isResponse()   {}
func (*CheckpointResponse) isResponse()     {}
func (*EventResponse) isResponse()          {}
func (*StreamNotFoundResponse) isResponse() {}

// RecordedEvent is the wire form of a stored event.
type RecordedEvent struct {
	ID               uuid.UUID
	StreamIdentifier *StreamIdentifier
	StreamRevision   uint64
	PreparePosition  uint64
	CommitPosition   uint64
	Metadata         map[string]string
	CustomMetadata   []byte
	Data             []byte
}

// ResponseKind names the case of a Response, for logs and metrics.
func ResponseKind(r Response) string {
	switch r.(type) {
	case *ConfirmationResponse:
		return "confirmation"
	case *CheckpointResponse:
		return "checkpoint"
	case *EventResponse:
		return "event"
	case *StreamNotFoundResponse:
		return "stream_not_found"
	default:
		return fmt.Sprintf("%T", r)
	}
}
