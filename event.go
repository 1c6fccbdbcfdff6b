package esdb

import (
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// System metadata keys set by the server on every recorded event.
const (
	MetadataType        = "type"
	MetadataContentType = "content-type"
	MetadataCreated     = "created"
)

// Content types reported in the content-type metadata key.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
)

// EventRecord is a single event as it is stored in a stream.
type EventRecord struct {
	StreamID    string
	EventID     uuid.UUID
	EventNumber uint64
	Position    Position
	EventType   string
	ContentType string
	CreatedDate time.Time

	// Metadata holds the system metadata the server attached to the event.
	Metadata     map[string]string
	Data         []byte
	UserMetadata []byte
}

// ResolvedEvent is an event delivered by a read. When links were resolved,
// Event is the target of the link and Link is the link event itself.
type ResolvedEvent struct {
	Event *EventRecord
	Link  *EventRecord

	// CommitPosition is nil when the server did not report a position.
	CommitPosition *uint64
}

// OriginalEvent returns the event that was actually read from the stream:
// the link when one was resolved, the event otherwise.
func (r *ResolvedEvent) OriginalEvent() *EventRecord {
	if r.Link != nil {
		return r.Link
	}
	return r.Event
}

// OriginalStreamID returns the stream the original event was read from.
func (r *ResolvedEvent) OriginalStreamID() string {
	return r.OriginalEvent().StreamID
}

// OriginalEventNumber returns the revision of the original event in its stream.
func (r *ResolvedEvent) OriginalEventNumber() uint64 {
	return r.OriginalEvent().EventNumber
}

func newEventRecord(e *RecordedEvent) *EventRecord {
	record := &EventRecord{
		StreamID:     e.StreamIdentifier.String(),
		EventID:      e.ID,
		EventNumber:  e.StreamRevision,
		Position:     Position{Commit: e.CommitPosition, Prepare: e.PreparePosition},
		EventType:    e.Metadata[MetadataType],
		ContentType:  e.Metadata[MetadataContentType],
		Metadata:     e.Metadata,
		Data:         e.Data,
		UserMetadata: e.CustomMetadata,
	}

	if created, ok := e.Metadata[MetadataCreated]; ok {
		if ticks, err := strconv.ParseInt(created, 10, 64); err == nil && ticksInRange(ticks) {
			record.CreatedDate = TicksToTime(ticks)
		}
	}

	return record
}

const (
	ticksPerSecond = 10_000_000
	maxTicks       = math.MaxInt64 / 100
	minTicks       = math.MinInt64 / 100
)

// ticksInRange reports whether ticks maps to a time whose UnixNano is
// representable, which keeps TimeToTicks an exact inverse.
func ticksInRange(ticks int64) bool {
	return ticks >= minTicks && ticks <= maxTicks
}

// TicksToTime converts the server's creation timestamp, expressed in 100ns
// ticks since the Unix epoch, to a time.Time.
func TicksToTime(ticks int64) time.Time {
	return time.Unix(ticks/ticksPerSecond, ticks%ticksPerSecond*100).UTC()
}

// TimeToTicks is the inverse of TicksToTime.
func TimeToTicks(t time.Time) int64 {
	return t.UnixNano() / 100
}
