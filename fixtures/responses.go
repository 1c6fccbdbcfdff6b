package fixtures

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/terraskye/esdb"
)

// Created is the creation time stamped on every fixture event.
var Created = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// Recorded builds a recorded event of stream at revision. Its log position
// is derived from the revision.
func Recorded(stream string, revision uint64, eventType string) *esdb.RecordedEvent {
	return &esdb.RecordedEvent{
		ID:               uuid.New(),
		StreamIdentifier: esdb.NewStreamIdentifier(stream),
		StreamRevision:   revision,
		PreparePosition:  position(revision),
		CommitPosition:   position(revision),
		Metadata: map[string]string{
			esdb.MetadataType:        eventType,
			esdb.MetadataContentType: esdb.ContentTypeJSON,
			esdb.MetadataCreated:     strconv.FormatInt(esdb.TimeToTicks(Created), 10),
		},
		Data: []byte(fmt.Sprintf(`{"revision":%d}`, revision)),
	}
}

// Event builds an event message for stream at revision.
func Event(stream string, revision uint64, eventType string) *esdb.EventResponse {
	event := Recorded(stream, revision, eventType)
	commit := event.CommitPosition
	return &esdb.EventResponse{Event: event, CommitPosition: &commit}
}

// Events builds event messages for revisions from..from+n-1 of stream.
func Events(stream string, from uint64, n int) []esdb.Response {
	responses := make([]esdb.Response, 0, n)
	for i := 0; i < n; i++ {
		responses = append(responses, Event(stream, from+uint64(i), "OrderLineAdded"))
	}
	return responses
}

// Link builds a resolved link message: the link at linkRevision of
// linkStream pointing to revision of stream.
func Link(linkStream string, linkRevision uint64, stream string, revision uint64) *esdb.EventResponse {
	resp := Event(stream, revision, "OrderLineAdded")
	resp.Link = Recorded(linkStream, linkRevision, "$>")
	resp.Link.Data = []byte(fmt.Sprintf("%d@%s", revision, stream))
	return resp
}

// EventWithoutPosition builds an event message carrying no_position.
func EventWithoutPosition(stream string, revision uint64) *esdb.EventResponse {
	return &esdb.EventResponse{Event: Recorded(stream, revision, "OrderLineAdded")}
}

// EventWithoutRecord builds a malformed event message that lacks its event.
func EventWithoutRecord() *esdb.EventResponse {
	return &esdb.EventResponse{}
}

func Confirmation(id string) *esdb.ConfirmationResponse {
	return &esdb.ConfirmationResponse{SubscriptionID: id}
}

func Checkpoint(commit uint64) *esdb.CheckpointResponse {
	return &esdb.CheckpointResponse{CommitPosition: commit, PreparePosition: commit}
}

func NotFound(stream string) *esdb.StreamNotFoundResponse {
	return &esdb.StreamNotFoundResponse{Stream: esdb.NewStreamIdentifier(stream)}
}

func position(revision uint64) uint64 {
	return 1000 + revision*100
}
