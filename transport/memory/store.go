// Package memory is an in-memory event log that serves reads the way the
// server does. It is used in tests and as the backend of esgrpctest.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraskye/esdb"
)

// LinkEventType is the event type of link events. Their data is
// "<revision>@<stream>".
const LinkEventType = "$>"

// Events are laid out in the log as if each took a fixed header plus its
// payload, so positions grow like real log offsets.
const recordHeaderSize = 64

// EventData is an event to append.
type EventData struct {
	EventID     uuid.UUID
	EventType   string
	ContentType string
	Data        []byte
	Metadata    []byte
}

type options struct {
	now          func() time.Time
	confirmation bool
}

// Option configures a Store.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (o optionFunc) apply(opts *options) {
	o(opts)
}

// WithClock sets the clock used for the created metadata of appended events.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(opts *options) {
		opts.now = now
	})
}

// WithConfirmation makes every read start with a confirmation message, as
// subscriptions do.
func WithConfirmation() Option {
	return optionFunc(func(opts *options) {
		opts.confirmation = true
	})
}

// Store is an in-memory event log. It implements esdb.Transport.
type Store struct {
	opts options

	mu       sync.RWMutex
	streams  map[string][]*esdb.RecordedEvent
	log      []*esdb.RecordedEvent
	position uint64
}

var _ esdb.Transport = (*Store)(nil)

func NewStore(opts ...Option) *Store {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &Store{
		opts:    o,
		streams: make(map[string][]*esdb.RecordedEvent),
	}
}

// Append adds events to the end of stream and returns the revision of the
// last one. Appending no events creates nothing.
func (s *Store) Append(ctx context.Context, stream string, events ...EventData) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if stream == "" {
		return 0, &esdb.InvalidArgumentError{Name: "stream", Reason: "must not be empty"}
	}
	if len(events) == 0 {
		return 0, fmt.Errorf("append to stream %q: no events", stream)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := strconv.FormatInt(esdb.TimeToTicks(s.opts.now()), 10)
	id := esdb.NewStreamIdentifier(stream)

	for _, event := range events {
		eventID := event.EventID
		if eventID == uuid.Nil {
			eventID = uuid.New()
		}
		contentType := event.ContentType
		if contentType == "" {
			contentType = esdb.ContentTypeJSON
		}

		recorded := &esdb.RecordedEvent{
			ID:               eventID,
			StreamIdentifier: id,
			StreamRevision:   uint64(len(s.streams[stream])),
			PreparePosition:  s.position,
			CommitPosition:   s.position,
			Metadata: map[string]string{
				esdb.MetadataType:        event.EventType,
				esdb.MetadataContentType: contentType,
				esdb.MetadataCreated:     created,
			},
			CustomMetadata: event.Metadata,
			Data:           event.Data,
		}

		s.streams[stream] = append(s.streams[stream], recorded)
		s.log = append(s.log, recorded)
		s.position += uint64(recordHeaderSize + len(event.Data) + len(event.Metadata))
	}

	return uint64(len(s.streams[stream]) - 1), nil
}

// AppendLink appends to stream a link to the event at revision of target.
// The target does not need to exist.
func (s *Store) AppendLink(ctx context.Context, stream, target string, revision uint64) (uint64, error) {
	return s.Append(ctx, stream, EventData{
		EventType:   LinkEventType,
		ContentType: esdb.ContentTypeBinary,
		Data:        []byte(fmt.Sprintf("%d@%s", revision, target)),
	})
}

// Read serves req from a snapshot of the log taken when the call opens.
func (s *Store) Read(ctx context.Context, req *esdb.ReadRequest, _ esdb.CallOptions) (esdb.ResponseSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var responses []esdb.Response
	var err error
	switch target := req.Target.(type) {
	case esdb.StreamTarget:
		responses, err = s.readStream(req, target)
	case esdb.AllTarget:
		responses, err = s.readAll(req, target)
	default:
		return nil, &esdb.InvalidArgumentError{Name: "target", Reason: fmt.Sprintf("unsupported target %T", req.Target)}
	}
	if err != nil {
		return nil, err
	}

	return &source{ctx: ctx, responses: responses}, nil
}

func (s *Store) readStream(req *esdb.ReadRequest, target esdb.StreamTarget) ([]esdb.Response, error) {
	name := target.Stream.String()
	events, ok := s.streams[name]
	if !ok {
		return []esdb.Response{&esdb.StreamNotFoundResponse{Stream: target.Stream}}, nil
	}

	responses := s.confirm(nil)

	var indexes []int
	switch req.Direction {
	case esdb.Forwards:
		from := 0
		switch revision := target.Revision.(type) {
		case esdb.End:
			from = len(events)
		case esdb.Revision:
			from = clamp(uint64(revision), len(events))
		}
		for i := from; i < len(events); i++ {
			indexes = append(indexes, i)
		}
	case esdb.Backwards:
		from := len(events) - 1
		switch revision := target.Revision.(type) {
		case esdb.Start:
			from = 0
		case esdb.Revision:
			from = min(clamp(uint64(revision), len(events)), len(events)-1)
		}
		for i := from; i >= 0; i-- {
			indexes = append(indexes, i)
		}
	}

	for n, i := range indexes {
		if uint64(n) >= req.Count {
			break
		}
		responses = append(responses, s.eventResponse(events[i], req.ResolveLinkTos))
	}
	return responses, nil
}

func (s *Store) readAll(req *esdb.ReadRequest, target esdb.AllTarget) ([]esdb.Response, error) {
	filter, err := newMatcher(req.Filter)
	if err != nil {
		return nil, err
	}

	responses := s.confirm(nil)

	var indexes []int
	switch req.Direction {
	case esdb.Forwards:
		from := 0
		switch position := target.Position.(type) {
		case esdb.End:
			from = len(s.log)
		case esdb.Position:
			from = s.firstAtOrAfter(position.Commit)
		}
		for i := from; i < len(s.log); i++ {
			indexes = append(indexes, i)
		}
	case esdb.Backwards:
		from := len(s.log) - 1
		switch position := target.Position.(type) {
		case esdb.Start:
			from = -1
		case esdb.Position:
			from = s.firstAtOrAfter(position.Commit) - 1
		}
		for i := from; i >= 0; i-- {
			indexes = append(indexes, i)
		}
	}

	delivered := uint64(0)
	scanned := 0
	for _, i := range indexes {
		if delivered >= req.Count {
			break
		}
		event := s.log[i]
		scanned++

		if filter.match(event) {
			responses = append(responses, s.eventResponse(event, req.ResolveLinkTos))
			delivered++
		}

		if filter.interval > 0 && scanned%filter.interval == 0 {
			responses = append(responses, &esdb.CheckpointResponse{
				CommitPosition:  event.CommitPosition,
				PreparePosition: event.PreparePosition,
			})
		}
	}

	return responses, nil
}

func (s *Store) confirm(responses []esdb.Response) []esdb.Response {
	if !s.opts.confirmation {
		return responses
	}
	return append(responses, &esdb.ConfirmationResponse{SubscriptionID: uuid.NewString()})
}

func (s *Store) firstAtOrAfter(commit uint64) int {
	for i, event := range s.log {
		if event.CommitPosition >= commit {
			return i
		}
	}
	return len(s.log)
}

// eventResponse builds the event message for event, resolving it when it is
// a link and links are resolved.
func (s *Store) eventResponse(event *esdb.RecordedEvent, resolveLinks bool) *esdb.EventResponse {
	commit := event.CommitPosition
	resp := &esdb.EventResponse{Event: event, CommitPosition: &commit}

	if !resolveLinks || event.Metadata[esdb.MetadataType] != LinkEventType {
		return resp
	}

	if linked := s.resolveLink(event); linked != nil {
		resp.Event = linked
		resp.Link = event
	}
	return resp
}

func (s *Store) resolveLink(link *esdb.RecordedEvent) *esdb.RecordedEvent {
	revision, stream, ok := strings.Cut(string(link.Data), "@")
	if !ok {
		return nil
	}
	n, err := strconv.ParseUint(revision, 10, 64)
	if err != nil {
		return nil
	}
	events := s.streams[stream]
	if n >= uint64(len(events)) {
		return nil
	}
	return events[n]
}

func clamp(revision uint64, length int) int {
	if revision > uint64(length) {
		return length
	}
	return int(revision)
}
