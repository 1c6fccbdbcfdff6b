package esdb

// SubscriptionConfirmation carries the session id the server assigned to a
// read. NoConfirmation is distinct from every real confirmation, including
// one with an empty id.
type SubscriptionConfirmation struct {
	id  string
	set bool
}

// NoConfirmation is the confirmation of a message that is not a confirmation.
var NoConfirmation = SubscriptionConfirmation{}

func NewSubscriptionConfirmation(id string) SubscriptionConfirmation {
	return SubscriptionConfirmation{id: id, set: true}
}

func (c SubscriptionConfirmation) SubscriptionID() string {
	return c.id
}

// IsNone reports whether c is NoConfirmation.
func (c SubscriptionConfirmation) IsNone() bool {
	return !c.set
}

// Item is a classified response message. Exactly one of its parts is set.
type Item struct {
	Confirmation SubscriptionConfirmation
	Checkpoint   *Position
	Event        *ResolvedEvent
}

// IsEvent reports whether the item should be delivered to the reader:
// it is neither a confirmation nor a checkpoint.
func (i Item) IsEvent() bool {
	return i.Confirmation.IsNone() && i.Checkpoint == nil
}

// Classify maps one response message to a confirmation, a checkpoint or a
// resolved event. It keeps no state; classifying the same message twice
// gives equal items.
//
// A stream-not-found message is not classifiable: readers resolve it before
// classification, so meeting one here is a protocol violation.
func Classify(resp Response) (Item, error) {
	switch r := resp.(type) {
	case *ConfirmationResponse:
		return Item{Confirmation: NewSubscriptionConfirmation(r.SubscriptionID)}, nil
	case *CheckpointResponse:
		return Item{Checkpoint: &Position{Commit: r.CommitPosition, Prepare: r.PreparePosition}}, nil
	case *EventResponse:
		event, err := resolveEvent(r)
		if err != nil {
			return Item{}, err
		}
		return Item{Event: event}, nil
	case *StreamNotFoundResponse:
		return Item{}, &ProtocolViolationError{Response: resp, Reason: "stream not found after the read started"}
	default:
		return Item{}, &ProtocolViolationError{Response: resp, Reason: "unknown message"}
	}
}

func resolveEvent(r *EventResponse) (*ResolvedEvent, error) {
	if r.Event == nil {
		return nil, &ProtocolViolationError{Response: r, Reason: "event message without an event record"}
	}

	resolved := &ResolvedEvent{
		Event: newEventRecord(r.Event),
	}
	if r.Link != nil {
		resolved.Link = newEventRecord(r.Link)
	}
	if r.CommitPosition != nil {
		commit := *r.CommitPosition
		resolved.CommitPosition = &commit
	}

	return resolved, nil
}
