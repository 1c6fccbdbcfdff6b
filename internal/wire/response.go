package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"maps"

	"github.com/EventStore/EventStore-Client-Go/protos/shared"
	"github.com/EventStore/EventStore-Client-Go/protos/streams"
	"github.com/google/uuid"
	"github.com/terraskye/esdb"
)

// FromReadResp maps the content of a ReadResp message to an esdb.Response.
// A message whose content is none of the four known cases fails with
// esdb.ErrProtocolViolation.
func FromReadResp(msg *streams.ReadResp) (esdb.Response, error) {
	switch content := msg.GetContent().(type) {
	case *streams.ReadResp_Event:
		return fromReadEvent(content.Event)
	case *streams.ReadResp_Confirmation:
		return &esdb.ConfirmationResponse{SubscriptionID: content.Confirmation.GetSubscriptionId()}, nil
	case *streams.ReadResp_Checkpoint_:
		return &esdb.CheckpointResponse{
			CommitPosition:  content.Checkpoint.GetCommitPosition(),
			PreparePosition: content.Checkpoint.GetPreparePosition(),
		}, nil
	case *streams.ReadResp_StreamNotFound_:
		return &esdb.StreamNotFoundResponse{
			Stream: fromStreamIdentifier(content.StreamNotFound.GetStreamIdentifier()),
		}, nil
	case nil:
		if msg != nil && len(msg.ProtoReflect().GetUnknown()) > 0 {
			return nil, &esdb.ProtocolViolationError{Reason: "unknown content"}
		}
		return nil, &esdb.ProtocolViolationError{Reason: "empty message"}
	default:
		return nil, &esdb.ProtocolViolationError{Reason: fmt.Sprintf("unknown content %T", content)}
	}
}

func fromReadEvent(msg *streams.ReadResp_ReadEvent) (*esdb.EventResponse, error) {
	resp := &esdb.EventResponse{}

	var err error
	if msg.GetEvent() != nil {
		if resp.Event, err = fromRecordedEvent(msg.GetEvent()); err != nil {
			return nil, err
		}
	}
	if msg.GetLink() != nil {
		if resp.Link, err = fromRecordedEvent(msg.GetLink()); err != nil {
			return nil, err
		}
	}

	if position, ok := msg.GetPosition().(*streams.ReadResp_ReadEvent_CommitPosition); ok {
		commit := position.CommitPosition
		resp.CommitPosition = &commit
	}

	return resp, nil
}

func fromRecordedEvent(msg *streams.ReadResp_ReadEvent_RecordedEvent) (*esdb.RecordedEvent, error) {
	id, err := fromUUID(msg.GetId())
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(msg.GetMetadata()))
	maps.Copy(metadata, msg.GetMetadata())

	return &esdb.RecordedEvent{
		ID:               id,
		StreamIdentifier: fromStreamIdentifier(msg.GetStreamIdentifier()),
		StreamRevision:   msg.GetStreamRevision(),
		PreparePosition:  msg.GetPreparePosition(),
		CommitPosition:   msg.GetCommitPosition(),
		Metadata:         metadata,
		CustomMetadata:   msg.GetCustomMetadata(),
		Data:             msg.GetData(),
	}, nil
}

// fromUUID decodes both encodings a server may use. The structured form
// carries the two big-endian halves of the id.
func fromUUID(msg *shared.UUID) (uuid.UUID, error) {
	var id uuid.UUID

	if structured := msg.GetStructured(); structured != nil {
		binary.BigEndian.PutUint64(id[0:8], uint64(structured.GetMostSignificantBits()))
		binary.BigEndian.PutUint64(id[8:16], uint64(structured.GetLeastSignificantBits()))
		return id, nil
	}
	if s := msg.GetString_(); s != "" {
		parsed, err := uuid.Parse(s)
		if err != nil {
			return id, fmt.Errorf("wire: event id: %w", err)
		}
		return parsed, nil
	}
	return id, nil
}

func fromStreamIdentifier(msg *shared.StreamIdentifier) *esdb.StreamIdentifier {
	return esdb.StreamIdentifierFromBytes(bytes.Clone(msg.GetStreamName()))
}

// ToReadResp is the server half of FromReadResp.
func ToReadResp(resp esdb.Response) (*streams.ReadResp, error) {
	switch r := resp.(type) {
	case *esdb.ConfirmationResponse:
		return &streams.ReadResp{Content: &streams.ReadResp_Confirmation{
			Confirmation: &streams.ReadResp_SubscriptionConfirmation{SubscriptionId: r.SubscriptionID},
		}}, nil
	case *esdb.CheckpointResponse:
		return &streams.ReadResp{Content: &streams.ReadResp_Checkpoint_{
			Checkpoint: &streams.ReadResp_Checkpoint{
				CommitPosition:  r.CommitPosition,
				PreparePosition: r.PreparePosition,
			},
		}}, nil
	case *esdb.StreamNotFoundResponse:
		return &streams.ReadResp{Content: &streams.ReadResp_StreamNotFound_{
			StreamNotFound: &streams.ReadResp_StreamNotFound{
				StreamIdentifier: &shared.StreamIdentifier{StreamName: r.Stream.Bytes()},
			},
		}}, nil
	case *esdb.EventResponse:
		return &streams.ReadResp{Content: &streams.ReadResp_Event{Event: toReadEvent(r)}}, nil
	default:
		return nil, fmt.Errorf("wire: unsupported response %T", resp)
	}
}

func toReadEvent(r *esdb.EventResponse) *streams.ReadResp_ReadEvent {
	msg := &streams.ReadResp_ReadEvent{
		Event: toRecordedEvent(r.Event),
		Link:  toRecordedEvent(r.Link),
	}
	if r.CommitPosition != nil {
		msg.Position = &streams.ReadResp_ReadEvent_CommitPosition{CommitPosition: *r.CommitPosition}
	} else {
		msg.Position = &streams.ReadResp_ReadEvent_NoPosition{NoPosition: &shared.Empty{}}
	}
	return msg
}

func toRecordedEvent(e *esdb.RecordedEvent) *streams.ReadResp_ReadEvent_RecordedEvent {
	if e == nil {
		return nil
	}
	return &streams.ReadResp_ReadEvent_RecordedEvent{
		Id: &shared.UUID{Value: &shared.UUID_Structured_{Structured: &shared.UUID_Structured{
			MostSignificantBits:  int64(binary.BigEndian.Uint64(e.ID[0:8])),
			LeastSignificantBits: int64(binary.BigEndian.Uint64(e.ID[8:16])),
		}}},
		StreamIdentifier: &shared.StreamIdentifier{StreamName: e.StreamIdentifier.Bytes()},
		StreamRevision:   e.StreamRevision,
		PreparePosition:  e.PreparePosition,
		CommitPosition:   e.CommitPosition,
		Metadata:         e.Metadata,
		CustomMetadata:   e.CustomMetadata,
		Data:             e.Data,
	}
}
