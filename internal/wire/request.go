// Package wire converts between esdb values and the generated messages of
// the event_store.client.streams service.
package wire

import (
	"fmt"

	"github.com/EventStore/EventStore-Client-Go/protos/shared"
	"github.com/EventStore/EventStore-Client-Go/protos/streams"
	"github.com/terraskye/esdb"
)

// ToReadReq builds the ReadReq message for req.
func ToReadReq(req *esdb.ReadRequest) (*streams.ReadReq, error) {
	options := &streams.ReadReq_Options{
		ResolveLinks: req.ResolveLinkTos,
		CountOption:  &streams.ReadReq_Options_Count{Count: req.Count},
	}

	switch target := req.Target.(type) {
	case esdb.StreamTarget:
		stream, err := toStreamOptions(target)
		if err != nil {
			return nil, err
		}
		options.StreamOption = &streams.ReadReq_Options_Stream{Stream: stream}
	case esdb.AllTarget:
		all, err := toAllOptions(target)
		if err != nil {
			return nil, err
		}
		options.StreamOption = &streams.ReadReq_Options_All{All: all}
	default:
		return nil, fmt.Errorf("wire: unsupported read target %T", req.Target)
	}

	switch req.Direction {
	case esdb.Forwards:
		options.ReadDirection = streams.ReadReq_Options_Forwards
	case esdb.Backwards:
		options.ReadDirection = streams.ReadReq_Options_Backwards
	default:
		return nil, fmt.Errorf("wire: unsupported direction %s", req.Direction)
	}

	switch filter := req.Filter.(type) {
	case nil, esdb.NoFilter:
		options.FilterOption = &streams.ReadReq_Options_NoFilter{NoFilter: &shared.Empty{}}
	case *esdb.SubscriptionFilter:
		options.FilterOption = &streams.ReadReq_Options_Filter{Filter: toFilterOptions(filter)}
	default:
		return nil, fmt.Errorf("wire: unsupported filter %T", req.Filter)
	}

	switch req.UUIDOption {
	case esdb.UUIDStructured:
		options.UuidOption = &streams.ReadReq_Options_UUIDOption{
			Content: &streams.ReadReq_Options_UUIDOption_Structured{Structured: &shared.Empty{}},
		}
	case esdb.UUIDString:
		options.UuidOption = &streams.ReadReq_Options_UUIDOption{
			Content: &streams.ReadReq_Options_UUIDOption_String_{String_: &shared.Empty{}},
		}
	default:
		return nil, fmt.Errorf("wire: unsupported uuid option %d", req.UUIDOption)
	}

	return &streams.ReadReq{Options: options}, nil
}

func toStreamOptions(target esdb.StreamTarget) (*streams.ReadReq_Options_StreamOptions, error) {
	options := &streams.ReadReq_Options_StreamOptions{
		StreamIdentifier: &shared.StreamIdentifier{StreamName: target.Stream.Bytes()},
	}

	switch revision := target.Revision.(type) {
	case nil, esdb.Start:
		options.RevisionOption = &streams.ReadReq_Options_StreamOptions_Start{Start: &shared.Empty{}}
	case esdb.End:
		options.RevisionOption = &streams.ReadReq_Options_StreamOptions_End{End: &shared.Empty{}}
	case esdb.Revision:
		options.RevisionOption = &streams.ReadReq_Options_StreamOptions_Revision{Revision: uint64(revision)}
	default:
		return nil, fmt.Errorf("wire: unsupported stream position %T", target.Revision)
	}
	return options, nil
}

func toAllOptions(target esdb.AllTarget) (*streams.ReadReq_Options_AllOptions, error) {
	options := &streams.ReadReq_Options_AllOptions{}

	switch position := target.Position.(type) {
	case nil, esdb.Start:
		options.AllOption = &streams.ReadReq_Options_AllOptions_Start{Start: &shared.Empty{}}
	case esdb.End:
		options.AllOption = &streams.ReadReq_Options_AllOptions_End{End: &shared.Empty{}}
	case esdb.Position:
		options.AllOption = &streams.ReadReq_Options_AllOptions_Position{
			Position: &streams.ReadReq_Options_Position{
				CommitPosition:  position.Commit,
				PreparePosition: position.Prepare,
			},
		}
	default:
		return nil, fmt.Errorf("wire: unsupported log position %T", target.Position)
	}
	return options, nil
}

func toFilterOptions(f *esdb.SubscriptionFilter) *streams.ReadReq_Options_FilterOptions {
	expression := &streams.ReadReq_Options_FilterOptions_Expression{
		Regex:  f.Regex,
		Prefix: f.Prefixes,
	}

	options := &streams.ReadReq_Options_FilterOptions{
		CheckpointIntervalMultiplier: f.CheckpointIntervalMultiplier,
	}
	if f.Type == esdb.EventFilter {
		options.Filter = &streams.ReadReq_Options_FilterOptions_EventType{EventType: expression}
	} else {
		options.Filter = &streams.ReadReq_Options_FilterOptions_StreamIdentifier{StreamIdentifier: expression}
	}

	if f.MaxSearchWindow > 0 {
		options.Window = &streams.ReadReq_Options_FilterOptions_Max{Max: f.MaxSearchWindow}
	} else {
		options.Window = &streams.ReadReq_Options_FilterOptions_Count{Count: &shared.Empty{}}
	}
	return options
}

// FromReadReq is the server half of ToReadReq. A subscription count reads
// without bound.
func FromReadReq(msg *streams.ReadReq) (*esdb.ReadRequest, error) {
	options := msg.GetOptions()
	if options == nil {
		return nil, fmt.Errorf("wire: read request without options")
	}

	req := &esdb.ReadRequest{
		ResolveLinkTos: options.GetResolveLinks(),
		Direction:      esdb.Forwards,
		Filter:         esdb.NoFilter{},
		UUIDOption:     esdb.UUIDStructured,
	}
	if options.GetReadDirection() == streams.ReadReq_Options_Backwards {
		req.Direction = esdb.Backwards
	}

	switch option := options.GetStreamOption().(type) {
	case *streams.ReadReq_Options_Stream:
		req.Target = fromStreamOptions(option.Stream)
	case *streams.ReadReq_Options_All:
		req.Target = fromAllOptions(option.All)
	default:
		return nil, fmt.Errorf("wire: read request without stream or all options")
	}

	switch count := options.GetCountOption().(type) {
	case *streams.ReadReq_Options_Count:
		req.Count = count.Count
	case *streams.ReadReq_Options_Subscription:
		req.Count = esdb.Unbounded
	}

	if filter := options.GetFilter(); filter != nil {
		req.Filter = fromFilterOptions(filter)
	}

	if options.GetUuidOption().GetString_() != nil {
		req.UUIDOption = esdb.UUIDString
	}

	return req, nil
}

func fromStreamOptions(options *streams.ReadReq_Options_StreamOptions) esdb.StreamTarget {
	target := esdb.StreamTarget{
		Stream:   fromStreamIdentifier(options.GetStreamIdentifier()),
		Revision: esdb.Start{},
	}

	switch revision := options.GetRevisionOption().(type) {
	case *streams.ReadReq_Options_StreamOptions_Revision:
		target.Revision = esdb.Revision(revision.Revision)
	case *streams.ReadReq_Options_StreamOptions_End:
		target.Revision = esdb.End{}
	}
	return target
}

func fromAllOptions(options *streams.ReadReq_Options_AllOptions) esdb.AllTarget {
	target := esdb.AllTarget{Position: esdb.Start{}}

	switch position := options.GetAllOption().(type) {
	case *streams.ReadReq_Options_AllOptions_Position:
		target.Position = esdb.Position{
			Commit:  position.Position.GetCommitPosition(),
			Prepare: position.Position.GetPreparePosition(),
		}
	case *streams.ReadReq_Options_AllOptions_End:
		target.Position = esdb.End{}
	}
	return target
}

func fromFilterOptions(options *streams.ReadReq_Options_FilterOptions) *esdb.SubscriptionFilter {
	filter := &esdb.SubscriptionFilter{
		MaxSearchWindow:              options.GetMax(),
		CheckpointIntervalMultiplier: options.GetCheckpointIntervalMultiplier(),
	}

	expression := options.GetStreamIdentifier()
	if eventType := options.GetEventType(); eventType != nil {
		filter.Type = esdb.EventFilter
		expression = eventType
	}
	filter.Regex = expression.GetRegex()
	filter.Prefixes = append([]string(nil), expression.GetPrefix()...)

	return filter
}
