package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/terraskye/esdb"
)

type transport struct {
	logger *slog.Logger
	next   esdb.Transport
}

// WithTransportLogging wraps a Transport with logging. It logs every read
// call when it opens and ends, and the confirmation and checkpoint messages
// in between at debug level.
func WithTransportLogging(logger *slog.Logger, next esdb.Transport) esdb.Transport {
	return transport{logger: logger, next: next}
}

func (t transport) Read(ctx context.Context, req *esdb.ReadRequest, opts esdb.CallOptions) (esdb.ResponseSource, error) {
	l := t.logger.With(
		"direction", req.Direction.String(),
		"count", req.Count,
		"resolve-links", req.ResolveLinkTos,
	)
	switch target := req.Target.(type) {
	case esdb.StreamTarget:
		l = l.With("stream-id", target.Stream.String())
	case esdb.AllTarget:
		l = l.With("stream-id", "$all")
	}

	l.DebugContext(ctx, "read started")

	source, err := t.next.Read(ctx, req, opts)
	if err != nil {
		l.ErrorContext(ctx, "error opening read", "error", err)
		return nil, err
	}

	return &loggingSource{ctx: ctx, logger: l, next: source}, nil
}

func (t transport) Close() error {
	if closer, ok := t.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type loggingSource struct {
	ctx    context.Context
	logger *slog.Logger
	next   esdb.ResponseSource

	events atomic.Int64
	ended  atomic.Bool
}

func (s *loggingSource) Recv() (esdb.Response, error) {
	resp, err := s.next.Recv()
	if errors.Is(err, io.EOF) {
		if s.ended.CompareAndSwap(false, true) {
			s.logger.DebugContext(s.ctx, "read finished", "events", s.events.Load())
		}
		return resp, err
	}
	if err != nil {
		if s.ended.CompareAndSwap(false, true) {
			s.logger.ErrorContext(s.ctx, "error reading", "error", err, "events", s.events.Load())
		}
		return resp, err
	}

	switch r := resp.(type) {
	case *esdb.EventResponse:
		s.events.Add(1)
	case *esdb.ConfirmationResponse:
		s.logger.DebugContext(s.ctx, "read confirmed", "subscription-id", r.SubscriptionID)
	case *esdb.CheckpointResponse:
		s.logger.DebugContext(s.ctx, "checkpoint reached", "commit", r.CommitPosition, "prepare", r.PreparePosition)
	case *esdb.StreamNotFoundResponse:
		s.logger.DebugContext(s.ctx, "stream not found")
	}
	return resp, nil
}

func (s *loggingSource) Close() error {
	if s.ended.CompareAndSwap(false, true) {
		s.logger.DebugContext(s.ctx, "read closed", "events", s.events.Load())
	}
	return s.next.Close()
}
