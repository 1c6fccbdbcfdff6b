package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/terraskye/esdb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var _ esdb.Transport = (*TelemetryTransport)(nil)

// TelemetryTransport traces and measures every read call of the wrapped
// transport. A read's span lasts from open until the call is released.
type TelemetryTransport struct {
	next   esdb.Transport
	config config
}

// WithTransportTelemetry wraps next with tracing and metrics.
func WithTransportTelemetry(next esdb.Transport, options ...Option) esdb.Transport {
	t := TelemetryTransport{next: next}
	for _, option := range options {
		option.apply(&t.config)
	}
	return t
}

func (t TelemetryTransport) Read(ctx context.Context, req *esdb.ReadRequest, opts esdb.CallOptions) (esdb.ResponseSource, error) {
	attrs := readAttributes(req)

	ctx, span := tracer.Start(ctx, t.config.operation(ctx),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
		trace.WithAttributes(t.config.attributes(ctx)...),
	)

	metricAttrs := metric.WithAttributes(attrs[0])
	ReadsStarted.Add(ctx, 1, metricAttrs)
	ReadsInFlight.Add(ctx, 1, metricAttrs)
	start := time.Now()

	source, err := t.next.Read(ctx, req, opts)
	if err != nil {
		ReadsInFlight.Add(ctx, -1, metricAttrs)
		ReadDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metricAttrs)
		recordError(ctx, span, err, metricAttrs)
		span.End()
		return nil, err
	}

	return &telemetrySource{
		next:        source,
		ctx:         ctx,
		span:        span,
		start:       start,
		metricAttrs: metricAttrs,
	}, nil
}

// Close closes the wrapped transport when it holds resources of its own.
func (t TelemetryTransport) Close() error {
	if closer, ok := t.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type telemetrySource struct {
	next        esdb.ResponseSource
	ctx         context.Context
	span        trace.Span
	start       time.Time
	metricAttrs metric.MeasurementOption

	events atomic.Int64
	once   sync.Once
}

func (s *telemetrySource) Recv() (esdb.Response, error) {
	resp, err := s.next.Recv()
	if errors.Is(err, io.EOF) {
		s.finish(nil)
		return resp, err
	}
	if err != nil {
		s.finish(err)
		return resp, err
	}

	kind := esdb.ResponseKind(resp)
	ReadResponses.Add(s.ctx, 1, metric.WithAttributes(AttrResponseKind.String(kind)))
	switch r := resp.(type) {
	case *esdb.EventResponse:
		s.events.Add(1)
	case *esdb.ConfirmationResponse:
		s.span.AddEvent("confirmation", trace.WithAttributes(attribute.String("subscription_id", r.SubscriptionID)))
	case *esdb.StreamNotFoundResponse:
		s.span.AddEvent("stream_not_found")
	}
	return resp, nil
}

func (s *telemetrySource) Close() error {
	err := s.next.Close()
	s.finish(nil)
	return err
}

// finish ends the span once, at the first of end of stream, fault or Close.
func (s *telemetrySource) finish(err error) {
	s.once.Do(func() {
		ReadsInFlight.Add(s.ctx, -1, s.metricAttrs)
		ReadDuration.Record(s.ctx, float64(time.Since(s.start).Milliseconds()), s.metricAttrs)
		s.span.SetAttributes(AttrEventCount.Int64(s.events.Load()))
		if err != nil {
			recordError(s.ctx, s.span, err, s.metricAttrs)
		}
		s.span.End()
	})
}

func recordError(ctx context.Context, span trace.Span, err error, attrs metric.MeasurementOption) {
	ReadErrors.Add(ctx, 1, attrs)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(AttrErrorType.String(fmt.Sprintf("%T", err)))
}

// readAttributes describes req. The target attribute comes first; it is the
// only one attached to metrics.
func readAttributes(req *esdb.ReadRequest) []attribute.KeyValue {
	count := "unbounded"
	if req.Count != esdb.Unbounded {
		count = strconv.FormatUint(req.Count, 10)
	}

	attrs := []attribute.KeyValue{
		AttrReadTarget.String("all"),
		AttrReadDirection.String(req.Direction.String()),
		AttrReadCount.String(count),
		AttrResolveLinks.Bool(req.ResolveLinkTos),
	}

	switch target := req.Target.(type) {
	case esdb.StreamTarget:
		attrs[0] = AttrReadTarget.String("stream")
		attrs = append(attrs, AttrStreamID.String(target.Stream.String()))
	case esdb.AllTarget:
		_, filtered := req.Filter.(*esdb.SubscriptionFilter)
		attrs = append(attrs, AttrFiltered.Bool(filtered))
	}
	return attrs
}
