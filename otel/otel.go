package otel

import (
	"github.com/terraskye/esdb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/terraskye/esdb"
)

// Semantic attribute keys following OpenTelemetry conventions
const (
	// Read attributes
	AttrReadTarget    = attribute.Key("esdb.read.target")
	AttrReadDirection = attribute.Key("esdb.read.direction")
	AttrReadCount     = attribute.Key("esdb.read.count")
	AttrResolveLinks  = attribute.Key("esdb.read.resolve_links")
	AttrFiltered      = attribute.Key("esdb.read.filtered")

	// Stream attributes
	AttrStreamID = attribute.Key("esdb.stream.id")

	// Response attributes
	AttrResponseKind = attribute.Key("esdb.response.kind")
	AttrEventCount   = attribute.Key("esdb.events.count")

	// Error attributes
	AttrErrorType = attribute.Key("esdb.error.type")
)

var (
	meter  = otel.Meter(instrumentationName, metric.WithInstrumentationVersion(esdb.InstrumentationVersion))
	tracer = otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(esdb.InstrumentationVersion))

	ReadsStarted, _ = meter.Int64Counter(
		"esdb.read.started",
		metric.WithDescription("Number of read calls opened"),
		metric.WithUnit("{read}"),
	)

	ReadDuration, _ = meter.Float64Histogram(
		"esdb.read.duration",
		metric.WithDescription("Read call duration, from open until the call is released"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)

	ReadResponses, _ = meter.Int64Counter(
		"esdb.read.responses",
		metric.WithDescription("Number of response messages received, by kind"),
		metric.WithUnit("{message}"),
	)

	ReadErrors, _ = meter.Int64Counter(
		"esdb.read.errors",
		metric.WithDescription("Number of read calls that ended with a fault"),
		metric.WithUnit("{error}"),
	)

	ReadsInFlight, _ = meter.Int64UpDownCounter(
		"esdb.read.in_flight",
		metric.WithDescription("Number of read calls currently open"),
		metric.WithUnit("{read}"),
	)
)
