package esdb

// InstrumentationVersion is reported by the otel decorator as the version of
// its tracer and meter.
const InstrumentationVersion = "0.1.0"
