package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

const defaultOperation = "esdb.Read"

// config holds the options for tracing a transport.
type config struct {
	// Operation identifies the current operation and serves as a span name.
	Operation string

	// GetOperation is an optional function that can set the span name based on the existing operation
	// and information in the context.
	//
	// If the function is nil, or the returned operation is empty, the existing operation is used.
	GetOperation func(ctx context.Context, operation string) string

	// Attributes holds the default attributes for each span created by the decorator.
	Attributes []attribute.KeyValue

	// GetAttributes is an optional function that can extract trace attributes
	// from the context and add them to the span.
	GetAttributes func(ctx context.Context) []attribute.KeyValue
}

// Option configures WithTransportTelemetry.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (o optionFunc) apply(c *config) {
	o(c)
}

// WithOperation sets the span name of every read.
func WithOperation(operation string) Option {
	return optionFunc(func(o *config) {
		o.Operation = operation
	})
}

// WithOperationGetter sets an operation name getter function in config.
func WithOperationGetter(fn func(ctx context.Context, name string) string) Option {
	return optionFunc(func(o *config) {
		o.GetOperation = fn
	})
}

// WithAttributes sets the default attributes for the spans created by the decorator.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return optionFunc(func(o *config) {
		o.Attributes = attrs
	})
}

// WithAttributeGetter extracts additional attributes from the context.
func WithAttributeGetter(fn func(ctx context.Context) []attribute.KeyValue) Option {
	return optionFunc(func(o *config) {
		o.GetAttributes = fn
	})
}

func (c config) operation(ctx context.Context) string {
	operation := c.Operation
	if operation == "" {
		operation = defaultOperation
	}
	if c.GetOperation != nil {
		if name := c.GetOperation(ctx, operation); name != "" {
			operation = name
		}
	}
	return operation
}

func (c config) attributes(ctx context.Context) []attribute.KeyValue {
	attrs := append([]attribute.KeyValue(nil), c.Attributes...)
	if c.GetAttributes != nil {
		attrs = append(attrs, c.GetAttributes(ctx)...)
	}
	return attrs
}
