package esdb

import (
	"context"
	"time"
)

// ReadStreamOptions configure a single stream read.
type ReadStreamOptions struct {
	Direction      Direction
	From           StreamPosition
	ResolveLinkTos bool

	// Authenticated overrides the client's default credentials.
	Authenticated *Credentials

	// Deadline overrides the client's default deadline.
	Deadline time.Duration
}

// ReadAllOptions configure a whole-log read.
type ReadAllOptions struct {
	Direction      Direction
	From           AllPosition
	ResolveLinkTos bool
	Filter         *SubscriptionFilter

	Authenticated *Credentials
	Deadline      time.Duration
}

// prepareRequest validates req and fills in the options the server needs
// stated explicitly.
func prepareRequest(req *ReadRequest) error {
	if req.Count == 0 {
		return &InvalidArgumentError{Name: "count", Reason: "must be greater than zero"}
	}
	if req.Direction != Forwards && req.Direction != Backwards {
		return &InvalidArgumentError{Name: "direction", Reason: req.Direction.String()}
	}

	switch f := req.Filter.(type) {
	case nil:
		req.Filter = NoFilter{}
	case *SubscriptionFilter:
		if f == nil {
			req.Filter = NoFilter{}
		} else if err := validateFilter(f); err != nil {
			return err
		}
	}

	req.UUIDOption = UUIDStructured
	return nil
}

func validateFilter(f *SubscriptionFilter) error {
	if f.Type != StreamFilter && f.Type != EventFilter {
		return &InvalidArgumentError{Name: "filter", Reason: "unknown filter type"}
	}
	if len(f.Prefixes) == 0 && f.Regex == "" {
		return &InvalidArgumentError{Name: "filter", Reason: "needs prefixes or a regex"}
	}
	if len(f.Prefixes) > 0 && f.Regex != "" {
		return &InvalidArgumentError{Name: "filter", Reason: "prefixes and regex are exclusive"}
	}
	return nil
}

// callContext derives the context a call runs under. The returned cancel
// must be called once the call is released.
func callContext(ctx context.Context, opts CallOptions) (context.Context, context.CancelFunc) {
	if opts.Deadline > 0 {
		return context.WithTimeout(ctx, opts.Deadline)
	}
	return context.WithCancel(ctx)
}
