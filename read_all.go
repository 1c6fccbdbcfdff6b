package esdb

import (
	"context"
	"iter"
	"sync/atomic"
)

// AllEvents is the result of reading the whole log. The read call is opened
// on the first Next. Unlike ReadStreamResult there is no read state: the log
// always exists.
//
// AllEvents can be iterated once and Next must not be called concurrently.
type AllEvents struct {
	cursor
	open func(ctx context.Context) (ResponseSource, error)

	closed   atomic.Bool
	iterated atomic.Bool
}

func newAllEvents(ctx context.Context, transport Transport, req *ReadRequest, opts CallOptions) (*AllEvents, error) {
	if _, ok := req.Target.(AllTarget); !ok {
		return nil, &InvalidArgumentError{Name: "target", Reason: "a whole-log read needs an all target"}
	}
	if err := prepareRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := callContext(ctx, opts)
	return &AllEvents{
		cursor: cursor{ctx: ctx, cancel: cancel},
		open: func(ctx context.Context) (ResponseSource, error) {
			return transport.Read(ctx, req, opts)
		},
	}, nil
}

// Next advances to the next event. It returns false when the log is
// exhausted or a fault occurred; Err tells the two apart.
func (a *AllEvents) Next() bool {
	a.iterated.Store(true)

	if a.done {
		return false
	}
	if a.closed.Load() {
		a.finish(ErrClosed)
		return false
	}

	if a.open != nil {
		open := a.open
		a.open = nil

		if err := a.ctx.Err(); err != nil {
			a.finish(err)
			return false
		}
		source, err := open(a.ctx)
		if err != nil {
			a.finish(err)
			return false
		}
		if !a.attach(source) {
			a.finish(ErrClosed)
			return false
		}
	}

	return a.advance()
}

// Close releases the read call. It is safe to call more than once and from
// another goroutine to abandon a read.
func (a *AllEvents) Close() error {
	a.closed.Store(true)
	return a.release()
}

// All reads every remaining event and closes the result.
func (a *AllEvents) All() ([]*ResolvedEvent, error) {
	if !a.iterated.CompareAndSwap(false, true) {
		return nil, ErrAlreadyIterated
	}
	return collect(a)
}

// Events returns the events as a range-over-func sequence. The result is
// closed when the loop ends. Ranging a second time yields ErrAlreadyIterated.
func (a *AllEvents) Events() iter.Seq2[*ResolvedEvent, error] {
	return once(&a.iterated, a)
}
