package esdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync/atomic"
)

// ReadState tells whether the stream of a read exists.
type ReadState int

const (
	ReadStateOk ReadState = iota
	ReadStateStreamNotFound
)

func (s ReadState) String() string {
	switch s {
	case ReadStateOk:
		return "Ok"
	case ReadStateStreamNotFound:
		return "StreamNotFound"
	default:
		return fmt.Sprintf("ReadState(%d)", int(s))
	}
}

// stash holds the first message, consumed while resolving the read state,
// until iteration asks for it.
type stash int

const (
	stashEmpty    stash = iota // the stream ended before any message
	stashEvent                 // first holds the first message
	stashConsumed              // nothing left to replay
)

// ReadStreamResult is the result of reading a single stream. It is a
// forward-only cursor over the events of the stream:
//
//	result, err := client.ReadStream(ctx, "orders-1", esdb.ReadStreamOptions{}, 10)
//	if err != nil {
//	    return err
//	}
//	defer result.Close()
//	for result.Next() {
//	    handle(result.Event())
//	}
//	if err := result.Err(); err != nil {
//	    return err
//	}
//
// Whether the stream exists is resolved in the background as soon as the
// read starts and can be inspected with ReadState without consuming events.
// Iterating a stream that does not exist fails with a *StreamNotFoundError.
//
// A result can be iterated once. Next must not be called concurrently;
// ReadState and Close may be called from any goroutine.
type ReadStreamResult struct {
	cursor
	stream string

	resolved chan struct{}
	state    ReadState
	stateErr error
	stash    stash
	first    Response

	closed   atomic.Bool
	iterated atomic.Bool
}

func newReadStreamResult(ctx context.Context, transport Transport, req *ReadRequest, opts CallOptions) (*ReadStreamResult, error) {
	target, ok := req.Target.(StreamTarget)
	if !ok || target.Stream == nil {
		return nil, &InvalidArgumentError{Name: "target", Reason: "a stream read needs a stream target"}
	}
	if err := prepareRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := callContext(ctx, opts)
	source, err := transport.Read(ctx, req, opts)
	if err != nil {
		cancel()
		return nil, err
	}

	r := &ReadStreamResult{
		cursor:   cursor{ctx: ctx, cancel: cancel},
		stream:   target.Stream.String(),
		resolved: make(chan struct{}),
	}
	r.attach(source)

	go r.resolve()

	return r, nil
}

// resolve consumes the first message to decide the read state.
func (r *ReadStreamResult) resolve() {
	defer close(r.resolved)

	resp, err := r.recv()
	switch {
	case errors.Is(err, io.EOF):
		r.state = ReadStateOk
		r.stash = stashEmpty
	case err != nil:
		r.stateErr = err
	default:
		if _, notFound := resp.(*StreamNotFoundResponse); notFound {
			r.state = ReadStateStreamNotFound
			r.stash = stashConsumed
			return
		}
		r.state = ReadStateOk
		r.stash = stashEvent
		r.first = resp
	}
}

// Stream returns the name of the stream being read.
func (r *ReadStreamResult) Stream() string {
	return r.stream
}

// ReadState waits until the read state is known. The error is the transport
// fault that prevented resolving it, or ctx's error when ctx ends first.
func (r *ReadStreamResult) ReadState(ctx context.Context) (ReadState, error) {
	select {
	case <-r.resolved:
		return r.state, r.stateErr
	case <-ctx.Done():
		return ReadStateOk, ctx.Err()
	}
}

// Next advances to the next event. It returns false when the stream is
// exhausted or a fault occurred; Err tells the two apart.
func (r *ReadStreamResult) Next() bool {
	r.iterated.Store(true)

	if r.done {
		return false
	}
	if r.closed.Load() {
		r.finish(ErrClosed)
		return false
	}

	select {
	case <-r.resolved:
	case <-r.ctx.Done():
		r.finish(r.ctx.Err())
		return false
	}
	// Both cases may be ready at once; cancellation wins over the stash.
	if err := r.ctx.Err(); err != nil {
		r.finish(err)
		return false
	}

	if r.stateErr != nil {
		r.finish(r.stateErr)
		return false
	}
	if r.state != ReadStateOk {
		r.finish(&StreamNotFoundError{Stream: r.stream})
		return false
	}

	switch r.stash {
	case stashEmpty:
		r.stash = stashConsumed
		r.finish(nil)
		return false
	case stashEvent:
		first := r.first
		r.stash, r.first = stashConsumed, nil

		ok, err := r.accept(first)
		if err != nil {
			r.finish(err)
			return false
		}
		if ok {
			return true
		}
	}

	return r.advance()
}

// Close releases the read call. It is safe to call more than once and from
// another goroutine to abandon a read.
func (r *ReadStreamResult) Close() error {
	r.closed.Store(true)
	return r.release()
}

// All reads every remaining event and closes the result.
func (r *ReadStreamResult) All() ([]*ResolvedEvent, error) {
	if !r.iterated.CompareAndSwap(false, true) {
		return nil, ErrAlreadyIterated
	}
	return collect(r)
}

// Events returns the events as a range-over-func sequence. The result is
// closed when the loop ends. Ranging a second time yields ErrAlreadyIterated.
func (r *ReadStreamResult) Events() iter.Seq2[*ResolvedEvent, error] {
	return once(&r.iterated, r)
}
