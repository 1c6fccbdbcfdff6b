package esdb

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
)

// cursor pulls responses from a source and keeps the ones that classify as
// events. Confirmations and checkpoints are consumed silently.
type cursor struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	source     ResponseSource
	released   bool
	releaseErr error

	current *ResolvedEvent
	err     error
	done    bool
}

// attach hands the source to the cursor. A cursor that was already released
// closes the source straight away.
func (c *cursor) attach(source ResponseSource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		_ = source.Close()
		return false
	}
	c.source = source
	return true
}

// recv returns the next response. A failure caused by the read context being
// cancelled is reported as the context's error.
func (c *cursor) recv() (Response, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.source.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		if ctxErr := c.ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return resp, err
}

// accept makes resp current when it classifies as an event.
func (c *cursor) accept(resp Response) (bool, error) {
	item, err := Classify(resp)
	if err != nil {
		return false, err
	}
	if !item.IsEvent() {
		return false, nil
	}
	c.current = item.Event
	return true, nil
}

// advance pulls until the next event, the end of the stream or a fault.
func (c *cursor) advance() bool {
	for {
		resp, err := c.recv()
		if errors.Is(err, io.EOF) {
			c.finish(nil)
			return false
		}
		if err != nil {
			c.finish(err)
			return false
		}

		ok, err := c.accept(resp)
		if err != nil {
			c.finish(err)
			return false
		}
		if ok {
			return true
		}
	}
}

// finish ends iteration and releases the source.
func (c *cursor) finish(err error) {
	c.current = nil
	c.err = err
	c.done = true
	_ = c.release()
}

// release cancels the read context and closes the source, once.
func (c *cursor) release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return c.releaseErr
	}
	c.released = true

	if c.cancel != nil {
		c.cancel()
	}
	if c.source != nil {
		c.releaseErr = c.source.Close()
	}
	return c.releaseErr
}

// Event returns the current event, or nil before the first Next and after
// iteration ended.
func (c *cursor) Event() *ResolvedEvent {
	return c.current
}

// Err returns the fault that ended iteration, if any. A read that ran to
// the end of the stream has no error.
func (c *cursor) Err() error {
	return c.err
}

type eventIterator interface {
	Next() bool
	Event() *ResolvedEvent
	Err() error
	Close() error
}

func collect(it eventIterator) ([]*ResolvedEvent, error) {
	defer it.Close()

	var events []*ResolvedEvent
	for it.Next() {
		events = append(events, it.Event())
	}
	return events, it.Err()
}

func sequence(it eventIterator) iter.Seq2[*ResolvedEvent, error] {
	return func(yield func(*ResolvedEvent, error) bool) {
		defer it.Close()

		for it.Next() {
			if !yield(it.Event(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// once ranges it the first time the sequence is ranged over and yields
// ErrAlreadyIterated on every later attempt.
func once(iterated *atomic.Bool, it eventIterator) iter.Seq2[*ResolvedEvent, error] {
	return func(yield func(*ResolvedEvent, error) bool) {
		if !iterated.CompareAndSwap(false, true) {
			yield(nil, ErrAlreadyIterated)
			return
		}
		sequence(it)(yield)
	}
}
