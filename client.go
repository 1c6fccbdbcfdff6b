package esdb

import (
	"context"
	"io"
	"time"
)

type config struct {
	credentials    *Credentials
	deadline       time.Duration
	requiresLeader bool
}

// Option configures a Client.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (o optionFunc) apply(c *config) {
	o(c)
}

// WithDefaultCredentials sets the credentials used by reads that do not
// bring their own.
func WithDefaultCredentials(username, password string) Option {
	return optionFunc(func(c *config) {
		c.credentials = &Credentials{Username: username, Password: password}
	})
}

// WithDefaultDeadline bounds every read that does not set its own deadline.
func WithDefaultDeadline(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.deadline = d
	})
}

// WithRequiresLeader makes reads fail on follower nodes.
func WithRequiresLeader(requiresLeader bool) Option {
	return optionFunc(func(c *config) {
		c.requiresLeader = requiresLeader
	})
}

// Client reads streams and the whole log through a Transport.
type Client struct {
	transport Transport
	config    config
}

// NewClient creates a Client reading through transport.
func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{transport: transport}
	for _, opt := range opts {
		opt.apply(&c.config)
	}
	return c
}

// ReadStream starts reading count events of a single stream. count must be
// greater than zero; use Unbounded to read to the end of the stream.
//
// The read call is opened before ReadStream returns and whether the stream
// exists is resolved in the background. The returned result must be closed.
func (c *Client) ReadStream(ctx context.Context, stream string, opts ReadStreamOptions, count uint64) (*ReadStreamResult, error) {
	if stream == "" {
		return nil, &InvalidArgumentError{Name: "stream", Reason: "must not be empty"}
	}

	from := opts.From
	if from == nil {
		from = Start{}
	}

	req := &ReadRequest{
		Direction:      opts.Direction,
		ResolveLinkTos: opts.ResolveLinkTos,
		Target: StreamTarget{
			Stream:   NewStreamIdentifier(stream),
			Revision: from,
		},
		Count: count,
	}

	return newReadStreamResult(ctx, c.transport, req, c.callOptions(opts.Authenticated, opts.Deadline))
}

// ReadAll prepares a read of count events from the whole log. Options are
// validated immediately; the read call is opened on the first Next. The call
// context and its deadline timer exist from this point, so the returned
// result must be closed even if it is never iterated.
func (c *Client) ReadAll(ctx context.Context, opts ReadAllOptions, count uint64) (*AllEvents, error) {
	from := opts.From
	if from == nil {
		from = Start{}
	}

	req := &ReadRequest{
		Direction:      opts.Direction,
		ResolveLinkTos: opts.ResolveLinkTos,
		Target:         AllTarget{Position: from},
		Count:          count,
	}
	if opts.Filter != nil {
		req.Filter = opts.Filter
	}

	return newAllEvents(ctx, c.transport, req, c.callOptions(opts.Authenticated, opts.Deadline))
}

// Close closes the transport when it holds resources of its own.
func (c *Client) Close() error {
	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) callOptions(credentials *Credentials, deadline time.Duration) CallOptions {
	opts := CallOptions{
		Credentials:    c.config.credentials,
		Deadline:       c.config.deadline,
		RequiresLeader: c.config.requiresLeader,
	}
	if credentials != nil {
		opts.Credentials = credentials
	}
	if deadline > 0 {
		opts.Deadline = deadline
	}
	return opts
}
