package esdb

import (
	"context"
	"time"
)

// Transport opens read calls against an event store server.
//
// Implementations must:
//   - Bind the returned source to ctx, so cancelling ctx fails a pending Recv.
//   - Send the request exactly as given; the client fills in every option the
//     server requires.
type Transport interface {
	Read(ctx context.Context, req *ReadRequest, opts CallOptions) (ResponseSource, error)
}

// ResponseSource is the pull side of an open read call.
//
// Recv returns io.EOF once the server has finished the stream. Close releases
// the call; it must be safe to call while another goroutine is blocked in Recv.
type ResponseSource interface {
	Recv() (Response, error)
	Close() error
}

// Credentials authenticate a single call.
type Credentials struct {
	Username string
	Password string
}

// CallOptions are attached by the transport to each call.
type CallOptions struct {
	// Credentials override the connection's default credentials when set.
	Credentials *Credentials

	// Deadline bounds the whole call. Zero means no deadline.
	Deadline time.Duration

	// RequiresLeader asks the server to refuse the read on follower nodes.
	RequiresLeader bool
}
