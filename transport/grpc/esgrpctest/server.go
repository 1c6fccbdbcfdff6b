// Package esgrpctest runs an in-process read service for tests. Reads are
// served from any esdb.Transport over a bufconn listener.
package esgrpctest

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/EventStore/EventStore-Client-Go/protos/streams"
	"github.com/terraskye/esdb"
	"github.com/terraskye/esdb/internal/wire"
	esgrpc "github.com/terraskye/esdb/transport/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufferSize = 1 << 20

// Address is the target transports created by Server dial.
const Address = "passthrough:///bufnet"

// Call is a read call the server received.
type Call struct {
	Request        *esdb.ReadRequest
	Credentials    *esdb.Credentials
	RequiresLeader bool
}

// Server serves the read call from a backend transport. The other calls of
// the streams service are left unimplemented.
type Server struct {
	streams.UnimplementedStreamsServer

	backend  esdb.Transport
	required *esdb.Credentials

	listener *bufconn.Listener
	server   *grpc.Server

	mu    sync.Mutex
	calls []Call
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// RequireCredentials rejects calls that do not authenticate as the given user.
func RequireCredentials(username, password string) ServerOption {
	return func(s *Server) {
		s.required = &esdb.Credentials{Username: username, Password: password}
	}
}

// NewServer starts serving reads from backend. Call Close when done.
func NewServer(backend esdb.Transport, opts ...ServerOption) *Server {
	s := &Server{
		backend:  backend,
		listener: bufconn.Listen(bufferSize),
		server:   grpc.NewServer(),
	}
	for _, opt := range opts {
		opt(s)
	}

	streams.RegisterStreamsServer(s.server, s)
	go func() {
		_ = s.server.Serve(s.listener)
	}()

	return s
}

// DialOption connects a gRPC client to the server.
func (s *Server) DialOption() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return s.listener.DialContext(ctx)
	})
}

// Transport dials the server with cfg. Address and TLS settings of cfg are
// replaced.
func (s *Server) Transport(cfg esgrpc.Config, opts ...esgrpc.Option) (*esgrpc.Transport, error) {
	cfg.Address = Address
	cfg.DisableTLS = true
	return esgrpc.Dial(cfg, append(opts, esgrpc.WithDialOptions(s.DialOption()))...)
}

// Calls returns the read calls received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Call(nil), s.calls...)
}

// Close stops the server and drops open calls.
func (s *Server) Close() {
	s.server.Stop()
	_ = s.listener.Close()
}

// Read implements streams.StreamsServer.
func (s *Server) Read(msg *streams.ReadReq, stream streams.Streams_ReadServer) error {
	req, err := wire.FromReadReq(msg)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	md, _ := metadata.FromIncomingContext(stream.Context())
	call := Call{
		Request:        req,
		Credentials:    parseBasicAuth(md.Get("authorization")),
		RequiresLeader: len(md.Get("requires-leader")) > 0 && md.Get("requires-leader")[0] == "true",
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	if s.required != nil && (call.Credentials == nil || *call.Credentials != *s.required) {
		return status.Error(codes.Unauthenticated, "bad credentials")
	}

	source, err := s.backend.Read(stream.Context(), req, esdb.CallOptions{
		Credentials:    call.Credentials,
		RequiresLeader: call.RequiresLeader,
	})
	if err != nil {
		return toStatus(err)
	}
	defer source.Close()

	for {
		resp, err := source.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return toStatus(err)
		}
		out, err := wire.ToReadResp(resp)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.Send(out); err != nil {
			return err
		}
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, esdb.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}

func parseBasicAuth(values []string) *esdb.Credentials {
	if len(values) == 0 {
		return nil
	}

	encoded, ok := strings.CutPrefix(values[0], "Basic ")
	if !ok {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil
	}
	return &esdb.Credentials{Username: username, Password: password}
}
