// Package esgrpc reads from an event store server over gRPC.
package esgrpc

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/EventStore/EventStore-Client-Go/protos/streams"
	"github.com/sirupsen/logrus"
	"github.com/terraskye/esdb"
	"github.com/terraskye/esdb/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	ErrUnauthenticated = errors.New("esgrpc: unauthenticated")
	ErrAccessDenied    = errors.New("esgrpc: access denied")
	ErrUnavailable     = errors.New("esgrpc: server unavailable")
)

type options struct {
	logger      *logrus.Entry
	dialOptions []grpc.DialOption
}

// Option configures a Transport.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (o optionFunc) apply(opts *options) {
	o(opts)
}

// WithLogger sets the logger connection events are written to.
func WithLogger(logger *logrus.Entry) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// WithDialOptions adds options to the underlying grpc.NewClient call.
func WithDialOptions(dialOptions ...grpc.DialOption) Option {
	return optionFunc(func(opts *options) {
		opts.dialOptions = append(opts.dialOptions, dialOptions...)
	})
}

// Transport is an esdb.Transport backed by a gRPC client connection.
type Transport struct {
	conn    *grpc.ClientConn
	streams streams.StreamsClient
	config  Config
	logger *logrus.Entry
}

var _ esdb.Transport = (*Transport)(nil)

// Dial creates a Transport for the node described by cfg. The connection is
// established lazily on the first read.
func Dial(cfg Config, opts ...Option) (*Transport, error) {
	o := options{logger: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt.apply(&o)
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("esgrpc: no address")
	}

	var transportCredentials credentials.TransportCredentials
	if cfg.DisableTLS {
		transportCredentials = insecure.NewCredentials()
	} else {
		transportCredentials = credentials.NewTLS(&tls.Config{
			InsecureSkipVerify: cfg.SkipCertificateVerification,
		})
	}

	dialOptions := append([]grpc.DialOption{grpc.WithTransportCredentials(transportCredentials)}, o.dialOptions...)
	conn, err := grpc.NewClient(cfg.Address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("esgrpc: dial %s: %w", cfg.Address, err)
	}

	logger := o.logger.WithField("address", cfg.Address)
	logger.Infof("Connecting to event store (tls: %t, node preference: %s)", !cfg.DisableTLS, cfg.NodePreference)

	return &Transport{
		conn:    conn,
		streams: streams.NewStreamsClient(conn),
		config:  cfg,
		logger:  logger,
	}, nil
}

// Read opens a read call and sends req. The returned source is bound to ctx.
func (t *Transport) Read(ctx context.Context, req *esdb.ReadRequest, opts esdb.CallOptions) (esdb.ResponseSource, error) {
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok && opts.Deadline == 0 && t.config.DefaultDeadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.config.DefaultDeadline)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	if opts.RequiresLeader || t.config.NodePreference == NodePreferenceLeader {
		ctx = metadata.AppendToOutgoingContext(ctx, "requires-leader", "true")
	}

	msg, err := wire.ToReadReq(req)
	if err != nil {
		cancel()
		return nil, err
	}

	var callOptions []grpc.CallOption
	creds := opts.Credentials
	if creds == nil {
		creds = t.config.Credentials
	}
	if creds != nil {
		callOptions = append(callOptions, grpc.PerRPCCredentials(basicAuth{
			header: "Basic " + base64.StdEncoding.EncodeToString([]byte(creds.Username+":"+creds.Password)),
			secure: !t.config.DisableTLS,
		}))
	}

	stream, err := t.streams.Read(ctx, msg, callOptions...)
	if err != nil {
		cancel()
		t.logger.Errorf("Read failed to open: %v", err)
		return nil, mapError(err)
	}

	t.logger.Debugf("Read opened (target: %T, count: %d)", req.Target, req.Count)

	return &source{stream: stream, cancel: cancel}, nil
}

// Close closes the client connection.
func (t *Transport) Close() error {
	t.logger.Info("Closing event store connection")
	return t.conn.Close()
}

type source struct {
	stream streams.Streams_ReadClient
	cancel context.CancelFunc
}

func (s *source) Recv() (esdb.Response, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, mapError(err)
	}
	return wire.FromReadResp(msg)
}

// Close cancels the call, which unblocks a pending Recv.
func (s *source) Close() error {
	s.cancel()
	return nil
}

type basicAuth struct {
	header string
	secure bool
}

func (b basicAuth) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": b.header}, nil
}

func (b basicAuth) RequireTransportSecurity() bool {
	return b.secure
}

// mapError turns gRPC status errors into errors callers can match on.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrAccessDenied, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return err
	}
}
