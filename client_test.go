package esdb_test

import (
	"errors"
	"testing"
	"time"

	"github.com/terraskye/esdb"
	"github.com/terraskye/esdb/fixtures"
)

type closingTransport struct {
	*fixtures.TransportSpy
	closed int
}

func (c *closingTransport) Close() error {
	c.closed++
	return nil
}

func TestClient_CallOptions(t *testing.T) {
	override := &esdb.Credentials{Username: "ops", Password: "secret"}

	tests := []struct {
		name   string
		client []esdb.Option
		read   esdb.ReadStreamOptions
		want   esdb.CallOptions
	}{
		{
			name: "none",
			want: esdb.CallOptions{},
		},
		{
			name: "client defaults",
			client: []esdb.Option{
				esdb.WithDefaultCredentials("admin", "changeit"),
				esdb.WithDefaultDeadline(time.Second),
				esdb.WithRequiresLeader(true),
			},
			want: esdb.CallOptions{
				Credentials:    &esdb.Credentials{Username: "admin", Password: "changeit"},
				Deadline:       time.Second,
				RequiresLeader: true,
			},
		},
		{
			name: "read overrides",
			client: []esdb.Option{
				esdb.WithDefaultCredentials("admin", "changeit"),
				esdb.WithDefaultDeadline(time.Second),
			},
			read: esdb.ReadStreamOptions{Authenticated: override, Deadline: time.Minute},
			want: esdb.CallOptions{Credentials: override, Deadline: time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := fixtures.NewTransportSpy()

			result, err := esdb.NewClient(spy, tt.client...).ReadStream(t.Context(), "orders-1", tt.read, 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer result.Close()

			got := spy.LastOptions
			if got.Deadline != tt.want.Deadline || got.RequiresLeader != tt.want.RequiresLeader {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
			switch {
			case tt.want.Credentials == nil && got.Credentials != nil:
				t.Errorf("expected no credentials, got %+v", got.Credentials)
			case tt.want.Credentials != nil && (got.Credentials == nil || *got.Credentials != *tt.want.Credentials):
				t.Errorf("expected credentials %+v, got %+v", tt.want.Credentials, got.Credentials)
			}
		})
	}
}

func TestClient_ReadStreamDefaults(t *testing.T) {
	spy := fixtures.NewTransportSpy()

	result, err := esdb.NewClient(spy).ReadStream(t.Context(), "orders-1", esdb.ReadStreamOptions{}, esdb.Unbounded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Close()

	req := spy.LastRequest
	if req.Direction != esdb.Forwards {
		t.Errorf("expected forwards, got %v", req.Direction)
	}
	if _, ok := req.Target.(esdb.StreamTarget).Revision.(esdb.Start); !ok {
		t.Errorf("expected to read from the start")
	}
	if req.Count != esdb.Unbounded {
		t.Errorf("expected an unbounded read, got %d", req.Count)
	}
}

func TestClient_ReadStreamInvalidArguments(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		opts   esdb.ReadStreamOptions
		count  uint64
		arg    string
	}{
		{"empty stream", "", esdb.ReadStreamOptions{}, 1, "stream"},
		{"zero count", "orders-1", esdb.ReadStreamOptions{}, 0, "count"},
		{"unknown direction", "orders-1", esdb.ReadStreamOptions{Direction: esdb.Direction(-1)}, 1, "direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := fixtures.NewTransportSpy()

			_, err := esdb.NewClient(spy).ReadStream(t.Context(), tt.stream, tt.opts, tt.count)

			var invalid *esdb.InvalidArgumentError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidArgumentError, got %v", err)
			}
			if invalid.Name != tt.arg {
				t.Errorf("expected %q to be named, got %q", tt.arg, invalid.Name)
			}
			if spy.Calls() != 0 {
				t.Errorf("expected no transport calls, got %d", spy.Calls())
			}
		})
	}
}

func TestClient_Close(t *testing.T) {
	transport := &closingTransport{TransportSpy: fixtures.NewTransportSpy()}
	if err := esdb.NewClient(transport).Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.closed != 1 {
		t.Errorf("expected the transport to be closed once, got %d", transport.closed)
	}

	if err := esdb.NewClient(fixtures.NewTransportSpy()).Close(); err != nil {
		t.Errorf("expected closing a plain transport to succeed, got %v", err)
	}
}
