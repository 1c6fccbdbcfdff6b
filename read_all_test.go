package esdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/terraskye/esdb"
	"github.com/terraskye/esdb/fixtures"
)

func TestReadAll_OpensOnFirstNext(t *testing.T) {
	spy := fixtures.NewTransportSpy(
		fixtures.Confirmation("sub-1"),
		fixtures.Event("orders-1", 0, "OrderPlaced"),
		fixtures.Checkpoint(1100),
		fixtures.Event("invoices-1", 0, "InvoiceIssued"),
	)

	all, err := esdb.NewClient(spy).ReadAll(t.Context(), esdb.ReadAllOptions{}, esdb.Unbounded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer all.Close()

	if spy.Calls() != 0 {
		t.Fatalf("expected no read before the first Next, got %d", spy.Calls())
	}

	var streams []string
	for all.Next() {
		streams = append(streams, all.Event().OriginalStreamID())
	}
	if err := all.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if spy.Calls() != 1 {
		t.Errorf("expected a single read, got %d", spy.Calls())
	}
	if len(streams) != 2 || streams[0] != "orders-1" || streams[1] != "invoices-1" {
		t.Errorf("expected [orders-1 invoices-1], got %v", streams)
	}

	req := spy.LastRequest
	target, ok := req.Target.(esdb.AllTarget)
	if !ok {
		t.Fatalf("expected an all target, got %T", req.Target)
	}
	if _, ok := target.Position.(esdb.Start); !ok {
		t.Errorf("expected to read from the start, got %T", target.Position)
	}
	if _, ok := req.Filter.(esdb.NoFilter); !ok {
		t.Errorf("expected explicit NoFilter, got %T", req.Filter)
	}
}

func TestReadAll_NeverOpenedWhenClosedFirst(t *testing.T) {
	spy := fixtures.NewTransportSpy(fixtures.Events("orders-1", 0, 1)...)

	all, err := esdb.NewClient(spy).ReadAll(t.Context(), esdb.ReadAllOptions{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := all.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if all.Next() {
		t.Fatal("expected no event after Close")
	}
	if !errors.Is(all.Err(), esdb.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", all.Err())
	}
	if spy.Calls() != 0 {
		t.Errorf("expected no read, got %d", spy.Calls())
	}
}

func TestReadAll_Backwards(t *testing.T) {
	spy := fixtures.NewTransportSpy(fixtures.Event("orders-1", 1, "OrderPaid"), fixtures.Event("orders-1", 0, "OrderPlaced"))

	all, err := esdb.NewClient(spy).ReadAll(t.Context(), esdb.ReadAllOptions{
		Direction:      esdb.Backwards,
		From:           esdb.End{},
		ResolveLinkTos: true,
	}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := eventNumbers(t, all)
	if !equalNumbers(got, []uint64{1, 0}) {
		t.Errorf("expected [1 0], got %v", got)
	}

	req := spy.LastRequest
	if req.Direction != esdb.Backwards || !req.ResolveLinkTos || req.Count != 2 {
		t.Errorf("unexpected request %+v", req)
	}
	if _, ok := req.Target.(esdb.AllTarget).Position.(esdb.End); !ok {
		t.Errorf("expected to read from the end")
	}
}

func TestReadAll_Filter(t *testing.T) {
	filter := &esdb.SubscriptionFilter{Type: esdb.StreamFilter, Prefixes: []string{"orders-"}}
	spy := fixtures.NewTransportSpy()

	all, err := esdb.NewClient(spy).ReadAll(t.Context(), esdb.ReadAllOptions{Filter: filter}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eventNumbers(t, all)

	if spy.LastRequest.Filter != filter {
		t.Errorf("expected the filter to be sent, got %v", spy.LastRequest.Filter)
	}
}

func TestReadAll_InvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		opts  esdb.ReadAllOptions
		count uint64
		arg   string
	}{
		{"zero count", esdb.ReadAllOptions{}, 0, "count"},
		{"unknown direction", esdb.ReadAllOptions{Direction: esdb.Direction(7)}, 1, "direction"},
		{"empty filter", esdb.ReadAllOptions{Filter: &esdb.SubscriptionFilter{}}, 1, "filter"},
		{"unknown filter type", esdb.ReadAllOptions{Filter: &esdb.SubscriptionFilter{Type: 9, Regex: ".*"}}, 1, "filter"},
		{
			name:  "prefixes and regex",
			opts:  esdb.ReadAllOptions{Filter: &esdb.SubscriptionFilter{Prefixes: []string{"a"}, Regex: "b"}},
			count: 1,
			arg:   "filter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := fixtures.NewTransportSpy()

			_, err := esdb.NewClient(spy).ReadAll(t.Context(), tt.opts, tt.count)

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

func TestReadAll_OpenFault(t *testing.T) {
	boom := errors.New("unavailable")
	spy := fixtures.NewTransportSpy().FailOnRead(boom)

	all, err := esdb.NewClient(spy).ReadAll(t.Context(), esdb.ReadAllOptions{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all.Next() {
		t.Fatal("expected no event")
	}
	if !errors.Is(all.Err(), boom) {
		t.Errorf("expected %v, got %v", boom, all.Err())
	}
}

func TestReadAll_CancelledBeforeOpen(t *testing.T) {
	spy := fixtures.NewTransportSpy(fixtures.Events("orders-1", 0, 1)...)

	ctx, cancel := context.WithCancel(t.Context())
	all, err := esdb.NewClient(spy).ReadAll(ctx, esdb.ReadAllOptions{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	if all.Next() {
		t.Fatal("expected no event")
	}
	if !errors.Is(all.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", all.Err())
	}
	if spy.Calls() != 0 {
		t.Errorf("expected no read, got %d", spy.Calls())
	}
}

func TestReadAll_ProtocolViolation(t *testing.T) {
	spy := fixtures.NewTransportSpy(fixtures.NotFound("$all"))

	all, err := esdb.NewClient(spy).ReadAll(t.Context(), esdb.ReadAllOptions{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all.Next() {
		t.Fatal("expected no event")
	}
	if !errors.Is(all.Err(), esdb.ErrProtocolViolation) {
		t.Errorf("expected ErrProtocolViolation, got %v", all.Err())
	}
	if n := spy.LastSource().CloseCalls.Load(); n != 1 {
		t.Errorf("expected the source to be released once, got %d", n)
	}
}
