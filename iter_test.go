package esdb_test

import (
	"errors"
	"testing"

	"github.com/terraskye/esdb"
	"github.com/terraskye/esdb/fixtures"
)

func TestAll_CollectsAndCloses(t *testing.T) {
	spy := fixtures.NewTransportSpy(fixtures.Events("orders-1", 0, 3)...)
	result := readStream(t, spy, "orders-1", esdb.Unbounded)

	events, err := result.All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, event := range events {
		if event.Event.EventNumber != uint64(i) {
			t.Errorf("index %d: expected event #%d, got #%d", i, i, event.Event.EventNumber)
		}
	}
	if n := spy.LastSource().CloseCalls.Load(); n != 1 {
		t.Errorf("expected the source to be released once, got %d", n)
	}

	if _, err := result.All(); !errors.Is(err, esdb.ErrAlreadyIterated) {
		t.Errorf("expected ErrAlreadyIterated, got %v", err)
	}
}

func TestAll_ReturnsPartialEventsWithFault(t *testing.T) {
	result := readStream(t, fixtures.NewTransportSpy(fixtures.NotFound("missing-42")), "missing-42", 10)

	events, err := result.All()
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if !errors.Is(err, esdb.ErrStreamNotFound) {
		t.Errorf("expected ErrStreamNotFound, got %v", err)
	}
}

func TestEvents_Range(t *testing.T) {
	spy := fixtures.NewTransportSpy(fixtures.Events("orders-1", 0, 3)...)
	result := readStream(t, spy, "orders-1", esdb.Unbounded)

	var got []uint64
	for event, err := range result.Events() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, event.Event.EventNumber)
	}
	if !equalNumbers(got, []uint64{0, 1, 2}) {
		t.Errorf("expected [0 1 2], got %v", got)
	}
}

func TestEvents_BreakReleases(t *testing.T) {
	spy := fixtures.NewTransportSpy(fixtures.Events("orders-1", 0, 5)...)
	result := readStream(t, spy, "orders-1", esdb.Unbounded)

	for range result.Events() {
		break
	}

	if n := spy.LastSource().CloseCalls.Load(); n != 1 {
		t.Errorf("expected the source to be released once, got %d", n)
	}
	if n := spy.LastSource().Delivered(); n != 1 {
		t.Errorf("expected one message to be pulled, got %d", n)
	}
}

func TestEvents_YieldsFault(t *testing.T) {
	boom := errors.New("connection reset")
	spy := fixtures.NewTransportSpy(fixtures.Event("orders-1", 0, "OrderPlaced")).FailAfterScript(boom)
	result := readStream(t, spy, "orders-1", esdb.Unbounded)

	var events int
	var faults []error
	for event, err := range result.Events() {
		if err != nil {
			faults = append(faults, err)
			continue
		}
		if event == nil {
			t.Fatal("expected an event alongside a nil error")
		}
		events++
	}

	if events != 1 {
		t.Errorf("expected 1 event, got %d", events)
	}
	if len(faults) != 1 || !errors.Is(faults[0], boom) {
		t.Errorf("expected a single %v, got %v", boom, faults)
	}
}

func TestEvents_SecondRange(t *testing.T) {
	result := readStream(t, fixtures.NewTransportSpy(fixtures.Events("orders-1", 0, 2)...), "orders-1", esdb.Unbounded)

	for range result.Events() {
	}

	var got error
	for _, err := range result.Events() {
		got = err
	}
	if !errors.Is(got, esdb.ErrAlreadyIterated) {
		t.Errorf("expected ErrAlreadyIterated, got %v", got)
	}
}

func TestEvents_AfterNext(t *testing.T) {
	result := readStream(t, fixtures.NewTransportSpy(fixtures.Events("orders-1", 0, 2)...), "orders-1", esdb.Unbounded)

	if !result.Next() {
		t.Fatalf("expected an event, got %v", result.Err())
	}

	var got error
	for _, err := range result.Events() {
		got = err
	}
	if !errors.Is(got, esdb.ErrAlreadyIterated) {
		t.Errorf("expected ErrAlreadyIterated, got %v", got)
	}
}
