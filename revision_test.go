package esdb

import (
	"math"
	"testing"
	"time"
)

func TestPositionCompare(t *testing.T) {
	tests := []struct {
		a, b Position
		want int
	}{
		{Position{Commit: 1, Prepare: 1}, Position{Commit: 1, Prepare: 1}, 0},
		{Position{Commit: 1, Prepare: 9}, Position{Commit: 2, Prepare: 0}, -1},
		{Position{Commit: 2, Prepare: 0}, Position{Commit: 1, Prepare: 9}, 1},
		{Position{Commit: 5, Prepare: 3}, Position{Commit: 5, Prepare: 4}, -1},
		{Position{Commit: 5, Prepare: 4}, Position{Commit: 5, Prepare: 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+" vs "+tt.b.String(), func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
			if got := tt.a.Less(tt.b); got != (tt.want < 0) {
				t.Errorf("Less() = %v, want %v", got, tt.want < 0)
			}
		})
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{Position{Commit: 10, Prepare: 5}.String(), "C:10/P:5"},
		{Forwards.String(), "forwards"},
		{Backwards.String(), "backwards"},
		{Direction(3).String(), "Direction(3)"},
		{ReadStateOk.String(), "Ok"},
		{ReadStateStreamNotFound.String(), "StreamNotFound"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTicks(t *testing.T) {
	created := time.Date(2024, 5, 6, 7, 8, 9, 123456700, time.UTC)

	if got := TicksToTime(TimeToTicks(created)); !got.Equal(created) {
		t.Errorf("expected %v, got %v", created, got)
	}
	if got := TicksToTime(0); !got.Equal(time.Unix(0, 0)) {
		t.Errorf("expected the unix epoch, got %v", got)
	}
}

func TestTicks_FarFuture(t *testing.T) {
	// Past year 2262, ticks*100 no longer fits in an int64 of nanoseconds.
	ticks := int64(math.MaxInt64/100 + 1)
	if got := TicksToTime(ticks); got.Year() < 2262 {
		t.Errorf("expected a time after 2262, got %v", got)
	}
	if got := TicksToTime(-ticks); got.Year() > 1678 {
		t.Errorf("expected a time before 1678, got %v", got)
	}
}

func TestNewEventRecord_CreatedOutOfRange(t *testing.T) {
	for _, created := range []string{"9223372036854775807", "-9223372036854775808", "92233720368547759"} {
		record := newEventRecord(&RecordedEvent{
			StreamIdentifier: NewStreamIdentifier("orders-1"),
			Metadata:         map[string]string{MetadataCreated: created},
		})
		if !record.CreatedDate.IsZero() {
			t.Errorf("expected created %s to be ignored, got %v", created, record.CreatedDate)
		}
	}

	record := newEventRecord(&RecordedEvent{
		StreamIdentifier: NewStreamIdentifier("orders-1"),
		Metadata:         map[string]string{MetadataCreated: "92233720368547758"},
	})
	if record.CreatedDate.IsZero() || record.CreatedDate.Year() != 2262 {
		t.Errorf("expected the last representable tick to be kept, got %v", record.CreatedDate)
	}
}

func TestNewEventRecord(t *testing.T) {
	e := &RecordedEvent{
		StreamIdentifier: NewStreamIdentifier("orders-1"),
		StreamRevision:   4,
		PreparePosition:  90,
		CommitPosition:   100,
		Metadata: map[string]string{
			MetadataType:        "OrderPaid",
			MetadataContentType: ContentTypeBinary,
			MetadataCreated:     "not-a-number",
		},
		CustomMetadata: []byte("meta"),
		Data:           []byte("data"),
	}

	record := newEventRecord(e)
	if record.StreamID != "orders-1" || record.EventNumber != 4 {
		t.Errorf("unexpected identity %s/%d", record.StreamID, record.EventNumber)
	}
	if record.Position != (Position{Commit: 100, Prepare: 90}) {
		t.Errorf("unexpected position %v", record.Position)
	}
	if record.EventType != "OrderPaid" || record.ContentType != ContentTypeBinary {
		t.Errorf("unexpected metadata %q %q", record.EventType, record.ContentType)
	}
	if !record.CreatedDate.IsZero() {
		t.Errorf("expected an unparsable created date to stay zero, got %v", record.CreatedDate)
	}
	if string(record.UserMetadata) != "meta" || string(record.Data) != "data" {
		t.Errorf("unexpected payload %q %q", record.UserMetadata, record.Data)
	}
}

func TestStreamIdentifier(t *testing.T) {
	id := StreamIdentifierFromBytes([]byte("orders-1"))
	if id.String() != "orders-1" {
		t.Errorf("expected orders-1, got %q", id.String())
	}
	if id.cached.Load() == nil {
		t.Error("expected the decoded name to be cached")
	}
	if string(NewStreamIdentifier("orders-1").Bytes()) != "orders-1" {
		t.Error("expected the wire form to round trip")
	}

	var missing *StreamIdentifier
	if missing.String() != "" || missing.Bytes() != nil {
		t.Error("expected a nil identifier to be empty")
	}
}
