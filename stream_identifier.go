package esdb

import "sync/atomic"

// StreamIdentifier is a stream name as it travels on the wire: raw UTF-8
// bytes. The string form is decoded once and cached.
type StreamIdentifier struct {
	name   []byte
	cached atomic.Pointer[string]
}

// NewStreamIdentifier returns the identifier for the named stream.
func NewStreamIdentifier(name string) *StreamIdentifier {
	id := &StreamIdentifier{name: []byte(name)}
	id.cached.Store(&name)
	return id
}

// StreamIdentifierFromBytes wraps wire bytes without decoding them.
func StreamIdentifierFromBytes(b []byte) *StreamIdentifier {
	return &StreamIdentifier{name: b}
}

// Bytes returns the wire form of the name.
func (s *StreamIdentifier) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.name
}

// String returns the stream name. Concurrent callers may both decode the
// bytes; they store the same value.
func (s *StreamIdentifier) String() string {
	if s == nil || len(s.name) == 0 {
		return ""
	}
	if cached := s.cached.Load(); cached != nil {
		return *cached
	}
	name := string(s.name)
	s.cached.Store(&name)
	return name
}
