package esdb

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned before any call is made when a read is
	// requested with invalid options.
	ErrInvalidArgument = errors.New("esdb: invalid argument")

	// ErrStreamNotFound matches every StreamNotFoundError.
	ErrStreamNotFound = errors.New("esdb: stream not found")

	// ErrProtocolViolation is returned when the server sends a message the
	// read protocol does not allow at that point.
	ErrProtocolViolation = errors.New("esdb: protocol violation")

	// ErrAlreadyIterated is returned when a read result is iterated a second time.
	ErrAlreadyIterated = errors.New("esdb: read result already iterated")

	// ErrClosed is returned when a read result is used after Close.
	ErrClosed = errors.New("esdb: read result closed")
)

type InvalidArgumentError struct {
	Name   string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("esdb: invalid argument %q: %s", e.Name, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// StreamNotFoundError is returned when iterating a read of a stream that
// does not exist.
type StreamNotFoundError struct {
	Stream string
}

func (e *StreamNotFoundError) Error() string {
	return fmt.Sprintf("esdb: stream %q not found", e.Stream)
}

func (e *StreamNotFoundError) Unwrap() error {
	return ErrStreamNotFound
}

type ProtocolViolationError struct {
	Response Response
	Reason   string
}

func (e *ProtocolViolationError) Error() string {
	if e.Response == nil {
		return "esdb: protocol violation: " + e.Reason
	}
	return fmt.Sprintf("esdb: protocol violation on %s message: %s", ResponseKind(e.Response), e.Reason)
}

func (e *ProtocolViolationError) Unwrap() error {
	return ErrProtocolViolation
}
