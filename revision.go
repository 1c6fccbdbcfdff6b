package esdb

import (
	"fmt"
	"math"
)

// StreamPosition is where a single stream read starts: Start, End or a Revision.
type StreamPosition interface {
	isStreamPosition()
}

// AllPosition is where a whole-log read starts: Start, End or a Position.
type AllPosition interface {
	isAllPosition()
}

// Start is the beginning of a stream or of the log.
type Start struct{}

func (Start) isStreamPosition() {}
func (Start) isAllPosition()    {}

// End is the end of a stream or of the log.
type End struct{}

func (End) isStreamPosition() {}
func (End) isAllPosition()    {}

// Revision is an explicit event number within a stream.
type Revision uint64

func (Revision) isStreamPosition() {}

// Position is a place in the global log. Positions are ordered by commit,
// then prepare.
type Position struct {
	Commit  uint64
	Prepare uint64
}

func (Position) isAllPosition() {}

// Compare returns -1, 0 or 1 depending on whether p sorts before, equal to
// or after other.
func (p Position) Compare(other Position) int {
	switch {
	case p.Commit < other.Commit:
		return -1
	case p.Commit > other.Commit:
		return 1
	case p.Prepare < other.Prepare:
		return -1
	case p.Prepare > other.Prepare:
		return 1
	default:
		return 0
	}
}

// Less reports whether p sorts before other.
func (p Position) Less(other Position) bool {
	return p.Compare(other) < 0
}

func (p Position) String() string {
	return fmt.Sprintf("C:%d/P:%d", p.Commit, p.Prepare)
}

// Unbounded reads until the stream or the log is exhausted.
const Unbounded uint64 = math.MaxUint64

// Direction is the order in which a read walks a stream or the log.
type Direction int

const (
	Forwards Direction = iota
	Backwards
)

func (d Direction) String() string {
	switch d {
	case Forwards:
		return "forwards"
	case Backwards:
		return "backwards"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}
