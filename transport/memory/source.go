package memory

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/terraskye/esdb"
)

var errSourceClosed = errors.New("memory: read closed")

type source struct {
	ctx       context.Context
	responses []esdb.Response
	next      int
	closed    atomic.Bool
}

func (s *source) Recv() (esdb.Response, error) {
	if s.closed.Load() {
		return nil, errSourceClosed
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.responses) {
		return nil, io.EOF
	}

	resp := s.responses[s.next]
	s.next++
	return resp, nil
}

func (s *source) Close() error {
	s.closed.Store(true)
	return nil
}
