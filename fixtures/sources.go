package fixtures

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/terraskye/esdb"
)

// ErrSourceClosed is returned by Recv on a closed ScriptedSource.
var ErrSourceClosed = errors.New("fixtures: source closed")

// ScriptedSource is a ResponseSource that replays a fixed list of messages.
// After the last message it ends with io.EOF, with the configured fault, or
// blocks until its context ends or it is closed.
type ScriptedSource struct {
	ctx       context.Context
	responses []esdb.Response

	mu    sync.Mutex
	next  int
	err   error
	block bool

	closed    chan struct{}
	closeOnce sync.Once

	// CloseCalls counts calls to Close.
	CloseCalls atomic.Int32
	// RecvCalls counts calls to Recv.
	RecvCalls atomic.Int32
}

var _ esdb.ResponseSource = (*ScriptedSource)(nil)

// NewScriptedSource creates a source bound to ctx that replays responses.
func NewScriptedSource(ctx context.Context, responses ...esdb.Response) *ScriptedSource {
	return &ScriptedSource{
		ctx:       ctx,
		responses: responses,
		closed:    make(chan struct{}),
	}
}

// FailWith ends the script with err instead of io.EOF.
func (s *ScriptedSource) FailWith(err error) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// BlockAtEnd makes Recv block after the last message until the context ends
// or the source is closed.
func (s *ScriptedSource) BlockAtEnd() *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = true
	return s
}

// Recv implements esdb.ResponseSource.
func (s *ScriptedSource) Recv() (esdb.Response, error) {
	s.RecvCalls.Add(1)

	select {
	case <-s.closed:
		return nil, ErrSourceClosed
	default:
	}

	s.mu.Lock()
	if s.next < len(s.responses) {
		resp := s.responses[s.next]
		s.next++
		s.mu.Unlock()
		return resp, nil
	}
	block, err := s.block, s.err
	s.mu.Unlock()

	if block {
		select {
		case <-s.ctx.Done():
			return nil, s.ctx.Err()
		case <-s.closed:
			return nil, ErrSourceClosed
		}
	}
	if err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close implements esdb.ResponseSource.
func (s *ScriptedSource) Close() error {
	s.CloseCalls.Add(1)
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

// Delivered returns how many scripted messages were handed out.
func (s *ScriptedSource) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
