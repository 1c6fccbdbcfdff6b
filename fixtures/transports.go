package fixtures

import (
	"context"
	"sync"

	"github.com/terraskye/esdb"
)

// TransportSpy is a configurable mock Transport for testing.
// It tracks calls and serves every read from a ScriptedSource.
type TransportSpy struct {
	mu sync.Mutex

	// ReadFn overrides the default behavior.
	ReadFn func(ctx context.Context, req *esdb.ReadRequest, opts esdb.CallOptions) (esdb.ResponseSource, error)

	// Call tracking
	ReadCalls   int
	LastRequest *esdb.ReadRequest
	LastOptions esdb.CallOptions
	Sources     []*ScriptedSource

	// Pre-configured script
	responses []esdb.Response
	recvErr   error
	block     bool

	// Error injection
	readErr error
}

var _ esdb.Transport = (*TransportSpy)(nil)

// NewTransportSpy creates a spy whose reads replay responses.
func NewTransportSpy(responses ...esdb.Response) *TransportSpy {
	return &TransportSpy{responses: responses}
}

// FailOnRead makes Read itself fail with err.
func (t *TransportSpy) FailOnRead(err error) *TransportSpy {
	t.readErr = err
	return t
}

// FailAfterScript ends every read with err after the scripted messages.
func (t *TransportSpy) FailAfterScript(err error) *TransportSpy {
	t.recvErr = err
	return t
}

// BlockAfterScript keeps every read open after the scripted messages until
// it is cancelled or closed.
func (t *TransportSpy) BlockAfterScript() *TransportSpy {
	t.block = true
	return t
}

// Read implements esdb.Transport.
func (t *TransportSpy) Read(ctx context.Context, req *esdb.ReadRequest, opts esdb.CallOptions) (esdb.ResponseSource, error) {
	t.mu.Lock()
	t.ReadCalls++
	t.LastRequest = req
	t.LastOptions = opts
	t.mu.Unlock()

	if t.ReadFn != nil {
		return t.ReadFn(ctx, req, opts)
	}
	if t.readErr != nil {
		return nil, t.readErr
	}

	source := NewScriptedSource(ctx, t.responses...)
	if t.recvErr != nil {
		source.FailWith(t.recvErr)
	}
	if t.block {
		source.BlockAtEnd()
	}

	t.mu.Lock()
	t.Sources = append(t.Sources, source)
	t.mu.Unlock()

	return source, nil
}

// Calls returns the number of Read calls so far.
func (t *TransportSpy) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ReadCalls
}

// LastSource returns the source handed out by the latest read, or nil.
func (t *TransportSpy) LastSource() *ScriptedSource {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Sources) == 0 {
		return nil
	}
	return t.Sources[len(t.Sources)-1]
}
