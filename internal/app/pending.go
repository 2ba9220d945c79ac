package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
	"github.com/google/uuid"
)

const DefaultCommandTimeout = 10 * time.Second

var (
	ErrCommandTimeout   = errors.New("command not confirmed in time")
	ErrDuplicateCommand = errors.New("duplicate correlation id")
)

// Call is one command waiting for its confirming event.
type Call struct {
	ID   string
	Type core.CommandType

	done  chan struct{}
	once  sync.Once
	event core.Event
	err   error
	timer *time.Timer
}

func (c *Call) finish(ev core.Event, err error) bool {
	ok := false
	c.once.Do(func() {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.event, c.err = ev, err
		close(c.done)
		ok = true
	})
	return ok
}

func (c *Call) Done() <-chan struct{} { return c.done }

// Result is valid once Done is closed.
func (c *Call) Result() (core.Event, error) {
	select {
	case <-c.done:
		return c.event, c.err
	default:
		return core.Event{}, fmt.Errorf("call %s still pending", c.ID)
	}
}

// Wait blocks until the call settles or ctx ends. Leaving early does not
// cancel the call itself.
func (c *Call) Wait(ctx context.Context) (core.Event, error) {
	select {
	case <-c.done:
		return c.event, c.err
	case <-ctx.Done():
		return core.Event{}, ctx.Err()
	}
}

// PendingTable tracks commands by correlation id until the server echoes
// them or answers with a command-error.
type PendingTable struct {
	mu      sync.Mutex
	calls   map[string]*Call
	timeout time.Duration
}

func NewPendingTable(timeout time.Duration) *PendingTable {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &PendingTable{calls: make(map[string]*Call), timeout: timeout}
}

// Add registers cmd, assigning a correlation id when it has none. The call
// is rejected with ErrCommandTimeout when nothing answers it in time.
func (t *PendingTable) Add(cmd *core.Command) (*Call, error) {
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = uuid.NewString()
	}
	c := &Call{ID: cmd.CorrelationID, Type: cmd.Type, done: make(chan struct{})}
	t.mu.Lock()
	if _, dup := t.calls[c.ID]; dup {
		t.mu.Unlock()
		return nil, ErrDuplicateCommand
	}
	id, op := c.ID, string(c.Type)
	c.timer = time.AfterFunc(t.timeout, func() {
		t.Reject(id, domain.NewError(domain.KindCommandRejected, op, ErrCommandTimeout))
	})
	t.calls[c.ID] = c
	t.mu.Unlock()
	return c, nil
}

func (t *PendingTable) pop(id string) *Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.calls[id]
	if !ok {
		return nil
	}
	delete(t.calls, id)
	return c
}

// Resolve settles the call with its confirming event.
func (t *PendingTable) Resolve(id string, ev core.Event) bool {
	if c := t.pop(id); c != nil {
		return c.finish(ev, nil)
	}
	return false
}

func (t *PendingTable) Reject(id string, err error) bool {
	if c := t.pop(id); c != nil {
		return c.finish(core.Event{}, err)
	}
	return false
}

// Drain rejects every outstanding call with err and returns how many there were.
func (t *PendingTable) Drain(err error) int {
	t.mu.Lock()
	calls := t.calls
	t.calls = make(map[string]*Call)
	t.mu.Unlock()
	for _, c := range calls {
		c.finish(core.Event{}, err)
	}
	return len(calls)
}

func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
