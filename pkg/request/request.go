// Package request tracks outstanding host-response requests the interpreter
// is waiting on (spec §3.6, §4.7.4): DIGITAL_READ_REQUEST, ANALOG_READ_REQUEST,
// MILLIS_REQUEST, MICROS_REQUEST, PULSE_IN_REQUEST and LIBRARY_METHOD_REQUEST
// all pause execution until the embedded host calls back with a value (or an
// error), or until the request times out.
package request

import (
	"fmt"
	"sync"
)

// Pending is one outstanding request, with the data needed to resume the
// paused interpreter once it resolves. spec §5 allows either an explicit
// continuation-queue state machine or "a single-threaded cooperative task
// yielding at external-call boundaries" — this implementation picks the
// latter: the interpreter's tree walk runs on its own goroutine and calls
// Wait, parking on a channel, while the host goroutine drives everything
// else (including Resolve/Reject, called from HandleResponse). Only one side
// is ever doing interpreter work at a time, so it is cooperative in the
// sense spec §5 means even though two goroutines are involved.
type Pending struct {
	ID        string
	Operation string // command.Type the request was raised for, kept as string to avoid an import cycle
	IssuedAt  int64
	Deadline  int64 // IssuedAt + timeout; Sweep evicts anything still open past this
	Value     any
	Err       error
	done      chan struct{}
}

func newPending(id, operation string, issuedAt, timeoutMs int64) *Pending {
	return &Pending{ID: id, Operation: operation, IssuedAt: issuedAt, Deadline: issuedAt + timeoutMs, done: make(chan struct{})}
}

// Wait blocks the calling goroutine until the request resolves, then returns
// its value or error.
func (p *Pending) Wait() (any, error) {
	<-p.done
	return p.Value, p.Err
}

// Table is the interpreter's single outstanding-request slot plus a
// monotonic sequence for requestId generation, so a response naming a stale
// or unknown id can be rejected per spec §4.7.4's single-outstanding-request
// rule.
type Table struct {
	mu      sync.Mutex
	seq     int64
	current *Pending
}

func NewTable() *Table {
	return &Table{}
}

// NewID mints a requestId of the form "<operation>_<timestamp>_<seq>",
// matching spec §4.7.4's requestId format without relying on crypto/rand or
// time.Now (both forbidden in a deterministic interpreter core).
func (t *Table) NewID(operation string, timestamp int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	return fmt.Sprintf("%s_%d_%d", operation, timestamp, t.seq)
}

// Open registers a new outstanding request. Per the single-outstanding-request
// rule only one request is open at a time: Open does not check, it replaces
// any current request. The interpreter opens one only from awaitResponse,
// which blocks until that request completes before returning.
func (t *Table) Open(id, operation string, issuedAt, timeoutMs int64) *Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := newPending(id, operation, issuedAt, timeoutMs)
	t.current = p
	return p
}

// Outstanding reports the currently open request, if any.
func (t *Table) Outstanding() (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil, false
	}
	select {
	case <-t.current.done:
		return nil, false
	default:
		return t.current, true
	}
}

// Resolve completes the named request with a value. Returns false if id does
// not match the currently outstanding request (stale or unknown response).
func (t *Table) Resolve(id string, value any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || t.current.ID != id {
		return false
	}
	select {
	case <-t.current.done:
		return false
	default:
	}
	t.current.Value = value
	close(t.current.done)
	return true
}

// Reject completes the named request with an error.
func (t *Table) Reject(id string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || t.current.ID != id {
		return false
	}
	select {
	case <-t.current.done:
		return false
	default:
	}
	t.current.Err = err
	close(t.current.done)
	return true
}

// Sweep evicts the outstanding request if now has passed its deadline, per
// spec §4.7.4's fallback-on-timeout behavior, and returns the evicted id (if
// any) so the caller can log/emit a LIMIT/IO error command for it.
func (t *Table) Sweep(now int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || now < t.current.Deadline {
		return nil
	}
	select {
	case <-t.current.done:
		return nil
	default:
	}
	id := t.current.ID
	t.current.Err = fmt.Errorf("request %s timed out", id)
	close(t.current.done)
	return []string{id}
}
